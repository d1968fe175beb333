package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websa_http_requests_total",
		Help: "Total number of HTTP requests, by route and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "websa_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "websa_pipeline_stage_duration_seconds",
		Help:    "Time spent in each height estimation stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	EstimationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websa_estimations_total",
		Help: "Total number of height estimations, by outcome",
	}, []string{"outcome"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websa_frames_sampled_total",
		Help: "Total number of frames sampled across all estimations",
	})

	PosesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websa_poses_detected_total",
		Help: "Total number of sampled frames with a detected pose",
	})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websa_jobs_processed_total",
		Help: "Total number of estimation jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "websa_job_processing_duration_seconds",
		Help:    "Duration of asynchronous estimation jobs",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websa_active_workers",
		Help: "Number of workers currently processing estimation jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websa_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
