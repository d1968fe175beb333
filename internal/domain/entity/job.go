package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// EstimationJob tracks an asynchronous height estimation for a stored video.
type EstimationJob struct {
	ID              uuid.UUID
	VideoID         int64
	UserID          int64
	VideoKey        string
	Status          JobStatus
	EstimatedHeight *float64
	FramesSampled   int
	FramesUsed      int
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewEstimationJob(videoID, userID int64, videoKey string, maxAttempts int) *EstimationJob {
	now := time.Now().UTC()
	return &EstimationJob{
		ID:          uuid.New(),
		VideoID:     videoID,
		UserID:      userID,
		VideoKey:    videoKey,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *EstimationJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *EstimationJob) MarkCompleted(est HeightEstimate) {
	now := time.Now().UTC()
	h := est.Height
	j.Status = JobStatusCompleted
	j.EstimatedHeight = &h
	j.FramesSampled = est.FramesSampled
	j.FramesUsed = est.FramesUsed
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *EstimationJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// MarkInterrupted returns a job stopped by worker shutdown to PENDING and
// gives back the attempt MarkProcessing took.
func (j *EstimationJob) MarkInterrupted() {
	j.Status = JobStatusPending
	j.Attempt = max(j.Attempt-1, 0)
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *EstimationJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

func (j *EstimationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || (j.Status == JobStatusFailed && !j.CanRetry())
}
