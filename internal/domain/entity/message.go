package entity

import "github.com/google/uuid"

// EstimationRequestMessage is published on height.estimation when a client asks
// for an asynchronous estimate of a stored video.
type EstimationRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	VideoID   int64     `json:"video_id"`
	UserID    int64     `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	UserEmail string    `json:"user_email,omitempty"`
}

// EstimationStatusMessage is published on height.status after every job transition.
type EstimationStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	VideoID         int64     `json:"video_id"`
	UserID          int64     `json:"user_id"`
	Status          JobStatus `json:"status"`
	EstimatedHeight *float64  `json:"estimated_height,omitempty"`
	FramesSampled   int       `json:"frames_sampled,omitempty"`
	FramesUsed      int       `json:"frames_used,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}

func NewStatusMessage(job *EstimationJob) EstimationStatusMessage {
	return EstimationStatusMessage{
		JobID:           job.ID,
		VideoID:         job.VideoID,
		UserID:          job.UserID,
		Status:          job.Status,
		EstimatedHeight: job.EstimatedHeight,
		FramesSampled:   job.FramesSampled,
		FramesUsed:      job.FramesUsed,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
}
