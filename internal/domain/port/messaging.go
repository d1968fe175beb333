package port

import "context"

// EstimationPublisher enqueues a serialized EstimationJobMessage.
type EstimationPublisher interface {
	PublishEstimation(ctx context.Context, msg []byte) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

// FailureNotifier tells the video owner that an estimation job gave up.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, jobID string, videoName string, errorMsg string) error
}
