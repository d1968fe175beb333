package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type processFixture struct {
	uc        *ProcessEstimationUseCase
	jobs      *fakeJobs
	videos    *fakeVideos
	storage   *fakeStorage
	estimator *fakeEstimator
	status    *fakePublisher
	dlq       *fakePublisher
	notifier  *fakeNotifier
	tempDir   string
}

func newProcessFixture(t *testing.T, maxRetries int) *processFixture {
	t.Helper()
	f := &processFixture{
		jobs:      newFakeJobs(),
		videos:    newFakeVideos(),
		storage:   newFakeStorage(),
		estimator: &fakeEstimator{est: entity.HeightEstimate{Height: 182.4, FramesSampled: 12, FramesUsed: 9}},
		status:    &fakePublisher{},
		dlq:       &fakePublisher{},
		notifier:  &fakeNotifier{},
		tempDir:   t.TempDir(),
	}
	f.storage.objects["videos/1/abc_run.mp4"] = []byte("video bytes")
	f.uc = NewProcessEstimationUseCase(
		f.jobs, f.videos, f.storage, f.estimator,
		f.status, f.dlq, f.notifier,
		zap.NewNop(),
		ProcessEstimationConfig{TempDir: f.tempDir, MaxRetries: maxRetries},
	)
	return f
}

func requestMessage(t *testing.T, key string) (uuid.UUID, []byte) {
	t.Helper()
	id := uuid.New()
	body, err := json.Marshal(entity.EstimationRequestMessage{
		JobID:     id,
		VideoID:   7,
		UserID:    1,
		VideoKey:  key,
		UserEmail: "ana@x.io",
	})
	require.NoError(t, err)
	return id, body
}

func lastStatus(t *testing.T, p *fakePublisher) entity.EstimationStatusMessage {
	t.Helper()
	require.NotEmpty(t, p.messages)
	var msg entity.EstimationStatusMessage
	require.NoError(t, json.Unmarshal(p.messages[len(p.messages)-1], &msg))
	return msg
}

func TestProcessEstimationCompletes(t *testing.T) {
	f := newProcessFixture(t, 3)
	id, body := requestMessage(t, "videos/1/abc_run.mp4")

	require.NoError(t, f.uc.Execute(context.Background(), body))

	job, err := f.jobs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 182.4, *job.EstimatedHeight)
	assert.Equal(t, 9, job.FramesUsed)
	assert.Equal(t, 182.4, f.videos.heights[7])

	status := lastStatus(t, f.status)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Empty(t, f.dlq.messages)

	require.Len(t, f.estimator.paths, 1)
	_, statErr := os.Stat(f.estimator.paths[0])
	assert.True(t, os.IsNotExist(statErr), "work dir must be removed")
}

func TestProcessEstimationMalformedGoesToDLQ(t *testing.T) {
	f := newProcessFixture(t, 3)

	require.NoError(t, f.uc.Execute(context.Background(), []byte(`{invalid json`)))
	require.Len(t, f.dlq.messages, 1)
	assert.Equal(t, `{invalid json`, string(f.dlq.messages[0]))
	assert.Contains(t, f.dlq.reasons[0], "unmarshal_error")
}

func TestProcessEstimationDownloadFailureRetries(t *testing.T) {
	f := newProcessFixture(t, 2)
	f.storage.downloadErr = errors.New("connection reset")
	id, body := requestMessage(t, "videos/1/abc_run.mp4")

	err := f.uc.Execute(context.Background(), body)
	assert.Error(t, err)
	job, _ := f.jobs.FindByID(context.Background(), id)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.Attempt)
	assert.Empty(t, f.dlq.messages)

	// second and last attempt exhausts retries
	require.NoError(t, f.uc.Execute(context.Background(), body))
	require.Len(t, f.dlq.messages, 1)
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, entity.JobStatusFailed, lastStatus(t, f.status).Status)
}

func TestProcessEstimationPipelineErrorIsPermanent(t *testing.T) {
	f := newProcessFixture(t, 5)
	f.estimator.err = apperr.EmptyResult("aggregate")
	id, body := requestMessage(t, "videos/1/abc_run.mp4")

	require.NoError(t, f.uc.Execute(context.Background(), body))

	job, _ := f.jobs.FindByID(context.Background(), id)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "empty_result")
	assert.False(t, job.CanRetry())
	require.Len(t, f.dlq.messages, 1)
	assert.Equal(t, []string{"ana@x.io/" + id.String()}, f.notifier.sent)
	assert.Empty(t, f.videos.heights)
}

func TestProcessEstimationRedeliveryOfCompletedJob(t *testing.T) {
	f := newProcessFixture(t, 3)
	_, body := requestMessage(t, "videos/1/abc_run.mp4")

	require.NoError(t, f.uc.Execute(context.Background(), body))
	require.NoError(t, f.uc.Execute(context.Background(), body))
	assert.Len(t, f.estimator.paths, 1)
}

func TestProcessEstimationRepositoryDown(t *testing.T) {
	f := newProcessFixture(t, 3)
	f.jobs.findErr = errors.New("too many connections")
	_, body := requestMessage(t, "videos/1/abc_run.mp4")

	assert.Error(t, f.uc.Execute(context.Background(), body))
	assert.Empty(t, f.estimator.paths)
}

func TestProcessEstimationShutdownDoesNotSpendAttempt(t *testing.T) {
	f := newProcessFixture(t, 3)
	id, body := requestMessage(t, "videos/1/abc_run.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.estimator.during = cancel
	f.estimator.err = apperr.Internal("estimate height", context.Canceled)

	err := f.uc.Execute(ctx, body)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	job, err := f.jobs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempt)
	assert.Empty(t, job.ErrorMessage)

	last := f.jobs.updateCtxErrs[len(f.jobs.updateCtxErrs)-1]
	assert.NoError(t, last, "interrupted job must be saved on a live context")
	assert.Equal(t, entity.JobStatusPending, lastStatus(t, f.status).Status)
	assert.Empty(t, f.dlq.messages)
	assert.Empty(t, f.notifier.sent)
}

func TestProcessEstimationFailureRecordedAfterCancel(t *testing.T) {
	f := newProcessFixture(t, 1)
	id, body := requestMessage(t, "videos/1/abc_run.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.estimator.err = apperr.EmptyResult("estimate height")
	f.estimator.during = cancel

	// A permanent failure that races with shutdown is still interrupted
	// work: the job goes back to PENDING for the next worker.
	require.Error(t, f.uc.Execute(ctx, body))
	job, err := f.jobs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	for _, e := range f.jobs.updateCtxErrs[1:] {
		assert.NoError(t, e)
	}
}
