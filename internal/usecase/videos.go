package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	recentAnalyticsLimit = 10
	cleanupTimeout       = 30 * time.Second
)

type VideoUseCase struct {
	users     port.UserRepository
	videos    port.VideoRepository
	analytics port.AnalyticsRepository
	jobs      port.JobRepository
	storage   port.ObjectStorage
	publisher port.EstimationPublisher
	logger    *zap.Logger
	maxRetry  int
}

type VideoConfig struct {
	MaxRetries int
}

func NewVideoUseCase(
	users port.UserRepository,
	videos port.VideoRepository,
	analytics port.AnalyticsRepository,
	jobs port.JobRepository,
	storage port.ObjectStorage,
	publisher port.EstimationPublisher,
	logger *zap.Logger,
	cfg VideoConfig,
) *VideoUseCase {
	return &VideoUseCase{
		users:     users,
		videos:    videos,
		analytics: analytics,
		jobs:      jobs,
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		maxRetry:  cfg.MaxRetries,
	}
}

// UploadFile is one multipart file part.
type UploadFile struct {
	Name        string
	Reader      io.Reader
	Size        int64
	ContentType string
}

type UploadInput struct {
	UserID     int64
	Video      UploadFile
	Thumbnail  *UploadFile
	UploadDate time.Time
}

type UploadResult struct {
	VideoID      int64
	VideoURL     string
	ThumbnailURL string
}

func (uc *VideoUseCase) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	const op = "upload video"

	ctx, span := otel.Tracer("usecase").Start(ctx, "VideoUseCase.Upload")
	defer span.End()

	if in.UserID <= 0 {
		return nil, apperr.Validation(op, "userId is required")
	}
	if in.Video.Reader == nil {
		return nil, apperr.Validation(op, "video file is required")
	}
	name := SanitizeFilename(in.Video.Name, "video")
	if _, err := uc.users.FindByID(ctx, in.UserID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, apperr.NotFound(op, "user not found")
		}
		return nil, apperr.Dependency(op, err)
	}

	key := ObjectKey("videos", in.UserID, name)
	span.SetAttributes(attribute.String("video.key", key))

	videoURL, err := uc.storage.Upload(ctx, key, in.Video.Reader, in.Video.Size, contentTypeOr(in.Video.ContentType, "video/mp4"))
	if err != nil {
		return nil, apperr.Dependency(op, fmt.Errorf("store video: %w", err))
	}

	stored := []string{key}

	var thumbURL string
	if in.Thumbnail != nil && in.Thumbnail.Reader != nil {
		thumbKey := ObjectKey("thumbnails", in.UserID, SanitizeFilename(in.Thumbnail.Name, "thumbnail"))
		thumbURL, err = uc.storage.Upload(ctx, thumbKey, in.Thumbnail.Reader, in.Thumbnail.Size, contentTypeOr(in.Thumbnail.ContentType, "image/jpeg"))
		if err != nil {
			uc.removeObjects(ctx, stored...)
			return nil, apperr.Dependency(op, fmt.Errorf("store thumbnail: %w", err))
		}
		stored = append(stored, thumbKey)
	}

	uploaded := in.UploadDate
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}

	id, err := uc.videos.Create(ctx, &entity.Video{
		UserID:       in.UserID,
		Name:         name,
		FilePath:     videoURL,
		ObjectKey:    key,
		ThumbnailURL: thumbURL,
		UploadDate:   uploaded,
	})
	if err != nil {
		uc.removeObjects(ctx, stored...)
		return nil, apperr.Dependency(op, err)
	}

	uc.logger.Info("video uploaded",
		zap.Int64("video_id", id),
		zap.Int64("user_id", in.UserID),
		zap.String("key", key),
	)
	return &UploadResult{VideoID: id, VideoURL: videoURL, ThumbnailURL: thumbURL}, nil
}

// removeObjects deletes objects stored by a failed upload. It runs on a
// context detached from the request so a disconnected client still gets
// its objects removed.
func (uc *VideoUseCase) removeObjects(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := uc.storage.Delete(ctx, key); err != nil {
			uc.logger.Warn("failed to remove orphaned object", zap.String("key", key), zap.Error(err))
		}
	}
}

func (uc *VideoUseCase) Video(ctx context.Context, videoID int64) (*entity.Video, error) {
	const op = "get video"

	if videoID <= 0 {
		return nil, apperr.Validation(op, "videoId is required")
	}
	v, err := uc.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, apperr.NotFound(op, "video not found")
		}
		return nil, apperr.Dependency(op, err)
	}
	return v, nil
}

// History lists a user's videos, newest first.
func (uc *VideoUseCase) History(ctx context.Context, userID int64) ([]entity.HistoryEntry, error) {
	const op = "history"

	if userID <= 0 {
		return nil, apperr.Validation(op, "userId is required")
	}
	entries, err := uc.videos.ListHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Dependency(op, err)
	}
	return entries, nil
}

func (uc *VideoUseCase) SaveAnalytics(ctx context.Context, a *entity.Analytics) (int64, error) {
	const op = "save analytics"

	if a.VideoID <= 0 {
		return 0, apperr.Validation(op, "videoId is required")
	}
	if a.IdealHeadAnglePercentage < 0 || a.IdealHeadAnglePercentage > 100 {
		return 0, apperr.Validation(op, "idealHeadPercentage must be between 0 and 100")
	}
	if a.TopSpeed < 0 {
		return 0, apperr.Validation(op, "topSpeed must not be negative")
	}
	if _, err := uc.Video(ctx, a.VideoID); err != nil {
		return 0, err
	}

	id, err := uc.analytics.Create(ctx, a)
	if err != nil {
		return 0, apperr.Dependency(op, err)
	}
	return id, nil
}

// UploadSummary returns the upload count and the latest analytics, oldest first.
func (uc *VideoUseCase) UploadSummary(ctx context.Context, userID int64) (*entity.UploadSummary, error) {
	const op = "upload summary"

	if userID <= 0 {
		return nil, apperr.Validation(op, "userId is required")
	}
	total, err := uc.videos.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Dependency(op, err)
	}
	recent, err := uc.analytics.RecentByUser(ctx, userID, recentAnalyticsLimit)
	if err != nil {
		return nil, apperr.Dependency(op, err)
	}
	slices.Reverse(recent)
	return &entity.UploadSummary{TotalUploads: total, RecentAnalytics: recent}, nil
}

// RequestEstimation queues an asynchronous height estimation for a stored video.
func (uc *VideoUseCase) RequestEstimation(ctx context.Context, videoID int64) (*entity.EstimationJob, error) {
	const op = "request estimation"

	ctx, span := otel.Tracer("usecase").Start(ctx, "VideoUseCase.RequestEstimation")
	defer span.End()

	video, err := uc.Video(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.ObjectKey == "" {
		return nil, apperr.Validation(op, "video has no stored object")
	}

	var email string
	if user, err := uc.users.FindByID(ctx, video.UserID); err == nil {
		email = user.Email
	}

	job := entity.NewEstimationJob(video.ID, video.UserID, video.ObjectKey, uc.maxRetry)
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, apperr.Dependency(op, err)
	}
	span.SetAttributes(attribute.String("job.id", job.ID.String()))

	body, err := json.Marshal(entity.EstimationRequestMessage{
		JobID:     job.ID,
		VideoID:   video.ID,
		UserID:    video.UserID,
		VideoKey:  video.ObjectKey,
		UserEmail: email,
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if err := uc.publisher.PublishEstimation(ctx, body); err != nil {
		job.MarkFailed("publish: " + err.Error())
		job.Attempt = job.MaxAttempts
		if uerr := uc.jobs.Update(ctx, job); uerr != nil {
			uc.logger.Error("failed to mark unpublished job", zap.String("job_id", job.ID.String()), zap.Error(uerr))
		}
		return nil, apperr.Dependency(op, err)
	}

	uc.logger.Info("estimation requested", zap.String("job_id", job.ID.String()), zap.Int64("video_id", video.ID))
	return job, nil
}

func (uc *VideoUseCase) Job(ctx context.Context, id uuid.UUID) (*entity.EstimationJob, error) {
	const op = "get job"

	job, err := uc.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, apperr.NotFound(op, "job not found")
		}
		return nil, apperr.Dependency(op, err)
	}
	return job, nil
}

// ObjectKey builds "<prefix>/<userID>/<short id>_<name>" so repeated uploads of
// the same file name do not overwrite each other.
func ObjectKey(prefix string, userID int64, name string) string {
	return fmt.Sprintf("%s/%d/%s_%s", prefix, userID, uuid.NewString()[:8], name)
}

// SanitizeFilename reduces a client supplied file name to a safe ASCII base
// name. When nothing of the stem survives, fallback replaces it and the
// extension is kept.
func SanitizeFilename(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(base)
	stem := safeASCII(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = fallback
	}
	if ext = safeASCII(ext); ext == "" {
		return stem
	}
	return stem + "." + ext
}

func safeASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

func contentTypeOr(ct, fallback string) string {
	if ct == "" || ct == "application/octet-stream" {
		return fallback
	}
	return ct
}
