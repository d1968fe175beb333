package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func startPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("websa"),
		tcpostgres.WithUsername("websa"),
		tcpostgres.WithPassword("websa"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(connStr))
	// second run is a no-op
	require.NoError(t, RunMigrations(connStr))

	pool, err := Connect(ctx, connStr, 30*time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepositoriesAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t)
	users := NewUserRepository(pool)
	videos := NewVideoRepository(pool)
	analytics := NewAnalyticsRepository(pool)
	jobs := NewJobRepository(pool)

	// users
	uid, err := users.Create(ctx, &entity.User{Name: "Ana Lima", Username: "ana", Email: "ana@x.io", PasswordHash: "$2a$10$hash"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &entity.User{Name: "Other", Username: "ana", Email: "other@x.io", PasswordHash: "h"})
	assert.ErrorIs(t, err, port.ErrDuplicate)

	byEmail, err := users.FindByLogin(ctx, "ana@x.io")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.ID)
	assert.Nil(t, byEmail.Age)

	require.NoError(t, users.UpdateProfile(ctx, uid, 19, "TX", []string{"Basketball", "Track"}))
	u, err := users.FindByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 19, *u.Age)
	assert.Equal(t, []string{"Basketball", "Track"}, u.Sports)

	assert.ErrorIs(t, users.UpdateProfile(ctx, 9999, 19, "TX", nil), port.ErrNotFound)
	_, err = users.FindByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, port.ErrNotFound)

	// videos + analytics
	older := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	v1, err := videos.Create(ctx, &entity.Video{UserID: uid, Name: "a.mp4", FilePath: "http://s/a", ObjectKey: "videos/1/a.mp4", UploadDate: older})
	require.NoError(t, err)
	v2, err := videos.Create(ctx, &entity.Video{UserID: uid, Name: "b.mp4", FilePath: "http://s/b", ObjectKey: "videos/1/b.mp4", ThumbnailURL: "http://s/b.jpg", UploadDate: time.Now().UTC()})
	require.NoError(t, err)

	_, err = analytics.Create(ctx, &entity.Analytics{VideoID: v1, IdealHeadAnglePercentage: 60, TopSpeed: 5.5})
	require.NoError(t, err)
	jump := 0.42
	_, err = analytics.Create(ctx, &entity.Analytics{VideoID: v1, IdealHeadAnglePercentage: 65, TopSpeed: 6.5, AverageJumpHeight: &jump})
	require.NoError(t, err)

	history, err := videos.ListHistory(ctx, uid)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, v2, history[0].VideoID)
	assert.Nil(t, history[0].TopSpeed)
	assert.Equal(t, "http://s/b.jpg", history[0].ThumbnailURL)
	assert.Equal(t, v1, history[1].VideoID)
	assert.Equal(t, 6.5, *history[1].TopSpeed)

	n, err := videos.CountByUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := analytics.RecentByUser(ctx, uid, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 0.42, *recent[0].AverageJumpHeight)

	// jobs
	job := entity.NewEstimationJob(v1, uid, "videos/1/a.mp4", 3)
	require.NoError(t, jobs.Create(ctx, job))
	job.MarkProcessing()
	job.MarkCompleted(entity.HeightEstimate{Height: 177.7, FramesSampled: 10, FramesUsed: 8})
	require.NoError(t, jobs.Update(ctx, job))
	require.NoError(t, videos.SetEstimatedHeight(ctx, v1, 177.7))

	stored, err := jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, stored.Status)
	assert.Equal(t, 177.7, *stored.EstimatedHeight)
	assert.NotNil(t, stored.CompletedAt)

	video, err := videos.FindByID(ctx, v1)
	require.NoError(t, err)
	assert.Equal(t, 177.7, *video.EstimatedHeight)

	_, err = jobs.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, port.ErrNotFound)
}
