package mysql_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"user_id", "name", "username", "email", "password", "age", "state", "sports", "created_at"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mockSQL, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "mysql"), mockSQL
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name       string
		beforeTest func(sqlmock.Sqlmock)
		want       int64
		wantErr    error
	}{
		{
			name: "success",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q("INSERT INTO users (name, username, email, password)")).
					WithArgs("Ana", "ana", "ana@x.io", "hash").
					WillReturnResult(sqlmock.NewResult(7, 1))
			},
			want: 7,
		},
		{
			name: "duplicate username",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q("INSERT INTO users")).
					WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ana'"})
			},
			wantErr: port.ErrDuplicate,
		},
		{
			name: "driver failure",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q("INSERT INTO users")).WillReturnError(errors.New("whoops"))
			},
			wantErr: errors.New("whoops"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, m := newMock(t)
			tt.beforeTest(m)

			got, err := mysql.NewUserRepository(db).Create(context.Background(),
				&entity.User{Name: "Ana", Username: "ana", Email: "ana@x.io", PasswordHash: "hash"})

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			case errors.Is(tt.wantErr, port.ErrDuplicate):
				assert.ErrorIs(t, err, port.ErrDuplicate)
			default:
				assert.ErrorContains(t, err, tt.wantErr.Error())
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_FindByLogin(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		beforeTest func(sqlmock.Sqlmock)
		want       *entity.User
		wantErr    error
	}{
		{
			name: "found with profile",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q("FROM users WHERE username = ? OR email = ?")).
					WithArgs("ana@x.io", "ana@x.io").
					WillReturnRows(sqlmock.NewRows(userCols).
						AddRow(3, "Ana", "ana", "ana@x.io", "hash", 19, "TX", "Basketball, Track", created))
			},
			want: &entity.User{
				ID: 3, Name: "Ana", Username: "ana", Email: "ana@x.io", PasswordHash: "hash",
				Age: intPtr(19), State: "TX", Sports: []string{"Basketball", "Track"}, CreatedAt: created,
			},
		},
		{
			name: "found without profile",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q("FROM users WHERE username = ? OR email = ?")).
					WillReturnRows(sqlmock.NewRows(userCols).
						AddRow(3, "Ana", "ana", "ana@x.io", "hash", nil, nil, nil, created))
			},
			want: &entity.User{ID: 3, Name: "Ana", Username: "ana", Email: "ana@x.io", PasswordHash: "hash", CreatedAt: created},
		},
		{
			name: "not found",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q("FROM users")).WillReturnRows(sqlmock.NewRows(userCols))
			},
			wantErr: port.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, m := newMock(t)
			tt.beforeTest(m)

			got, err := mysql.NewUserRepository(db).FindByLogin(context.Background(), "ana@x.io")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	tests := []struct {
		name       string
		beforeTest func(sqlmock.Sqlmock)
		wantErr    error
	}{
		{
			name: "updated",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q("UPDATE users SET age = ?, state = ?, sports = ? WHERE user_id = ?")).
					WithArgs(19, "TX", "Basketball, Track", int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unknown user",
			beforeTest: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q("UPDATE users")).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: port.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, m := newMock(t)
			tt.beforeTest(m)

			err := mysql.NewUserRepository(db).UpdateProfile(context.Background(), 3, 19, "TX", []string{"Basketball", "Track"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestVideoRepository_ListHistory(t *testing.T) {
	db, m := newMock(t)
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	m.ExpectQuery(q("FROM videos v")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"video_id", "file_path", "video_name", "thumbnail_url", "upload_date",
			"ideal_head_angle_percentage", "top_speed", "estimated_height",
		}).
			AddRow(2, "https://s/b.mp4", "b.mp4", nil, newer, nil, nil, nil).
			AddRow(1, "https://s/a.mp4", "a.mp4", "https://s/a.jpg", older, 65.0, 6.5, 177.5))

	got, err := mysql.NewVideoRepository(db).ListHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(2), got[0].VideoID)
	assert.Empty(t, got[0].ThumbnailURL)
	assert.Nil(t, got[0].HeadPercentage)
	assert.Nil(t, got[0].EstimatedHeight)

	assert.Equal(t, "https://s/a.jpg", got[1].ThumbnailURL)
	assert.Equal(t, 65.0, *got[1].HeadPercentage)
	assert.Equal(t, 6.5, *got[1].TopSpeed)
	assert.Equal(t, 177.5, *got[1].EstimatedHeight)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestVideoRepository_CreateAndSetHeight(t *testing.T) {
	db, m := newMock(t)
	repo := mysql.NewVideoRepository(db)
	now := time.Now().UTC()

	m.ExpectExec(q("INSERT INTO videos")).
		WithArgs(int64(3), "a.mp4", "https://s/a.mp4", "videos/3/a.mp4", nil, now).
		WillReturnResult(sqlmock.NewResult(11, 1))
	m.ExpectExec(q("UPDATE videos SET estimated_height = ? WHERE video_id = ?")).
		WithArgs(180.2, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(q("UPDATE videos SET estimated_height")).
		WithArgs(180.2, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	id, err := repo.Create(context.Background(), &entity.Video{
		UserID: 3, Name: "a.mp4", FilePath: "https://s/a.mp4", ObjectKey: "videos/3/a.mp4", UploadDate: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	require.NoError(t, repo.SetEstimatedHeight(context.Background(), 11, 180.2))
	assert.ErrorIs(t, repo.SetEstimatedHeight(context.Background(), 99, 180.2), port.ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAnalyticsRepository_RecentByUser(t *testing.T) {
	db, m := newMock(t)
	at := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	m.ExpectQuery(q("JOIN videos v ON v.video_id = a.video_id")).
		WithArgs(int64(3), 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"analytics_id", "video_id", "ideal_head_angle_percentage", "top_speed",
			"average_jump_height", "average_stride_length",
			"peak_acceleration", "peak_deceleration", "average_athletic_score", "created_at",
		}).AddRow(5, 1, 70.0, 7.1, 0.4, nil, nil, nil, 88.0, at))

	got, err := mysql.NewAnalyticsRepository(db).RecentByUser(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, 0.4, *got[0].AverageJumpHeight)
	assert.Nil(t, got[0].AverageStrideLength)
	assert.Equal(t, 88.0, *got[0].AverageAthleticScore)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestJobRepository_FindByID(t *testing.T) {
	db, m := newMock(t)
	id := uuid.New()
	at := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	m.ExpectQuery(q("FROM estimation_jobs WHERE id = ?")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "video_id", "user_id", "video_key", "status", "estimated_height",
			"frames_sampled", "frames_used", "attempt", "max_attempts",
			"error_message", "created_at", "updated_at", "completed_at",
		}).AddRow(id.String(), 1, 3, "videos/3/a.mp4", "COMPLETED", 181.0, 12, 10, 1, 5, "", at, at, at))
	m.ExpectQuery(q("FROM estimation_jobs")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := mysql.NewJobRepository(db)
	job, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 181.0, *job.EstimatedHeight)
	assert.Equal(t, 10, job.FramesUsed)
	require.NotNil(t, job.CompletedAt)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, port.ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestJobRepository_CreateUpdate(t *testing.T) {
	db, m := newMock(t)
	job := entity.NewEstimationJob(1, 3, "videos/3/a.mp4", 5)

	m.ExpectExec(q("INSERT INTO estimation_jobs")).
		WithArgs(job.ID.String(), int64(1), int64(3), "videos/3/a.mp4", "PENDING", nil,
			0, 0, 0, 5, "", sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(q("UPDATE estimation_jobs SET")).
		WithArgs("PROCESSING", nil, 0, 0, 1, "", sqlmock.AnyArg(), nil, job.ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := mysql.NewJobRepository(db)
	require.NoError(t, repo.Create(context.Background(), job))
	job.MarkProcessing()
	require.NoError(t, repo.Update(context.Background(), job))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestNormalizeDSN(t *testing.T) {
	got, err := mysql.NormalizeDSN("websa:secret@tcp(db:3306)/websa")
	require.NoError(t, err)

	cfg, err := gomysql.ParseDSN(got)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "websa", cfg.DBName)
	assert.Equal(t, "db:3306", cfg.Addr)

	_, err = mysql.NormalizeDSN("not a dsn")
	assert.Error(t, err)
}

func intPtr(v int) *int { return &v }
