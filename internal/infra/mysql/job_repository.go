package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobRow struct {
	ID              string     `db:"id"`
	VideoID         int64      `db:"video_id"`
	UserID          int64      `db:"user_id"`
	VideoKey        string     `db:"video_key"`
	Status          string     `db:"status"`
	EstimatedHeight *float64   `db:"estimated_height"`
	FramesSampled   int        `db:"frames_sampled"`
	FramesUsed      int        `db:"frames_used"`
	Attempt         int        `db:"attempt"`
	MaxAttempts     int        `db:"max_attempts"`
	ErrorMessage    string     `db:"error_message"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}

func (r *JobRepository) Create(ctx context.Context, job *entity.EstimationJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO estimation_jobs (
			id, video_id, user_id, video_key, status, estimated_height,
			frames_sampled, frames_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.VideoID, job.UserID, job.VideoKey, string(job.Status), job.EstimatedHeight,
		job.FramesSampled, job.FramesUsed, job.Attempt, job.MaxAttempts,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return mapErr("insert job", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.EstimationJob) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE estimation_jobs SET
			status = ?, estimated_height = ?, frames_sampled = ?, frames_used = ?,
			attempt = ?, error_message = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		string(job.Status), job.EstimatedHeight, job.FramesSampled, job.FramesUsed,
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
		job.ID.String())
	if err != nil {
		return mapErr("update job", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.EstimationJob, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, video_id, user_id, video_key, status, estimated_height,
			frames_sampled, frames_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM estimation_jobs WHERE id = ?`, id.String())
	if err != nil {
		return nil, mapErr("find job by id", err)
	}

	parsed, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("find job by id: parse id %q: %w", row.ID, err)
	}
	return &entity.EstimationJob{
		ID:              parsed,
		VideoID:         row.VideoID,
		UserID:          row.UserID,
		VideoKey:        row.VideoKey,
		Status:          entity.JobStatus(row.Status),
		EstimatedHeight: row.EstimatedHeight,
		FramesSampled:   row.FramesSampled,
		FramesUsed:      row.FramesUsed,
		Attempt:         row.Attempt,
		MaxAttempts:     row.MaxAttempts,
		ErrorMessage:    row.ErrorMessage,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		CompletedAt:     row.CompletedAt,
	}, nil
}
