package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.EstimationJob) error {
	query := `
		INSERT INTO estimation_jobs (
			id, video_id, user_id, video_key, status, estimated_height,
			frames_sampled, frames_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.VideoID, job.UserID, job.VideoKey, string(job.Status), job.EstimatedHeight,
		job.FramesSampled, job.FramesUsed, job.Attempt, job.MaxAttempts,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return mapErr("insert job", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.EstimationJob) error {
	query := `
		UPDATE estimation_jobs SET
			status=$2, estimated_height=$3, frames_sampled=$4, frames_used=$5,
			attempt=$6, error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.EstimatedHeight, job.FramesSampled,
		job.FramesUsed, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return mapErr("update job", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.EstimationJob, error) {
	query := `
		SELECT id, video_id, user_id, video_key, status, estimated_height,
			frames_sampled, frames_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM estimation_jobs WHERE id=$1`

	job := &entity.EstimationJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.VideoID, &job.UserID, &job.VideoKey, &status, &job.EstimatedHeight,
		&job.FramesSampled, &job.FramesUsed, &job.Attempt, &job.MaxAttempts,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, mapErr("find job by id", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
