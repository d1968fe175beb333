package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

func (r *AnalyticsRepository) Create(ctx context.Context, a *entity.Analytics) (int64, error) {
	query := `
		INSERT INTO analytics (
			video_id, ideal_head_angle_percentage, top_speed,
			average_jump_height, average_stride_length,
			peak_acceleration, peak_deceleration, average_athletic_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING analytics_id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		a.VideoID, a.IdealHeadAnglePercentage, a.TopSpeed,
		a.AverageJumpHeight, a.AverageStrideLength,
		a.PeakAcceleration, a.PeakDeceleration, a.AverageAthleticScore,
	).Scan(&id)
	if err != nil {
		return 0, mapErr("insert analytics", err)
	}
	return id, nil
}

// RecentByUser returns the newest analytics rows of a user's videos, newest first.
func (r *AnalyticsRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]entity.Analytics, error) {
	query := `
		SELECT a.analytics_id, a.video_id, a.ideal_head_angle_percentage, a.top_speed,
			a.average_jump_height, a.average_stride_length,
			a.peak_acceleration, a.peak_deceleration, a.average_athletic_score, a.created_at
		FROM analytics a
		JOIN videos v ON v.video_id = a.video_id
		WHERE v.user_id = $1
		ORDER BY a.created_at DESC, a.analytics_id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, mapErr("recent analytics", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Analytics, error) {
		var a entity.Analytics
		err := row.Scan(&a.ID, &a.VideoID, &a.IdealHeadAnglePercentage, &a.TopSpeed,
			&a.AverageJumpHeight, &a.AverageStrideLength,
			&a.PeakAcceleration, &a.PeakDeceleration, &a.AverageAthleticScore, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, mapErr("scan analytics", err)
	}
	return out, nil
}
