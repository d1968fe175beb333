package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

type analyticsRow struct {
	ID                       int64     `db:"analytics_id"`
	VideoID                  int64     `db:"video_id"`
	IdealHeadAnglePercentage float64   `db:"ideal_head_angle_percentage"`
	TopSpeed                 float64   `db:"top_speed"`
	AverageJumpHeight        *float64  `db:"average_jump_height"`
	AverageStrideLength      *float64  `db:"average_stride_length"`
	PeakAcceleration         *float64  `db:"peak_acceleration"`
	PeakDeceleration         *float64  `db:"peak_deceleration"`
	AverageAthleticScore     *float64  `db:"average_athletic_score"`
	CreatedAt                time.Time `db:"created_at"`
}

func (r *AnalyticsRepository) Create(ctx context.Context, a *entity.Analytics) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics (
			video_id, ideal_head_angle_percentage, top_speed,
			average_jump_height, average_stride_length,
			peak_acceleration, peak_deceleration, average_athletic_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.VideoID, a.IdealHeadAnglePercentage, a.TopSpeed,
		a.AverageJumpHeight, a.AverageStrideLength,
		a.PeakAcceleration, a.PeakDeceleration, a.AverageAthleticScore)
	if err != nil {
		return 0, mapErr("insert analytics", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, mapErr("insert analytics", err)
	}
	return id, nil
}

// RecentByUser returns the newest analytics rows of a user's videos, newest first.
func (r *AnalyticsRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]entity.Analytics, error) {
	var rows []analyticsRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT a.analytics_id, a.video_id, a.ideal_head_angle_percentage, a.top_speed,
			a.average_jump_height, a.average_stride_length,
			a.peak_acceleration, a.peak_deceleration, a.average_athletic_score, a.created_at
		FROM analytics a
		JOIN videos v ON v.video_id = a.video_id
		WHERE v.user_id = ?
		ORDER BY a.created_at DESC, a.analytics_id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, mapErr("recent analytics", err)
	}

	out := make([]entity.Analytics, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Analytics(row))
	}
	return out, nil
}
