package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Create(ctx context.Context, v *entity.Video) (int64, error) {
	query := `
		INSERT INTO videos (user_id, video_name, file_path, object_key, thumbnail_url, upload_date)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING video_id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		v.UserID, v.Name, v.FilePath, v.ObjectKey, v.ThumbnailURL, v.UploadDate,
	).Scan(&id)
	if err != nil {
		return 0, mapErr("insert video", err)
	}
	return id, nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id int64) (*entity.Video, error) {
	query := `
		SELECT video_id, user_id, video_name, file_path, object_key,
			COALESCE(thumbnail_url, ''), upload_date, estimated_height
		FROM videos WHERE video_id = $1`

	v := &entity.Video{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.Name, &v.FilePath, &v.ObjectKey,
		&v.ThumbnailURL, &v.UploadDate, &v.EstimatedHeight,
	)
	if err != nil {
		return nil, mapErr("find video by id", err)
	}
	return v, nil
}

// ListHistory joins each video with its most recent analytics row.
func (r *VideoRepository) ListHistory(ctx context.Context, userID int64) ([]entity.HistoryEntry, error) {
	query := `
		SELECT v.video_id, v.file_path, v.video_name, COALESCE(v.thumbnail_url, ''),
			v.upload_date, a.ideal_head_angle_percentage, a.top_speed, v.estimated_height
		FROM videos v
		LEFT JOIN LATERAL (
			SELECT ideal_head_angle_percentage, top_speed
			FROM analytics
			WHERE analytics.video_id = v.video_id
			ORDER BY created_at DESC, analytics_id DESC
			LIMIT 1
		) a ON TRUE
		WHERE v.user_id = $1
		ORDER BY v.upload_date DESC, v.video_id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapErr("list history", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.HistoryEntry, error) {
		var e entity.HistoryEntry
		err := row.Scan(&e.VideoID, &e.VideoURL, &e.VideoName, &e.ThumbnailURL,
			&e.UploadDate, &e.HeadPercentage, &e.TopSpeed, &e.EstimatedHeight)
		return e, err
	})
	if err != nil {
		return nil, mapErr("scan history", err)
	}
	return entries, nil
}

func (r *VideoRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, mapErr("count videos", err)
	}
	return n, nil
}

func (r *VideoRepository) SetEstimatedHeight(ctx context.Context, id int64, height float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE videos SET estimated_height = $1 WHERE video_id = $2`, height, id)
	if err != nil {
		return mapErr("set estimated height", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("set estimated height", pgx.ErrNoRows)
	}
	return nil
}
