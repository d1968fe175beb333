package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

type VideoRepository struct {
	db *sqlx.DB
}

func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

type videoRow struct {
	ID              int64           `db:"video_id"`
	UserID          int64           `db:"user_id"`
	Name            string          `db:"video_name"`
	FilePath        string          `db:"file_path"`
	ObjectKey       string          `db:"object_key"`
	ThumbnailURL    sql.NullString  `db:"thumbnail_url"`
	UploadDate      time.Time       `db:"upload_date"`
	EstimatedHeight sql.NullFloat64 `db:"estimated_height"`
}

type historyRow struct {
	VideoID         int64           `db:"video_id"`
	VideoURL        string          `db:"file_path"`
	VideoName       string          `db:"video_name"`
	ThumbnailURL    sql.NullString  `db:"thumbnail_url"`
	UploadDate      time.Time       `db:"upload_date"`
	HeadPercentage  sql.NullFloat64 `db:"ideal_head_angle_percentage"`
	TopSpeed        sql.NullFloat64 `db:"top_speed"`
	EstimatedHeight sql.NullFloat64 `db:"estimated_height"`
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *VideoRepository) Create(ctx context.Context, v *entity.Video) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (user_id, video_name, file_path, object_key, thumbnail_url, upload_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.UserID, v.Name, v.FilePath, v.ObjectKey, nullString(v.ThumbnailURL), v.UploadDate)
	if err != nil {
		return 0, mapErr("insert video", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, mapErr("insert video", err)
	}
	return id, nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id int64) (*entity.Video, error) {
	var row videoRow
	err := r.db.GetContext(ctx, &row, `
		SELECT video_id, user_id, video_name, file_path, object_key,
			thumbnail_url, upload_date, estimated_height
		FROM videos WHERE video_id = ?`, id)
	if err != nil {
		return nil, mapErr("find video by id", err)
	}
	return &entity.Video{
		ID:              row.ID,
		UserID:          row.UserID,
		Name:            row.Name,
		FilePath:        row.FilePath,
		ObjectKey:       row.ObjectKey,
		ThumbnailURL:    row.ThumbnailURL.String,
		UploadDate:      row.UploadDate,
		EstimatedHeight: floatPtr(row.EstimatedHeight),
	}, nil
}

// ListHistory joins each video with its most recent analytics row.
func (r *VideoRepository) ListHistory(ctx context.Context, userID int64) ([]entity.HistoryEntry, error) {
	var rows []historyRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT v.video_id, v.file_path, v.video_name, v.thumbnail_url, v.upload_date,
			a.ideal_head_angle_percentage, a.top_speed, v.estimated_height
		FROM videos v
		LEFT JOIN analytics a ON a.analytics_id = (
			SELECT a2.analytics_id FROM analytics a2
			WHERE a2.video_id = v.video_id
			ORDER BY a2.created_at DESC, a2.analytics_id DESC
			LIMIT 1
		)
		WHERE v.user_id = ?
		ORDER BY v.upload_date DESC, v.video_id DESC`, userID)
	if err != nil {
		return nil, mapErr("list history", err)
	}

	entries := make([]entity.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entity.HistoryEntry{
			VideoID:         row.VideoID,
			VideoURL:        row.VideoURL,
			VideoName:       row.VideoName,
			ThumbnailURL:    row.ThumbnailURL.String,
			UploadDate:      row.UploadDate,
			HeadPercentage:  floatPtr(row.HeadPercentage),
			TopSpeed:        floatPtr(row.TopSpeed),
			EstimatedHeight: floatPtr(row.EstimatedHeight),
		})
	}
	return entries, nil
}

func (r *VideoRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM videos WHERE user_id = ?`, userID); err != nil {
		return 0, mapErr("count videos", err)
	}
	return n, nil
}

func (r *VideoRepository) SetEstimatedHeight(ctx context.Context, id int64, height float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE videos SET estimated_height = ? WHERE video_id = ?`, height, id)
	if err != nil {
		return mapErr("set estimated height", err)
	}
	return requireAffected("set estimated height", res)
}
