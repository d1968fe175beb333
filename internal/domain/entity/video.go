package entity

import "time"

type Video struct {
	ID              int64
	UserID          int64
	Name            string
	FilePath        string
	ObjectKey       string
	ThumbnailURL    string
	UploadDate      time.Time
	EstimatedHeight *float64
}

type Analytics struct {
	ID                       int64
	VideoID                  int64
	IdealHeadAnglePercentage float64
	TopSpeed                 float64
	AverageJumpHeight        *float64
	AverageStrideLength      *float64
	PeakAcceleration         *float64
	PeakDeceleration         *float64
	AverageAthleticScore     *float64
	CreatedAt                time.Time
}

// HistoryEntry is one video of a user joined with its latest analytics, if any.
type HistoryEntry struct {
	VideoID         int64
	VideoURL        string
	VideoName       string
	ThumbnailURL    string
	UploadDate      time.Time
	HeadPercentage  *float64
	TopSpeed        *float64
	EstimatedHeight *float64
}

// UploadSummary backs the dashboard counters.
type UploadSummary struct {
	TotalUploads    int
	RecentAnalytics []Analytics
}
