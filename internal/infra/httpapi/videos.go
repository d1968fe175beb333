package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/usecase"
)

// wrapFormErr keeps body-size errors intact so they map to 413.
func wrapFormErr(op, msg string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return badRequest(op, msg)
}

func (h *Handler) upload(c *gin.Context) {
	const op = "upload video"

	video, videoHeader, err := c.Request.FormFile("video")
	if err != nil {
		h.respondError(c, wrapFormErr(op, "video file is required", err))
		return
	}
	defer video.Close()

	userID, err := parseID(op, "userId", c.PostForm("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	uploaded, ok := parseUploadDate(c.PostForm("uploadDate"))
	if !ok {
		h.respondError(c, badRequest(op, "uploadDate must be RFC 3339 or YYYY-MM-DD"))
		return
	}

	in := usecase.UploadInput{
		UserID:     userID,
		Video:      uploadFile(video, videoHeader),
		UploadDate: uploaded,
	}

	thumb, thumbHeader, err := c.Request.FormFile("thumbnail")
	switch {
	case err == nil:
		defer thumb.Close()
		f := uploadFile(thumb, thumbHeader)
		in.Thumbnail = &f
	case !errors.Is(err, http.ErrMissingFile):
		h.respondError(c, wrapFormErr(op, "thumbnail could not be read", err))
		return
	}

	res, err := h.videos.Upload(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"message":   "Video uploaded successfully",
		"video_id":  res.VideoID,
		"video_url": res.VideoURL,
	}
	if res.ThumbnailURL != "" {
		body["thumbnail_url"] = res.ThumbnailURL
	}
	c.JSON(http.StatusCreated, body)
}

func uploadFile(f multipart.File, h *multipart.FileHeader) usecase.UploadFile {
	return usecase.UploadFile{
		Name:        h.Filename,
		Reader:      f,
		Size:        h.Size,
		ContentType: h.Header.Get("Content-Type"),
	}
}

type videoResponse struct {
	VideoID         int64     `json:"video_id"`
	UserID          int64     `json:"user_id"`
	VideoName       string    `json:"video_name"`
	VideoURL        string    `json:"video_url"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	UploadDate      time.Time `json:"upload_date"`
	EstimatedHeight *float64  `json:"estimated_height"`
}

func (h *Handler) getVideo(c *gin.Context) {
	id, err := parseID("get video", "videoId", c.Param("videoId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	v, err := h.videos.Video(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, videoResponse{
		VideoID:         v.ID,
		UserID:          v.UserID,
		VideoName:       v.Name,
		VideoURL:        v.FilePath,
		ThumbnailURL:    v.ThumbnailURL,
		UploadDate:      v.UploadDate,
		EstimatedHeight: v.EstimatedHeight,
	})
}

type historyItem struct {
	VideoID         int64     `json:"video_id"`
	VideoURL        string    `json:"video_url"`
	VideoName       string    `json:"video_name"`
	UploadDate      time.Time `json:"upload_date"`
	HeadPercentage  *float64  `json:"head_percentage"`
	TopSpeed        *float64  `json:"top_speed"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	EstimatedHeight *float64  `json:"estimated_height"`
}

func (h *Handler) history(c *gin.Context) {
	userID, err := parseID("history", "userId", c.Query("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	entries, err := h.videos.History(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			VideoID:         e.VideoID,
			VideoURL:        e.VideoURL,
			VideoName:       e.VideoName,
			UploadDate:      e.UploadDate,
			HeadPercentage:  e.HeadPercentage,
			TopSpeed:        e.TopSpeed,
			ThumbnailURL:    e.ThumbnailURL,
			EstimatedHeight: e.EstimatedHeight,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}

type saveAnalyticsRequest struct {
	VideoID              flexID   `json:"videoId"`
	IdealHeadPercentage  *float64 `json:"idealHeadPercentage"`
	TopSpeed             *float64 `json:"topSpeed"`
	AverageJumpHeight    *float64 `json:"averageJumpHeight"`
	AverageStrideLength  *float64 `json:"averageStrideLength"`
	PeakAcceleration     *float64 `json:"peakAcceleration"`
	PeakDeceleration     *float64 `json:"peakDeceleration"`
	AverageAthleticScore *float64 `json:"averageAthleticScore"`
}

func (h *Handler) saveAnalytics(c *gin.Context) {
	const op = "save analytics"

	var req saveAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(op, "invalid JSON body"))
		return
	}
	if req.VideoID <= 0 || req.IdealHeadPercentage == nil || req.TopSpeed == nil {
		h.respondError(c, badRequest(op, "videoId, idealHeadPercentage and topSpeed are required"))
		return
	}

	id, err := h.videos.SaveAnalytics(c.Request.Context(), &entity.Analytics{
		VideoID:                  int64(req.VideoID),
		IdealHeadAnglePercentage: *req.IdealHeadPercentage,
		TopSpeed:                 *req.TopSpeed,
		AverageJumpHeight:        req.AverageJumpHeight,
		AverageStrideLength:      req.AverageStrideLength,
		PeakAcceleration:         req.PeakAcceleration,
		PeakDeceleration:         req.PeakDeceleration,
		AverageAthleticScore:     req.AverageAthleticScore,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Analytics saved successfully", "analytics_id": id})
}

type recentAnalytics struct {
	TopSpeed         []float64 `json:"topSpeed"`
	MaxAcceleration  []float64 `json:"maxAcceleration"`
	HeadUpPercentage []float64 `json:"headUpPercentage"`
}

func (h *Handler) totalUploads(c *gin.Context) {
	userID, err := parseID("upload summary", "userId", c.Query("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, err := h.videos.UploadSummary(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	recent := recentAnalytics{
		TopSpeed:         make([]float64, 0, len(summary.RecentAnalytics)),
		MaxAcceleration:  make([]float64, 0, len(summary.RecentAnalytics)),
		HeadUpPercentage: make([]float64, 0, len(summary.RecentAnalytics)),
	}
	for _, a := range summary.RecentAnalytics {
		accel := 0.0
		if a.PeakAcceleration != nil {
			accel = *a.PeakAcceleration
		}
		recent.TopSpeed = append(recent.TopSpeed, a.TopSpeed)
		recent.MaxAcceleration = append(recent.MaxAcceleration, accel)
		recent.HeadUpPercentage = append(recent.HeadUpPercentage, a.IdealHeadAnglePercentage)
	}

	c.JSON(http.StatusOK, gin.H{"total_uploads": summary.TotalUploads, "recent_analytics": recent})
}

func (h *Handler) requestEstimation(c *gin.Context) {
	id, err := parseID("request estimation", "videoId", c.Param("videoId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	job, err := h.videos.RequestEstimation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

type jobResponse struct {
	entity.EstimationStatusMessage
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		h.respondError(c, badRequest("get job", "jobId must be a UUID"))
		return
	}

	job, err := h.videos.Job(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobResponse{
		EstimationStatusMessage: entity.NewStatusMessage(job),
		CreatedAt:               job.CreatedAt,
		UpdatedAt:               job.UpdatedAt,
		CompletedAt:             job.CompletedAt,
	})
}
