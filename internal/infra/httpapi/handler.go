// Package httpapi exposes the estimation, account and video use cases over
// JSON/HTTP with gin.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/usecase"
	"go.uber.org/zap"
)

type HeightEstimator interface {
	Execute(ctx context.Context, video io.Reader, filename string) (entity.HeightEstimate, error)
}

type Accounts interface {
	Signup(ctx context.Context, in usecase.SignupInput) (int64, error)
	Login(ctx context.Context, in usecase.LoginInput) (*entity.User, error)
	Profile(ctx context.Context, userID int64) (entity.Profile, error)
	UpdateProfile(ctx context.Context, in usecase.UpdateProfileInput) error
}

type Videos interface {
	Upload(ctx context.Context, in usecase.UploadInput) (*usecase.UploadResult, error)
	Video(ctx context.Context, videoID int64) (*entity.Video, error)
	History(ctx context.Context, userID int64) ([]entity.HistoryEntry, error)
	SaveAnalytics(ctx context.Context, a *entity.Analytics) (int64, error)
	UploadSummary(ctx context.Context, userID int64) (*entity.UploadSummary, error)
	RequestEstimation(ctx context.Context, videoID int64) (*entity.EstimationJob, error)
	Job(ctx context.Context, id uuid.UUID) (*entity.EstimationJob, error)
}

type Handler struct {
	estimator HeightEstimator
	accounts  Accounts
	videos    Videos
	logger    *zap.Logger
}

func NewHandler(estimator HeightEstimator, accounts Accounts, videos Videos, logger *zap.Logger) *Handler {
	return &Handler{estimator: estimator, accounts: accounts, videos: videos, logger: logger}
}

// flexID accepts an id sent either as a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

// parseID reads a positive integer id.
func parseID(op, name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(op, name+" must be a positive integer")
	}
	return id, nil
}

// parseUploadDate accepts RFC 3339 timestamps or plain dates; empty means now.
func parseUploadDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
