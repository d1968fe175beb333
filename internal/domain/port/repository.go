package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

// Repositories return ErrNotFound for missing rows and ErrDuplicate for
// unique-key violations so use cases stay independent of the SQL driver.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (int64, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id int64, age int, state string, sports []string) error
}

type VideoRepository interface {
	Create(ctx context.Context, video *entity.Video) (int64, error)
	FindByID(ctx context.Context, id int64) (*entity.Video, error)
	ListHistory(ctx context.Context, userID int64) ([]entity.HistoryEntry, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	SetEstimatedHeight(ctx context.Context, id int64, height float64) error
}

type AnalyticsRepository interface {
	Create(ctx context.Context, a *entity.Analytics) (int64, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]entity.Analytics, error)
}

type JobRepository interface {
	Create(ctx context.Context, job *entity.EstimationJob) error
	Update(ctx context.Context, job *entity.EstimationJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.EstimationJob, error)
}
