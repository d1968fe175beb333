package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/estimation"
	"github.com/reactiontech/websa-api/internal/domain/port"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*entity.User
	nextID int64
	err    error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[int64]*entity.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *entity.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for _, existing := range f.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, port.ErrDuplicate
		}
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByLogin(_ context.Context, login string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id int64, age int, state string, sports []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return port.ErrNotFound
	}
	u.Age = &age
	u.State = state
	u.Sports = sports
	return nil
}

type fakeVideos struct {
	videos  map[int64]*entity.Video
	history []entity.HistoryEntry
	count   int
	nextID  int64
	err     error
	heights map[int64]float64
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{videos: map[int64]*entity.Video{}, heights: map[int64]float64{}}
}

func (f *fakeVideos) Create(_ context.Context, v *entity.Video) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	cp := *v
	cp.ID = f.nextID
	f.videos[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeVideos) FindByID(_ context.Context, id int64) (*entity.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return v, nil
}

func (f *fakeVideos) ListHistory(context.Context, int64) ([]entity.HistoryEntry, error) {
	return f.history, f.err
}

func (f *fakeVideos) CountByUser(context.Context, int64) (int, error) { return f.count, f.err }

func (f *fakeVideos) SetEstimatedHeight(_ context.Context, id int64, h float64) error {
	if f.err != nil {
		return f.err
	}
	f.heights[id] = h
	return nil
}

type fakeAnalytics struct {
	created []*entity.Analytics
	recent  []entity.Analytics
	err     error
}

func (f *fakeAnalytics) Create(_ context.Context, a *entity.Analytics) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, a)
	return int64(len(f.created)), nil
}

func (f *fakeAnalytics) RecentByUser(context.Context, int64, int) ([]entity.Analytics, error) {
	return f.recent, f.err
}

type fakeJobs struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.EstimationJob
	updates []entity.EstimationJob
	findErr error
	// updateCtxErrs records ctx.Err() seen by each Update.
	updateCtxErrs []error
}

func newFakeJobs() *fakeJobs { return &fakeJobs{jobs: map[uuid.UUID]entity.EstimationJob{}} }

func (f *fakeJobs) Create(_ context.Context, j *entity.EstimationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = *j
	return nil
}

func (f *fakeJobs) Update(ctx context.Context, j *entity.EstimationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCtxErrs = append(f.updateCtxErrs, ctx.Err())
	f.jobs[j.ID] = *j
	f.updates = append(f.updates, *j)
	return nil
}

func (f *fakeJobs) FindByID(_ context.Context, id uuid.UUID) (*entity.EstimationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	j, ok := f.jobs[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &j, nil
}

type fakeStorage struct {
	objects     map[string][]byte
	deleted     []string
	uploadErr   error
	downloadErr error
	// failPrefix makes uploads of matching keys fail with uploadErr.
	failPrefix string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (f *fakeStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.uploadErr != nil && strings.HasPrefix(key, f.failPrefix) {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = b
	return f.URL(key), nil
}

func (f *fakeStorage) Download(_ context.Context, key, dest string) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	b, ok := f.objects[key]
	if !ok {
		return errors.New("NoSuchKey")
	}
	return os.WriteFile(dest, b, 0o644)
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) URL(key string) string { return "https://objects.test/websa/" + key }

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	reasons  []string
	err      error
}

func (f *fakePublisher) record(ctx context.Context, msg []byte, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakePublisher) PublishEstimation(ctx context.Context, msg []byte) error {
	return f.record(ctx, msg, "")
}

func (f *fakePublisher) PublishStatus(ctx context.Context, msg []byte) error {
	return f.record(ctx, msg, "")
}

func (f *fakePublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return f.record(ctx, msg, reason)
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, to, jobID, _, _ string) error {
	f.sent = append(f.sent, to+"/"+jobID)
	return nil
}

type fakeProber struct {
	err error
}

func (f *fakeProber) Probe(context.Context, string) (*port.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &port.VideoInfo{Codec: "h264", Width: 640, Height: 480, Duration: 1}, nil
}

// fakePipeline records the file it was asked to process and whether it existed.
type fakePipeline struct {
	est      entity.HeightEstimate
	err      error
	delay    time.Duration
	paths    []string
	contents []string
}

func (f *fakePipeline) Run(ctx context.Context, path string, onStage estimation.StageFunc) (entity.HeightEstimate, error) {
	f.paths = append(f.paths, path)
	b, _ := os.ReadFile(path)
	f.contents = append(f.contents, string(b))

	onStage(entity.StageSampling)
	onStage(entity.StageExtractingLandmarks)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return entity.HeightEstimate{}, ctx.Err()
		}
	}
	if f.err != nil {
		return entity.HeightEstimate{}, f.err
	}
	onStage(entity.StageAggregating)
	onStage(entity.StagePredicting)
	return f.est, nil
}

type fakeEstimator struct {
	est   entity.HeightEstimate
	err   error
	paths []string
	// during runs before the result is returned.
	during func()
}

func (f *fakeEstimator) EstimateFile(_ context.Context, path string) (entity.HeightEstimate, error) {
	f.paths = append(f.paths, path)
	if f.during != nil {
		f.during()
	}
	return f.est, f.err
}
