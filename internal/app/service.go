// Package service drives the import engine: it accepts submissions, queues
// them, and has a worker pool parse, persist and classify each batch.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/mq/queue"
	"github.com/okian/scoreimport/internal/adapters/mq/worker"
	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/domain/dedupe"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/logger"
	"github.com/okian/scoreimport/pkg/metrics"
)

// Job is one submitted import.
type Job struct {
	ID         string
	UserID     string
	ImportType parser.ImportType
	Data       []byte
	Filename   string
	Playtype   string
	// Auth is required by partner imports.
	Auth        *kai.AuthDocument
	SubmittedAt time.Time

	fingerprint string
}

// Service owns the import pipeline.
type Service struct {
	mu sync.RWMutex

	registry *parser.Registry
	store    repository.Store
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue[Job]
	pool     *worker.Pool[Job]

	fetcher     kai.Fetcher
	chartMaxima normalize.ChartMaxima
	location    *time.Location
	maxPages    int
	partners    []kai.Partner

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   1024,
		dedupeSize:  50_000,
		maxPages:    kai.DefaultMaxPages,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.registry = parser.NewRegistry(s.partners...)
	return s
}

// Start creates the queue and starts the worker pool. Workers stop when ctx
// is canceled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue[Job](queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.HandlerFunc[Job](s.handle),
		worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "import service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("import_types", len(s.registry.Types())),
	)
	return nil
}

// Stop closes the queue and waits for in-flight imports.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "import service stopped")
}

// Submit validates and queues an import. Byte-identical file uploads by the
// same user are refused while the first one is remembered.
func (s *Service) Submit(ctx context.Context, job Job) (model.ImportStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.ImportStatus{}, ErrNotStarted
	}
	if job.UserID == "" {
		return model.ImportStatus{}, ErrMissingUser
	}
	if !s.registry.Supports(job.ImportType) {
		return model.ImportStatus{}, fmt.Errorf("%w: %q", ErrUnsupportedType, job.ImportType)
	}
	if job.ImportType.IsAPI() && job.Auth == nil {
		return model.ImportStatus{}, parser.ErrMissingAuth
	}

	if !job.ImportType.IsAPI() {
		job.fingerprint = dedupe.Fingerprint(job.UserID, string(job.ImportType), job.Data)
		if s.deduper.SeenAndRecord(ctx, job.fingerprint) {
			metrics.RecordImportDuplicate()
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("user_id", job.UserID),
				logger.String("import_type", string(job.ImportType)),
			)
			return model.ImportStatus{}, ErrDuplicate
		}
	}

	job.ID = uuid.NewString()
	job.SubmittedAt = s.now().UTC()
	status := model.ImportStatus{
		ID:          job.ID,
		UserID:      job.UserID,
		ImportType:  string(job.ImportType),
		State:       model.ImportQueued,
		SubmittedAt: job.SubmittedAt,
	}
	if err := s.store.SaveJob(ctx, status); err != nil {
		s.forget(ctx, job)
		return model.ImportStatus{}, err
	}

	if !s.queue.Enqueue(ctx, job) {
		s.forget(ctx, job)
		status.State = model.ImportFailed
		status.Error = ErrQueueFull.Error()
		status.ErrorKind = "queue_full"
		_ = s.store.SaveJob(ctx, status)
		return status, ErrQueueFull
	}
	return status, nil
}

func (s *Service) forget(ctx context.Context, job Job) {
	if job.fingerprint != "" {
		s.deduper.Unrecord(ctx, job.fingerprint)
	}
}

// handle runs one import. Import failures end up in the job status; only
// store failures are returned to the worker.
func (s *Service) handle(ctx context.Context, job Job) error {
	start := s.now()
	status := model.ImportStatus{
		ID:          job.ID,
		UserID:      job.UserID,
		ImportType:  string(job.ImportType),
		State:       model.ImportRunning,
		SubmittedAt: job.SubmittedAt,
	}
	if err := s.store.SaveJob(ctx, status); err != nil {
		return err
	}

	out, err := s.registry.Parse(ctx, job.ImportType,
		parser.Input{Data: job.Data, Filename: job.Filename, Auth: job.Auth},
		parser.Aux{
			Playtype:    job.Playtype,
			Fetcher:     s.fetcher,
			ChartMaxima: s.chartMaxima,
			Location:    s.location,
			MaxPages:    s.maxPages,
		},
		s.logger.Named("parser"),
	)
	if err != nil {
		return s.fail(ctx, job, status, start, err)
	}
	scores, err := parser.Drain(out)
	if err != nil {
		return s.fail(ctx, job, status, start, err)
	}

	added, err := s.store.SaveBatch(ctx, job.UserID, scores)
	if err != nil {
		s.forget(ctx, job)
		status.State = model.ImportFailed
		status.Error = err.Error()
		status.ErrorKind = "store"
		s.finish(ctx, status, start, "error")
		return fmt.Errorf("save batch %s: %w", job.ID, err)
	}
	metrics.RecordScoresImported(string(out.Game), added)
	status.Scores = len(scores)
	status.Added = added

	if provider, ok := out.ClassProvider(); ok {
		achieved, err := s.classify(ctx, provider, job.UserID, out.Game, scores)
		if err != nil {
			// Scores stay persisted; the status carries the class failure.
			status.Error = err.Error()
			status.ErrorKind = "class_provider"
			s.logger.Warn(ctx, "class provider failed",
				logger.String("job_id", job.ID),
				logger.String("import_type", string(job.ImportType)),
				logger.Error(err),
			)
		}
		status.Classes = achieved.Flatten()
	}

	status.State = model.ImportSucceeded
	s.finish(ctx, status, start, "success")
	return nil
}

// classify invokes provider once with the persisted-score summary of the
// playtypes touched by scores and stores what it returns.
func (s *Service) classify(ctx context.Context, provider model.ClassProvider, userID string, g game.Game, scores []model.Score) (model.Achievements, error) {
	seen := make(map[game.Playtype]struct{})
	var playtypes []game.Playtype
	for _, sc := range scores {
		if _, ok := seen[sc.Playtype]; !ok {
			seen[sc.Playtype] = struct{}{}
			playtypes = append(playtypes, sc.Playtype)
		}
	}
	summary := s.store.Summary(ctx, userID, g, playtypes...)

	achieved, err := provider(ctx, summary)
	if err != nil {
		metrics.RecordClassProvider("error")
		return nil, err
	}
	metrics.RecordClassProvider("success")
	if err := s.store.SaveClasses(ctx, userID, achieved); err != nil {
		return nil, fmt.Errorf("save classes: %w", err)
	}
	return achieved, nil
}

func (s *Service) fail(ctx context.Context, job Job, status model.ImportStatus, start time.Time, err error) error {
	s.forget(ctx, job)
	status.State = model.ImportFailed
	status.Error = err.Error()
	status.ErrorKind = parser.Kind(err)

	stage := "unknown"
	var serr *parser.StageError
	if errors.As(err, &serr) {
		stage = string(serr.Stage)
	}
	metrics.RecordImportFailure(stage, status.ErrorKind)
	s.finish(ctx, status, start, "rejected")
	return nil
}

func (s *Service) finish(ctx context.Context, status model.ImportStatus, start time.Time, outcome string) {
	done := s.now().UTC()
	status.FinishedAt = &done
	metrics.RecordImport(status.ImportType, outcome, float64(done.Sub(start).Milliseconds()))
	if err := s.store.SaveJob(ctx, status); err != nil {
		s.logger.Error(ctx, "saving import status", logger.String("job_id", status.ID), logger.Error(err))
	}
}

// Status returns the current state of a submitted import.
func (s *Service) Status(ctx context.Context, id string) (model.ImportStatus, error) {
	return s.store.Job(ctx, id)
}

// Scores returns a user's stored scores, newest first.
func (s *Service) Scores(ctx context.Context, f repository.ScoreFilter) ([]model.Score, error) {
	return s.store.Scores(ctx, f)
}

// Classes returns a user's achieved classes for gpt.
func (s *Service) Classes(ctx context.Context, userID string, gpt game.GPT) (model.Classes, error) {
	return s.store.Classes(ctx, userID, gpt)
}

// ImportTypes lists the accepted import types.
func (s *Service) ImportTypes() []parser.ImportType {
	return s.registry.Types()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	stored := s.store.Count(ctx)
	stats["storedScores"] = stored
	metrics.UpdateStoredScores(stored)

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
