package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/logger"
)

// accepted is an import the service queued.
type accepted struct {
	id    string
	user  string
	batch int
}

// Run executes the full load test against cfg.BaseURL.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	if err := cfg.Validate(); err != nil {
		return stats, err
	}
	log.Info(ctx, "starting import load test",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("batches", cfg.Batches),
		logger.Int("records", cfg.Records),
		logger.Int("workers", cfg.Workers),
		logger.Bool("repeat", cfg.Repeat),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check: %w", err)
	}

	batches, err := Generate(cfg)
	if err != nil {
		return stats, fmt.Errorf("generate batches: %w", err)
	}
	stats.Generated = len(batches)

	jobs := submit(ctx, cfg, client, batches, &stats, log)
	if cfg.Repeat {
		if dup := submit(ctx, cfg, client, batches, &stats, log); len(dup) > 0 {
			log.Warn(ctx, "repeated batches were accepted", logger.Int("count", len(dup)))
			jobs = append(jobs, dup...)
		}
	}

	expected, err := await(ctx, cfg, client, jobs, &stats, log)
	if err != nil {
		return stats, err
	}
	if err := verify(ctx, client, expected, &stats, log); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report(ctx, stats, log)
	return stats, nil
}

// submit uploads batches with cfg.Workers concurrent senders.
func submit(ctx context.Context, cfg Config, client *Client, batches []Batch, stats *Stats, log logger.Logger) []accepted {
	var (
		ok, dup, refused, transport atomic.Int64
		mu                          sync.Mutex
		out                         []accepted
		wg                          sync.WaitGroup
	)
	type item struct {
		idx   int
		batch Batch
	}
	work := make(chan item, cfg.Workers*2)

	for range cfg.Workers {
		wg.Go(func() {
			for it := range work {
				code, st, err := client.SubmitFile(ctx, parser.FileMerIIDX, it.batch.UserID, it.batch.Data)
				switch {
				case err != nil:
					transport.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submit failed", logger.Int("batch", it.idx), logger.Error(err))
					}
				case code == http.StatusAccepted:
					ok.Add(1)
					mu.Lock()
					out = append(out, accepted{id: st.ID, user: it.batch.UserID, batch: it.idx})
					mu.Unlock()
				case code == http.StatusConflict:
					dup.Add(1)
				default:
					refused.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submit refused", logger.Int("batch", it.idx), logger.Int("status", code))
					}
				}
			}
		})
	}

	go func() {
		defer close(work)
		for i, b := range batches {
			select {
			case <-ctx.Done():
				return
			case work <- item{idx: i, batch: b}:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += int(ok.Load() + dup.Load() + refused.Load() + transport.Load())
	stats.Accepted += int(ok.Load())
	stats.Duplicate += int(dup.Load())
	stats.Refused += int(refused.Load())
	stats.Transport += int(transport.Load())
	log.Info(ctx, "submission round completed",
		logger.Int("accepted", int(ok.Load())),
		logger.Int("duplicate", int(dup.Load())),
		logger.Int("refused", int(refused.Load())),
		logger.Int("transport_errors", int(transport.Load())),
	)
	return out
}

// await polls every accepted import until it finishes and returns the number
// of scores each user should now have stored.
func await(ctx context.Context, cfg Config, client *Client, jobs []accepted, stats *Stats, log logger.Logger) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()

	expected := make(map[string]int)
	pending := jobs
	for len(pending) > 0 {
		var next []accepted
		for _, j := range pending {
			st, err := client.Status(ctx, j.id)
			if err != nil {
				return nil, fmt.Errorf("poll import %s: %w", j.id, err)
			}
			if !st.Done() {
				next = append(next, j)
				continue
			}
			finished(ctx, j, st, expected, stats, log)
		}
		pending = next
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%d imports still pending: %w", len(pending), ctx.Err())
		case <-time.After(cfg.PollInterval):
		}
	}
	return expected, nil
}

func finished(ctx context.Context, j accepted, st model.ImportStatus, expected map[string]int, stats *Stats, log logger.Logger) {
	if st.State == model.ImportFailed {
		stats.Failed++
		log.Warn(ctx, "import failed",
			logger.String("import_id", j.id),
			logger.Int("batch", j.batch),
			logger.String("error_kind", st.ErrorKind),
			logger.String("error", st.Error),
		)
		return
	}
	stats.Succeeded++
	stats.ScoresAdded += st.Added
	expected[j.user] += st.Added
}

func report(ctx context.Context, stats Stats, log logger.Logger) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("refused", stats.Refused),
		logger.Int("transport_errors", stats.Transport),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("scores_added", stats.ScoresAdded),
		logger.Int("scores_verified", stats.Verified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissions_per_second", perSecond),
	)
}
