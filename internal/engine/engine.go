package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/observability"
	"github.com/IshaanNene/newswire/internal/types"
)

// State represents the controller's current lifecycle state.
type State int32

const (
	StateIdle     State = 0
	StateRunning  State = 1
	StateStopping State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Runner gathers articles from all sources.
type Runner interface {
	RunAll(ctx context.Context, sources []config.SourceConfig, stop types.StopSignal) types.AggregateResult
}

// ArticleStore is the persistence the controller depends on.
type ArticleStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	UpsertByURL(ctx context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error)
}

// Pipeline prepares a record before it is persisted. A nil record means drop.
type Pipeline interface {
	Process(rec *types.StoredArticle) (*types.StoredArticle, error)
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeNoArticles
	outcomeCompleted
	outcomeStopped
)

// Controller owns the run state machine. At most one run is active at a
// time; progress readers get value snapshots.
type Controller struct {
	runner   Runner
	sources  []config.SourceConfig
	store    ArticleStore
	pipeline Pipeline
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu     sync.RWMutex
	status types.RunStatus
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates an idle controller. Runs execute on ctx, so
// cancelling it aborts in-flight requests; stopping a run is cooperative.
func NewController(ctx context.Context, cfg *config.Config, runner Runner, store ArticleStore, pipeline Pipeline, metrics *observability.Metrics, logger *slog.Logger) *Controller {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		runner:   runner,
		sources:  cfg.Sources,
		store:    store,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger.With("component", "controller"),
		status:   types.RunStatus{Message: types.MsgReady},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches a run in the background and returns its id. It returns
// types.ErrAlreadyRunning if a run is in progress.
func (c *Controller) Start() (string, error) {
	c.mu.Lock()
	if c.status.IsRunning {
		c.mu.Unlock()
		return "", types.ErrAlreadyRunning
	}
	if err := c.ctx.Err(); err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("controller closed: %w", err)
	}

	runID := uuid.NewString()
	c.status = types.RunStatus{
		IsRunning: true,
		Message:   types.MsgStarting,
		RunID:     runID,
		StartedAt: time.Now(),
	}
	done := make(chan struct{})
	c.done = done
	c.wg.Add(1)
	c.mu.Unlock()

	c.metrics.RunsStarted.Add(1)
	c.logger.Info("scrape run started", "run_id", runID, "sources", len(c.sources))

	go c.run(done)
	return runID, nil
}

// RequestStop asks the active run to stop at its next checkpoint.
// It returns types.ErrNotRunning when idle.
func (c *Controller) RequestStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.IsRunning {
		return types.ErrNotRunning
	}
	c.status.StopRequested = true
	c.status.Message = types.MsgStopRequested
	c.logger.Info("stop requested", "run_id", c.status.RunID)
	return nil
}

// StopRequested implements types.StopSignal.
func (c *Controller) StopRequested() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.StopRequested
}

// Progress returns a snapshot of the run status.
func (c *Controller) Progress() types.RunStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.status.IsRunning && c.status.StopRequested:
		return StateStopping
	case c.status.IsRunning:
		return StateRunning
	default:
		return StateIdle
	}
}

// Wait blocks until the current run, if any, has finalized.
func (c *Controller) Wait() {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Close cancels any in-flight run and waits for it to finalize.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) run(done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	result := outcomeFailed
	err := errors.New("run ended unexpectedly")
	defer func() {
		if r := recover(); r != nil {
			result, err = outcomeFailed, fmt.Errorf("panic: %v", r)
			c.logger.Error("scrape run panicked", "panic", r)
		}
		c.finalize(result, err)
	}()

	result, err = c.execute(c.ctx)
}

// execute gathers articles and persists the new ones.
func (c *Controller) execute(ctx context.Context) (outcome, error) {
	c.update(func(s *types.RunStatus) { s.Message = types.MsgScraping })

	agg := c.runner.RunAll(ctx, c.sources, c)
	if err := ctx.Err(); err != nil {
		return outcomeFailed, err
	}
	if c.StopRequested() {
		return outcomeStopped, nil
	}
	if len(agg.Articles) == 0 {
		return outcomeNoArticles, nil
	}

	total := len(agg.Articles)
	c.update(func(s *types.RunStatus) {
		s.Total = total
		s.Message = fmt.Sprintf("Processing %d articles...", total)
	})

	for i, article := range agg.Articles {
		if c.StopRequested() {
			return outcomeStopped, nil
		}
		c.update(func(s *types.RunStatus) {
			s.Progress = i + 1
			s.Message = fmt.Sprintf("Processing article %d/%d...", i+1, total)
		})

		switch err := c.persist(ctx, article); {
		case errors.Is(err, errSkipped):
			c.update(func(s *types.RunStatus) { s.Skipped++ })
		case err != nil:
			c.logger.Warn("article not saved", "url", article.URL, "error", err)
			c.update(func(s *types.RunStatus) { s.Failed++ })
		default:
			c.update(func(s *types.RunStatus) { s.Processed++ })
		}
	}

	return outcomeCompleted, nil
}

var errSkipped = errors.New("article skipped")

// persist stores one article unless a record with its URL exists.
func (c *Controller) persist(ctx context.Context, article types.Article) error {
	exists, err := c.store.ExistsByURL(ctx, article.URL)
	if err != nil {
		c.metrics.PersistErrors.Add(1)
		return err
	}
	if exists {
		c.metrics.ArticlesDuplicate.Add(1)
		c.logger.Debug("article already stored", "url", article.URL)
		return errSkipped
	}

	rec := types.NewStoredArticle(article)
	if c.pipeline != nil {
		rec, err = c.pipeline.Process(rec)
		if err != nil {
			return err
		}
		if rec == nil {
			return errSkipped
		}
	}

	saved, created, err := c.store.UpsertByURL(ctx, rec)
	if err != nil {
		c.metrics.PersistErrors.Add(1)
		return err
	}
	c.metrics.ArticlesStored.Add(1)
	c.logger.Info("article saved", "url", saved.URL, "id", saved.ID, "created", created)
	return nil
}

// update applies fn to the status. While a stop is pending the stop message
// is kept visible.
func (c *Controller) update(fn func(s *types.RunStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.status.Message
	fn(&c.status)
	if c.status.StopRequested {
		c.status.Message = msg
	}
}

// finalize is the single exit point of a run.
func (c *Controller) finalize(result outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.status
	switch result {
	case outcomeNoArticles:
		s.Message = types.MsgNoArticles
		c.metrics.RunsCompleted.Add(1)
	case outcomeCompleted:
		s.Message = fmt.Sprintf("Completed! Processed %d new articles.", s.Processed)
		c.metrics.RunsCompleted.Add(1)
	case outcomeStopped:
		s.Message = fmt.Sprintf("Scraping stopped by user. Processed %d new articles before stopping.", s.Processed)
		c.metrics.RunsStopped.Add(1)
	default:
		if err == nil {
			err = errors.New("unknown failure")
		}
		s.Message = fmt.Sprintf("Error: %v", err)
		c.metrics.RunsFailed.Add(1)
	}

	s.IsRunning = false
	s.StopRequested = false
	s.FinishedAt = time.Now()

	c.logger.Info("scrape run finished",
		"run_id", s.RunID,
		"message", s.Message,
		"processed", s.Processed,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"duration", s.FinishedAt.Sub(s.StartedAt),
	)
}
