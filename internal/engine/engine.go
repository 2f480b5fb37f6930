package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lazypower/warmth/internal/config"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/store"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// AnchorStore persists the single anchor row of each contact.
type AnchorStore interface {
	ReadAnchor(ctx context.Context, contactID string) (warmth.Anchor, error)
	WriteAnchor(ctx context.Context, contactID string, a warmth.Anchor, snaps ...warmth.Snapshot) error
	ReadCached(ctx context.Context, contactID string) (warmth.Cached, error)
	RefreshCache(ctx context.Context, contactID string, expectedAt time.Time, a warmth.Anchor) (bool, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// SnapshotLog reads the append-only anchor history.
type SnapshotLog interface {
	ListSnapshots(ctx context.Context, contactID string, from, to time.Time) ([]warmth.Snapshot, error)
	LatestSnapshotBefore(ctx context.Context, contactID string, t time.Time) (*warmth.Snapshot, error)
}

// ContactStore provisions and removes the owners of anchors.
type ContactStore interface {
	CreateContact(ctx context.Context, c store.Contact, a warmth.Anchor) error
	GetContact(ctx context.Context, id string) (*store.Contact, error)
	DeleteContact(ctx context.Context, id string) (bool, error)
	ListContacts(ctx context.Context, limit int) ([]store.ContactWarmth, error)
}

// Store is everything the engine needs from persistence. *store.DB implements it.
type Store interface {
	AnchorStore
	SnapshotLog
	ContactStore
}

// Engine orchestrates reads, mode switches, interactions, history and cache refresh.
type Engine struct {
	store  Store
	cfg    config.WarmthConfig
	model  warmth.Model
	logger *slog.Logger
	clock  func() time.Time

	flight   singleflight.Group
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger used by background work.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a new Engine.
func New(st Store, cfg config.WarmthConfig, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		cfg:    cfg,
		model:  warmth.Model{Strict: cfg.Strict},
		logger: logging.Default(),
		clock:  time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's tuning.
func (e *Engine) Config() config.WarmthConfig {
	return e.cfg
}

// now is the engine clock at the store's resolution.
func (e *Engine) now() time.Time {
	return e.clock().UTC().Truncate(time.Millisecond)
}

// storeCtx bounds one store round-trip. The parent's cancellation is kept.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.StoreTimeout)
}

// parseMode validates a requested mode before any I/O.
func (e *Engine) parseMode(s string) (warmth.Mode, error) {
	m, err := warmth.ParseMode(s)
	if err != nil {
		return "", err
	}
	if m == warmth.ModeTest && !e.cfg.AllowTestMode {
		return "", goerr.Wrap(warmth.ErrInvalidMode, "test mode is disabled", goerr.V("mode", s))
	}
	return m, nil
}

// evaluate computes the current score, asserting the model's range.
func (e *Engine) evaluate(ctx context.Context, contactID string, a warmth.Anchor, now time.Time) (float64, error) {
	score, err := e.model.Evaluate(a, now)
	if err != nil {
		logging.From(ctx).Error("decay model produced an out-of-range score",
			slog.String("contact_id", contactID),
			logging.ErrAttr(err))
		return 0, goerr.Wrap(err, "evaluate anchor", goerr.V("contact_id", contactID))
	}
	return score, nil
}

// storeErr classifies a store failure. Domain errors pass through; anything
// else is the store being unreachable within budget.
func (e *Engine) storeErr(ctx context.Context, op, contactID string, err error) error {
	switch {
	case errors.Is(err, warmth.ErrContactNotFound),
		errors.Is(err, warmth.ErrInvalidAnchor),
		errors.Is(err, store.ErrContactExists):
		return err
	case errors.Is(err, warmth.ErrNotFound):
		logging.From(ctx).Error("contact has no warmth anchor",
			slog.String("op", op),
			slog.String("contact_id", contactID),
			logging.ErrAttr(err))
		return err
	}
	logging.From(ctx).Warn("warmth store unavailable",
		slog.String("op", op),
		slog.String("contact_id", contactID),
		logging.ErrAttr(err))
	return goerr.Wrap(fmt.Errorf("%w: %w", warmth.ErrUnavailable, err), op, goerr.V("contact_id", contactID))
}

// Stop shuts down the engine's background goroutines and waits for pending
// cache refreshes.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
