// Package refresh keeps the projects cache in step with the backend and
// provides the read-side projections the dashboard renders from.
package refresh

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/cache"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/normalize"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 10 * time.Second

// Outcome reports what one refresh cycle did.
type Outcome int

const (
	// Committed means the fetched snapshot replaced the cache.
	Committed Outcome = iota
	// Suppressed means a mutation was in flight and no fetch was issued.
	Suppressed
	// Discarded means the fetch was cancelled or superseded before commit.
	Discarded
	// Failed means the fetch failed; the previous snapshot was kept.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Suppressed:
		return "suppressed"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Poller refetches the projects snapshot on a fixed interval and whenever
// a mutation settles.
type Poller struct {
	store      *cache.Store
	gateway    gateway.Gateway
	normalizer *normalize.Normalizer
	processing *ProcessingSet
	interval   time.Duration
	logger     *zap.Logger
}

// NewPoller creates a poller. processing may be nil.
func NewPoller(
	store *cache.Store,
	gw gateway.Gateway,
	normalizer *normalize.Normalizer,
	processing *ProcessingSet,
	interval time.Duration,
	logger *zap.Logger,
) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if normalizer == nil {
		normalizer = normalize.New()
	}
	return &Poller{
		store:      store,
		gateway:    gw,
		normalizer: normalizer,
		processing: processing,
		interval:   interval,
		logger:     logger.Named("refresh"),
	}
}

// Run refreshes immediately, then on every tick and every invalidation
// until ctx is cancelled. It blocks.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Refresh poller started", zap.Duration("interval", p.interval))

	p.refreshLogged(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Refresh poller stopped")
			return
		case <-ticker.C:
			p.refreshLogged(ctx)
		case <-p.store.Invalidated():
			p.refreshLogged(ctx)
		}
	}
}

func (p *Poller) refreshLogged(ctx context.Context) {
	outcome, err := p.Refresh(ctx)
	if err != nil {
		p.logger.Warn("Refresh failed; keeping previous snapshot",
			zap.String("outcome", outcome.String()),
			zap.Error(err))
		return
	}
	p.logger.Debug("Refresh cycle finished", zap.String("outcome", outcome.String()))
}

// Refresh runs one fetch cycle. A fetch is not issued while a mutation is in
// flight, and a response that arrives after a mutation began is dropped. A
// failed fetch leaves the cache untouched and returns the error.
func (p *Poller) Refresh(ctx context.Context) (Outcome, error) {
	f, ok := p.store.BeginFetch(ctx)
	if !ok {
		return Suppressed, nil
	}

	raw, err := p.gateway.FetchProjects(f.Context())
	if err != nil {
		superseded := f.Context().Err() != nil && ctx.Err() == nil
		p.store.AbandonFetch(f)
		if superseded {
			return Discarded, nil
		}
		return Failed, fmt.Errorf("fetch projects: %w", err)
	}

	projects := p.normalizer.Projects(raw)
	if !p.store.CompleteFetch(f, projects) {
		return Discarded, nil
	}

	if p.processing != nil {
		for _, id := range p.processing.Prune(projects) {
			p.logger.Info("Project finished processing", zap.String("project_id", id))
		}
	}

	p.logger.Debug("Projects snapshot refreshed", zap.Int("projects", len(projects)))
	return Committed, nil
}
