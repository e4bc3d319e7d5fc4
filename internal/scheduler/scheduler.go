// Package scheduler wires up the cron job that periodically refreshes
// candidates whose match sets have outlived the staleness window.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobmate/matching-service/internal/matches"
)

// Scheduler wraps robfig/cron and manages the refresh loop.
type Scheduler struct {
	cron  *cron.Cron
	svc   *matches.Service
	spec  string // cron spec, e.g. "@every 6h"
	batch int    // max candidates refreshed per cycle
}

// New creates a Scheduler that fires every intervalHours hours and refreshes
// at most batch candidates per cycle.
func New(svc *matches.Service, intervalHours, batch int) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		svc:   svc,
		spec:  fmt.Sprintf("@every %dh", intervalHours),
		batch: batch,
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so matches left stale across a restart are picked up without
// waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runRefresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	go s.runRefresh(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	log.Println("[scheduler] Stale match sweep started")

	refreshed, err := s.svc.RefreshStale(ctx, s.batch)
	if err != nil {
		log.Printf("[scheduler] Sweep error after %d refresh(es): %v", refreshed, err)
		return
	}

	if refreshed == 0 {
		log.Println("[scheduler] No stale match sets — nothing to refresh")
		return
	}
	log.Printf("[scheduler] Sweep complete — refreshed %d candidate(s)", refreshed)
}
