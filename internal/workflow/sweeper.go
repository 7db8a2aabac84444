package workflow

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"

	"insights-backend/internal/shared/metrics"
	"insights-backend/internal/shared/telemetry"
	"insights-backend/internal/shared/util"
)

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 2 * time.Hour

// Sweeper removes artifacts of abandoned sessions, covering closed tabs that
// never went through the exit guard.
type Sweeper struct {
	Store   *MemoryStore
	Storage Storage
	IdleTTL time.Duration
	Now     func() time.Time

	cron *cron.Cron
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Expired int
	Failed  int
}

// Sweep expires every session idle for longer than IdleTTL. Sessions whose
// artifact cannot be deleted are kept for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	ttl := s.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	cutoff := now.Add(-ttl)

	var res SweepResult
	for _, userID := range s.Store.IdleSince(cutoff) {
		expired, err := s.Store.Expire(ctx, userID, cutoff, func(sess *Session) error {
			if sess.Artifact == nil {
				return nil
			}
			err := s.Storage.Delete(ctx, sess.Artifact.Path)
			metrics.ObserveArtifact("delete", "sweep", err)
			if err != nil {
				return &StorageDeleteError{Path: sess.Artifact.Path, Err: err}
			}
			telemetry.Info("workflow.artifact.deleted", map[string]any{
				"user_key": util.HashUserKey(userID),
				"path":     sess.Artifact.Path,
				"reason":   "idle",
			})
			sess.reset()
			return nil
		})
		switch {
		case err != nil:
			res.Failed++
			telemetry.Warn("workflow.sweep.delete_failed", map[string]any{
				"user_key": util.HashUserKey(userID),
				"error":    err,
			})
		case expired:
			res.Expired++
		}
	}
	if res.Expired > 0 || res.Failed > 0 {
		telemetry.Info("workflow.sweep", map[string]any{
			"expired": res.Expired,
			"failed":  res.Failed,
		})
	}
	return res
}

// Start runs Sweep on a cron schedule such as "@every 10m".
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return eris.Wrapf(err, "schedule session sweeper %q", schedule)
	}
	s.cron = c
	c.Start()
	telemetry.Info("workflow.sweeper.started", map[string]any{"schedule": schedule, "idle_ttl": s.IdleTTL.String()})
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
