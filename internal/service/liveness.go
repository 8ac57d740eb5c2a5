package service

import (
	"context"
	"time"

	"smartbin/internal/logger"
)

const defaultStaleAfter = 5 * time.Minute

// LastSeenSource yields device last-report times per unit. Both unit repos
// implement it.
type LastSeenSource interface {
	LastSeen(ctx context.Context) (map[int]time.Time, error)
}

// LivenessService watches last-seen timestamps and warns when a device goes
// quiet. Read-only: it never mutates the store and never blocks a request.
type LivenessService struct {
	src        LastSeenSource
	staleAfter time.Duration
	log        *logger.Logger

	stale map[int]bool // units already warned about
}

func NewLivenessService(src LastSeenSource, staleAfter time.Duration, log *logger.Logger) *LivenessService {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &LivenessService{
		src:        src,
		staleAfter: staleAfter,
		log:        log,
		stale:      make(map[int]bool),
	}
}

var _ Liveness = (*LivenessService)(nil)

// Run ticks at the given interval until ctx is canceled.
func (s *LivenessService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.check(ctx, now.UTC())
		}
	}
}

// check warns once when a unit crosses the staleness window and notes when
// it comes back.
func (s *LivenessService) check(ctx context.Context, now time.Time) {
	seen, err := s.src.LastSeen(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("liveness check failed", "err", err)
		}
		return
	}

	for id, at := range seen {
		isStale := now.Sub(at) > s.staleAfter
		switch {
		case isStale && !s.stale[id]:
			s.stale[id] = true
			if s.log != nil {
				s.log.Warnw("device gone quiet", "unit_id", id, "last_seen", at)
			}
		case !isStale && s.stale[id]:
			delete(s.stale, id)
			if s.log != nil {
				s.log.Infow("device reporting again", "unit_id", id)
			}
		}
	}
}
