// Package scheduler lifts timed mutes and bans once they expire.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// ExpirySource lists active infractions ending at or before a point in time
type ExpirySource interface {
	ActiveExpiring(ctx context.Context, before time.Time) ([]*models.Infraction, error)
}

// GuildChecker reports whether the bot can currently act in a guild
type GuildChecker interface {
	GuildAvailable(guildID string) bool
}

// LiftFunc reverses an expired infraction
type LiftFunc func(ctx context.Context, inf *models.Infraction) error

// Options configures a Scheduler
type Options struct {
	Interval  time.Duration
	Lookahead time.Duration
	Now       func() time.Time
	// Sleep pauses a lift task until its infraction expires
	Sleep func(ctx context.Context, d time.Duration) error
}

type taskKey struct {
	guildID      string
	infractionID int64
}

// Scheduler scans for infractions about to expire and runs one lift task per infraction
type Scheduler struct {
	source    ExpirySource
	guilds    GuildChecker
	handlers  map[models.InfractionType]LiftFunc
	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	handling map[taskKey]struct{}
	tasks    sync.WaitGroup
}

// New creates a Scheduler. Register lift handlers with Handle before Start.
func New(source ExpirySource, guilds GuildChecker, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Scheduler{
		source:    source,
		guilds:    guilds,
		handlers:  make(map[models.InfractionType]LiftFunc),
		interval:  opts.Interval,
		lookahead: opts.Lookahead,
		now:       opts.Now,
		sleep:     opts.Sleep,
		handling:  make(map[taskKey]struct{}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handle registers the lift callback for infractions of type t
func (s *Scheduler) Handle(t models.InfractionType, fn LiftFunc) {
	s.handlers[t.Stored()] = fn
}

// Start runs the scan loop in the background until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run scans immediately and then on every interval until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	defer moderrors.RecoverMiddleware()()
	logger.Info(fmt.Sprintf("Programador de expiraciones iniciado (intervalo %v)", s.interval), "Scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Scan(ctx); err != nil {
			logger.Error("Error buscando infracciones por expirar: "+err.Error(), "Scheduler")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Scan queues a lift task for every due infraction not already being handled.
// It returns how many tasks were started.
func (s *Scheduler) Scan(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.source.ActiveExpiring(ctx, now.Add(s.lookahead))
	if err != nil {
		scanErrors.Inc()
		return 0, err
	}

	started := 0
	for _, inf := range due {
		if inf.EndsAt == nil {
			continue
		}
		lift, ok := s.handlers[inf.Type.Stored()]
		if !ok {
			continue
		}
		if s.guilds != nil && !s.guilds.GuildAvailable(inf.GuildID) {
			continue
		}
		key := taskKey{inf.GuildID, inf.InfractionID}
		if !s.claim(key) {
			continue
		}

		started++
		tasksQueued.WithLabelValues(string(inf.Type)).Inc()
		s.tasks.Add(1)
		go s.runTask(ctx, key, inf.Clone(), inf.Remaining(now), lift)
	}

	if started > 0 {
		logger.WithFields(logger.Fields{"nuevas": started, "en_curso": s.InFlight()}, "Scheduler").
			Debug("Tareas de expiración programadas")
	}
	return started, nil
}

// claim adds key to the handling set, reporting false when it was already there
func (s *Scheduler) claim(key taskKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.handling[key]; busy {
		return false
	}
	s.handling[key] = struct{}{}
	tasksInFlight.Set(float64(len(s.handling)))
	return true
}

func (s *Scheduler) release(key taskKey) {
	s.mu.Lock()
	delete(s.handling, key)
	tasksInFlight.Set(float64(len(s.handling)))
	s.mu.Unlock()
}

func (s *Scheduler) runTask(ctx context.Context, key taskKey, inf *models.Infraction, wait time.Duration, lift LiftFunc) {
	defer s.tasks.Done()
	defer s.release(key)
	defer moderrors.RecoverMiddleware()()

	if err := s.sleep(ctx, wait); err != nil {
		return
	}

	if err := lift(ctx, inf); err != nil {
		liftFailures.WithLabelValues(string(inf.Type)).Inc()
		logger.Error(fmt.Sprintf("No se pudo levantar la infracción #%d (%s) en %s: %v",
			inf.InfractionID, inf.Type, inf.GuildID, err), "Scheduler")
		return
	}
	tasksLifted.WithLabelValues(string(inf.Type)).Inc()
}

// InFlight returns the number of lift tasks currently waiting or running
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handling)
}

// Wait blocks until every started lift task has finished
func (s *Scheduler) Wait() {
	s.tasks.Wait()
}
