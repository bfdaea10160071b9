package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	maxPageSize        = 100
	maxConcurrentPages = 4
)

// Options configures a Correlator
type Options struct {
	// Timeout bounds how long FetchEntry waits for a match
	Timeout time.Duration
	// BaseSleep is the pause between passes when nothing notable happened
	BaseSleep time.Duration
}

type request struct {
	id        string
	guildID   string
	action    Action
	userID    string
	predicate Predicate
	result    chan *Entry
	abandoned atomic.Bool
}

func (r *request) resolve(e *Entry) {
	if r.abandoned.Load() {
		return
	}
	select {
	case r.result <- e:
	default:
	}
}

// Correlator batches pending lookups into one audit log page per guild and
// hands each matching entry to the requests waiting on it.
type Correlator struct {
	fetcher   AuditFetcher
	timeout   time.Duration
	baseSleep time.Duration

	mu    sync.Mutex
	queue []*request
	wake  chan struct{}

	seenMu   sync.Mutex
	lastSeen map[string]string

	log *logger.Entry
}

// NewCorrelator creates a Correlator reading pages through fetcher
func NewCorrelator(fetcher AuditFetcher, opts Options) *Correlator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BaseSleep <= 0 {
		opts.BaseSleep = 1500 * time.Millisecond
	}
	return &Correlator{
		fetcher:   fetcher,
		timeout:   opts.Timeout,
		baseSleep: opts.BaseSleep,
		wake:      make(chan struct{}, 1),
		lastSeen:  make(map[string]string),
		log:       logger.WithFields(nil, "Audit"),
	}
}

// FetchEntry waits for the audit entry recording action against userID in
// guildID. Unmatched kicks resolve to nil without error, since a member
// leaving on their own leaves no entry. Other unmatched lookups return a
// CorrelationTimeoutError. An entry returned for a kick lookup may be a ban
// that superseded it.
func (c *Correlator) FetchEntry(ctx context.Context, action Action, guildID, userID string, predicate Predicate) (*Entry, error) {
	if predicate == nil {
		predicate = Any
	}
	req := &request{
		id:        uuid.NewString(),
		guildID:   guildID,
		action:    action,
		userID:    userID,
		predicate: predicate,
		result:    make(chan *Entry, 1),
	}
	c.enqueue(req)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case e := <-req.result:
		return e, nil
	case <-timer.C:
		req.abandoned.Store(true)
		correlatorTimeouts.WithLabelValues(action.String()).Inc()
		if action == ActionKick {
			return nil, nil
		}
		err := &moderrors.CorrelationTimeoutError{Action: action.String(), GuildID: guildID, UserID: userID}
		c.log.WithField("request", req.id).Error(err.Error())
		return nil, err
	case <-ctx.Done():
		req.abandoned.Store(true)
		return nil, ctx.Err()
	}
}

func (c *Correlator) enqueue(reqs ...*request) {
	c.mu.Lock()
	c.queue = append(c.queue, reqs...)
	correlatorQueueDepth.Set(float64(len(c.queue)))
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued lookups
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Claim records entryID as the last role update handled for guildID. It
// returns false when that entry was already claimed, so the same entry
// observed twice is only acted on once.
func (c *Correlator) Claim(guildID, entryID string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	if c.lastSeen[guildID] == entryID {
		return false
	}
	c.lastSeen[guildID] = entryID
	return true
}

// Run processes the queue until ctx is cancelled
func (c *Correlator) Run(ctx context.Context) {
	defer moderrors.RecoverMiddleware()()
	logger.Info("Iniciando el bucle de registros de auditoría", "Audit")

	lastRun := false
	for {
		if c.Pending() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			}
		}

		found, missed := c.pass(ctx)
		wait := c.nextSleep(found, missed, lastRun)
		lastRun = found+missed > 0
		if wait != c.baseSleep {
			logger.Debug(fmt.Sprintf("Esperando %v antes de la siguiente pasada", wait), "Audit")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextSleep stretches the pause after bursts of matches and when entries were
// missed, giving the audit log time to catch up.
func (c *Correlator) nextSleep(found, missed int, lastRun bool) time.Duration {
	wait := c.baseSleep
	if found > 0 && lastRun {
		wait += 2 * time.Second
	}
	wait += time.Duration(found/30) * time.Second
	if missed > 0 {
		wait += 5 * time.Second
	}
	return wait
}

type guildPass struct {
	found, missed, discarded int
	requeue                  []*request
}

// pass drains the queue, fetches one page per guild and resolves what it can.
// It returns the number of matched and missed requests.
func (c *Correlator) pass(ctx context.Context) (found, missed int) {
	start := time.Now()

	c.mu.Lock()
	drained := c.queue
	c.queue = nil
	c.mu.Unlock()

	byGuild := make(map[string][]*request)
	for _, req := range drained {
		if req.abandoned.Load() {
			continue
		}
		byGuild[req.guildID] = append(byGuild[req.guildID], req)
	}
	if len(byGuild) == 0 {
		correlatorQueueDepth.Set(float64(c.Pending()))
		return 0, 0
	}

	var (
		mu      sync.Mutex
		results []guildPass
	)
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentPages)
	for guildID, reqs := range byGuild {
		guildID, reqs := guildID, reqs
		g.Go(func() error {
			defer moderrors.RecoverMiddleware()()
			r, err := c.passGuild(ctx, guildID, reqs)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return err
		})
	}
	// a failed fetch only requeues its own guild
	if err := g.Wait(); err != nil {
		c.log.Warn("No se pudo leer el registro de auditoría: " + err.Error())
	}

	var discarded int
	var requeue []*request
	for _, r := range results {
		found += r.found
		missed += r.missed
		discarded += r.discarded
		requeue = append(requeue, r.requeue...)
	}
	if len(requeue) > 0 {
		c.enqueue(requeue...)
	} else {
		correlatorQueueDepth.Set(float64(c.Pending()))
	}

	correlatorRequests.WithLabelValues("found").Add(float64(found))
	correlatorRequests.WithLabelValues("missed").Add(float64(missed))
	correlatorRequests.WithLabelValues("discarded").Add(float64(discarded))
	correlatorPassDuration.Observe(time.Since(start).Seconds())

	if found > 0 || missed > 0 {
		c.log.WithField("elapsed", time.Since(start)).Info(fmt.Sprintf(
			"Encontradas %d entradas de auditoría, %d sin encontrar, %d descartadas", found, missed, discarded))
	}
	return found, missed
}

func (c *Correlator) passGuild(ctx context.Context, guildID string, reqs []*request) (guildPass, error) {
	var r guildPass

	limit := 5 + 2*len(reqs)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	entries, err := c.fetcher.FetchAuditLog(ctx, guildID, limit)
	if err != nil {
		correlatorFetchErrors.Inc()
		for _, req := range reqs {
			if !req.abandoned.Load() {
				r.missed++
				r.requeue = append(r.requeue, req)
			}
		}
		return r, fmt.Errorf("fetch audit log for guild %s: %w", guildID, err)
	}

	open := make([]*request, len(reqs))
	copy(open, reqs)

	for i := range entries {
		if len(open) == 0 {
			break
		}
		entry := entries[i]
		switch entry.Action {
		case ActionKick, ActionBan, ActionUnban, ActionRoleUpdate:
		default:
			continue
		}

		remaining := open[:0]
		for _, req := range open {
			switch {
			case req.action == entry.Action && req.userID == entry.TargetID && req.predicate(entry):
				req.resolve(&entry)
				r.found++
			case entry.Action == ActionBan && req.action == ActionKick && req.userID == entry.TargetID:
				// the member was banned, not kicked
				req.resolve(&entry)
				r.discarded++
			default:
				remaining = append(remaining, req)
			}
		}
		open = remaining
	}

	for _, req := range open {
		if req.action == ActionKick {
			req.resolve(nil)
			r.discarded++
			continue
		}
		if req.abandoned.Load() {
			continue
		}
		r.missed++
		r.requeue = append(r.requeue, req)
	}
	return r, nil
}
