// Package logo caches team logo metadata in front of the upstream logo API.
//
// A Service resolves (team, size, format) lookups to a Result, remembers
// successes for TTL and failures for FailureCooldown, and can warm itself
// in the background through PreloadLogos. Lookups are total: a missing or
// failed logo is reported as absent, never as an error.
package logo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL                = time.Hour
	DefaultFailureCooldown    = 2 * time.Minute
	DefaultFetchTimeout       = 5 * time.Second
	DefaultPreloadConcurrency = 4
)

// Options configures a Service. Zero durations and counts fall back to the defaults.
type Options struct {
	// WebPSupported reports whether consumers can render WebP. It is decided
	// once at startup; preferWebP is ignored when it is false.
	WebPSupported bool

	TTL                time.Duration
	FailureCooldown    time.Duration
	FetchTimeout       time.Duration
	PreloadConcurrency int

	// CooldownClientErrors installs a failure marker for 4xx responses too.
	CooldownClientErrors bool

	Logger  *slog.Logger
	Metrics *Metrics
	Now     func() time.Time
}

type keyState int

const (
	stateUnknown keyState = iota
	stateCached
	stateFailed
)

type failureMarker struct {
	until time.Time
	timer *time.Timer
}

// Service is the logo cache. It is safe for concurrent use.
type Service struct {
	fetcher              Fetcher
	webPSupported        bool
	ttl                  time.Duration
	cooldown             time.Duration
	fetchTimeout         time.Duration
	concurrency          int
	cooldownClientErrors bool
	logger               *slog.Logger
	metrics              *Metrics
	now                  func() time.Time

	mu         sync.Mutex
	entries    map[Key]Entry
	failures   map[Key]*failureMarker
	queue      preloadQueue
	preloading bool
	// idle is closed when the running preload pass ends; nil when none runs.
	idle chan struct{}

	inflight singleflight.Group
}

// NewService creates a Service that resolves misses through fetcher.
func NewService(fetcher Fetcher, opts Options) *Service {
	s := &Service{
		fetcher:              fetcher,
		webPSupported:        opts.WebPSupported,
		ttl:                  opts.TTL,
		cooldown:             opts.FailureCooldown,
		fetchTimeout:         opts.FetchTimeout,
		concurrency:          opts.PreloadConcurrency,
		cooldownClientErrors: opts.CooldownClientErrors,
		logger:               opts.Logger,
		metrics:              opts.Metrics,
		now:                  opts.Now,
		entries:              make(map[Key]Entry),
		failures:             make(map[Key]*failureMarker),
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultFailureCooldown
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = DefaultFetchTimeout
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultPreloadConcurrency
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.metrics.bindStats(s.Stats)
	return s
}

// WebPSupported reports the format capability the service was built with.
func (s *Service) WebPSupported() bool {
	return s.webPSupported
}

// KeyFor returns the cache key a lookup with these arguments resolves to.
func (s *Service) KeyFor(teamID string, size Size, preferWebP bool) Key {
	format := FormatPNG
	if preferWebP && s.webPSupported {
		format = FormatWebP
	}
	return Key{TeamID: teamID, Size: size.orDefault(), Format: format}
}

// GetLogo returns the logo for teamID, fetching it upstream on a miss.
// The second return value is false when no logo is available; the caller
// should render a fallback. If ctx ends first the caller gets absent, but a
// fetch already in flight still completes and updates the cache.
func (s *Service) GetLogo(ctx context.Context, teamID string, size Size, preferWebP bool) (*Result, bool) {
	if teamID == "" {
		return nil, false
	}
	return s.lookup(ctx, s.KeyFor(teamID, size, preferWebP))
}

func (s *Service) lookup(ctx context.Context, key Key) (*Result, bool) {
	s.mu.Lock()
	res, state := s.stateLocked(key)
	s.mu.Unlock()

	switch state {
	case stateCached:
		s.metrics.hit()
		return res, true
	case stateFailed:
		s.metrics.shortCircuit()
		return nil, false
	}

	s.metrics.miss()
	ch := s.inflight.DoChan(key.String(), func() (any, error) {
		return s.fetch(ctx, key), nil
	})
	select {
	case r := <-ch:
		fetched, _ := r.Val.(*Result)
		if fetched == nil {
			return nil, false
		}
		out := *fetched
		return &out, true
	case <-ctx.Done():
		return nil, false
	}
}

// fetch runs inside the single flight for key.
func (s *Service) fetch(ctx context.Context, key Key) *Result {
	// A flight for the same key may have settled between the caller's
	// state check and this one.
	s.mu.Lock()
	res, state := s.stateLocked(key)
	s.mu.Unlock()
	switch state {
	case stateCached:
		return res
	case stateFailed:
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
	defer cancel()

	md, err := s.fetcher.FetchLogo(ctx, Request{TeamID: key.TeamID, Size: key.Size, Format: key.Format})
	if err == nil && (md == nil || strings.TrimSpace(md.URL) == "") {
		err = &FetchError{Kind: KindEmpty}
	}
	if err != nil {
		kind := Classify(err)
		s.metrics.upstream(string(kind))
		marked := s.marksFailure(kind)
		if marked {
			s.markFailed(key)
		}
		s.logger.Debug("logo lookup failed",
			"key", key.String(),
			"kind", string(kind),
			"cooldown", marked,
			"error", err,
		)
		return nil
	}

	s.metrics.upstream("ok")
	result := Result{
		URL:         md.URL,
		FallbackURL: md.FallbackURL,
		IsWebP:      md.SupportsWebP,
		TeamName:    md.TeamName,
		Size:        key.Size,
		Format:      key.Format,
	}
	if !md.UploadedAt.IsZero() {
		uploaded := md.UploadedAt.Time
		result.UploadedAt = &uploaded
	}
	s.store(key, result)
	return &result
}

// marksFailure reports whether a failure of this kind starts a cool-down.
func (s *Service) marksFailure(kind ErrorKind) bool {
	switch kind {
	case KindThrottled:
		return false
	case KindClient:
		return s.cooldownClientErrors
	}
	return true
}

// stateLocked reports the state of key, dropping expired entries and markers.
func (s *Service) stateLocked(key Key) (*Result, keyState) {
	now := s.now()
	if m, ok := s.failures[key]; ok {
		if now.Before(m.until) {
			return nil, stateFailed
		}
		s.dropMarkerLocked(key, m)
	}
	if e, ok := s.entries[key]; ok {
		if now.Before(e.CachedAt.Add(s.ttl)) {
			res := e.Result
			return &res, stateCached
		}
		delete(s.entries, key)
	}
	return nil, stateUnknown
}

func (s *Service) store(key Key, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.failures[key]; ok {
		s.dropMarkerLocked(key, m)
	}
	s.entries[key] = Entry{Result: res, CachedAt: s.now()}
}

func (s *Service) markFailed(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A valid entry is never replaced by a failure.
	if _, state := s.stateLocked(key); state == stateCached {
		return
	}
	if old, ok := s.failures[key]; ok {
		s.dropMarkerLocked(key, old)
	}
	m := &failureMarker{until: s.now().Add(s.cooldown)}
	m.timer = time.AfterFunc(s.cooldown, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failures[key] == m {
			delete(s.failures, key)
		}
	})
	s.failures[key] = m
}

func (s *Service) dropMarkerLocked(key Key, m *failureMarker) {
	if m.timer != nil {
		m.timer.Stop()
	}
	delete(s.failures, key)
}

// PreloadLogos queues background lookups for teamIDs and returns immediately.
// Empty identifiers and keys that are already cached, cooling down or
// queued are skipped. At most one preload pass runs at a time; calls made
// during a pass only add to its queue.
func (s *Service) PreloadLogos(teamIDs []string, size Size, preferWebP bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range teamIDs {
		if id == "" {
			continue
		}
		key := s.KeyFor(id, size, preferWebP)
		if _, state := s.stateLocked(key); state != stateUnknown {
			continue
		}
		s.queue.push(key)
	}

	if s.preloading || s.queue.len() == 0 {
		return
	}
	s.preloading = true
	s.idle = make(chan struct{})
	go s.runPreload(s.idle)
}

// runPreload drains the queue in batches of s.concurrency. Every lookup in
// a batch settles before the next batch starts.
func (s *Service) runPreload(idle chan struct{}) {
	for {
		s.mu.Lock()
		batch := s.queue.peek(s.concurrency)
		if len(batch) == 0 {
			s.preloading = false
			s.idle = nil
			close(idle)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		var g errgroup.Group
		for _, key := range batch {
			key := key
			g.Go(func() error {
				s.metrics.preload()
				s.lookup(context.Background(), key)
				s.mu.Lock()
				s.queue.remove(key)
				s.mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
}

// Wait blocks until no preload pass is running or ctx is done, in which
// case it returns ctx.Err(). It is safe to call concurrently with
// PreloadLogos; a pass started while waiting is waited for too.
func (s *Service) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		idle := s.idle
		s.mu.Unlock()
		if idle == nil {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ClearCache drops every entry, failure marker and queued key.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, m := range s.failures {
		s.dropMarkerLocked(key, m)
	}
	s.entries = make(map[Key]Entry)
	s.queue.reset()
}

// ClearExpiredCache removes entries older than the TTL and failure markers
// whose cool-down has elapsed. It returns the number of entries removed.
func (s *Service) ClearExpiredCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.CachedAt.Add(s.ttl)) {
			delete(s.entries, key)
			removed++
		}
	}
	for key, m := range s.failures {
		if !now.Before(m.until) {
			s.dropMarkerLocked(key, m)
		}
	}
	return removed
}

// Stats returns a snapshot of the cache state.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries:    len(s.entries),
		Failures:   len(s.failures),
		Queued:     s.queue.len(),
		Preloading: s.preloading,
	}
}
