package dialogue

import (
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// EmotionSample is one entry of a session's rolling emotional history.
type EmotionSample struct {
	Emotion   Emotion
	Intensity float64
	Point     PAD
	Level     CrisisLevel
	At        time.Time
}

// HistoryEntry pairs a short input excerpt with the emotion it carried.
type HistoryEntry struct {
	Excerpt string
	Emotion Emotion
	At      time.Time
}

// SessionContext holds all per-session mutable state. It is owned exclusively
// by the SessionStore; other components receive it for the duration of one
// call and read it through the accessor methods.
type SessionContext struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	turnNumber     int
	recentEmotions []EmotionSample
	history        []HistoryEntry

	baseline     PAD
	roleBaseline *PAD
	drift        float64

	phase             Phase
	engagement        float64
	countdown         int
	interruptionCount int
	crisisLatched     bool

	lastActivity time.Time

	// turnMu serializes whole turns for this session. The controller holds it
	// across the full pipeline so turns never interleave; different sessions
	// proceed in parallel.
	turnMu sync.Mutex
}

// SessionSnapshot is a read-only copy of the context's scalar state.
type SessionSnapshot struct {
	ID                string
	CreatedAt         time.Time
	TurnNumber        int
	Baseline          PAD
	RoleBaseline      *PAD
	Drift             float64
	Phase             Phase
	Engagement        float64
	InterruptionCount int
	CrisisLatched     bool
	LastActivity      time.Time
}

// Snapshot returns a consistent copy of the session's scalar state.
func (c *SessionContext) Snapshot() SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var role *PAD
	if c.roleBaseline != nil {
		r := *c.roleBaseline
		role = &r
	}
	return SessionSnapshot{
		ID:                c.id,
		CreatedAt:         c.createdAt,
		TurnNumber:        c.turnNumber,
		Baseline:          c.baseline,
		RoleBaseline:      role,
		Drift:             c.drift,
		Phase:             c.phase,
		Engagement:        c.engagement,
		InterruptionCount: c.interruptionCount,
		CrisisLatched:     c.crisisLatched,
		LastActivity:      c.lastActivity,
	}
}

// ID returns the session id.
func (c *SessionContext) ID() string { return c.id }

// TurnNumber returns the number of recorded turns.
func (c *SessionContext) TurnNumber() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnNumber
}

// Phase returns the current flow phase.
func (c *SessionContext) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Engagement returns the current engagement estimate in [0, 1].
func (c *SessionContext) Engagement() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engagement
}

// Drift returns the current deviation of recent emotion from baseline.
// It is zero for a fresh session and never negative.
func (c *SessionContext) Drift() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drift
}

// Baseline returns the smoothed PAD baseline.
func (c *SessionContext) Baseline() PAD {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline
}

// RecentEmotions returns a copy of the rolling emotion buffer, oldest first.
func (c *SessionContext) RecentEmotions() []EmotionSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EmotionSample, len(c.recentEmotions))
	copy(out, c.recentEmotions)
	return out
}

// History returns a copy of the conversation excerpt buffer, oldest first.
func (c *SessionContext) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// SessionStore owns the session table. All SessionContext mutation funnels
// through its methods (and the flow engine, which operates under the store's
// per-session turn lock).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionContext
	closed   bool

	cfg     Config
	logger  Logger
	metrics *Metrics
	sweeper *cron.Cron
}

// NewSessionStore creates a store. When cfg.SweepSpec is non-empty a
// background cron job runs SweepExpired on that schedule until Shutdown.
// metrics may be nil.
func NewSessionStore(cfg Config, logger Logger, metrics *Metrics) *SessionStore {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	s := &SessionStore{
		sessions: make(map[string]*SessionContext),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
	if cfg.SweepSpec != "" {
		c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
		if _, err := c.AddFunc(cfg.SweepSpec, func() {
			s.SweepExpired(time.Now())
		}); err != nil {
			logger.Warn("invalid sweep spec, expiry sweeper disabled", "spec", cfg.SweepSpec, "error", err)
		} else {
			c.Start()
			s.sweeper = c
		}
	}
	return s
}

// GetOrCreate returns the session for id, creating it lazily on first use.
func (s *SessionStore) GetOrCreate(id string) (*SessionContext, error) {
	if id == "" {
		return nil, &ValidationError{Field: "session id", Reason: ErrEmptySessionID}
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	if ctx, ok := s.sessions[id]; ok {
		s.mu.RUnlock()
		return ctx, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if ctx, ok := s.sessions[id]; ok {
		return ctx, nil
	}
	now := time.Now()
	ctx := &SessionContext{
		id:           id,
		createdAt:    now,
		phase:        PhaseGreeting,
		engagement:   0.5,
		lastActivity: now,
	}
	s.sessions[id] = ctx
	s.logger.Info("session created", "sessionID", id)
	return ctx, nil
}

// Get returns an existing session or ErrSessionNotFound.
func (s *SessionStore) Get(id string) (*SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ctx, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctx, nil
}

// Record appends the turn's emotional outcome to the session: both ring
// buffers, the smoothed baseline, the drift metric and the turn counter.
// The crisis level rides along so behavioral scoring can read it later.
func (s *SessionStore) Record(id string, state EmotionalState, level CrisisLevel, excerpt string) error {
	ctx, err := s.Get(id)
	if err != nil {
		return err
	}

	now := time.Now()
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	point := state.PADPoint()

	// Role baseline anchors on the very first recorded turn.
	if ctx.roleBaseline == nil {
		anchor := point
		ctx.roleBaseline = &anchor
		ctx.baseline = anchor
	}

	ctx.recentEmotions = append(ctx.recentEmotions, EmotionSample{
		Emotion:   state.Primary,
		Intensity: state.Intensity,
		Point:     point,
		Level:     level,
		At:        now,
	})
	if len(ctx.recentEmotions) > s.cfg.RecentEmotionsCap {
		ctx.recentEmotions = ctx.recentEmotions[len(ctx.recentEmotions)-s.cfg.RecentEmotionsCap:]
	}

	ctx.history = append(ctx.history, HistoryEntry{
		Excerpt: truncate(excerpt, 120),
		Emotion: state.Primary,
		At:      now,
	})
	if len(ctx.history) > s.cfg.HistoryCap {
		ctx.history = ctx.history[len(ctx.history)-s.cfg.HistoryCap:]
	}

	a := s.cfg.BaselineAlpha
	ctx.baseline.Pleasure = a*point.Pleasure + (1-a)*ctx.baseline.Pleasure
	ctx.baseline.Arousal = a*point.Arousal + (1-a)*ctx.baseline.Arousal
	ctx.baseline.Dominance = a*point.Dominance + (1-a)*ctx.baseline.Dominance

	ctx.drift = meanDeviation(lastN(ctx.recentEmotions, 5), ctx.baseline)
	if ctx.drift > s.cfg.DriftThreshold {
		// Elevated drift is a signal, never a fault.
		s.logger.Warn("emotional drift above threshold", "sessionID", id, "drift", ctx.drift)
	}

	ctx.turnNumber++
	ctx.lastActivity = now
	return nil
}

// SweepExpired removes sessions idle past the inactivity timeout and returns
// how many were removed. Safe to call concurrently and idempotent: sweeping
// an already-removed session is a no-op.
func (s *SessionStore) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	removed := 0
	for id, ctx := range s.sessions {
		ctx.mu.Lock()
		idle := now.Sub(ctx.lastActivity)
		ctx.mu.Unlock()
		if idle > s.cfg.InactivityTimeout {
			delete(s.sessions, id)
			removed++
			s.logger.Info("session expired", "sessionID", id, "idle", idle)
		}
	}
	if removed > 0 {
		s.metrics.RecordSweep(removed)
	}
	return removed
}

// End removes one session explicitly (end-of-call signal). Unknown ids are a
// no-op.
func (s *SessionStore) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.logger.Info("session ended", "sessionID", id)
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown stops the sweeper and drops all sessions. The store rejects all
// calls afterwards.
func (s *SessionStore) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sweeper != nil {
		s.sweeper.Stop()
		s.sweeper = nil
	}
	s.sessions = make(map[string]*SessionContext)
}

func lastN(samples []EmotionSample, n int) []EmotionSample {
	if len(samples) <= n {
		return samples
	}
	return samples[len(samples)-n:]
}

// meanDeviation is the mean absolute PAD deviation of the samples from base.
func meanDeviation(samples []EmotionSample, base PAD) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += (math.Abs(s.Point.Pleasure-base.Pleasure) +
			math.Abs(s.Point.Arousal-base.Arousal) +
			math.Abs(s.Point.Dominance-base.Dominance)) / 3
	}
	return sum / float64(len(samples))
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
