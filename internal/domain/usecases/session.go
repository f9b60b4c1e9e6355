package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

const (
	// DefaultResetDelay is how long after the last segment a triggered reset fires.
	DefaultResetDelay = 2000 * time.Millisecond

	// DefaultFileAck is the canned reply to a file notification; {file} is replaced by the name.
	DefaultFileAck = `Received "{file}". I can't read files yet, but thanks for sharing!`

	// DefaultConfigDiagnostic is shown instead of a reply when the fallback entry is missing.
	DefaultConfigDiagnostic = "Configuration error: no fallback response is configured, so I can't reply right now."
)

// DefaultResetTriggers are the substrings that schedule a destructive reset.
var DefaultResetTriggers = []string{"clear", "self-destruct"}

// SessionConfig tunes the controller. Zero values take the defaults above.
type SessionConfig struct {
	FallbackID       string
	ResetTriggers    []string
	ResetDelay       time.Duration
	FileAck          string
	ConfigDiagnostic string
}

func (c *SessionConfig) applyDefaults() {
	if c.FallbackID == "" {
		c.FallbackID = entities.DefaultFallbackID
	}
	if c.ResetTriggers == nil {
		c.ResetTriggers = DefaultResetTriggers
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = DefaultResetDelay
	}
	if c.FileAck == "" {
		c.FileAck = DefaultFileAck
	}
	if c.ConfigDiagnostic == "" {
		c.ConfigDiagnostic = DefaultConfigDiagnostic
	}
}

// SessionDeps are the collaborators injected into a SessionController.
// Observer and Logger are optional.
type SessionDeps struct {
	Scheduler *ResponseScheduler
	Renderer  ports.Renderer
	Store     ports.SessionStore
	Resetter  ports.Resetter
	Clock     ports.Clock
	Observer  ports.Observer
	Logger    *zap.Logger
}

// SessionController drives one logical session: it matches input, paces the reply
// and owns the in-progress flag that keeps replies from overlapping.
type SessionController struct {
	cfg       SessionConfig
	scheduler *ResponseScheduler
	renderer  ports.Renderer
	store     ports.SessionStore
	resetter  ports.Resetter
	clock     ports.Clock
	observer  ports.Observer
	logger    *zap.Logger

	kb         atomic.Pointer[entities.KnowledgeBase]
	sessionID  atomic.Value // string
	inProgress atomic.Bool

	resetMu      sync.Mutex
	resetTimer   ports.Timer
	resetGen     uint64 // bumped by every scheduleReset
	resetPending atomic.Bool
}

// NewSessionController creates a controller serving kb under sessionID.
func NewSessionController(kb *entities.KnowledgeBase, sessionID string, cfg SessionConfig, deps SessionDeps) *SessionController {
	cfg.applyDefaults()
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	c := &SessionController{
		cfg:       cfg,
		scheduler: deps.Scheduler,
		renderer:  deps.Renderer,
		store:     deps.Store,
		resetter:  deps.Resetter,
		clock:     deps.Clock,
		observer:  deps.Observer,
		logger:    deps.Logger,
	}
	if kb == nil {
		kb = entities.EmptyKnowledgeBase("")
	}
	c.kb.Store(kb)
	c.sessionID.Store(sessionID)
	return c
}

// Handle processes one raw input.
//
// It returns false without side effects when the input is blank or a reply is already in
// progress. Otherwise it echoes the input, renders every reply segment in order and returns
// true once the last segment is rendered. A missing fallback entry renders a diagnostic and
// returns an error wrapping entities.ErrConfiguration.
func (c *SessionController) Handle(ctx context.Context, rawInput string) (bool, error) {
	text := Normalize(rawInput)
	if text == "" {
		c.observer.Rejected("empty")
		return false, nil
	}
	if !c.inProgress.CompareAndSwap(false, true) {
		c.observer.Rejected("busy")
		c.logger.Debug("input dropped, reply in progress")
		return false, nil
	}
	defer c.inProgress.Store(false)

	// A reply always runs to completion, even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	c.show(ctx, entities.DisplayEvent{Role: entities.RoleUser, Text: rawInput, Total: 1})

	kb := c.kb.Load()
	result := Match(text, kb)
	entry, err := Resolve(result, kb, c.cfg.FallbackID)
	if err != nil {
		c.logger.Error("cannot resolve reply", zap.String("source", kb.Source()), zap.Error(err))
		c.show(ctx, entities.DisplayEvent{Role: entities.RoleBot, Text: c.cfg.ConfigDiagnostic, Total: 1})
		return true, err
	}
	c.observer.Matched(entry.ID, result.Score, !result.Matched)
	c.logger.Debug("reply selected",
		zap.String("entry", entry.ID),
		zap.Int("score", result.Score),
		zap.Bool("fallback", !result.Matched))

	start := time.Now()
	segments := 0
	for event := range c.scheduler.Deliver(ctx, entry) {
		c.show(ctx, event)
		segments++
	}
	c.observer.Delivered(segments, time.Since(start))

	if c.isResetTrigger(text) {
		c.scheduleReset()
	}
	return true, nil
}

// AcknowledgeFile answers a file notification with the canned acknowledgment.
// The file content is never inspected. Guards match Handle.
func (c *SessionController) AcknowledgeFile(ctx context.Context, filename string) (bool, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		c.observer.Rejected("empty")
		return false, nil
	}
	if !c.inProgress.CompareAndSwap(false, true) {
		c.observer.Rejected("busy")
		return false, nil
	}
	defer c.inProgress.Store(false)

	ctx = context.WithoutCancel(ctx)
	c.show(ctx, entities.DisplayEvent{Role: entities.RoleUser, Text: "Uploaded file: " + name, Total: 1})
	c.show(ctx, entities.DisplayEvent{
		Role:  entities.RoleBot,
		Text:  strings.ReplaceAll(c.cfg.FileAck, "{file}", name),
		Total: 1,
	})
	return true, nil
}

// Swap installs a new knowledge-base snapshot. A reply in flight keeps the snapshot it started with.
func (c *SessionController) Swap(kb *entities.KnowledgeBase) {
	if kb == nil {
		return
	}
	c.kb.Store(kb)
}

// KnowledgeBase returns the current snapshot.
func (c *SessionController) KnowledgeBase() *entities.KnowledgeBase {
	return c.kb.Load()
}

// InProgress reports whether a reply is being delivered.
func (c *SessionController) InProgress() bool {
	return c.inProgress.Load()
}

// PendingReset reports whether a destructive reset is scheduled and has not run yet.
func (c *SessionController) PendingReset() bool {
	return c.resetPending.Load()
}

// SessionID returns the id of the current session.
func (c *SessionController) SessionID() string {
	id, _ := c.sessionID.Load().(string)
	return id
}

// History returns the stored transcript of the current session.
func (c *SessionController) History(ctx context.Context) ([]entities.DisplayEvent, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.History(ctx, c.SessionID())
}

// Close stops a pending reset timer.
func (c *SessionController) Close() {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	if c.resetTimer != nil && c.resetTimer.Stop() {
		c.resetPending.Store(false)
	}
	c.resetTimer = nil
}

func (c *SessionController) isResetTrigger(text string) bool {
	for _, trigger := range c.cfg.ResetTriggers {
		trigger = Normalize(trigger)
		if trigger != "" && strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}

// scheduleReset arms the reset timer; a newer trigger replaces an older pending one.
func (c *SessionController) scheduleReset() {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetGen++
	gen := c.resetGen
	c.resetPending.Store(true)
	c.resetTimer = c.clock.AfterFunc(c.cfg.ResetDelay, func() {
		c.runReset(context.Background(), gen)
	})
	c.observer.ResetScheduled()
	c.logger.Info("session reset scheduled", zap.Duration("delay", c.cfg.ResetDelay))
}

// runReset clears persisted session storage, then restarts the session.
// gen identifies the schedule that fired; a reset scheduled meanwhile stays pending.
func (c *SessionController) runReset(ctx context.Context, gen uint64) {
	defer c.finishReset(gen)

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Error("clearing session storage", zap.Error(err))
		}
	}
	if c.resetter == nil {
		return
	}
	id, err := c.resetter.Reset(ctx)
	if err != nil {
		c.logger.Error("restarting session", zap.Error(err))
		return
	}
	c.sessionID.Store(id)
	c.logger.Info("session restarted", zap.String("session_id", id))
}

func (c *SessionController) finishReset(gen uint64) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	if c.resetGen != gen {
		return
	}
	c.resetPending.Store(false)
	c.resetTimer = nil
}

// show renders and records one event. Failures are logged; delivery keeps going.
func (c *SessionController) show(ctx context.Context, event entities.DisplayEvent) {
	if err := c.renderer.Render(ctx, event); err != nil {
		c.logger.Warn("rendering event", zap.String("role", string(event.Role)), zap.Error(err))
	}
	if c.store == nil {
		return
	}
	if err := c.store.Append(ctx, c.SessionID(), event); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("recording event", zap.Error(err))
	}
}

type nopObserver struct{}

func (nopObserver) Matched(string, int, bool) {}
func (nopObserver) Rejected(string) {}
func (nopObserver) Delivered(int, time.Duration) {}
func (nopObserver) ResetScheduled() {}
func (nopObserver) KnowledgeLoaded(int) {}
