// Package preload fetches or reuses synthesized audio for batches of text
// units under a bounded concurrency budget, with content-addressed caching,
// supersession of in-flight batches and a retry policy that separates
// transient provider failures from fatal ones.
package preload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fukivoice/fukivoice/pkg/textunit"
)

// Mode selects which sides of a unit must have audio before the all-ready
// signal may fire.
type Mode int

const (
	// ModeOff disables the all-ready check entirely.
	ModeOff Mode = iota
	// ModeSource requires source audio only.
	ModeSource
	// ModeTarget requires target audio only.
	ModeTarget
	// ModeBoth requires audio on both sides.
	ModeBoth
)

func (m Mode) includesSource() bool { return m == ModeSource || m == ModeBoth }
func (m Mode) includesTarget() bool { return m == ModeTarget || m == ModeBoth }

// VoiceSelection names the configured service and voice for one direction.
type VoiceSelection struct {
	Service string
	Voice   string
}

// UnitStore is the slice of the text-unit store the orchestrator depends on.
// *textunit.Store satisfies it.
type UnitStore interface {
	Snapshot() []textunit.Unit
	SetAudio(id string, d textunit.Direction, path string) (textunit.Unit, bool)
}

// Options configures an Orchestrator.
type Options struct {
	// Source and Target select service and voice per direction.
	Source VoiceSelection
	Target VoiceSelection

	// Mode and AutoPlayAll control the all-ready signal.
	Mode        Mode
	AutoPlayAll bool

	// MaxParallel bounds simultaneous in-flight provider calls across all
	// batches and directions. Defaults to 3.
	MaxParallel int64

	// MaxAttempts is the total attempt budget per unit. Defaults to 3.
	MaxAttempts int

	// BackoffBase is the rate-limit backoff unit: base, 2*base, 4*base.
	// Defaults to one second.
	BackoffBase time.Duration

	Logger *slog.Logger
}

func (o *Options) withDefaults() {
	if o.MaxParallel <= 0 {
		o.MaxParallel = 3
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Orchestrator coordinates audio preloading for batches of text units.
// Construct one per application; it owns its cache, gate and the current
// generation token, and callers hold a reference rather than reaching for
// a global.
type Orchestrator struct {
	synth    *Synthesizer
	store    UnitStore
	cache    *Cache
	notifier Notifier
	gate     *semaphore.Weighted
	opts     Options
	logger   *slog.Logger

	mu          sync.Mutex
	cancelBatch context.CancelFunc

	generation    atomic.Uint64
	allReadyLatch atomic.Bool
}

// New creates an Orchestrator. A nil notifier discards all events.
func New(synth *Synthesizer, store UnitStore, notifier Notifier, opts Options) *Orchestrator {
	opts.withDefaults()
	if notifier == nil {
		notifier = NotifierFuncs{}
	}
	return &Orchestrator{
		synth:    synth,
		store:    store,
		cache:    NewCache(opts.Logger),
		notifier: notifier,
		gate:     semaphore.NewWeighted(opts.MaxParallel),
		opts:     opts,
		logger:   opts.Logger.With("component", "preload"),
	}
}

// Cache exposes the orchestrator's audio cache for lifecycle operations
// such as ClearAll.
func (o *Orchestrator) Cache() *Cache {
	return o.cache
}

// Generation returns the current batch generation.
func (o *Orchestrator) Generation() uint64 {
	return o.generation.Load()
}

// CancelActive cancels the in-flight batch, if any. Tasks observe the
// cancellation at their next suspension point; callers that need to be sure
// no further mutation occurs must await the batch's own RunBatch return.
func (o *Orchestrator) CancelActive() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelBatch != nil {
		o.cancelBatch()
		o.cancelBatch = nil
	}
}

// RunBatch preloads audio for one direction of the given units. Any
// in-flight batch is superseded first: its tasks observe cancellation and
// exit without further shared-state mutation. RunBatch returns once every
// task it spawned has finished (success, cancellation or logged failure);
// individual unit failures never abort siblings, so there is no error to
// return. Pass a long-lived context: cancelling it cancels the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, units []textunit.Unit, d textunit.Direction) {
	batchCtx, gen := o.beginGeneration(ctx)
	sel := o.selection(d)
	log := o.logger.With("generation", gen, "direction", d.String())

	pending := make([]textunit.Unit, 0, len(units))
	for _, u := range units {
		if u.Text(d) == "" {
			continue
		}
		if u.AudioReady(d) && fileExists(u.AudioPath(d)) {
			continue
		}
		pending = append(pending, u)
	}

	log.Info("preload batch started", "pending", len(pending), "total", len(units))

	var wg sync.WaitGroup
	for _, u := range pending {
		wg.Add(1)
		go func(u textunit.Unit) {
			defer wg.Done()
			o.preloadUnit(batchCtx, log, u, d, sel, gen)
		}(u)
	}
	wg.Wait()

	if batchCtx.Err() != nil {
		log.Debug("preload batch superseded")
		return
	}
	log.Info("preload batch finished")
}

// beginGeneration supersedes the active batch and returns the context and
// generation number for the new one.
func (o *Orchestrator) beginGeneration(ctx context.Context) (context.Context, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancelBatch != nil {
		o.cancelBatch()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	o.cancelBatch = cancel

	// A new batch is a fresh transition window for the all-ready signal.
	o.allReadyLatch.Store(false)

	return batchCtx, o.generation.Add(1)
}

func (o *Orchestrator) selection(d textunit.Direction) VoiceSelection {
	if d == textunit.Target {
		return o.opts.Target
	}
	return o.opts.Source
}

// preloadUnit runs the per-unit synthesis task. Each step observes
// cancellation before proceeding; past the point cancellation is seen, no
// cache or unit mutation happens.
func (o *Orchestrator) preloadUnit(
	ctx context.Context,
	log *slog.Logger,
	u textunit.Unit,
	d textunit.Direction,
	sel VoiceSelection,
	gen uint64,
) {
	if ctx.Err() != nil {
		return
	}

	text := u.Text(d)
	fingerprint := Fingerprint(text)

	// Cache hit: no gate slot needed.
	if path, ok := o.cache.Get(fingerprint); ok {
		o.applyResult(ctx, u.ID, d, path, gen, true)
		return
	}

	if err := o.gate.Acquire(ctx, 1); err != nil {
		return // cancelled while waiting for a slot
	}
	defer o.gate.Release(1)

	// Re-check: a sibling task may have produced this text while we
	// waited for a slot.
	if path, ok := o.cache.Get(fingerprint); ok {
		o.applyResult(ctx, u.ID, d, path, gen, true)
		return
	}

	path, err := o.synthesizeWithRetry(ctx, log, sel, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return // supersession is not an error; stay quiet
		}
		log.Warn("unit audio abandoned",
			"unit", u.ID,
			"class", ClassifyFailure(err).String(),
			"error", err,
		)
		return
	}

	if ctx.Err() != nil {
		return
	}
	o.cache.Put(fingerprint, path)
	o.applyResult(ctx, u.ID, d, path, gen, false)
}

// synthesizeWithRetry runs the attempt loop against the provider. Rate
// limits back off exponentially; auth, config and all other failures
// abandon the unit at once. A reported success whose file is missing on
// disk counts as a failed attempt.
func (o *Orchestrator) synthesizeWithRetry(
	ctx context.Context,
	log *slog.Logger,
	sel VoiceSelection,
	text string,
) (string, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if attempt >= o.opts.MaxAttempts {
			return "", fmt.Errorf("preload: attempt budget exhausted: %w", lastErr)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path, err := o.synth.SynthesizeFile(ctx, sel.Service, sel.Voice, text)
		if err == nil {
			if fileExists(path) {
				return path, nil
			}
			lastErr = fmt.Errorf("preload: synthesized file missing: %s", path)
			continue
		}
		lastErr = err

		if ClassifyFailure(err) != ClassRateLimited {
			return "", lastErr
		}

		delay := Backoff(o.opts.BackoffBase, attempt)
		log.Debug("rate limited, backing off",
			"attempt", attempt+1,
			"delay", delay,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}

// applyResult finalizes a unit: mutates it through the store, emits the
// unit-updated event and re-evaluates the all-ready condition.
func (o *Orchestrator) applyResult(
	ctx context.Context,
	id string,
	d textunit.Direction,
	path string,
	gen uint64,
	cacheHit bool,
) {
	if ctx.Err() != nil {
		return
	}

	updated, ok := o.store.SetAudio(id, d, path)
	if !ok {
		o.logger.Warn("unit vanished before update", "unit", id)
		return
	}

	o.notifier.UnitUpdated(UnitUpdate{
		Unit:       updated,
		Direction:  d,
		Generation: gen,
		CacheHit:   cacheHit,
	})

	o.checkAllReady()
}

// checkAllReady scans the store and fires the all-ready event when every
// unit satisfies the configured mode. The latch makes the event fire once
// per satisfying transition; it clears whenever the condition evaluates
// false or a new batch begins.
func (o *Orchestrator) checkAllReady() {
	if !o.opts.AutoPlayAll || o.opts.Mode == ModeOff {
		return
	}

	for _, u := range o.store.Snapshot() {
		if o.opts.Mode.includesSource() && u.SourceText != "" && !u.SourceAudioReady {
			o.allReadyLatch.Store(false)
			return
		}
		if o.opts.Mode.includesTarget() && u.TranslatedText != "" && !u.TargetAudioReady {
			o.allReadyLatch.Store(false)
			return
		}
	}

	if o.allReadyLatch.CompareAndSwap(false, true) {
		o.logger.Info("all units ready")
		o.notifier.AllReady()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
