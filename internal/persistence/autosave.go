package persistence

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultAutosaveDelay is used when NewAutosaver gets a non-positive delay.
const DefaultAutosaveDelay = 1500 * time.Millisecond

// SaveFunc saves one plan.
type SaveFunc func(ctx context.Context, planID string) error

// Autosaver debounces saves per plan: every Schedule pushes the plan's save
// back by the delay. While hold reports true (a drag gesture is running)
// due saves are postponed instead of racing the gesture's commit.
type Autosaver struct {
	delay time.Duration
	save  SaveFunc
	hold  func() bool

	mu      sync.Mutex
	timers  map[string]*pendingSave
	stopped bool
}

// pendingSave is one scheduled save; a fired timer acts only while it is
// still the plan's current entry.
type pendingSave struct {
	timer *time.Timer
}

func NewAutosaver(delay time.Duration, save SaveFunc, hold func() bool) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if hold == nil {
		hold = func() bool { return false }
	}
	return &Autosaver{delay: delay, save: save, hold: hold, timers: make(map[string]*pendingSave)}
}

// Schedule (re)starts the plan's debounce timer.
func (a *Autosaver) Schedule(planID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if p, ok := a.timers[planID]; ok {
		p.timer.Stop()
	}
	p := &pendingSave{}
	p.timer = time.AfterFunc(a.delay, func() { a.fire(planID, p) })
	a.timers[planID] = p
}

// Pending reports whether a save is scheduled for the plan.
func (a *Autosaver) Pending(planID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.timers[planID]
	return ok
}

// current reports whether p is still the plan's live entry.
func (a *Autosaver) current(planID string, p *pendingSave) bool {
	return !a.stopped && a.timers[planID] == p
}

func (a *Autosaver) fire(planID string, p *pendingSave) {
	a.mu.Lock()
	live := a.current(planID, p)
	a.mu.Unlock()
	if !live {
		return
	}
	if a.hold() {
		a.Schedule(planID)
		return
	}
	a.mu.Lock()
	if !a.current(planID, p) {
		a.mu.Unlock()
		return
	}
	delete(a.timers, planID)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.save(ctx, planID); err != nil {
		log.Printf("[PERSIST] autosave of %s failed: %v", planID, err)
	}
}

// Flush cancels the plan's pending timer, if any, and saves right away.
func (a *Autosaver) Flush(ctx context.Context, planID string) error {
	a.mu.Lock()
	if p, ok := a.timers[planID]; ok {
		p.timer.Stop()
		delete(a.timers, planID)
	}
	a.mu.Unlock()
	return a.save(ctx, planID)
}

// Stop cancels every pending timer. Scheduled saves are dropped.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for id, p := range a.timers {
		p.timer.Stop()
		delete(a.timers, id)
	}
}
