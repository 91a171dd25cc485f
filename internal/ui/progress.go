package ui

import (
	"sync"
	"time"
)

// etaSmoothing is the weight of a new ETA sample against the previous one.
const etaSmoothing = 0.3

// ProgressTracker holds the state of one run. It is safe for concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	item       string
	stageStart time.Time
	lastETA    time.Duration
	errors     []ErrorEvent
	warnings   []ErrorEvent

	now func() time.Time
}

// ProgressStats is a snapshot of a tracker.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	Rate       float64 // documents per second in the current stage
	ETA        time.Duration
	Item       string
	ErrorCount int
	WarnCount  int
}

// NewProgressTracker creates a tracker in the listing stage.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{stage: StageListing, stageStart: time.Now(), now: time.Now}
}

// SetStage moves to stage and resets the counters.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.item = ""
	p.stageStart = p.now()
	p.lastETA = 0
}

// Update records progress within the current stage.
func (p *ProgressTracker) Update(current int, item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if item != "" {
		p.item = item
	}
}

// Apply folds a renderer event into the tracker, switching stage when needed.
func (p *ProgressTracker) Apply(event ProgressEvent) {
	p.mu.RLock()
	same := event.Stage == p.stage
	p.mu.RUnlock()

	if !same {
		p.SetStage(event.Stage, event.Total)
	} else if event.Total > 0 {
		p.mu.Lock()
		p.total = event.Total
		p.mu.Unlock()
	}
	p.Update(event.Current, event.Item)
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Stats returns a snapshot. It takes the write lock because the ETA is
// smoothed across calls.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := ProgressStats{
		Stage:      p.stage,
		Current:    p.current,
		Total:      p.total,
		Item:       p.item,
		ErrorCount: len(p.errors),
		WarnCount:  len(p.warnings),
	}
	if p.total > 0 {
		st.Progress = min(float64(p.current)/float64(p.total), 1.0)
	}
	if elapsed := p.now().Sub(p.stageStart); elapsed > 0 && p.current > 0 {
		st.Rate = float64(p.current) / elapsed.Seconds()
	}
	st.ETA = p.etaLocked(st.Progress)
	return st
}

func (p *ProgressTracker) etaLocked(progress float64) time.Duration {
	if progress <= 0 || progress >= 1 {
		return 0
	}
	elapsed := p.now().Sub(p.stageStart)
	raw := time.Duration(float64(elapsed)/progress) - elapsed
	if raw < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}
	p.lastETA = time.Duration(etaSmoothing*float64(raw) + (1-etaSmoothing)*float64(p.lastETA))
	return p.lastETA
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ErrorEvent(nil), p.errors...)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ErrorEvent(nil), p.warnings...)
}
