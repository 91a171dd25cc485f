package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per update, for CI and pipes.
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	stage Stage
	every int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, stage: -1, every: 1}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Progress lines are thinned to about
// twenty per stage on large runs.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.stage {
		r.stage = event.Stage
		r.every = max(event.Total/20, 1)
		if event.Current == 0 {
			if event.Total > 0 {
				_, _ = fmt.Fprintf(r.out, "[%s] %d documents\n", event.Stage.Icon(), event.Total)
			} else {
				_, _ = fmt.Fprintf(r.out, "[%s]\n", event.Stage.Icon())
			}
			return
		}
	}
	if event.Total > 0 && event.Current%r.every != 0 && event.Current != event.Total {
		return
	}

	msg := event.Message
	if msg == "" {
		msg = event.Item
	}
	switch {
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	case msg != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Item != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %s\n", prefix, event.Item, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %s\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d documents, %d chunks (%d embedded) in %s",
		stats.Documents, stats.Chunks, stats.Embedded, stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.Dimensions > 0 {
		_, _ = fmt.Fprintf(r.out, "Embeddings: %s (%d dims)\n", stats.Model, stats.Dimensions)
	} else {
		_, _ = fmt.Fprintln(r.out, "Embeddings: not configured, lexical search only")
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
