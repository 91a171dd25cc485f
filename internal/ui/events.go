package ui

import (
	"context"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
)

// Translate maps an index event onto the renderer. Events the renderer has
// no use for are ignored.
func Translate(r Renderer, e events.Event) {
	switch e.Type {
	case events.EmbeddingStart:
		r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Total: e.Total})
	case events.EmbeddingProgress:
		r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: e.Processed, Total: e.Total, Item: e.ItemID})
	case events.EmbeddingEnd:
		r.UpdateProgress(ProgressEvent{Stage: StageSaving, Current: e.Processed, Total: e.Total})
	case events.EmbeddingError:
		r.AddError(ErrorEvent{Item: e.ItemID, Err: e.Error, IsWarn: true})
	case events.ItemError:
		r.AddError(ErrorEvent{Item: e.ItemID, Err: e.Error})
	}
}

// Consume forwards events from ch to r until ch is closed or ctx is done.
// It runs on the caller's goroutine; renderers may block, sinks may not.
func Consume(ctx context.Context, ch <-chan events.Event, r Renderer) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			Translate(r, e)
		}
	}
}
