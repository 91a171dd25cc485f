// Package watcher turns file system changes under a notes directory into
// debounced batches and applies them to the index one document at a time.
//
// fsnotify is used where available; environments where it cannot start
// (network mounts, some container volumes) fall back to polling.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Filter: fs.Matches})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go func() { _ = w.Start(ctx, root) }()
//
//	syncer := watcher.NewSyncer(source, manager, logger)
//	for batch := range w.Events() {
//	    syncer.Apply(ctx, batch)
//	}
package watcher
