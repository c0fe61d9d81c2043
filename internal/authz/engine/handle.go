// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz/policy"
)

// Options configures Init.
type Options struct {
	// Adapter is the persistent rule store backing the snapshot. Required.
	Adapter policy.Adapter

	// Watcher propagates cross-process change notifications. Optional; a
	// single-process deployment runs without one.
	Watcher *Watcher

	// AutoReloadInterval reloads the snapshot periodically as a safety net
	// for missed notifications. Zero disables periodic reloads.
	AutoReloadInterval time.Duration
}

// Handle bundles the policy store and engine of an initialized process.
type Handle struct {
	Store  *policy.Store
	Engine *Engine

	watcher *Watcher
	stop    chan struct{}
	wg      sync.WaitGroup
}

var (
	handleMu sync.Mutex
	current  *Handle
)

// Init loads the policy snapshot and installs the process-wide handle.
// Re-init on an initialized process returns the existing handle unchanged,
// so no duplicate watcher subscription or reload loop is started; Close
// first to apply different options.
func Init(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Adapter == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("engine init requires a policy adapter")
	}

	handleMu.Lock()
	defer handleMu.Unlock()
	if current != nil {
		slog.DebugContext(ctx, "engine already initialized, reusing handle")
		return current, nil
	}

	store := policy.NewStore(opts.Adapter)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	recordReload("init", store.Len())

	h := &Handle{
		Store:   store,
		Engine:  NewEngine(store),
		watcher: opts.Watcher,
		stop:    make(chan struct{}),
	}

	if opts.Watcher != nil {
		err := opts.Watcher.Start(ctx, func(ctx context.Context) {
			if err := h.Reload(ctx, "notification"); err != nil {
				slog.WarnContext(ctx, "policy reload after notification failed", "error", err)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if opts.AutoReloadInterval > 0 {
		h.wg.Add(1)
		go h.autoReload(opts.AutoReloadInterval)
	}

	current = h
	return h, nil
}

// Get returns the process-wide handle installed by Init.
func Get() (*Handle, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if current == nil {
		return nil, oops.Code("NOT_INITIALIZED").Errorf("engine not initialized")
	}
	return current, nil
}

// Close tears down the process-wide handle: the auto-reload loop stops and
// the watcher subscription closes. Safe to call when not initialized.
func Close() error {
	handleMu.Lock()
	defer handleMu.Unlock()
	if current == nil {
		return nil
	}
	h := current
	current = nil

	close(h.stop)
	h.wg.Wait()
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}

// Reload replaces the snapshot from the backing store.
func (h *Handle) Reload(ctx context.Context, trigger string) error {
	if err := h.Store.Load(ctx); err != nil {
		return err
	}
	recordReload(trigger, h.Store.Len())
	return nil
}

// Notify broadcasts a policy change to other processes. A handle without a
// watcher drops the notification.
func (h *Handle) Notify(ctx context.Context) error {
	if h.watcher == nil {
		return nil
	}
	return h.watcher.Notify(ctx)
}

func (h *Handle) autoReload(interval time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if err := h.Reload(ctx, "interval"); err != nil {
				slog.Warn("periodic policy reload failed", "error", err)
			}
			cancel()
		}
	}
}
