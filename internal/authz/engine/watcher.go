// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultChannel is the pub/sub channel for policy change notifications.
const DefaultChannel = "libgate:policy-changed"

// Watcher propagates policy changes between processes over Redis pub/sub.
// Each writer publishes its instance id after a successful mutation; every
// other instance reloads its snapshot on receipt. A watcher ignores its own
// messages since the writing process already updated its snapshot.
type Watcher struct {
	client  *redis.Client
	channel string
	id      string

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher on the given channel. Pass DefaultChannel
// unless instances are partitioned across policy domains.
func NewWatcher(client *redis.Client, channel string) *Watcher {
	return &Watcher{
		client:  client,
		channel: channel,
		id:      ulid.Make().String(),
	}
}

// Start subscribes to the channel and invokes onChange for every foreign
// notification until Close is called or ctx is cancelled. The initial
// subscription is confirmed with exponential backoff so a briefly
// unavailable Redis does not fail startup.
func (w *Watcher) Start(ctx context.Context, onChange func(ctx context.Context)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pubsub != nil {
		return oops.Code("WATCHER_ALREADY_STARTED").Errorf("watcher already started")
	}

	pubsub := w.client.Subscribe(ctx, w.channel)
	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := pubsub.Receive(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = pubsub.Close() //nolint:errcheck // subscription never established
		return oops.Code("WATCHER_SUBSCRIBE_FAILED").With("channel", w.channel).Wrap(err)
	}

	w.pubsub = pubsub
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.listen(ctx, pubsub.Channel(), onChange)
	return nil
}

func (w *Watcher) listen(ctx context.Context, messages <-chan *redis.Message, onChange func(ctx context.Context)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Payload == w.id {
				continue
			}
			slog.DebugContext(ctx, "policy change notification received",
				"channel", w.channel, "sender", msg.Payload)
			onChange(ctx)
		}
	}
}

// Notify publishes a policy change notification carrying this instance id.
func (w *Watcher) Notify(ctx context.Context) error {
	if err := w.client.Publish(ctx, w.channel, w.id).Err(); err != nil {
		return oops.Code("WATCHER_PUBLISH_FAILED").With("channel", w.channel).Wrap(err)
	}
	return nil
}

// Close stops the listener and tears down the subscription. Safe to call
// before Start or more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pubsub == nil {
		return nil
	}
	close(w.done)
	err := w.pubsub.Close()
	w.wg.Wait()
	w.pubsub = nil
	if err != nil {
		return oops.Code("WATCHER_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
