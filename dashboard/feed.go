// Package dashboard holds the owner's live views of incoming orders and of
// the menu. Each board loads a snapshot, then keeps it current from a change
// feed until it is stopped.
package dashboard

import (
	"context"
	"log"
	"sync"

	"food-ordering/api/realtime"
)

// Feed is an open change subscription.
type Feed interface {
	Events() <-chan realtime.Event
	Close()
}

// HubFeed adapts an in-process hub subscription.
type HubFeed struct {
	Sub *realtime.Subscription
}

func (f HubFeed) Events() <-chan realtime.Event { return f.Sub.C }
func (f HubFeed) Close()                        { f.Sub.Close() }

// follower runs the consume loop shared by both boards.
type follower struct {
	mu     sync.Mutex
	feed   Feed
	cancel context.CancelFunc
	done   chan struct{}
}

func (f *follower) start(ctx context.Context, feed Feed, apply func(realtime.Event)) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	f.feed, f.cancel, f.done = feed, cancel, done
	f.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-feed.Events():
				if !ok {
					return
				}
				apply(e)
			}
		}
	}()
}

// stop unsubscribes and waits for the loop to exit. Safe to call more than
// once or before start.
func (f *follower) stop() {
	f.mu.Lock()
	feed, cancel, done := f.feed, f.cancel, f.done
	f.feed, f.cancel, f.done = nil, nil, nil
	f.mu.Unlock()

	if feed == nil {
		return
	}
	cancel()
	feed.Close()
	<-done
}

func logDecodeError(table realtime.Table, err error) {
	log.Printf("Ignoring unreadable %s change: %v", table, err)
}
