// Package notification delivers publish events to outbound channels. Delivery
// is best-effort: a failing sink never affects the publish outcome.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/google/uuid"
)

type sink struct {
	name     string
	notifier repository.INotifier
}

// Fanout forwards each event to every registered sink.
type Fanout struct {
	sinks []sink
}

func NewFanout() *Fanout { return &Fanout{} }

// Add registers a sink; nil notifiers are ignored so callers can pass
// optional sinks directly.
func (f *Fanout) Add(name string, n repository.INotifier) *Fanout {
	if n != nil {
		f.sinks = append(f.sinks, sink{name: name, notifier: n})
	}
	return f
}

func (f *Fanout) Size() int { return len(f.sinks) }

func (f *Fanout) Notify(ctx context.Context, evt model.Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.notifier.Notify(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Async sends events on a background goroutine with its own deadline so a
// slow sink cannot hold up the caller.
type Async struct {
	next    repository.INotifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next repository.INotifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

// Notify returns immediately; delivery errors are logged.
func (a *Async) Notify(_ context.Context, evt model.Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.GetLogger().WithField("panic", r).WithField("event", evt.Type).Error("notification sink panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, evt); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"event":   evt.Type,
				"post_id": evt.PostID,
				"error":   err.Error(),
			}).Warn("notification delivery failed")
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish. Used on shutdown.
func (a *Async) Wait() { a.wg.Wait() }
