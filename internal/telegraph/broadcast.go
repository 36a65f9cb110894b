package telegraph

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Broadcaster fans events out to every configured adapter. A failing
// adapter does not stop delivery to the others.
type Broadcaster struct {
	adapters []Adapter
}

// NewBroadcaster creates a Broadcaster over adapters. Nil adapters are skipped.
func NewBroadcaster(adapters ...Adapter) *Broadcaster {
	b := &Broadcaster{}
	for _, a := range adapters {
		if a != nil {
			b.adapters = append(b.adapters, a)
		}
	}
	return b
}

// Len reports how many adapters are configured.
func (b *Broadcaster) Len() int {
	if b == nil {
		return 0
	}
	return len(b.adapters)
}

// Connect connects every adapter. Adapters that fail to connect are dropped
// with a log line; an error is returned only when none could connect.
func (b *Broadcaster) Connect(ctx context.Context) error {
	if b.Len() == 0 {
		return nil
	}
	var live []Adapter
	var errs []error
	for _, a := range b.adapters {
		if err := a.Connect(ctx); err != nil {
			log.Printf("telegraph: %s: connect: %v", a.Name(), err)
			errs = append(errs, err)
			continue
		}
		live = append(live, a)
	}
	b.adapters = live
	if len(live) == 0 {
		return fmt.Errorf("telegraph: no adapter connected: %w", errors.Join(errs...))
	}
	return nil
}

// Notify sends one event to every adapter.
func (b *Broadcaster) Notify(ctx context.Context, evt FormattedEvent) error {
	if b.Len() == 0 {
		return nil
	}
	msg := OutboundMessage{Text: evt.Title, Events: []FormattedEvent{evt}}
	var errs []error
	for _, a := range b.adapters {
		if err := a.Send(ctx, msg); err != nil {
			log.Printf("telegraph: %s: send %q: %v", a.Name(), evt.Title, err)
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every adapter.
func (b *Broadcaster) Close() error {
	if b.Len() == 0 {
		return nil
	}
	var errs []error
	for _, a := range b.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
