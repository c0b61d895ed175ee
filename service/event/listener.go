package event

import (
	"context"
	"log"
)

// Listener consumes events from a publisher's queue on a background goroutine
// and hands them to the supplied handler.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	cancel    context.CancelFunc
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
	}
}

func (l *Listener[T]) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				event, err := l.publisher.Consume(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("event: consume error: %v", err)
					continue
				}
				if event != nil {
					l.handler(event)
				}
			}
		}
	}()
}

func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}
