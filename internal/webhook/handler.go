package webhook

import (
	"context"
	"time"
)

// Delivery is an authenticated, decoded workflow_job event.
type Delivery struct {
	// ID is the X-GitHub-Delivery header, or the request id when absent.
	ID         string
	Event      *WorkflowJobEvent
	ReceivedAt time.Time
}

//go:generate mockgen -destination=mocks/mock_handler.go -package=mocks github.com/mattjoyce/runnerpool/internal/webhook EventHandler

// EventHandler is invoked once per delivery, only after the signature has
// been verified and the payload decoded.
type EventHandler interface {
	HandleEvent(ctx context.Context, d Delivery) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, d Delivery) error

func (f HandlerFunc) HandleEvent(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// NopHandler accepts every delivery and does nothing.
var NopHandler EventHandler = HandlerFunc(func(context.Context, Delivery) error { return nil })

// OnAction returns a handler that forwards only deliveries whose action
// equals action.
func OnAction(action string, next EventHandler) EventHandler {
	return HandlerFunc(func(ctx context.Context, d Delivery) error {
		if d.Event == nil || d.Event.Action != action {
			return nil
		}
		return next.HandleEvent(ctx, d)
	})
}

// Chain invokes each handler in order and stops at the first error.
func Chain(handlers ...EventHandler) EventHandler {
	return HandlerFunc(func(ctx context.Context, d Delivery) error {
		for _, h := range handlers {
			if err := h.HandleEvent(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
}
