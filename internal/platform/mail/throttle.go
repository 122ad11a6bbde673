package mail

import "context"

// Notifier is the transport contract shared by every sender in this package.
type Notifier interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

// Waiter blocks until another operation is allowed.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Throttled spaces out sends so provider quotas are not exceeded.
type Throttled struct {
	next    Notifier
	limiter Waiter
}

func NewThrottled(next Notifier, limiter Waiter) *Throttled {
	return &Throttled{next: next, limiter: limiter}
}

func (t *Throttled) Send(ctx context.Context, subject, body, from string, to []string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, subject, body, from, to)
}
