package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/jimezsa/jobmine/internal/browser"
)

const (
	DefaultWaitTimeout = 10 * time.Second
	defaultPoll        = 50 * time.Millisecond
)

var pageRoot = browser.Tag("html")

// Waiter detects that a navigation or in-page content swap finished by
// watching a handle captured before the action go stale.
type Waiter struct {
	Timeout time.Duration
	Poll    time.Duration
}

// Await captures anchor in s, runs trigger, then waits until the captured
// node is detached. The wait also runs when trigger fails, and the trigger
// error is returned in that case.
func (w Waiter) Await(ctx context.Context, s browser.Session, anchor browser.Locator, trigger func() error) error {
	baseline, err := s.Find(anchor)
	if err != nil {
		return err
	}
	defer func() { _ = baseline.Release() }()

	triggerErr := trigger()
	if err := w.wait(ctx, baseline, anchor); err != nil && triggerErr == nil {
		return err
	}
	return triggerErr
}

func (w Waiter) wait(ctx context.Context, baseline browser.Element, anchor browser.Locator) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	poll := w.Poll
	if poll <= 0 {
		poll = defaultPoll
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		detached, err := baseline.IsDetached()
		if err != nil {
			return err
		}
		if detached {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s still attached after %s", ErrTransitionTimeout, anchor, timeout)
		case <-ticker.C:
		}
	}
}

// Navigate loads target in s and waits for the old document to go away.
func (w Waiter) Navigate(ctx context.Context, s browser.Session, target string) (int, error) {
	var status int
	err := w.Await(ctx, s, pageRoot, func() error {
		var err error
		status, err = s.Navigate(target)
		return err
	})
	return status, err
}
