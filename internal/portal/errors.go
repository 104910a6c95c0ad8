package portal

import (
	"errors"
	"fmt"

	"github.com/jimezsa/jobmine/internal/models"
)

var (
	ErrNoPreviousQuery   = errors.New("no previous query")
	ErrTransitionTimeout = errors.New("timed out waiting for page transition")
	// ErrTokenMissing means the portal accepted the login but never set
	// the session cookie. It is not retried.
	ErrTokenMissing      = errors.New("session token cookie missing after login")
	ErrPropagationFailed = errors.New("session token rejected")
	ErrPageRevisited     = errors.New("results page visited twice")
	ErrClosed            = errors.New("client closed")
)

// LoginFailedError carries the portal's own error banner text.
type LoginFailedError struct {
	Message string
}

func (e *LoginFailedError) Error() string {
	return "login failed: " + e.Message
}

// MalformedDetailError reports a detail page missing an expected field or
// holding a value that can't be parsed.
type MalformedDetailError struct {
	ListingID models.ListingID
	Field     string
	Err       error
}

func (e *MalformedDetailError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing %s: malformed %s: %v", e.ListingID, e.Field, e.Err)
	}
	return fmt.Sprintf("listing %s: missing %s", e.ListingID, e.Field)
}

func (e *MalformedDetailError) Unwrap() error {
	return e.Err
}

// ScrapeError is returned when one or more workers failed. Partial holds
// every record that was extracted, in group order.
type ScrapeError struct {
	Partial []models.JobRecord
	Err     error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape incomplete (%d records kept): %v", len(e.Partial), e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}
