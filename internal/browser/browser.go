// Package browser is the boundary to the browser automation driver. The
// portal package only talks to these interfaces; playwright.go provides the
// real implementation.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimezsa/jobmine/internal/models"
)

var (
	// ErrElementNotFound is returned by Find when nothing matches the locator.
	ErrElementNotFound = errors.New("element not found")
	ErrCookieNotFound  = errors.New("cookie not found")
	// ErrPageClosed is returned when the page behind a handle is gone.
	ErrPageClosed = errors.New("page closed")
)

type By string

const (
	ByID    By = "id"
	ByTag   By = "tag"
	ByXPath By = "xpath"
	ByClass By = "class"
)

type Locator struct {
	By    By
	Value string
}

func ID(id string) Locator       { return Locator{By: ByID, Value: id} }
func Tag(tag string) Locator     { return Locator{By: ByTag, Value: tag} }
func XPath(expr string) Locator  { return Locator{By: ByXPath, Value: expr} }
func Class(class string) Locator { return Locator{By: ByClass, Value: class} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Element is a handle to a node in the live document.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	IsSelected() (bool, error)
	Clear() error
	Fill(value string) error
	Click() error
	// Select activates an <option> inside its parent <select>.
	Select() error
	// Submit submits the form owning the element.
	Submit() error
	// IsDetached reports whether the node is no longer attached to the
	// live document, which is how a finished navigation shows up. Driver
	// failures other than a replaced document are returned as errors.
	IsDetached() (bool, error)
	Release() error
}

// Session is one browser session with its own cookie jar.
type Session interface {
	Navigate(url string) (status int, err error)
	Find(loc Locator) (Element, error)
	Content() (string, error)
	Cookie(name string) (models.AuthToken, error)
	AddCookie(token models.AuthToken) error
	Close() error
}

// Launcher opens independent sessions.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}
