package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
)

// Login signs s in and returns the session cookie that lets sibling
// sessions skip the login form.
func Login(ctx context.Context, s browser.Session, site Site, w Waiter, username, password string) (models.AuthToken, error) {
	if _, err := w.Navigate(ctx, s, site.LoginURL); err != nil {
		return models.AuthToken{}, fmt.Errorf("open login page: %w", err)
	}

	if err := fillFields(s, []field{
		{id: site.UsernameField, value: username},
		{id: site.PasswordField, value: password},
	}); err != nil {
		return models.AuthToken{}, err
	}

	submit, err := s.Find(browser.XPath(site.LoginSubmit))
	if err != nil {
		return models.AuthToken{}, fmt.Errorf("login submit: %w", err)
	}
	defer func() { _ = submit.Release() }()

	if err := w.Await(ctx, s, pageRoot, submit.Submit); err != nil {
		return models.AuthToken{}, fmt.Errorf("submit login: %w", err)
	}

	banner, err := s.Find(browser.Class(site.LoginErrorClass))
	switch {
	case errors.Is(err, browser.ErrElementNotFound):
	case err != nil:
		return models.AuthToken{}, fmt.Errorf("check login result: %w", err)
	default:
		defer func() { _ = banner.Release() }()
		text, err := banner.Text()
		if err != nil {
			return models.AuthToken{}, fmt.Errorf("read login error: %w", err)
		}
		return models.AuthToken{}, &LoginFailedError{Message: text}
	}

	token, err := s.Cookie(site.TokenCookie)
	if errors.Is(err, browser.ErrCookieNotFound) {
		return models.AuthToken{}, fmt.Errorf("%w: %s", ErrTokenMissing, site.TokenCookie)
	}
	if err != nil {
		return models.AuthToken{}, err
	}
	if token.IsZero() {
		return models.AuthToken{}, fmt.Errorf("%w: %s is empty", ErrTokenMissing, site.TokenCookie)
	}
	return token, nil
}

// Propagate turns a fresh session into an authenticated one by installing
// token on the portal origin. The cookie is read back to confirm the
// browser accepted it.
func Propagate(s browser.Session, site Site, token models.AuthToken) error {
	if token.IsZero() {
		return ErrTokenMissing
	}

	if _, err := s.Navigate(site.LoginURL); err != nil {
		return fmt.Errorf("%w: open login page: %w", ErrPropagationFailed, err)
	}
	if err := s.AddCookie(token); err != nil {
		return fmt.Errorf("%w: install %s: %w", ErrPropagationFailed, token.Name, err)
	}

	got, err := s.Cookie(token.Name)
	if err != nil {
		return fmt.Errorf("%w: read back %s: %w", ErrPropagationFailed, token.Name, err)
	}
	if got.Value != token.Value {
		return fmt.Errorf("%w: %s was replaced", ErrPropagationFailed, token.Name)
	}
	return nil
}

type field struct {
	id    string
	value string
}

func fillFields(s browser.Session, fields []field) error {
	for _, f := range fields {
		el, err := s.Find(browser.ID(f.id))
		if err != nil {
			return fmt.Errorf("field %s: %w", f.id, err)
		}
		err = el.Clear()
		if err == nil {
			err = el.Fill(f.value)
		}
		_ = el.Release()
		if err != nil {
			return fmt.Errorf("fill %s: %w", f.id, err)
		}
	}
	return nil
}
