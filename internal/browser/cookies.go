package browser

import (
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/playwright-community/playwright-go"
)

// ToPlaywright converts a token into the cookie shape AddCookies expects.
// Without a domain the cookie is scoped to pageURL.
func ToPlaywright(token models.AuthToken, pageURL string) playwright.OptionalCookie {
	cookie := playwright.OptionalCookie{
		Name:  token.Name,
		Value: token.Value,
	}

	if token.Domain != "" {
		cookie.Domain = playwright.String(token.Domain)
		path := token.Path
		if path == "" {
			path = "/"
		}
		cookie.Path = playwright.String(path)
	} else {
		cookie.URL = playwright.String(pageURL)
	}

	if token.Expires > 0 {
		cookie.Expires = playwright.Float(token.Expires)
	}
	if token.HTTPOnly {
		cookie.HttpOnly = playwright.Bool(true)
	}
	if token.Secure {
		cookie.Secure = playwright.Bool(true)
	}
	return cookie
}

func FromPlaywright(c playwright.Cookie) models.AuthToken {
	return models.AuthToken{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}
}

// findCookie returns the first cookie called name.
func findCookie(cookies []playwright.Cookie, name string) (models.AuthToken, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return FromPlaywright(c), true
		}
	}
	return models.AuthToken{}, false
}
