package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jimezsa/jobmine/internal/models"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// ProxySource hands out a proxy per session and learns from response codes.
// network.Rotator satisfies it.
type ProxySource interface {
	Next() (*url.URL, error)
	Report(proxy *url.URL, status int)
}

type LaunchOptions struct {
	// Browser is one of firefox, chromium or webkit. Defaults to firefox.
	Browser  string
	Headless bool
	// Timeout bounds every single driver action and navigation.
	Timeout time.Duration
	Proxies ProxySource
	Logger  zerolog.Logger
}

// Playwright launches one browser process and opens an isolated browser
// context per session, so sessions never share cookies.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    LaunchOptions
}

func NewPlaywright(opts LaunchOptions) (*Playwright, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch strings.ToLower(strings.TrimSpace(opts.Browser)) {
	case "", "firefox":
		browserType = pw.Firefox
	case "chromium", "chrome":
		browserType = pw.Chromium
	case "webkit":
		browserType = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unknown browser: %s", opts.Browser)
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", browserType.Name(), err)
	}

	return &Playwright{pw: pw, browser: b, opts: opts}, nil
}

func (p *Playwright) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		contextOpts playwright.BrowserNewContextOptions
		proxy       *url.URL
	)
	if p.opts.Proxies != nil {
		next, err := p.opts.Proxies.Next()
		if err != nil {
			p.opts.Logger.Warn().Err(err).Msg("no proxy available, connecting directly")
		} else if next != nil {
			proxy = next
			contextOpts.Proxy = &playwright.Proxy{Server: next.String()}
		}
	}

	bctx, err := p.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	if p.opts.Timeout > 0 {
		ms := float64(p.opts.Timeout.Milliseconds())
		page.SetDefaultTimeout(ms)
		page.SetDefaultNavigationTimeout(ms)
	}

	return &pwSession{
		bctx:    bctx,
		page:    page,
		proxy:   proxy,
		proxies: p.opts.Proxies,
	}, nil
}

func (p *Playwright) Close() error {
	var errs []error
	if p.browser != nil {
		errs = append(errs, p.browser.Close())
	}
	if p.pw != nil {
		errs = append(errs, p.pw.Stop())
	}
	return errors.Join(errs...)
}

type pwSession struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	proxy   *url.URL
	proxies ProxySource
}

func (s *pwSession) Navigate(target string) (int, error) {
	resp, err := s.page.Goto(target)
	if err != nil {
		return 0, fmt.Errorf("navigate %s: %w", target, err)
	}
	status := 0
	if resp != nil {
		status = resp.Status()
	}
	if s.proxy != nil && s.proxies != nil {
		s.proxies.Report(s.proxy, status)
	}
	return status, nil
}

func (s *pwSession) Find(loc Locator) (Element, error) {
	h, err := s.page.QuerySelector(selector(loc))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return &pwElement{h: h, page: s.page}, nil
}

func (s *pwSession) Content() (string, error) {
	return s.page.Content()
}

func (s *pwSession) Cookie(name string) (models.AuthToken, error) {
	cookies, err := s.bctx.Cookies()
	if err != nil {
		return models.AuthToken{}, err
	}
	token, ok := findCookie(cookies, name)
	if !ok {
		return models.AuthToken{}, fmt.Errorf("%w: %s", ErrCookieNotFound, name)
	}
	return token, nil
}

func (s *pwSession) AddCookie(token models.AuthToken) error {
	return s.bctx.AddCookies([]playwright.OptionalCookie{ToPlaywright(token, s.page.URL())})
}

func (s *pwSession) Close() error {
	return errors.Join(s.page.Close(), s.bctx.Close())
}

func selector(loc Locator) string {
	switch loc.By {
	case ByID:
		return fmt.Sprintf("[id=%q]", loc.Value)
	case ByXPath:
		return "xpath=" + loc.Value
	case ByClass:
		return "." + loc.Value
	default:
		return loc.Value
	}
}

type pwElement struct {
	h    playwright.ElementHandle
	page playwright.Page
}

func (e *pwElement) Text() (string, error) {
	return e.h.InnerText()
}

func (e *pwElement) Attribute(name string) (string, bool, error) {
	v, err := e.h.Evaluate(`(e, n) => e.hasAttribute(n) ? e.getAttribute(n) : null`, name)
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *pwElement) IsSelected() (bool, error) {
	v, err := e.h.Evaluate(`e => !!(e.checked || e.selected)`)
	if err != nil {
		return false, err
	}
	selected, _ := v.(bool)
	return selected, nil
}

func (e *pwElement) Clear() error {
	return e.h.Fill("")
}

func (e *pwElement) Fill(value string) error {
	return e.h.Fill(value)
}

func (e *pwElement) Click() error {
	return e.h.Click()
}

func (e *pwElement) Select() error {
	_, err := e.h.Evaluate(`e => {
		e.selected = true;
		const s = e.closest('select');
		if (s) {
			s.dispatchEvent(new Event('input', { bubbles: true }));
			s.dispatchEvent(new Event('change', { bubbles: true }));
		}
	}`)
	return err
}

func (e *pwElement) Submit() error {
	v, err := e.h.Evaluate(`e => e.type === 'submit'`)
	if err != nil {
		return err
	}
	if isSubmit, _ := v.(bool); isSubmit {
		return e.h.Click()
	}
	_, err = e.h.Evaluate(`e => {
		const f = e.form || e.closest('form');
		if (!f) throw new Error('element is not inside a form');
		setTimeout(() => f.submit(), 0);
	}`)
	return err
}

func (e *pwElement) IsDetached() (bool, error) {
	return isDetached(e.page, e.h)
}

type evaluator interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

type closer interface {
	IsClosed() bool
}

// Evaluation errors raised for handles into a document that has been
// replaced. Anything else is a real driver failure.
var staleHandleErrors = []string{
	"Execution context was destroyed",
	"Cannot find context with specified id",
	"JSHandle is disposed",
	"Element is not attached to the DOM",
	"Node is detached from document",
	"Unable to adopt element handle from a different document",
}

func isDetached(page closer, h evaluator) (bool, error) {
	if page != nil && page.IsClosed() {
		return false, ErrPageClosed
	}
	v, err := h.Evaluate(`e => !e.isConnected`)
	if err != nil {
		if isStaleHandle(err) {
			return true, nil
		}
		return false, fmt.Errorf("check detached: %w", err)
	}
	detached, _ := v.(bool)
	return detached, nil
}

func isStaleHandle(err error) bool {
	msg := err.Error()
	for _, s := range staleHandleErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (e *pwElement) Release() error {
	return e.h.Dispose()
}
