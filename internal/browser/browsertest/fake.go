// Package browsertest provides an in-memory browser.Launcher that serves
// fixture pages, for testing code written against the browser interfaces
// without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
)

// Node is an interactive control on a fake page. Anything not listed as a
// node is looked up in the page markup.
type Node struct {
	Text     string
	Attrs    map[string]string
	OnClick  func(s *Session) error
	OnSubmit func(s *Session) error

	mu       sync.Mutex
	selected bool
	value    string
	clicks   int
}

func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

func (n *Node) Selected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected
}

func (n *Node) SetSelected(selected bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selected = selected
}

func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

type Page struct {
	HTML  string
	Nodes map[browser.Locator]*Node
	// Private pages are only served to sessions holding the gate cookie.
	Private bool
	// Stalled pages never finish loading: navigating to one leaves the
	// previous document attached.
	Stalled bool
}

// Gate decides who may see private pages. Sessions without a cookie named
// Cookie carrying Value are shown the Fallback page instead.
type Gate struct {
	Cookie   string
	Value    string
	Fallback string
}

// Portal is a fake browser serving pages keyed by URL or name.
type Portal struct {
	gate Gate

	mu          sync.Mutex
	pages       map[string]*Page
	sessions    []*Session
	dropCookies bool
	sessionErr  error
}

func NewPortal(gate Gate) *Portal {
	return &Portal{gate: gate, pages: map[string]*Page{}}
}

func (p *Portal) Add(key string, page *Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[key] = page
}

func (p *Portal) Page(key string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[key]
}

// DropCookies makes every later AddCookie a silent no-op.
func (p *Portal) DropCookies() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropCookies = true
}

// FailSessions makes NewSession return err.
func (p *Portal) FailSessions(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionErr = err
}

func (p *Portal) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	s := &Session{portal: p, cookies: map[string]models.AuthToken{}}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *Portal) Close() error { return nil }

// SessionCount reports how many sessions were opened and how many of them
// are still open.
func (p *Portal) SessionCount() (opened, open int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		if !s.isClosed() {
			open++
		}
	}
	return len(p.sessions), open
}

func (p *Portal) allows(cookies map[string]models.AuthToken) bool {
	return cookies[p.gate.Cookie].Value == p.gate.Value
}

type Session struct {
	portal *Portal

	mu      sync.Mutex
	page    *Page
	gen     int
	cookies map[string]models.AuthToken
	visited []string
	closed  bool
}

// Show replaces the current document with the page stored under key,
// detaching every handle taken on the previous one.
func (s *Session) Show(key string) error {
	page := s.portal.Page(key)
	if page == nil {
		return fmt.Errorf("browsertest: no page %q", key)
	}
	fallback := s.portal.Page(s.portal.gate.Fallback)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = append(s.visited, key)
	if page.Stalled {
		return nil
	}
	if page.Private && !s.portal.allows(s.cookies) {
		page = fallback
	}
	s.page = page
	s.gen++
	return nil
}

// SetCookie stores token as if the page had set it.
func (s *Session) SetCookie(token models.AuthToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[token.Name] = token
}

// Visited lists every key shown in this session, in order.
func (s *Session) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

func (s *Session) current() (*Page, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.gen
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(url string) (int, error) {
	if err := s.Show(url); err != nil {
		return 404, err
	}
	return 200, nil
}

func (s *Session) Find(loc browser.Locator) (browser.Element, error) {
	page, gen := s.current()
	if loc.By == browser.ByTag && loc.Value == "html" {
		return &Element{session: s, gen: gen, node: &Node{}}, nil
	}
	if page == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	if node, ok := page.Nodes[loc]; ok {
		return &Element{session: s, gen: gen, node: node}, nil
	}

	var selector string
	switch loc.By {
	case browser.ByID:
		selector = fmt.Sprintf("[id=%q]", loc.Value)
	case browser.ByClass:
		selector = "." + loc.Value
	default:
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	node := &Node{Text: sel.Text(), Attrs: map[string]string{}}
	for _, attr := range sel.Nodes[0].Attr {
		node.Attrs[attr.Key] = attr.Val
	}
	return &Element{session: s, gen: gen, node: node}, nil
}

func (s *Session) Content() (string, error) {
	page, _ := s.current()
	if page == nil {
		return "<html><body></body></html>", nil
	}
	return page.HTML, nil
}

func (s *Session) Cookie(name string) (models.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.cookies[name]
	if !ok {
		return models.AuthToken{}, fmt.Errorf("%w: %s", browser.ErrCookieNotFound, name)
	}
	return token, nil
}

func (s *Session) AddCookie(token models.AuthToken) error {
	s.portal.mu.Lock()
	drop := s.portal.dropCookies
	s.portal.mu.Unlock()
	if drop {
		return nil
	}
	s.SetCookie(token)
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type Element struct {
	session *Session
	gen     int
	node    *Node
}

func (e *Element) Text() (string, error) { return e.node.Text, nil }

func (e *Element) Attribute(name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *Element) IsSelected() (bool, error) { return e.node.Selected(), nil }

func (e *Element) Clear() error { return e.Fill("") }

func (e *Element) Fill(value string) error {
	e.node.mu.Lock()
	defer e.node.mu.Unlock()
	e.node.value = value
	return nil
}

func (e *Element) Click() error {
	e.node.mu.Lock()
	e.node.clicks++
	e.node.selected = !e.node.selected
	onClick := e.node.OnClick
	e.node.mu.Unlock()
	if onClick != nil {
		return onClick(e.session)
	}
	return nil
}

func (e *Element) Select() error {
	e.node.SetSelected(true)
	return nil
}

func (e *Element) Submit() error {
	if e.node.OnSubmit == nil {
		return fmt.Errorf("browsertest: element is not inside a form")
	}
	return e.node.OnSubmit(e.session)
}

func (e *Element) IsDetached() (bool, error) {
	_, gen := e.session.current()
	return gen != e.gen, nil
}

func (e *Element) Release() error { return nil }
