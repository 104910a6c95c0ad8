package portal

import (
	"fmt"
	"strings"
	"time"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/browser/browsertest"
	"github.com/jimezsa/jobmine/internal/models"
)

const (
	testUser  = "student"
	testPass  = "secret"
	testToken = "token-abc"
	homeURL   = "https://portal.test/home"
)

var fastWaiter = Waiter{Timeout: 200 * time.Millisecond, Poll: time.Millisecond}

func testSite() Site {
	return DefaultSite("https://portal.test")
}

// fakePortal serves the portal's pages from memory. Detail pages are
// private: sessions without the login token see the login page instead.
type fakePortal struct {
	*browsertest.Portal
	site Site
}

func newFakePortal(site Site) *fakePortal {
	p := &fakePortal{
		Portal: browsertest.NewPortal(browsertest.Gate{Cookie: site.TokenCookie, Value: testToken, Fallback: site.LoginURL}),
		site:   site,
	}
	p.Add(site.LoginURL, loginPage(site, false))
	p.Add("login-error", loginPage(site, true))
	p.Add(homeURL, &browsertest.Page{HTML: "<html><body><h1>Welcome</h1></body></html>"})
	return p
}

func loginPage(site Site, withError bool) *browsertest.Page {
	banner := ""
	if withError {
		banner = fmt.Sprintf(`<span class="%s">Your User ID and/or Password are invalid.</span>`, site.LoginErrorClass)
	}

	user := &browsertest.Node{}
	pass := &browsertest.Node{}
	submit := &browsertest.Node{OnSubmit: func(s *browsertest.Session) error {
		if user.Value() != testUser || pass.Value() != testPass {
			return s.Show("login-error")
		}
		s.SetCookie(models.AuthToken{Name: site.TokenCookie, Value: testToken, Domain: "portal.test", Path: "/"})
		return s.Show(homeURL)
	}}

	return &browsertest.Page{
		HTML: fmt.Sprintf(`<html><body>%s<form id=%q><input id=%q><input id=%q type="password">
<input type="submit" name="submit"></form></body></html>`, banner, site.LoginForm, site.UsernameField, site.PasswordField),
		Nodes: map[browser.Locator]*browsertest.Node{
			browser.ID(site.UsernameField):  user,
			browser.ID(site.PasswordField):  pass,
			browser.XPath(site.LoginSubmit): submit,
		},
	}
}

// searchFixture is a search form whose button leads to a fixed set of
// result pages.
type searchFixture struct {
	page        *browsertest.Page
	disciplines map[string]*browsertest.Node
	fields      map[string]*browsertest.Node
	levels      map[string]*browsertest.Node
	button      *browsertest.Node
}

func addSearch(p *fakePortal, disciplines []string, pages [][]string) *searchFixture {
	site := p.site
	f := &searchFixture{
		disciplines: map[string]*browsertest.Node{},
		fields:      map[string]*browsertest.Node{},
		levels:      map[string]*browsertest.Node{},
	}
	nodes := map[browser.Locator]*browsertest.Node{}
	for i, d := range disciplines {
		n := &browsertest.Node{Text: d}
		f.disciplines[d] = n
		nodes[browser.XPath(site.DisciplineXPath(i+1, d))] = n
	}
	for _, id := range []string{site.TermField, site.EmployerField, site.TitleField} {
		n := &browsertest.Node{}
		f.fields[id] = n
		nodes[browser.ID(id)] = n
	}
	for _, level := range site.Levels {
		n := &browsertest.Node{}
		f.levels[level.Name] = n
		nodes[browser.ID(level.ID)] = n
	}
	f.button = &browsertest.Node{OnClick: func(s *browsertest.Session) error { return s.Show("results/1") }}
	nodes[browser.ID(site.SearchButton)] = f.button

	// The empty grid shown before the first search still has a first row.
	f.page = &browsertest.Page{
		HTML:  resultsHTML(site, nil),
		Nodes: nodes,
	}
	p.Add(site.SearchURL, f.page)
	addResults(p, pages)
	return f
}

func addResults(p *fakePortal, pages [][]string) {
	for i, ids := range pages {
		page := &browsertest.Page{HTML: resultsHTML(p.site, ids), Nodes: map[browser.Locator]*browsertest.Node{}}
		if i < len(pages)-1 {
			next := fmt.Sprintf("results/%d", i+2)
			page.Nodes[browser.ID(p.site.NextPage)] = &browsertest.Node{OnClick: func(s *browsertest.Session) error { return s.Show(next) }}
		}
		p.Add(fmt.Sprintf("results/%d", i+1), page)
	}
}

// resultsHTML renders a ten row grid. Rows past the ids hold the
// non-breaking space placeholder.
func resultsHTML(site Site, ids []string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	rows := max(len(ids), 10)
	for i := 0; i < rows; i++ {
		text := "&nbsp;"
		if i < len(ids) {
			text = ids[i]
		}
		fmt.Fprintf(&b, `<tr><td><span id="%s%d">%s</span></td></tr>`, site.JobIDPrefix, i, text)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func fixtureRecord(id string) models.JobRecord {
	return models.JobRecord{
		JobID:                id,
		PostingOpenDate:      "05 JAN 2016",
		LastDayToApply:       "20 JAN 2016",
		EmployerJobNumber:    "EJ-" + id,
		Employer:             "Employer " + id,
		JobTitle:             "Software Developer " + id,
		WorkLocation:         "Waterloo",
		AvailableOpenings:    2,
		HiringProcessSupport: "Yes",
		WorkTermSupport:      "No",
		Comments:             "Bring a transcript.",
		JobDescription:       "Build things.",
		Disciplines:          []string{"ENG-Software", "MATH-Computer Science", "ENG-Computer"},
		Levels:               []string{"Junior", "Intermediate"},
		GradesRequired:       true,
	}
}

type detailOverride func(fields map[string]string)

func detailHTML(site Site, r models.JobRecord, overrides ...detailOverride) string {
	d := site.Detail
	fields := map[string]string{
		d.PostingOpenDate:      r.PostingOpenDate,
		d.LastDayToApply:       r.LastDayToApply,
		d.EmployerJobNumber:    r.EmployerJobNumber,
		d.Employer:             r.Employer,
		d.JobTitle:             r.JobTitle,
		d.WorkLocation:         r.WorkLocation,
		d.AvailableOpenings:    fmt.Sprintf("%d", r.AvailableOpenings),
		d.HiringProcessSupport: r.HiringProcessSupport,
		d.WorkTermSupport:      r.WorkTermSupport,
		d.Comments:             r.Comments,
		d.JobDescription:       r.JobDescription,
		d.Disciplines:          strings.Join(r.Disciplines[:2], ", "),
		d.DisciplinesMore:      strings.Join(r.Disciplines[2:], ", "),
		d.Levels:               strings.Join(r.Levels, ", "),
		d.Grades:               "Not Required",
	}
	if r.GradesRequired {
		fields[d.Grades] = "Required"
	}
	for _, o := range overrides {
		o(fields)
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	for id, text := range fields {
		fmt.Fprintf(&b, "<span id=%q>%s</span>\n", id, text)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func addDetail(p *fakePortal, id string, overrides ...detailOverride) {
	p.Add(p.site.DetailURL(models.ListingID(id)), &browsertest.Page{
		HTML:    detailHTML(p.site, fixtureRecord(id), overrides...),
		Private: true,
	})
}

func without(elementID string) detailOverride {
	return func(fields map[string]string) { delete(fields, elementID) }
}

func listingIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%08d", 100+i)
	}
	return ids
}

func chunk(ids []string, size int) [][]string {
	var pages [][]string
	for len(ids) > size {
		pages = append(pages, ids[:size])
		ids = ids[size:]
	}
	return append(pages, ids)
}
