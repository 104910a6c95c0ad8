package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/browser/browsertest"
	"github.com/jimezsa/jobmine/internal/config"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/jimezsa/jobmine/internal/portal"
	"github.com/jimezsa/jobmine/internal/seen"
	"github.com/jimezsa/jobmine/internal/ui"
	"github.com/rs/zerolog"
)

const (
	runUser  = "student"
	runPass  = "secret"
	runToken = "token-abc"
)

// newRunPortal serves a login page, a search form for the given
// discipline and one results page listing ids, each with a detail page.
// Listings named in broken have no employer on their detail page.
func newRunPortal(site portal.Site, discipline string, ids []string, broken map[string]bool) *browsertest.Portal {
	p := browsertest.NewPortal(browsertest.Gate{Cookie: site.TokenCookie, Value: runToken, Fallback: site.LoginURL})

	user := &browsertest.Node{}
	pass := &browsertest.Node{}
	submit := &browsertest.Node{OnSubmit: func(s *browsertest.Session) error {
		if user.Value() != runUser || pass.Value() != runPass {
			return fmt.Errorf("unexpected credentials %q", user.Value())
		}
		s.SetCookie(models.AuthToken{Name: site.TokenCookie, Value: runToken, Domain: "portal.test", Path: "/"})
		return s.Show("home")
	}}
	p.Add(site.LoginURL, &browsertest.Page{
		HTML: fmt.Sprintf(`<html><body><form id=%q></form></body></html>`, site.LoginForm),
		Nodes: map[browser.Locator]*browsertest.Node{
			browser.ID(site.UsernameField):  user,
			browser.ID(site.PasswordField):  pass,
			browser.XPath(site.LoginSubmit): submit,
		},
	})
	p.Add("home", &browsertest.Page{HTML: "<html><body>Welcome</body></html>"})

	p.Add(site.SearchURL, &browsertest.Page{
		HTML: resultsGrid(site, nil),
		Nodes: map[browser.Locator]*browsertest.Node{
			browser.XPath(site.DisciplineXPath(1, discipline)): {},
			browser.ID(site.TermField):                         {},
			browser.ID(site.EmployerField):                     {},
			browser.ID(site.TitleField):                        {},
			browser.ID(site.SearchButton): {OnClick: func(s *browsertest.Session) error {
				return s.Show("results")
			}},
		},
	})
	p.Add("results", &browsertest.Page{HTML: resultsGrid(site, ids)})

	for _, id := range ids {
		p.Add(site.DetailURL(models.ListingID(id)), &browsertest.Page{
			HTML:    detailPage(site, id, broken[id]),
			Private: true,
		})
	}
	return p
}

func resultsGrid(site portal.Site, ids []string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for i := 0; i < max(len(ids), 1); i++ {
		text := "&nbsp;"
		if i < len(ids) {
			text = ids[i]
		}
		fmt.Fprintf(&b, `<tr><td><span id="%s%d">%s</span></td></tr>`, site.JobIDPrefix, i, text)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func detailPage(site portal.Site, id string, noEmployer bool) string {
	d := site.Detail
	fields := map[string]string{
		d.PostingOpenDate:      "05 JAN 2016",
		d.LastDayToApply:       "20 JAN 2016",
		d.EmployerJobNumber:    "EJ-" + id,
		d.Employer:             "Employer " + id,
		d.JobTitle:             "Developer " + id,
		d.WorkLocation:         "Waterloo",
		d.AvailableOpenings:    "1",
		d.HiringProcessSupport: "Yes",
		d.WorkTermSupport:      "No",
		d.Comments:             "",
		d.JobDescription:       "Build things.",
		d.Disciplines:          "ENG-Software",
		d.DisciplinesMore:      "",
		d.Levels:               "Junior",
		d.Grades:               "Required",
	}
	if noEmployer {
		delete(fields, d.Employer)
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for elementID, text := range fields {
		fmt.Fprintf(&b, "<span id=%q>%s</span>\n", elementID, text)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func runContext(t *testing.T, launcher browser.Launcher, logs *bytes.Buffer) (*Context, *bytes.Buffer) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("JOBMINE_USERNAME", runUser)
	t.Setenv("JOBMINE_PASSWORD", runPass)
	t.Setenv("JOBMINE_PROXIES", "")

	cfg := config.DefaultConfig()
	cfg.BaseURL = "https://portal.test"
	cfg.PoolSize = 2
	cfg.JobsPerWorker = 1
	cfg.WaitTimeoutSeconds = 2
	cfg.DetailRate = 0
	cfg.DefaultDisciplines = []string{"ENG-Software"}

	var errOut bytes.Buffer
	ctx := &Context{
		Out:    &bytes.Buffer{},
		Err:    &errOut,
		UI:     ui.New(&errOut, &errOut, ui.ColorMode("never"), true),
		Config: cfg,
		Logger: zerolog.New(logs).Level(zerolog.InfoLevel),
		Launch: func(config.Config, browser.ProxySource, zerolog.Logger) (browser.Launcher, error) {
			return launcher, nil
		},
	}
	return ctx, &errOut
}

func TestSearchRunWritesRecords(t *testing.T) {
	site := portal.DefaultSite("https://portal.test")
	p := newRunPortal(site, "ENG-Software", []string{"101", "102"}, nil)
	var logs bytes.Buffer
	ctx, _ := runContext(t, p, &logs)

	out := filepath.Join(t.TempDir(), "jobs.json")
	cmd := &SearchCmd{Format: "json", Output: out}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, err := seen.ReadRecords(out)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(got) != 2 || got[0].JobID != "101" || got[1].JobID != "102" {
		t.Fatalf("records = %+v", got)
	}
	if got[0].URL != site.DetailURL("101") {
		t.Fatalf("URL = %q", got[0].URL)
	}
	// progress is logged at debug so it never lands under the spinner
	if logs.Len() != 0 {
		t.Fatalf("unexpected info logs during search:\n%s", logs.String())
	}
	if _, open := p.SessionCount(); open != 0 {
		t.Fatalf("open sessions after Run = %d, want 0", open)
	}
}

func TestSearchRunWritesPartialRecordsOnScrapeError(t *testing.T) {
	site := portal.DefaultSite("https://portal.test")
	p := newRunPortal(site, "ENG-Software", []string{"101", "102", "103"}, map[string]bool{"102": true})
	ctx, errOut := runContext(t, p, &bytes.Buffer{})

	out := filepath.Join(t.TempDir(), "jobs.json")
	cmd := &SearchCmd{Format: "json", Output: out}
	err := cmd.Run(ctx)
	if err == nil {
		t.Fatal("Run() error = nil, want incomplete search error")
	}
	if !strings.Contains(err.Error(), "wrote 2 partial records") {
		t.Fatalf("Run() error = %v", err)
	}

	got, readErr := seen.ReadRecords(out)
	if readErr != nil {
		t.Fatalf("ReadRecords() error = %v", readErr)
	}
	if len(got) != 2 || got[0].JobID != "101" || got[1].JobID != "103" {
		t.Fatalf("partial records = %+v", got)
	}
	if !strings.Contains(errOut.String(), "102") {
		t.Fatalf("expected the failing listing in the warning:\n%s", errOut.String())
	}
	if !strings.Contains(errOut.String(), "summary: jobs=2") {
		t.Fatalf("expected a summary of the partial records:\n%s", errOut.String())
	}
}
