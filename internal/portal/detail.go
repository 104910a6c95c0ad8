package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Worker scrapes one group of listings in its own browser session.
type Worker struct {
	Launcher browser.Launcher
	Site     Site
	Token    models.AuthToken
	Waiter   Waiter
	Limiter  *rate.Limiter
	Logger   zerolog.Logger
}

// Scrape returns one record per non-NoJob id, in input order. The first
// failure aborts the rest of the group; records read before it are
// returned alongside the error.
func (w Worker) Scrape(ctx context.Context, group []models.ListingID) ([]models.JobRecord, error) {
	session, err := w.Launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open worker session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			w.Logger.Debug().Err(err).Msg("close worker session")
		}
	}()

	if err := Propagate(session, w.Site, w.Token); err != nil {
		return nil, err
	}

	records := make([]models.JobRecord, 0, len(group))
	for _, id := range group {
		if id == models.NoJob {
			continue
		}
		if w.Limiter != nil {
			if err := w.Limiter.Wait(ctx); err != nil {
				return records, err
			}
		}

		target := w.Site.DetailURL(id)
		status, err := w.Waiter.Navigate(ctx, session, target)
		if err != nil {
			return records, fmt.Errorf("listing %s: %w", id, err)
		}
		content, err := session.Content()
		if err != nil {
			return records, fmt.Errorf("listing %s: read page: %w", id, err)
		}

		record, err := ParseDetail(content, id, w.Site)
		if err != nil {
			return records, err
		}
		record.URL = target
		records = append(records, record)
		w.Logger.Debug().Str("listing", string(id)).Int("status", status).Msg("detail scraped")
	}
	return records, nil
}

// ParseDetail extracts a JobRecord from a job details document. A page that
// renders the login form means the session token was not honoured.
func ParseDetail(content string, id models.ListingID, site Site) (models.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return models.JobRecord{}, &MalformedDetailError{ListingID: id, Field: "document", Err: err}
	}
	if site.LoginForm != "" && doc.Find(byID(site.LoginForm)).Length() > 0 {
		return models.JobRecord{}, fmt.Errorf("%w: listing %s served the login form", ErrPropagationFailed, id)
	}

	p := detailParser{doc: doc, id: id}
	f := site.Detail
	record := models.JobRecord{
		JobID:                string(id),
		PostingOpenDate:      p.text("posting_open_date", f.PostingOpenDate),
		LastDayToApply:       p.text("last_day_to_apply", f.LastDayToApply),
		EmployerJobNumber:    p.text("employer_job_number", f.EmployerJobNumber),
		Employer:             p.text("employer", f.Employer),
		JobTitle:             p.text("job_title", f.JobTitle),
		WorkLocation:         p.text("work_location", f.WorkLocation),
		HiringProcessSupport: p.text("hiring_process_support", f.HiringProcessSupport),
		WorkTermSupport:      p.text("work_term_support", f.WorkTermSupport),
		Comments:             p.text("comments", f.Comments),
		JobDescription:       p.text("job_description", f.JobDescription),
	}

	openings := p.raw("available_openings", f.AvailableOpenings)
	if p.err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(openings))
		if err != nil {
			p.err = &MalformedDetailError{ListingID: id, Field: "available_openings", Err: err}
		}
		record.AvailableOpenings = n
	}

	disciplines := p.raw("disciplines", f.Disciplines)
	more := p.raw("disciplines", f.DisciplinesMore)
	record.Disciplines = strings.Split(disciplines+", "+more, ", ")
	record.Levels = strings.Split(p.raw("levels", f.Levels), ", ")
	record.GradesRequired = p.raw("grades_required", f.Grades) == "Required"

	if p.err != nil {
		return models.JobRecord{}, p.err
	}
	return record, nil
}

// detailParser keeps the first missing field so extraction reads linearly.
type detailParser struct {
	doc *goquery.Document
	id  models.ListingID
	err error
}

func (p *detailParser) raw(name, elementID string) string {
	if p.err != nil {
		return ""
	}
	sel := p.doc.Find(byID(elementID))
	if sel.Length() == 0 {
		p.err = &MalformedDetailError{ListingID: p.id, Field: name}
		return ""
	}
	return sel.First().Text()
}

func (p *detailParser) text(name, elementID string) string {
	return strings.TrimSpace(p.raw(name, elementID))
}
