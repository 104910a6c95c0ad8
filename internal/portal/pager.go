package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/rs/zerolog"
)

// emptyCell is what the results grid renders in a row with no job.
const emptyCell = "\u00a0"

// Pager walks the search results and gathers every listing id.
type Pager struct {
	Session browser.Session
	Site    Site
	Waiter  Waiter
	// MaxPages stops collection after that many pages. Zero means no limit.
	MaxPages int
	Logger   zerolog.Logger
}

func (p Pager) CollectIDs(ctx context.Context) ([]models.ListingID, error) {
	var ids []models.ListingID
	visited := map[string]int{}

	for page := 1; ; page++ {
		content, err := p.Session.Content()
		if err != nil {
			return nil, fmt.Errorf("read results page %d: %w", page, err)
		}
		pageIDs, err := ParseListingIDs(content, p.Site.JobIDPrefix)
		if err != nil {
			return nil, fmt.Errorf("parse results page %d: %w", page, err)
		}

		if len(pageIDs) > 0 {
			key := joinIDs(pageIDs)
			if prev, ok := visited[key]; ok {
				return nil, fmt.Errorf("%w: page %d repeats page %d", ErrPageRevisited, page, prev)
			}
			visited[key] = page
		}
		ids = append(ids, pageIDs...)
		p.Logger.Debug().Int("page", page).Int("ids", len(pageIDs)).Msg("results page collected")

		if p.MaxPages > 0 && page >= p.MaxPages {
			return ids, nil
		}

		more, err := p.next(ctx)
		if err != nil {
			return nil, fmt.Errorf("advance past page %d: %w", page, err)
		}
		if !more {
			return ids, nil
		}
	}
}

// next clicks the next-page control and waits for the grid to be replaced.
// It reports false when the control is absent or disabled.
func (p Pager) next(ctx context.Context) (bool, error) {
	control, err := p.Session.Find(browser.ID(p.Site.NextPage))
	if errors.Is(err, browser.ErrElementNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = control.Release() }()

	if p.Site.NextPageDisabledAttr != "" {
		_, disabled, err := control.Attribute(p.Site.NextPageDisabledAttr)
		if err != nil {
			return false, err
		}
		if disabled {
			return false, nil
		}
	}

	if err := p.Waiter.Await(ctx, p.Session, browser.ID(p.Site.FirstJob), control.Click); err != nil {
		return false, err
	}
	return true, nil
}

// ParseListingIDs returns the ids in every span whose id starts with
// prefix, skipping empty grid cells.
func ParseListingIDs(content string, prefix string) ([]models.ListingID, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var ids []models.ListingID
	doc.Find(fmt.Sprintf("span[id^=%q]", prefix)).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if text == emptyCell || strings.TrimSpace(text) == "" {
			return
		}
		ids = append(ids, models.ListingID(text))
	})
	return ids, nil
}

func joinIDs(ids []models.ListingID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "\x00")
}
