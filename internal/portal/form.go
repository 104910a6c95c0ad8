package portal

import (
	"fmt"
	"strconv"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
)

// FormDriver writes a query into the live search form.
type FormDriver struct {
	Session browser.Session
	Site    Site
}

// Apply selects the disciplines slot by slot, then fills the text fields.
// A discipline with no matching option surfaces as ErrElementNotFound.
func (f FormDriver) Apply(q models.Query) error {
	for i, discipline := range q.Disciplines {
		slot := i + 1
		option, err := f.Session.Find(browser.XPath(f.Site.DisciplineXPath(slot, discipline)))
		if err != nil {
			return fmt.Errorf("discipline %d %q: %w", slot, discipline, err)
		}
		err = option.Select()
		_ = option.Release()
		if err != nil {
			return fmt.Errorf("select discipline %d %q: %w", slot, discipline, err)
		}
	}

	return fillFields(f.Session, []field{
		{id: f.Site.TermField, value: strconv.Itoa(q.Term)},
		{id: f.Site.EmployerField, value: q.EmployerName},
		{id: f.Site.TitleField, value: q.JobTitle},
	})
}

// ApplyLevels makes every level checkbox match q.Levels, clicking only the
// ones whose state disagrees. Levels the form doesn't know are ignored.
func (f FormDriver) ApplyLevels(q models.Query) error {
	for _, level := range f.Site.Levels {
		el, err := f.Session.Find(browser.ID(level.ID))
		if err != nil {
			return fmt.Errorf("level %s: %w", level.Name, err)
		}

		selected, err := el.IsSelected()
		if err == nil && selected != q.HasLevel(level.Name) {
			err = el.Click()
		}
		_ = el.Release()
		if err != nil {
			return fmt.Errorf("toggle level %s: %w", level.Name, err)
		}
	}
	return nil
}
