package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultPoolSize      = 10
	DefaultJobsPerWorker = 10
)

type Options struct {
	Site          Site
	PoolSize      int
	JobsPerWorker int
	WaitTimeout   time.Duration
	// SetLevels turns on the level checkbox refinement of the search form.
	SetLevels bool
	MaxPages  int
	// DetailRate caps detail page loads per second across all workers.
	// Zero means unlimited.
	DetailRate float64
	Logger     zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Site:          DefaultSite(DefaultBaseURL),
		PoolSize:      DefaultPoolSize,
		JobsPerWorker: DefaultJobsPerWorker,
		WaitTimeout:   DefaultWaitTimeout,
		Logger:        zerolog.Nop(),
	}
}

func (o Options) withDefaults() Options {
	if o.Site.LoginURL == "" {
		o.Site = DefaultSite(DefaultBaseURL)
	}
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.JobsPerWorker <= 0 {
		o.JobsPerWorker = DefaultJobsPerWorker
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	return o
}

// Client owns the authenticated primary session and runs searches.
type Client struct {
	launcher browser.Launcher
	session  browser.Session
	token    models.AuthToken
	opts     Options
	waiter   Waiter
	limiter  *rate.Limiter
	log      zerolog.Logger

	// run serializes searches on the primary session.
	run sync.Mutex

	mu          sync.Mutex
	closed      bool
	lastQuery   *models.Query
	lastResults []models.JobRecord

	closeOnce sync.Once
	closeErr  error
}

// New opens the primary session and logs in. A rejected login returns a
// *LoginFailedError.
func New(ctx context.Context, launcher browser.Launcher, username, password string, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.DetailRate > 0 {
		limit = rate.Limit(opts.DetailRate)
	}

	c := &Client{
		launcher: launcher,
		opts:     opts,
		waiter:   Waiter{Timeout: opts.WaitTimeout},
		limiter:  rate.NewLimiter(limit, 1),
		log:      opts.Logger,
	}

	session, err := launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open primary session: %w", err)
	}

	token, err := Login(ctx, session, opts.Site, c.waiter, username, password)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	c.session = session
	c.token = token
	c.log.Debug().Str("user", username).Msg("logged in")
	return c, nil
}

// FindJobs runs a search built from the defaults plus opts.
func (c *Client) FindJobs(ctx context.Context, opts ...models.QueryOption) ([]models.JobRecord, error) {
	return c.FindJobsWithQuery(ctx, models.NewQuery(opts...))
}

// FindJobsWithLastQuery repeats the most recent successful query.
func (c *Client) FindJobsWithLastQuery(ctx context.Context) ([]models.JobRecord, error) {
	c.mu.Lock()
	last := c.lastQuery
	c.mu.Unlock()

	if last == nil {
		return nil, ErrNoPreviousQuery
	}
	return c.FindJobsWithQuery(ctx, last.Clone())
}

// FindJobsWithQuery searches, pages through the results and scrapes every
// listing with the worker pool. Records come back in result order. When a
// worker fails the error is a *ScrapeError holding what was extracted.
func (c *Client) FindJobsWithQuery(ctx context.Context, q models.Query) ([]models.JobRecord, error) {
	c.run.Lock()
	defer c.run.Unlock()

	if c.isClosed() {
		return nil, ErrClosed
	}
	q = q.Clone()

	if err := c.search(ctx, q); err != nil {
		return nil, err
	}

	pager := Pager{
		Session:  c.session,
		Site:     c.opts.Site,
		Waiter:   c.waiter,
		MaxPages: c.opts.MaxPages,
		Logger:   c.log,
	}
	ids, err := pager.CollectIDs(ctx)
	if err != nil {
		return nil, err
	}

	groups := Partition(ids, c.opts.PoolSize, c.opts.JobsPerWorker)
	c.log.Debug().Int("ids", len(ids)).Int("groups", len(groups)).Msg("listing ids collected")

	records, err := c.scrapeGroups(ctx, groups)
	if err != nil {
		return nil, &ScrapeError{Partial: records, Err: err}
	}

	c.mu.Lock()
	c.lastQuery = &q
	c.lastResults = records
	c.mu.Unlock()

	return records, nil
}

// LastResults returns the records of the most recent successful query.
func (c *Client) LastResults() []models.JobRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.JobRecord(nil), c.lastResults...)
}

// Close releases the primary session. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.run.Lock()
		defer c.run.Unlock()
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) search(ctx context.Context, q models.Query) error {
	site := c.opts.Site
	if _, err := c.waiter.Navigate(ctx, c.session, site.SearchURL); err != nil {
		return fmt.Errorf("open search page: %w", err)
	}

	form := FormDriver{Session: c.session, Site: site}
	if err := form.Apply(q); err != nil {
		return fmt.Errorf("apply query: %w", err)
	}
	if c.opts.SetLevels {
		if err := form.ApplyLevels(q); err != nil {
			return fmt.Errorf("apply levels: %w", err)
		}
	}

	button, err := c.session.Find(browser.ID(site.SearchButton))
	if err != nil {
		return fmt.Errorf("search button: %w", err)
	}
	defer func() { _ = button.Release() }()

	if err := c.waiter.Await(ctx, c.session, browser.ID(site.FirstJob), button.Click); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return nil
}

// scrapeGroups runs one worker per group, at most PoolSize at a time. A
// failing worker does not cancel its siblings. Results are merged by group
// index so the output order is stable.
func (c *Client) scrapeGroups(ctx context.Context, groups [][]models.ListingID) ([]models.JobRecord, error) {
	results := make([][]models.JobRecord, len(groups))
	errs := make([]error, len(groups))

	var g errgroup.Group
	g.SetLimit(c.opts.PoolSize)
	for i, group := range groups {
		worker := Worker{
			Launcher: c.launcher,
			Site:     c.opts.Site,
			Token:    c.token,
			Waiter:   c.waiter,
			Limiter:  c.limiter,
			Logger:   c.log.With().Int("group", i).Logger(),
		}
		g.Go(func() error {
			records, err := worker.Scrape(ctx, group)
			results[i] = records
			if err != nil {
				errs[i] = fmt.Errorf("group %d: %w", i, err)
				worker.Logger.Debug().Err(err).Int("records", len(records)).Msg("worker failed")
				return nil
			}
			worker.Logger.Debug().Int("records", len(records)).Msg("worker done")
			return nil
		})
	}
	_ = g.Wait()

	var records []models.JobRecord
	for _, group := range results {
		records = append(records, group...)
	}
	return records, errors.Join(errs...)
}
