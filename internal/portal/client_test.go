package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/stretchr/testify/require"
)

func testOptions(site Site) Options {
	opts := DefaultOptions()
	opts.Site = site
	opts.WaitTimeout = 2 * time.Second
	return opts
}

// newSearchPortal serves a search whose results are ids split into pages
// of ten, with a detail page per id.
func newSearchPortal(ids []string, overrides map[string][]detailOverride) (*fakePortal, *searchFixture) {
	p := newFakePortal(testSite())
	fixture := addSearch(p, models.DefaultDisciplines, chunk(ids, 10))
	for _, id := range ids {
		addDetail(p, id, overrides[id]...)
	}
	return p, fixture
}

func expectedRecords(site Site, ids []string) []models.JobRecord {
	out := make([]models.JobRecord, len(ids))
	for i, id := range ids {
		r := fixtureRecord(id)
		r.URL = site.DetailURL(models.ListingID(id))
		out[i] = r
	}
	return out
}

func TestFindJobsEndToEnd(t *testing.T) {
	ids := listingIDs(23)
	p, fixture := newSearchPortal(ids, nil)
	ctx := context.Background()

	client, err := New(ctx, p, testUser, testPass, testOptions(p.site))
	require.NoError(t, err)

	records, err := client.FindJobs(ctx,
		models.WithTerm(1165),
		models.WithDisciplines("ENG-Software"),
		models.WithLevels("junior"),
	)
	require.NoError(t, err)
	if diff := cmp.Diff(expectedRecords(p.site, ids), records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "1165", fixture.fields[p.site.TermField].Value())
	require.Equal(t, "", fixture.fields[p.site.EmployerField].Value())
	require.True(t, fixture.disciplines["ENG-Software"].Selected())
	require.Equal(t, 1, fixture.button.Clicks())

	// one primary session plus a worker per group of ten
	opened, open := p.SessionCount()
	require.Equal(t, 4, opened)
	require.Equal(t, 1, open)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	_, open = p.SessionCount()
	require.Equal(t, 0, open)
}

func TestFindJobsWithLastQuery(t *testing.T) {
	ids := listingIDs(12)
	p, _ := newSearchPortal(ids, nil)
	ctx := context.Background()

	client, err := New(ctx, p, testUser, testPass, testOptions(p.site))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FindJobsWithLastQuery(ctx)
	require.ErrorIs(t, err, ErrNoPreviousQuery)

	first, err := client.FindJobs(ctx, models.WithDisciplines("ENG-Software"))
	require.NoError(t, err)
	require.ElementsMatch(t, first, client.LastResults())

	again, err := client.FindJobsWithLastQuery(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, first, again)
}

func TestFindJobsKeepsPartialResultsOnWorkerFailure(t *testing.T) {
	ids := listingIDs(23)
	bad := ids[12]
	site := testSite()
	p, _ := newSearchPortal(ids, map[string][]detailOverride{bad: {without(site.Detail.Employer)}})
	ctx := context.Background()

	client, err := New(ctx, p, testUser, testPass, testOptions(p.site))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FindJobs(ctx, models.WithDisciplines("ENG-Software"))

	var scrapeErr *ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	var malformed *MalformedDetailError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, models.ListingID(bad), malformed.ListingID)
	require.Equal(t, "employer", malformed.Field)

	// group 1 stops at its third listing, groups 0 and 2 finish
	want := append(expectedRecords(site, ids[:12]), expectedRecords(site, ids[20:])...)
	if diff := cmp.Diff(want, scrapeErr.Partial); diff != "" {
		t.Fatalf("partial mismatch (-want +got):\n%s", diff)
	}

	_, open := p.SessionCount()
	require.Equal(t, 1, open)

	_, err = client.FindJobsWithLastQuery(ctx)
	require.ErrorIs(t, err, ErrNoPreviousQuery)
}

func TestFindJobsSpreadsLargeResultSets(t *testing.T) {
	ids := listingIDs(120)
	p, _ := newSearchPortal(ids, nil)
	ctx := context.Background()

	client, err := New(ctx, p, testUser, testPass, testOptions(p.site))
	require.NoError(t, err)
	defer client.Close()

	records, err := client.FindJobs(ctx, models.WithDisciplines("ENG-Software"))
	require.NoError(t, err)
	require.Len(t, records, 120)

	seen := map[string]bool{}
	for _, r := range records {
		require.False(t, seen[r.JobID], "duplicate %s", r.JobID)
		seen[r.JobID] = true
	}

	opened, _ := p.SessionCount()
	require.Equal(t, 1+10, opened)
}

func TestNewRejectsBadCredentials(t *testing.T) {
	p, _ := newSearchPortal(listingIDs(1), nil)

	_, err := New(context.Background(), p, testUser, "nope", testOptions(p.site))
	var loginErr *LoginFailedError
	require.True(t, errors.As(err, &loginErr))

	_, open := p.SessionCount()
	require.Equal(t, 0, open)
}

func TestFindJobsAfterClose(t *testing.T) {
	p, _ := newSearchPortal(listingIDs(1), nil)
	ctx := context.Background()

	client, err := New(ctx, p, testUser, testPass, testOptions(p.site))
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.FindJobs(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestFindJobsTimesOutWhenSearchDoesNotReload(t *testing.T) {
	p, fixture := newSearchPortal(listingIDs(3), nil)
	fixture.button.OnClick = nil
	ctx := context.Background()

	opts := testOptions(p.site)
	opts.WaitTimeout = 100 * time.Millisecond
	client, err := New(ctx, p, testUser, testPass, opts)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FindJobs(ctx, models.WithDisciplines("ENG-Software"))
	require.ErrorIs(t, err, ErrTransitionTimeout)
	require.ErrorContains(t, err, "submit search")

	var scrapeErr *ScrapeError
	require.False(t, errors.As(err, &scrapeErr))
	opened, _ := p.SessionCount()
	require.Equal(t, 1, opened)
}

func TestFindJobsTimesOutOnStalledDetailPage(t *testing.T) {
	ids := listingIDs(3)
	p, _ := newSearchPortal(ids, nil)
	p.Page(p.site.DetailURL(models.ListingID(ids[1]))).Stalled = true
	ctx := context.Background()

	opts := testOptions(p.site)
	opts.WaitTimeout = 100 * time.Millisecond
	opts.JobsPerWorker = 1
	client, err := New(ctx, p, testUser, testPass, opts)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FindJobs(ctx, models.WithDisciplines("ENG-Software"))
	require.ErrorIs(t, err, ErrTransitionTimeout)

	var scrapeErr *ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	want := append(expectedRecords(p.site, ids[:1]), expectedRecords(p.site, ids[2:])...)
	if diff := cmp.Diff(want, scrapeErr.Partial); diff != "" {
		t.Fatalf("partial mismatch (-want +got):\n%s", diff)
	}
}
