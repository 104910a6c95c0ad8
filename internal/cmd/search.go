package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/config"
	"github.com/jimezsa/jobmine/internal/export"
	"github.com/jimezsa/jobmine/internal/models"
	"github.com/jimezsa/jobmine/internal/network"
	"github.com/jimezsa/jobmine/internal/portal"
	"github.com/jimezsa/jobmine/internal/seen"
	"github.com/jimezsa/jobmine/internal/ui"
)

type SearchCmd struct {
	Term        int      `help:"Work term code (default from config)."`
	Employer    string   `help:"Employer name filter."`
	Title       string   `help:"Job title filter."`
	Disciplines []string `name:"discipline" help:"Discipline label, repeat in form slot order (default from config)."`
	Levels      []string `name:"level" help:"Level: junior, intermediate, senior; repeatable (default from config)."`
	SetLevels   bool     `help:"Apply --level to the level checkboxes on the search form."`
	MaxPages    int      `help:"Stop after N result pages (0 = all)."`
	Format      string   `help:"Output format: csv, json, md, tsv." enum:",csv,json,md,tsv" default:""`
	Output      string   `name:"output" short:"o" help:"Write output to a file."`
	Proxies     string   `help:"Comma-separated proxy URLs for worker sessions." env:"JOBMINE_PROXIES"`
	EnvFile     string   `name:"env-file" help:"Load JOBMINE_USERNAME/JOBMINE_PASSWORD from this file."`
	Seen        string   `help:"Path to seen jobs JSON file."`
	NewOnly     bool     `help:"Output only unseen jobs (requires --seen)."`
	NewOut      string   `help:"Write unseen jobs JSON to a file (requires --seen)."`
	SeenUpdate  bool     `help:"Merge unseen jobs into the --seen history after the search (requires --seen)."`
}

func (s *SearchCmd) Run(ctx *Context) error {
	if err := s.validatePaths(); err != nil {
		return err
	}

	creds, err := config.LoadCredentials(s.EnvFile)
	if err != nil {
		return err
	}

	proxies, err := config.LoadProxies(s.Proxies)
	if err != nil {
		return err
	}
	var proxySource browser.ProxySource
	if len(proxies) > 0 {
		rotator, err := network.NewRotator(proxies, network.DefaultBanDuration)
		if err != nil {
			return err
		}
		proxySource = rotator
		ctx.Logger.Debug().Int("proxies", rotator.Len()).Msg("worker proxies loaded")
	}

	launcher, err := ctx.Launch(ctx.Config, proxySource, ctx.Logger)
	if err != nil {
		return err
	}
	defer launcher.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, searchErr := s.search(runCtx, ctx, launcher, creds)
	var scrapeErr *portal.ScrapeError
	switch {
	case errors.As(searchErr, &scrapeErr):
		ctx.UI.Warnf("%v", searchErr)
		records = scrapeErr.Partial
	case searchErr != nil:
		return searchErr
	}

	if err := s.writeResults(ctx, records); err != nil {
		return err
	}
	if scrapeErr != nil {
		return fmt.Errorf("search incomplete: wrote %d partial records", len(records))
	}
	return nil
}

func (s *SearchCmd) search(runCtx context.Context, ctx *Context, launcher browser.Launcher, creds config.Credentials) ([]models.JobRecord, error) {
	// Debug logs share stderr with the spinner.
	stopSpinner := func() {}
	if !ctx.Verbose {
		stopSpinner = ctx.UI.Spinner("Searching...")
	}
	defer stopSpinner()

	client, err := portal.New(runCtx, launcher, creds.Username, creds.Password, s.portalOptions(ctx))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			ctx.Logger.Warn().Err(err).Msg("close portal session")
		}
	}()

	records, err := client.FindJobsWithQuery(runCtx, s.buildQuery(ctx.Config))
	stopSpinner()
	return records, err
}

func (s *SearchCmd) buildQuery(cfg config.Config) models.Query {
	opts := []models.QueryOption{
		models.WithEmployerName(strings.TrimSpace(s.Employer)),
		models.WithJobTitle(strings.TrimSpace(s.Title)),
	}
	if term := defaultInt(s.Term, cfg.DefaultTerm); term != 0 {
		opts = append(opts, models.WithTerm(term))
	}
	if disciplines := firstNonEmptyList(s.Disciplines, cfg.DefaultDisciplines); len(disciplines) > 0 {
		opts = append(opts, models.WithDisciplines(disciplines...))
	}
	if levels := firstNonEmptyList(s.Levels, cfg.DefaultLevels); len(levels) > 0 {
		normalized := make([]string, len(levels))
		for i, level := range levels {
			normalized[i] = strings.ToLower(strings.TrimSpace(level))
		}
		opts = append(opts, models.WithLevels(normalized...))
	}
	return models.NewQuery(opts...)
}

func (s *SearchCmd) portalOptions(ctx *Context) portal.Options {
	cfg := ctx.Config
	opts := portal.DefaultOptions()
	opts.Site = portal.DefaultSite(cfg.BaseURL)
	opts.PoolSize = cfg.PoolSize
	opts.JobsPerWorker = cfg.JobsPerWorker
	opts.WaitTimeout = cfg.WaitTimeout()
	opts.SetLevels = s.SetLevels || cfg.SetLevels
	opts.MaxPages = defaultInt(s.MaxPages, cfg.MaxPages)
	opts.DetailRate = cfg.DetailRate
	opts.Logger = ctx.Logger
	return opts
}

func (s *SearchCmd) validatePaths() error {
	seenPath := strings.TrimSpace(s.Seen)
	if s.NewOnly && seenPath == "" {
		return fmt.Errorf("--new-only requires --seen")
	}
	if strings.TrimSpace(s.NewOut) != "" && seenPath == "" {
		return fmt.Errorf("--new-out requires --seen")
	}
	if s.SeenUpdate && seenPath == "" {
		return fmt.Errorf("--seen-update requires --seen")
	}
	if pathsEqual(s.Output, s.NewOut) {
		return fmt.Errorf("--new-out path must differ from --output")
	}
	if pathsEqual(s.Output, s.Seen) {
		return fmt.Errorf("--output path must differ from --seen")
	}
	if pathsEqual(s.NewOut, s.Seen) {
		return fmt.Errorf("--new-out path must differ from --seen")
	}
	return nil
}

func (s *SearchCmd) writeResults(ctx *Context, records []models.JobRecord) error {
	var unseen []models.JobRecord
	if strings.TrimSpace(s.Seen) != "" {
		history, err := seen.ReadHistory(s.Seen)
		if err != nil {
			return fmt.Errorf("read --seen: %w", err)
		}
		unseen, _ = seen.Diff(records, history)
	}

	if strings.TrimSpace(s.NewOut) != "" {
		if err := seen.WriteRecords(s.NewOut, unseen); err != nil {
			return fmt.Errorf("write --new-out: %w", err)
		}
	}

	output := records
	if s.NewOnly {
		output = unseen
	}

	format, err := resolveFormat(ctx, s.Format, s.Output)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if s.Output != "" {
		file, err := os.Create(s.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	if err := export.WriteRecords(writer, output, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   colorEnabled && ui.IsTTY(writer),
	}); err != nil {
		return err
	}

	if s.SeenUpdate {
		if err := updateSeenHistory(s.Seen, unseen); err != nil {
			return err
		}
	}

	summary := records
	if strings.TrimSpace(s.Seen) != "" {
		summary = unseen
	}
	if ctx.Err != nil {
		_, _ = fmt.Fprintln(ctx.Err, formatSearchSummary(summary))
	}
	return nil
}

func updateSeenHistory(seenPath string, records []models.JobRecord) error {
	history, err := seen.ReadHistory(seenPath)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	merged, _ := seen.Merge(history, records)
	if err := seen.WriteRecords(seenPath, merged); err != nil {
		return fmt.Errorf("write --seen: %w", err)
	}
	return nil
}

func formatSearchSummary(records []models.JobRecord) string {
	if len(records) == 0 {
		return "summary: jobs=0 openings=0 top_employers=none"
	}

	openings := 0
	perEmployer := map[string]int{}
	for _, record := range records {
		openings += record.AvailableOpenings
		employer := seen.Normalize(record.Employer)
		if employer == "" {
			employer = "unknown"
		}
		perEmployer[employer]++
	}

	type employerCount struct {
		name  string
		total int
	}
	counts := make([]employerCount, 0, len(perEmployer))
	for name, total := range perEmployer {
		counts = append(counts, employerCount{name: name, total: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].total != counts[j].total {
			return counts[i].total > counts[j].total
		}
		return counts[i].name < counts[j].name
	})

	const topN = 3
	parts := make([]string, 0, topN)
	for _, c := range counts[:min(topN, len(counts))] {
		parts = append(parts, fmt.Sprintf("%s:%d", c.name, c.total))
	}
	return fmt.Sprintf("summary: jobs=%d openings=%d top_employers=%s", len(records), openings, strings.Join(parts, ", "))
}

func resolveFormat(ctx *Context, format string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if format != "" {
		return export.ParseFormat(format)
	}
	if outputPath == "" && ui.IsTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func firstNonEmptyList(values ...[]string) []string {
	for _, list := range values {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}
