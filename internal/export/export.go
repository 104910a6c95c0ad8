package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/jobmine/internal/models"
	"github.com/jimezsa/jobmine/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

// listSeparator joins multi-value fields inside a single cell.
const listSeparator = "; "

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
}

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "tsv":
		return FormatTSV, nil
	case "table", "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

func WriteRecords(w io.Writer, records []models.JobRecord, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records, ',')
	case FormatTSV:
		return writeCSV(w, records, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, records)
	default:
		return writeTable(w, records, opts)
	}
}

func writeJSON(w io.Writer, records []models.JobRecord) error {
	if records == nil {
		records = []models.JobRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeCSV(w io.Writer, records []models.JobRecord, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, record := range records {
		if err := writer.Write(csvRow(record)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, records []models.JobRecord, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"job_id", "title", "employer", "location", "openings", "apply_by"}, "\t"))
	output := termenv.NewOutput(w)
	for _, record := range records {
		fmt.Fprintln(tw, strings.Join(tableRow(record, output, opts), "\t"))
	}
	return tw.Flush()
}

func tableRow(record models.JobRecord, output *termenv.Output, opts WriteOptions) []string {
	id := safe(record.JobID)
	if url := safe(record.URL); url != "" {
		label := ui.ColorizeLink(output, opts.ColorEnabled, id)
		if opts.Hyperlinks {
			label = hyperlink(url, label)
		}
		id = label
	}
	return []string{
		id,
		safe(record.JobTitle),
		safe(record.Employer),
		safe(record.WorkLocation),
		strconv.Itoa(record.AvailableOpenings),
		safe(record.LastDayToApply),
	}
}

func writeMarkdown(w io.Writer, records []models.JobRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, record := range records {
		lines := []string{
			fmt.Sprintf("- **%s** (%s) `%s`", safe(record.JobTitle), safe(record.Employer), safe(record.JobID)),
			fmt.Sprintf("  Location: %s", orDash(record.WorkLocation)),
			fmt.Sprintf("  Openings: %d", record.AvailableOpenings),
			fmt.Sprintf("  Apply by: %s", orDash(record.LastDayToApply)),
			fmt.Sprintf("  Levels: %s", orDash(joinList(record.Levels))),
			fmt.Sprintf("  Disciplines: %s", orDash(joinList(record.Disciplines))),
		}
		if record.GradesRequired {
			lines = append(lines, "  Grades: required")
		}
		if url := safe(record.URL); url != "" {
			lines = append(lines, fmt.Sprintf("  URL: [Open posting](<%s>)", url))
		}
		if comments := safe(record.Comments); comments != "" {
			lines = append(lines, fmt.Sprintf("  Comments: %s", comments))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"job_id",
		"job_title",
		"employer",
		"work_location",
		"available_openings",
		"posting_open_date",
		"last_day_to_apply",
		"employer_job_number",
		"levels",
		"disciplines",
		"grades_required",
		"hiring_process_support",
		"work_term_support",
		"comments",
		"job_description",
		"url",
	}
}

func csvRow(record models.JobRecord) []string {
	return []string{
		record.JobID,
		record.JobTitle,
		record.Employer,
		record.WorkLocation,
		strconv.Itoa(record.AvailableOpenings),
		record.PostingOpenDate,
		record.LastDayToApply,
		record.EmployerJobNumber,
		joinList(record.Levels),
		joinList(record.Disciplines),
		strconv.FormatBool(record.GradesRequired),
		record.HiringProcessSupport,
		record.WorkTermSupport,
		record.Comments,
		record.JobDescription,
		record.URL,
	}
}

// joinList drops the empty entries a blank overflow field leaves behind.
func joinList(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = safe(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, listSeparator)
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func orDash(value string) string {
	if value = safe(value); value == "" {
		return "-"
	}
	return value
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}
