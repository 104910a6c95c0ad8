package seen

import (
	"strings"

	"github.com/jimezsa/jobmine/internal/models"
)

const keySeparator = "::"

// DiffStats counts the outcome of filtering fresh records against history.
type DiffStats struct {
	TotalNew    int
	TotalSeen   int
	InvalidNew  int
	InvalidSeen int
	Unseen      int
}

func (s DiffStats) InvalidSkipped() int {
	return s.InvalidNew + s.InvalidSeen
}

// MergeStats counts the outcome of folding records into history.
type MergeStats struct {
	TotalSeen    int
	TotalInput   int
	InvalidSeen  int
	InvalidInput int
	Added        int
	TotalOut     int
}

func (s MergeStats) InvalidSkipped() int {
	return s.InvalidSeen + s.InvalidInput
}

// Normalize lowercases and collapses whitespace.
func Normalize(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	return strings.Join(fields, " ")
}

// Key identifies a record by listing id. Records written without an id fall
// back to job title plus employer.
func Key(record models.JobRecord) (string, bool) {
	if id := strings.TrimSpace(record.JobID); id != "" {
		return "id" + keySeparator + id, true
	}

	title := Normalize(record.JobTitle)
	employer := Normalize(record.Employer)
	if title == "" || employer == "" {
		return "", false
	}
	return title + keySeparator + employer, true
}

// Diff returns the records in fresh whose key is not in history.
func Diff(fresh []models.JobRecord, history []models.JobRecord) ([]models.JobRecord, DiffStats) {
	stats := DiffStats{
		TotalNew:  len(fresh),
		TotalSeen: len(history),
	}

	seenKeys := make(map[string]struct{}, len(history))
	for _, record := range history {
		key, ok := Key(record)
		if !ok {
			stats.InvalidSeen++
			continue
		}
		seenKeys[key] = struct{}{}
	}

	freshKeys := make(map[string]struct{}, len(fresh))
	unseen := make([]models.JobRecord, 0, len(fresh))
	for _, record := range fresh {
		key, ok := Key(record)
		if !ok {
			stats.InvalidNew++
			continue
		}
		if _, exists := freshKeys[key]; exists {
			continue
		}
		freshKeys[key] = struct{}{}
		if _, exists := seenKeys[key]; exists {
			continue
		}
		unseen = append(unseen, record)
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Merge appends input records missing from history. History wins on
// collisions; keyless history entries are kept as they are.
func Merge(history []models.JobRecord, input []models.JobRecord) ([]models.JobRecord, MergeStats) {
	stats := MergeStats{
		TotalSeen:  len(history),
		TotalInput: len(input),
	}

	keys := make(map[string]struct{}, len(history)+len(input))
	out := make([]models.JobRecord, 0, len(history)+len(input))

	for _, record := range history {
		key, ok := Key(record)
		if !ok {
			stats.InvalidSeen++
			out = append(out, record)
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, record)
	}

	for _, record := range input {
		key, ok := Key(record)
		if !ok {
			stats.InvalidInput++
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, record)
		stats.Added++
	}

	stats.TotalOut = len(out)
	return out, stats
}
