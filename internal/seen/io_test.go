package seen

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jimezsa/jobmine/internal/models"
)

func TestReadWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	records := []models.JobRecord{{
		JobID:             "00261234",
		JobTitle:          "Software Developer",
		Employer:          "Acme",
		AvailableOpenings: 2,
		Disciplines:       []string{"ENG-Software"},
		Levels:            []string{"Junior"},
		GradesRequired:    true,
	}}
	if err := WriteRecords(path, records); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}

	got, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("read back %+v, want %+v", got, records)
	}
}

func TestReadHistoryMissingFile(t *testing.T) {
	got, err := ReadHistory(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestReadRecordsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRecords(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
