package exporter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"jobradar/pkg/models"
)

func sampleJobs() []models.Job {
	now := time.Now().UTC()
	return []models.Job{
		{Title: "Backend Engineer", Company: "Acme", Location: "Berlin", URL: "https://acme.com/1", FirstSeenAt: now, LastSeenAt: now, IsActive: true},
		{Title: "Product Manager", Company: "Acme", Location: "Remote", URL: "https://acme.com/2", FirstSeenAt: now, LastSeenAt: now, IsActive: true},
	}
}

func TestExportJSONWritesAllJobs(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(dir, "json", "acme.com", sampleJobs(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []models.Job
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(got))
	}
}

func TestExportCSVWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(dir, "csv", "acme.com", sampleJobs(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "title" {
		t.Errorf("expected header row, got %+v", records[0])
	}
	if records[1][0] != "Backend Engineer" {
		t.Errorf("unexpected first row: %+v", records[1])
	}
}

func TestExportRejectsUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	if _, err := Export(dir, "xml", "acme.com", sampleJobs(), nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
