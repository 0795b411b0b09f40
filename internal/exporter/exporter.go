// Package exporter writes a site scan's job results to disk as JSON or
// CSV, per spec.md §6's output_format/output_dir configuration.
//
// Grounded on the teacher's internal/exporter/exporter.go for the
// sentinel-error-plus-logger shape (render → write → report), and on
// other_examples' getalljobs CSV writer for the encoding/csv column
// layout; the teacher's LaTeX/PDF render-and-upload pipeline is replaced
// outright since this domain has no resume or object-storage concept.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jobradar/pkg/models"
)

// Sentinel errors for precise caller handling.
var (
	ErrUnsupportedFormat = errors.New("unsupported_output_format")
	ErrWrite             = errors.New("write_failed")
)

var csvHeader = []string{
	"title", "title_en", "company", "location", "url", "salary_from",
	"salary_to", "salary_currency", "experience", "employment_type",
	"skills", "extraction_method", "first_seen_at", "last_seen_at", "is_active",
}

// Export writes jobs for siteDomain to outputDir in the given format
// ("json" or "csv"), returning the written file's path.
func Export(outputDir, format, siteDomain string, jobs []models.Job, logger *logrus.Entry) (string, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	base := fmt.Sprintf("%s-%s", sanitizeFilename(siteDomain), stamp)

	var path string
	var err error
	switch strings.ToLower(format) {
	case "", "json":
		path = filepath.Join(outputDir, base+".json")
		err = writeJSON(path, jobs)
	case "csv":
		path = filepath.Join(outputDir, base+".csv")
		err = writeCSV(path, jobs)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		logger.WithError(err).WithField("path", path).Error("exporter: failed to write job export")
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	logger.WithFields(logrus.Fields{"path": path, "jobs": len(jobs)}).Info("exporter: wrote job export")
	return path, nil
}

func writeJSON(path string, jobs []models.Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, jobs []models.Job) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, j := range jobs {
		if err := writer.Write(jobRow(j)); err != nil {
			return err
		}
	}
	return writer.Error()
}

func jobRow(j models.Job) []string {
	return []string{
		j.Title,
		j.TitleEN,
		j.Company,
		j.Location,
		j.URL,
		intPtrString(j.SalaryFrom),
		intPtrString(j.SalaryTo),
		j.SalaryCurrency,
		j.Experience,
		j.EmploymentType,
		strings.Join(j.Skills, ";"),
		j.ExtractionMethod,
		j.FirstSeenAt.Format(time.RFC3339),
		j.LastSeenAt.Format(time.RFC3339),
		strconv.FormatBool(j.IsActive),
	}
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

var filenameUnsafe = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sanitizeFilename(s string) string {
	return filenameUnsafe.Replace(strings.ToLower(s))
}
