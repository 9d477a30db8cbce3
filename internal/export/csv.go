// Package export writes catalog snapshots as CSV or XML files for
// downstream tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"coursion/internal/domain"
)

// Keep header order stable; spreadsheets downstream index by position.
var csvHeader = []string{
	"COURSE_ID",
	"TITLE",
	"CATEGORY",
	"DIFFICULTY",
	"INSTRUCTOR",
	"DURATION",
	"TOTAL_SEATS",
	"STUDENTS",
	"SEATS_LEFT",
	"RATING",
	"REVIEW_COUNT",
	"DATE_ADDED",
	"CURRICULUM",
}

// WriteCatalogCSV writes one row per course, in the given order.
func WriteCatalogCSV(w io.Writer, courses []domain.Course) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range courses {
		if err := cw.Write(toRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCatalogCSVFile is WriteCatalogCSV into outPath.
func WriteCatalogCSVFile(outPath string, courses []domain.Course) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create csv: %w", err)
	}
	if err := WriteCatalogCSV(f, courses); err != nil {
		f.Close()
		return fmt.Errorf("export: write csv: %w", err)
	}
	return f.Close()
}

func toRow(c domain.Course) []string {
	added := ""
	if !c.DateAdded.IsZero() {
		added = c.DateAdded.Format(domain.DayLayout)
	}
	return []string{
		c.ID,
		oneLine(c.Title),
		c.Category,
		string(c.Difficulty),
		oneLine(c.Instructor),
		c.Duration,
		strconv.Itoa(c.TotalSeats),
		strconv.Itoa(c.Students),
		strconv.Itoa(c.SeatsLeft()),
		floatToString(c.Rating),
		strconv.Itoa(len(c.Reviews)),
		added,
		// pipes keep the sections in a single cell
		strings.Join(cleanStrings(c.Curriculum), " | "),
	}
}

func floatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = oneLine(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
