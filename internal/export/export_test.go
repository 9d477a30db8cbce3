package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coursion/internal/domain"
)

func sample() []domain.Course {
	added, _ := domain.ParseDate("2025-03-01")
	return []domain.Course{
		{
			ID:         "c1",
			Title:      "Mastering React",
			Category:   "Development",
			Difficulty: domain.Beginner,
			Instructor: "Jane\nDoe",
			TotalSeats: 10,
			Students:   3,
			Rating:     4.5,
			Reviews:    []domain.Review{{Rating: 4}, {Rating: 5}},
			DateAdded:  added,
			Curriculum: []string{"Intro", " ", "Hooks"},
		},
		{ID: "c2", Title: "Figma, the basics", TotalSeats: 5, Students: 6},
	}
}

func TestWriteCatalogCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalogCSV(&buf, sample()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "\r\n") {
		t.Error("Expected CRLF line endings")
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected readable csv, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(csvHeader) || rows[0][0] != "COURSE_ID" {
		t.Errorf("Unexpected header %v", rows[0])
	}

	testCases := []struct {
		row, col int
		expected string
	}{
		{1, 4, "Jane Doe"},
		{1, 8, "7"},
		{1, 9, "4.5"},
		{1, 10, "2"},
		{1, 11, "2025-03-01"},
		{1, 12, "Intro | Hooks"},
		{2, 1, "Figma, the basics"},
		{2, 8, "-1"},
		{2, 11, ""},
	}
	for _, tc := range testCases {
		if got := rows[tc.row][tc.col]; got != tc.expected {
			t.Errorf("Expected %q at %s, got %q", tc.expected, csvHeader[tc.col], got)
		}
	}
}

func TestWriteCatalogCSVFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.csv")
	if err := WriteCatalogCSVFile(out, sample()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected file, got %v", err)
	}
	if !strings.HasPrefix(string(b), "COURSE_ID,TITLE") {
		t.Errorf("Unexpected content %q", string(b)[:20])
	}

	if err := WriteCatalogCSVFile(filepath.Join(t.TempDir(), "missing", "x.csv"), nil); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestMarshalCatalogXML(t *testing.T) {
	b, err := MarshalCatalogXML(sample(), XMLOptions{Generated: "2025-06-01T09:30:00Z"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s := string(b)

	testCases := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<CourseCatalog generated="2025-06-01T09:30:00Z">`,
		`<Course id="c1">`,
		`<seats total="10" taken="3" left="7"></seats>`,
		`<rating count="2">4.5</rating>`,
		`<section>Hooks</section>`,
		`<date_added>2025-03-01</date_added>`,
	}
	for _, want := range testCases {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
	if strings.Contains(s, "<description>") {
		t.Error("Expected descriptions omitted by default")
	}
	if strings.Count(s, "<curriculum>") != 1 {
		t.Error("Expected curriculum only for the course that has one")
	}
}

func TestWriteCatalogXMLFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.xml")
	if err := WriteCatalogXMLFile(out, sample(), XMLOptions{WithDescription: true}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected file written, got %v", err)
	}
}
