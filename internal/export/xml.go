package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"coursion/internal/domain"
)

/*
<CourseCatalog generated="2025-06-01T09:30:00Z">
  <Course id="c1">
    <title>Mastering React</title>
    <category>Development</category>
    <difficulty>Beginner</difficulty>
    <instructor>Jane Doe</instructor>
    <seats total="10" taken="3" left="7"/>
    <rating count="2">4.5</rating>
    <date_added>2025-03-01</date_added>
    <curriculum>
      <section>Intro</section>
    </curriculum>
  </Course>
</CourseCatalog>
*/

type catalogXML struct {
	XMLName   xml.Name    `xml:"CourseCatalog"`
	Generated string      `xml:"generated,attr,omitempty"`
	Courses   []courseXML `xml:"Course"`
}

type courseXML struct {
	ID          string         `xml:"id,attr"`
	Title       string         `xml:"title"`
	Description string         `xml:"description,omitempty"`
	Category    string         `xml:"category,omitempty"`
	Difficulty  string         `xml:"difficulty,omitempty"`
	Instructor  string         `xml:"instructor,omitempty"`
	Duration    string         `xml:"duration,omitempty"`
	Image       string         `xml:"image_url,omitempty"`
	Seats       seatsXML       `xml:"seats"`
	Rating      ratingXML      `xml:"rating"`
	DateAdded   string         `xml:"date_added,omitempty"`
	Curriculum  *curriculumXML `xml:"curriculum,omitempty"`
}

type seatsXML struct {
	Total int `xml:"total,attr"`
	Taken int `xml:"taken,attr"`
	Left  int `xml:"left,attr"`
}

type ratingXML struct {
	Count int    `xml:"count,attr"`
	Value string `xml:",chardata"`
}

type curriculumXML struct {
	Sections []string `xml:"section"`
}

// XMLOptions tweak the catalog document.
type XMLOptions struct {
	// Generated is stamped on the root element when set.
	Generated string
	// WithDescription includes course descriptions.
	WithDescription bool
}

// MarshalCatalogXML renders courses with the XML header.
func MarshalCatalogXML(courses []domain.Course, opts XMLOptions) ([]byte, error) {
	out := catalogXML{
		Generated: strings.TrimSpace(opts.Generated),
		Courses:   make([]courseXML, 0, len(courses)),
	}
	for _, c := range courses {
		row := courseXML{
			ID:         c.ID,
			Title:      strings.TrimSpace(c.Title),
			Category:   strings.TrimSpace(c.Category),
			Difficulty: string(c.Difficulty),
			Instructor: strings.TrimSpace(c.Instructor),
			Duration:   strings.TrimSpace(c.Duration),
			Image:      strings.TrimSpace(c.Image),
			Seats:      seatsXML{Total: c.TotalSeats, Taken: c.Students, Left: c.SeatsLeft()},
			Rating:     ratingXML{Count: len(c.Reviews), Value: strconv.FormatFloat(c.Rating, 'f', -1, 64)},
		}
		if opts.WithDescription {
			row.Description = strings.TrimSpace(c.Description)
		}
		if !c.DateAdded.IsZero() {
			row.DateAdded = c.DateAdded.Format(domain.DayLayout)
		}
		if sections := cleanStrings(c.Curriculum); len(sections) > 0 {
			row.Curriculum = &curriculumXML{Sections: sections}
		}
		out.Courses = append(out.Courses, row)
	}

	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal xml: %w", err)
	}
	return append([]byte(xml.Header), b...), nil
}

func WriteCatalogXMLFile(outPath string, courses []domain.Course, opts XMLOptions) error {
	b, err := MarshalCatalogXML(courses, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}
	return nil
}
