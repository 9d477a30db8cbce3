package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Difficulty is the course level as the backend stores it.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

// ParseDifficulty matches case-insensitively. ok is false for unknown levels.
func ParseDifficulty(s string) (Difficulty, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Difficulties {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

// Categories offered by the authoring form.
var Categories = []string{"Design", "Development", "Marketing", "Business"}

// Author is the createdBy block stamped on a course at creation time.
type Author struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Image     string `json:"image,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Course is the canonical representation of a marketplace course on the client.
type Course struct {
	ID              string     `json:"_id,omitempty"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
	Description     string     `json:"description"`
	Duration        string     `json:"duration"`
	Image           string     `json:"image"`
	Instructor      string     `json:"instructor"`
	InstructorImage string     `json:"instructorImage"`
	TotalSeats      int        `json:"totalSeats"`
	Students        int        `json:"students"`
	Rating          float64    `json:"rating"`
	Curriculum      []string   `json:"curriculum"`
	Reviews         []Review   `json:"reviews"`
	DateAdded       Date       `json:"dateAdded"`
	LastUpdated     string     `json:"lastUpdated,omitempty"`
	CreatedBy       *Author    `json:"createdBy,omitempty"`
}

// SeatsLeft is totalSeats - students. It may go negative when enrollers overshoot.
func (c Course) SeatsLeft() int {
	return c.TotalSeats - c.Students
}

func (c Course) SeatsFull() bool {
	return c.SeatsLeft() <= 0
}

// Review belongs to exactly one course and is append-only from the client.
type Review struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Enrollment is the (courseId, userEmail) pair. Course is populated by the
// my-enrollments endpoint only.
type Enrollment struct {
	ID         string  `json:"_id,omitempty"`
	CourseID   string  `json:"courseId"`
	UserEmail  string  `json:"userEmail"`
	EnrolledAt string  `json:"enrolledAt,omitempty"`
	Course     *Course `json:"course,omitempty"`
}

// Date accepts either a plain YYYY-MM-DD day or an RFC3339 timestamp.
// The zero value marshals as an empty string.
type Date struct {
	time.Time
}

const DayLayout = "2006-01-02"

func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, DayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, true
		}
	}
	return Date{}, false
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// a garbage date is not worth failing the whole course list over
	parsed, _ := ParseDate(s)
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(DayLayout))
}
