// Package catalog derives the browsable course list: search, difficulty
// filter, sort and the banner stats.
package catalog

import (
	"sort"
	"strconv"
	"strings"

	"coursion/internal/domain"
)

type SortKey string

const (
	SortNewest     SortKey = "Newest"
	SortEnrollment SortKey = "Enrollment"
	SortRating     SortKey = "Rating"
)

// DifficultyAll disables the difficulty filter.
const DifficultyAll = "All"

var SortKeys = []SortKey{SortNewest, SortEnrollment, SortRating}

// ParseSort accepts the sort names case-insensitively ("rating", "Newest").
func ParseSort(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, true
		}
	}
	return "", false
}

type Query struct {
	Search     string
	Difficulty string
	Sort       SortKey
}

// DefaultQuery is what a freshly mounted list shows.
func DefaultQuery() Query {
	return Query{Difficulty: DifficultyAll, Sort: SortNewest}
}

// Apply returns the filtered and sorted view of courses. The input slice
// is never modified. Sorting is stable.
func Apply(courses []domain.Course, q Query) []domain.Course {
	// blank terms disable the filter; others match as typed
	filter := strings.TrimSpace(q.Search) != ""
	term := strings.ToLower(q.Search)
	diff := strings.TrimSpace(q.Difficulty)

	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if filter &&
			!strings.Contains(strings.ToLower(c.Title), term) &&
			!strings.Contains(strings.ToLower(c.Instructor), term) {
			continue
		}
		if diff != "" && diff != DifficultyAll && string(c.Difficulty) != diff {
			continue
		}
		out = append(out, c)
	}

	switch q.Sort {
	case SortEnrollment:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Students > out[j].Students })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	default:
		// undated courses sink to the end
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DateAdded, out[j].DateAdded
			if a.IsZero() || b.IsZero() {
				return !a.IsZero() && b.IsZero()
			}
			return a.After(b.Time)
		})
	}
	return out
}

// Stats is the banner above the list.
type Stats struct {
	Courses  int
	Learners int
}

// ComputeStats sums over the set it is given. The list view passes the
// unfiltered set so the banner shows platform-wide totals.
func ComputeStats(courses []domain.Course) Stats {
	s := Stats{Courses: len(courses)}
	for _, c := range courses {
		s.Learners += c.Students
	}
	return s
}

func BannerLabel(k SortKey) string {
	switch k {
	case SortRating:
		return "Top Rated"
	case SortEnrollment:
		return "Most Enrolled"
	}
	return "Newest"
}

// RankLabel is the card badge for the i-th (0-based) row.
func RankLabel(i int, k SortKey) string {
	if i < 3 {
		return BannerLabel(k)
	}
	return "#" + strconv.Itoa(i+1)
}
