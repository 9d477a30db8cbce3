package devutil

import (
	"reflect"
	"testing"

	"coursion/internal/domain"
)

const testTitle = "Mastering React"

func TestPick(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		keys     []string
		expected map[string]any
	}{
		{
			name:  "Pick from course",
			input: domain.Course{ID: "c1", Title: testTitle, Students: 3, TotalSeats: 10},
			keys:  []string{"_id", "title", "students"},
			expected: map[string]any{
				"_id":      "c1",
				"title":    testTitle,
				"students": float64(3), // JSON numbers decode as float64
			},
		},
		{
			name:     "Pick from map",
			input:    map[string]any{"title": "Python", "rating": 4.5, "extra": true},
			keys:     []string{"rating"},
			expected: map[string]any{"rating": 4.5},
		},
		{
			name:     "Pick with no keys",
			input:    domain.Course{Title: testTitle},
			keys:     []string{},
			expected: map[string]any{},
		},
		{
			name:     "Pick non-existent keys",
			input:    domain.Course{Title: testTitle},
			keys:     []string{"nonexistent"},
			expected: map[string]any{},
		},
		{
			name:     "Non-object input",
			input:    []int{1, 2},
			keys:     []string{"title"},
			expected: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Pick(tc.input, tc.keys...)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Pick() = %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestPickEach(t *testing.T) {
	got := PickEach([]domain.Course{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}, "title")
	expected := []map[string]any{{"title": "A"}, {"title": "B"}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("PickEach() = %v, want %v", got, expected)
	}
}

func TestParseFields(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{"title,students", []string{"title", "students"}},
		{" title , ,rating ", []string{"title", "rating"}},
		{"", nil},
	}

	for _, tc := range testCases {
		if got := ParseFields(tc.input); !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("ParseFields(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}
