package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Title  string `json:"title" validate:"notblank"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
	Note   string `json:"-" validate:"max=3"`
}

func TestStruct(t *testing.T) {
	testCases := []struct {
		name     string
		in       sample
		expected []string
	}{
		{"valid", sample{Title: "Go", Rating: 3}, nil},
		{"blank title", sample{Title: "   ", Rating: 3}, []string{"title"}},
		{"rating out of range", sample{Title: "Go", Rating: 6}, []string{"rating"}},
		{"both", sample{Rating: 0}, []string{"rating", "title"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)
			if tc.expected == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			var verrs *Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected *Errors, got %T %v", err, err)
			}
			if len(verrs.Fields) != len(tc.expected) {
				t.Fatalf("Expected fields %v, got %+v", tc.expected, verrs.Fields)
			}
			for i, f := range tc.expected {
				if verrs.Fields[i].Field != f {
					t.Errorf("Expected field %q at %d, got %q", f, i, verrs.Fields[i].Field)
				}
			}
		})
	}
}

func TestNotBlankMessage(t *testing.T) {
	err := Struct(sample{Rating: 2})
	var verrs *Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected *Errors, got %v", err)
	}
	if got := verrs.Field("title"); got != "title is required" {
		t.Errorf("Expected 'title is required', got %q", got)
	}
	if verrs.Field("missing") != "" {
		t.Error("Expected empty message for unknown field")
	}
}
