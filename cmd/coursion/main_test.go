package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"coursion/internal/authoring"
	"coursion/internal/domain"
	"coursion/internal/fakeapi"
	"coursion/internal/session"
)

const annEmail = "ann@example.com"

type env struct {
	backend     *fakeapi.Backend
	sessionFile string
}

func setup(t *testing.T) *env {
	t.Helper()
	b := fakeapi.New(
		domain.Course{ID: "react", Title: "Mastering React", Difficulty: domain.Beginner, Instructor: "Jane Doe",
			TotalSeats: 10, Students: 2, Rating: 4.8, CreatedBy: &domain.Author{Email: annEmail}},
		domain.Course{ID: "python", Title: "Python for Data Science", Difficulty: domain.Intermediate,
			TotalSeats: 5, Students: 5, Rating: 4.5},
	)
	server := httptest.NewServer(b.Router())
	t.Cleanup(server.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("COURSION_API_URL", server.URL)
	t.Setenv("COURSION_SESSION_FILE", sessionFile)
	t.Setenv("COURSION_ENV", "test")
	t.Setenv("COURSION_LOG_LEVEL", "disabled")
	return &env{backend: b, sessionFile: sessionFile}
}

func (e *env) signIn(t *testing.T) {
	t.Helper()
	id := &session.Identity{UID: "u1", Email: annEmail, DisplayName: "Ann", AccessToken: "opaque-token"}
	if err := (session.FilePersister{Path: e.sessionFile}).Save(id); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func exec(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		code int
	}{
		{"no args", nil, 0},
		{"help", []string{"help"}, 0},
		{"unknown command", []string{"frobnicate"}, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := exec(t, "", tc.args...)
			if code != tc.code {
				t.Errorf("Expected exit %d, got %d", tc.code, code)
			}
			if !strings.Contains(out+errOut, "usage: coursion") {
				t.Errorf("Expected usage text, got %q", out+errOut)
			}
		})
	}
}

func TestCourses(t *testing.T) {
	setup(t)
	code, out, errOut := exec(t, "", "courses", "-sort", "rating", "-search", "REACT")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Mastering React") || strings.Contains(out, "Python") {
		t.Errorf("Expected only the react course, got %q", out)
	}
	if !strings.Contains(out, "2 courses · 7 learners") {
		t.Errorf("Expected stats over the full set, got %q", out)
	}
}

func TestCoursesShowsEnrollment(t *testing.T) {
	e := setup(t)
	if code, _, _ := exec(t, "", "courses"); code != 0 {
		t.Fatalf("Expected exit 0, got %d", code)
	}
	if e.backend.Calls("GET /enroll") != 0 {
		t.Error("Expected no probes without a session")
	}

	e.signIn(t)
	if code, _, errOut := exec(t, "", "enroll", "-yes", "react"); code != 0 {
		t.Fatalf("Expected enroll to succeed, got %d: %s", code, errOut)
	}
	code, out, errOut := exec(t, "", "courses")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	var react, python string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Mastering React"):
			react = line
		case strings.Contains(line, "Python"):
			python = line
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(react), "Enrolled") {
		t.Errorf("Expected react row to show Enrolled, got %q", react)
	}
	if !strings.HasSuffix(strings.TrimSpace(python), "No seats left") {
		t.Errorf("Expected python row to show No seats left, got %q", python)
	}
}

func TestCoursesFields(t *testing.T) {
	setup(t)
	code, out, _ := exec(t, "", "courses", "-difficulty", "intermediate", "-fields", "_id,students")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d", code)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("Expected JSON, got %q: %v", out, err)
	}
	if len(rows) != 1 || rows[0]["_id"] != "python" || len(rows[0]) != 2 {
		t.Errorf("Unexpected rows %v", rows)
	}
}

func TestCoursesBadFlags(t *testing.T) {
	setup(t)
	testCases := [][]string{
		{"courses", "-sort", "Price"},
		{"courses", "-difficulty", "Expert"},
		{"show"},
	}
	for _, args := range testCases {
		if code, _, _ := exec(t, "", args...); code != 2 {
			t.Errorf("Expected exit 2 for %v, got %d", args, code)
		}
	}
}

func TestEnrollRequiresLogin(t *testing.T) {
	e := setup(t)
	code, out, errOut := exec(t, "", "enroll", "-yes", "react")
	if code != 1 || !strings.Contains(errOut, "login required") {
		t.Errorf("Expected login required failure, got %d %q", code, errOut)
	}
	if !strings.Contains(out, "Please log in first to enroll in a course.") {
		t.Errorf("Expected login note, got %q", out)
	}
	if e.backend.Calls("POST /enroll") != 0 {
		t.Error("Expected no enroll call")
	}
}

func TestEnrollRoundTrip(t *testing.T) {
	e := setup(t)
	e.signIn(t)

	code, out, errOut := exec(t, "y\n", "enroll", "react")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Enroll in this course?") || !strings.Contains(out, "[Enrolled] 7 left") {
		t.Errorf("Expected prompt and enrolled button, got %q", out)
	}
	if !e.backend.Enrolled("react", annEmail) {
		t.Error("Expected backend enrollment")
	}
	if !strings.HasPrefix(e.backend.LastAuthorization(), "Bearer opaque-token") {
		t.Errorf("Expected bearer token, got %q", e.backend.LastAuthorization())
	}

	code, out, _ = exec(t, "n\n", "unenroll", "react")
	if code != 0 || !strings.Contains(out, "Cancelled.") {
		t.Errorf("Expected declined unenroll, got %d %q", code, out)
	}
	if !e.backend.Enrolled("react", annEmail) {
		t.Error("Expected enrollment kept after decline")
	}
}

func TestEnrollSeatsFull(t *testing.T) {
	e := setup(t)
	e.signIn(t)
	code, _, errOut := exec(t, "", "enroll", "-yes", "python")
	if code != 1 || !strings.Contains(errOut, "no seats left") {
		t.Errorf("Expected seats full failure, got %d %q", code, errOut)
	}
	if e.backend.Calls("POST /enroll") != 0 {
		t.Error("Expected no enroll call when full")
	}
}

func TestAddCourseEmptyTitle(t *testing.T) {
	e := setup(t)
	e.signIn(t)
	code, out, _ := exec(t, "", "add-course", "-description", "Learn Go")
	if code != 2 {
		t.Errorf("Expected exit 2, got %d", code)
	}
	if !strings.Contains(out, authoring.RequiredMessage) || !strings.Contains(out, "title is required") {
		t.Errorf("Expected validation output, got %q", out)
	}
	if e.backend.TotalCalls() != 0 {
		t.Errorf("Expected no network call, got %d", e.backend.TotalCalls())
	}
}

func TestAddAndEditCourse(t *testing.T) {
	e := setup(t)
	e.signIn(t)

	code, out, errOut := exec(t, "", "add-course", "-title", "Mastering Go", "-description", "Concurrency",
		"-seats", "12", "-section", "Basics", "-section", " ", "-section", "Channels")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	id := lines[len(lines)-1]
	c, ok := e.backend.Course(id)
	if !ok {
		t.Fatalf("Expected course %q stored, output %q", id, out)
	}
	if c.CreatedBy == nil || c.CreatedBy.Email != annEmail || len(c.Curriculum) != 2 || c.TotalSeats != 12 {
		t.Errorf("Unexpected stored course %+v", c)
	}

	code, _, errOut = exec(t, "", "edit-course", "-duration", "4 weeks", id)
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	c, _ = e.backend.Course(id)
	if c.Duration != "4 weeks" || c.Title != "Mastering Go" || c.LastUpdated == "" {
		t.Errorf("Expected partial update, got %+v", c)
	}
}

func TestMyCoursesDelete(t *testing.T) {
	e := setup(t)
	e.signIn(t)
	code, out, errOut := exec(t, "", "my-courses", "-yes", "-delete", "react")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Course has been deleted.") || !strings.Contains(out, "You haven't created any courses yet") {
		t.Errorf("Unexpected output %q", out)
	}
	if _, ok := e.backend.Course("react"); ok {
		t.Error("Expected course deleted")
	}
}

func TestReviewGate(t *testing.T) {
	e := setup(t)
	e.signIn(t)
	code, _, errOut := exec(t, "", "review", "-rating", "5", "-comment", "Great", "react")
	if code != 1 || !strings.Contains(errOut, "You must enroll in the course to leave a review.") {
		t.Errorf("Expected gate failure, got %d %q", code, errOut)
	}
	if e.backend.Calls("POST /courses/{id}/reviews") != 0 {
		t.Error("Expected no review POST")
	}
}

func TestLoginWithPassword(t *testing.T) {
	e := setup(t)
	toolkit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		if in["password"] != "Secret#123" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"INVALID_PASSWORD"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"localId":"u1","email":"ann@example.com","idToken":"tok","refreshToken":"r","expiresIn":"3600"}`))
	}))
	t.Cleanup(toolkit.Close)
	t.Setenv("FIREBASE_AUTH_URL", toolkit.URL)
	t.Setenv("FIREBASE_API_KEY", "k")

	code, _, errOut := exec(t, "wrong\n", "login", "-email", annEmail)
	if code != 1 || !strings.Contains(errOut, "Incorrect password") {
		t.Errorf("Expected incorrect password, got %d %q", code, errOut)
	}

	code, out, errOut := exec(t, "", "login", "-email", annEmail, "-password", "Secret#123")
	if code != 0 || !strings.Contains(out, "Signed in as ann@example.com") {
		t.Fatalf("Expected sign in, got %d %q %q", code, out, errOut)
	}
	id, err := (session.FilePersister{Path: e.sessionFile}).Load()
	if err != nil || id == nil || id.AccessToken != "tok" {
		t.Errorf("Expected persisted session, got %+v %v", id, err)
	}

	code, out, _ = exec(t, "", "whoami")
	if code != 0 || !strings.Contains(out, annEmail) {
		t.Errorf("Expected whoami output, got %d %q", code, out)
	}
	if code, _, _ = exec(t, "", "logout"); code != 0 {
		t.Errorf("Expected logout, got %d", code)
	}
	if code, _, _ = exec(t, "", "whoami"); code != 1 {
		t.Errorf("Expected no session after logout, got %d", code)
	}
}

func TestLoginProviderCancelled(t *testing.T) {
	setup(t)
	code, out, errOut := exec(t, "\n", "login", "-provider", "google")
	if code != 1 || !strings.Contains(errOut, "Google sign-in was canceled") {
		t.Errorf("Expected cancelled provider flow, got %d %q", code, errOut)
	}
	if !strings.Contains(out, "Paste the google id token") {
		t.Errorf("Expected token prompt, got %q", out)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	setup(t)
	code, out, _ := exec(t, "", "register", "-email", annEmail, "-password", "short", "-confirm", "short")
	if code != 2 {
		t.Errorf("Expected exit 2, got %d", code)
	}
	if !strings.Contains(out, "at least 8 characters") {
		t.Errorf("Expected password rules listed, got %q", out)
	}
}
