// Package fakeapi is an in-memory marketplace backend for tests. It speaks the
// same REST surface as the real one, including {"message": ...} error bodies.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"coursion/internal/domain"
)

type failure struct {
	status  int
	message string
}

type Backend struct {
	mu          sync.Mutex
	courses     map[string]*domain.Course
	order       []string
	enrollments []domain.Enrollment
	failures    map[string]failure
	calls       map[string]int
	lastAuth    string

	// RequireAuth rejects mutating calls without a bearer token.
	RequireAuth bool
	// Delay holds every response, for timeout and cancellation tests.
	Delay time.Duration
}

func New(courses ...domain.Course) *Backend {
	b := &Backend{
		courses:  map[string]*domain.Course{},
		failures: map[string]failure{},
		calls:    map[string]int{},
	}
	for _, c := range courses {
		b.Put(c)
	}
	return b
}

// Put stores or replaces a course. A missing id is generated.
func (b *Backend) Put(c domain.Course) domain.Course {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(c)
}

func (b *Backend) put(c domain.Course) domain.Course {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := b.courses[c.ID]; !ok {
		b.order = append(b.order, c.ID)
	}
	cp := c
	b.courses[c.ID] = &cp
	return cp
}

func (b *Backend) Course(id string) (domain.Course, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[id]
	if !ok {
		return domain.Course{}, false
	}
	return *c, true
}

// SetStudents changes the seat usage behind the client's back.
func (b *Backend) SetStudents(id string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.courses[id]; ok {
		c.Students = n
	}
}

func (b *Backend) Enrolled(courseID, email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findEnrollment(courseID, email) >= 0
}

// Fail makes the next call to route ("POST /enroll") answer status with message.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Calls counts requests per route pattern, e.g. "GET /courses/{id}".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.calls {
		n += v
	}
	return n
}

func (b *Backend) LastAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.track)

	r.Get("/courses", b.listCourses)
	r.Get("/latest-courses", b.latestCourses)
	r.Get("/popular-courses", b.popularCourses)
	r.Get("/courses/{id}", b.getCourse)
	r.Group(func(r chi.Router) {
		r.Use(b.auth)
		r.Post("/courses/{id}/reviews", b.addReview)
		r.Post("/add-course", b.addCourse)
		r.Put("/courses/{id}", b.updateCourse)
		r.Delete("/course/{id}", b.deleteCourse)
		r.Get("/enroll", b.enrollStatus)
		r.Post("/enroll", b.enroll)
		r.Delete("/enroll", b.unenroll)
		r.Delete("/enroll/{id}", b.removeEnrollment)
		r.Get("/my-courses", b.myCourses)
		r.Get("/my-enrollments", b.myEnrollments)
	})
	return r
}

// track counts calls per route pattern and applies Delay and queued failures.
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastAuth = r.Header.Get("Authorization")
		delay := b.Delay
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.Routes != nil {
			tctx := chi.NewRouteContext()
			if rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
				pattern = tctx.RoutePattern()
			}
		}
		route := r.Method + " " + pattern

		b.mu.Lock()
		b.calls[route]++
		f, failed := b.failures[route]
		if failed {
			delete(b.failures, route)
		}
		b.mu.Unlock()

		if failed {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.RequireAuth && !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized access")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (b *Backend) snapshot() []domain.Course {
	out := make([]domain.Course, 0, len(b.order))
	for _, id := range b.order {
		if c, ok := b.courses[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

func (b *Backend) listCourses(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.snapshot())
}

func (b *Backend) latestCourses(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	all := b.snapshot()
	b.mu.Unlock()
	// newest last in insertion order
	out := make([]domain.Course, 0, 6)
	for i := len(all) - 1; i >= 0 && len(out) < 6; i-- {
		out = append(out, all[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) popularCourses(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	all := b.snapshot()
	b.mu.Unlock()
	out := make([]domain.Course, 0, 6)
	for _, c := range all {
		if c.Students > 0 && len(out) < 6 {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getCourse(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) addReview(w http.ResponseWriter, r *http.Request) {
	var rev domain.Review
	if err := json.NewDecoder(r.Body).Decode(&rev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	rev.ID = uuid.NewString()
	rev.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	c.Reviews = append(c.Reviews, rev)
	writeJSON(w, http.StatusCreated, map[string]any{"review": rev})
}

func (b *Backend) addCourse(w http.ResponseWriter, r *http.Request) {
	var c domain.Course
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid course")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = ""
	stored := b.put(c)
	writeJSON(w, http.StatusCreated, map[string]string{"insertedId": stored.ID})
}

func (b *Backend) updateCourse(w http.ResponseWriter, r *http.Request) {
	var c domain.Course
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid course")
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.courses[id]; !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	c.ID = id
	b.put(c)
	writeJSON(w, http.StatusOK, map[string]int{"modifiedCount": 1})
}

func (b *Backend) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.courses[id]; !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	delete(b.courses, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": 1})
}

func (b *Backend) findEnrollment(courseID, email string) int {
	for i, e := range b.enrollments {
		if e.CourseID == courseID && e.UserEmail == email {
			return i
		}
	}
	return -1
}

func (b *Backend) enrollStatus(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	email := r.URL.Query().Get("userEmail")
	b.mu.Lock()
	defer b.mu.Unlock()
	resp := map[string]any{"enrolled": b.findEnrollment(courseID, email) >= 0}
	if c, ok := b.courses[courseID]; ok {
		resp["students"] = c.Students
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) enroll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CourseID  string `json:"courseId"`
		UserEmail string `json:"userEmail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.CourseID == "" || in.UserEmail == "" {
		writeError(w, http.StatusBadRequest, "courseId and userEmail are required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[in.CourseID]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	if b.findEnrollment(in.CourseID, in.UserEmail) >= 0 {
		writeError(w, http.StatusConflict, "Already enrolled")
		return
	}
	if c.SeatsFull() {
		writeError(w, http.StatusConflict, "No seats left")
		return
	}
	e := domain.Enrollment{
		ID:         uuid.NewString(),
		CourseID:   in.CourseID,
		UserEmail:  in.UserEmail,
		EnrolledAt: time.Now().UTC().Format(time.RFC3339),
	}
	b.enrollments = append(b.enrollments, e)
	c.Students++
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "enrollmentId": e.ID})
}

func (b *Backend) unenroll(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	email := r.URL.Query().Get("userEmail")
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.findEnrollment(courseID, email)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Enrollment not found")
		return
	}
	b.dropEnrollment(i)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (b *Backend) removeEnrollment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.enrollments {
		if e.ID == id {
			b.dropEnrollment(i)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Enrollment not found")
}

func (b *Backend) dropEnrollment(i int) {
	e := b.enrollments[i]
	b.enrollments = append(b.enrollments[:i], b.enrollments[i+1:]...)
	if c, ok := b.courses[e.CourseID]; ok && c.Students > 0 {
		c.Students--
	}
}

func (b *Backend) myCourses(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Course{}
	for _, c := range b.snapshot() {
		if c.CreatedBy != nil && strings.EqualFold(c.CreatedBy.Email, email) {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) myEnrollments(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Enrollment{}
	for _, e := range b.enrollments {
		if e.UserEmail != email {
			continue
		}
		if c, ok := b.courses[e.CourseID]; ok {
			cp := *c
			e.Course = &cp
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}
