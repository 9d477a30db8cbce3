package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"coursion/internal/domain"
	"coursion/internal/httpx"
)

// Client is the typed surface of the marketplace backend.
type Client struct {
	HTTP *httpx.Client
}

func New(h *httpx.Client) *Client {
	return &Client{HTTP: h}
}

// EnrollmentStatus is the probe result. Students is nil when the backend
// does not report a seat snapshot.
type EnrollmentStatus struct {
	Enrolled bool `json:"enrolled"`
	Students *int `json:"students,omitempty"`
}

type enrollRequest struct {
	CourseID  string `json:"courseId"`
	UserEmail string `json:"userEmail"`
}

var errMissingID = errors.New("api: missing course id")

func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return c.courses(ctx, "/courses", "list courses")
}

func (c *Client) LatestCourses(ctx context.Context) ([]domain.Course, error) {
	return c.courses(ctx, "/latest-courses", "latest courses")
}

func (c *Client) PopularCourses(ctx context.Context) ([]domain.Course, error) {
	return c.courses(ctx, "/popular-courses", "popular courses")
}

func (c *Client) MyCourses(ctx context.Context, email string) ([]domain.Course, error) {
	return c.courses(ctx, "/my-courses?"+url.Values{"email": {email}}.Encode(), "my courses")
}

func (c *Client) courses(ctx context.Context, path, op string) ([]domain.Course, error) {
	var out []domain.Course
	if err := c.HTTP.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("api: %s: %w", op, err)
	}
	if out == nil {
		out = []domain.Course{}
	}
	return out, nil
}

func (c *Client) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Course{}, errMissingID
	}
	var out domain.Course
	if err := c.HTTP.Do(ctx, http.MethodGet, "/courses/"+url.PathEscape(id), nil, &out); err != nil {
		return domain.Course{}, fmt.Errorf("api: get course %s: %w", id, err)
	}
	return out, nil
}

func (c *Client) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	_, raw, err := c.HTTP.DoRaw(ctx, http.MethodPost, "/add-course", course)
	if err != nil {
		return domain.Course{}, fmt.Errorf("api: create course: %w", err)
	}
	// the backend answers with either the stored course or an insert ack
	var created domain.Course
	if json.Unmarshal(raw, &created) == nil && created.ID != "" {
		return created, nil
	}
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	if json.Unmarshal(raw, &ack) == nil && ack.InsertedID != "" {
		course.ID = ack.InsertedID
	}
	return course, nil
}

func (c *Client) UpdateCourse(ctx context.Context, id string, course domain.Course) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	course.ID = ""
	if err := c.HTTP.Do(ctx, http.MethodPut, "/courses/"+url.PathEscape(id), course, nil); err != nil {
		return fmt.Errorf("api: update course %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := c.HTTP.Do(ctx, http.MethodDelete, "/course/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("api: delete course %s: %w", id, err)
	}
	return nil
}

// AddReview posts a review and returns the stored one. The backend may wrap it
// as {"review": {...}}.
func (c *Client) AddReview(ctx context.Context, courseID string, r domain.Review) (domain.Review, error) {
	if strings.TrimSpace(courseID) == "" {
		return domain.Review{}, errMissingID
	}
	_, raw, err := c.HTTP.DoRaw(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/reviews", r)
	if err != nil {
		return domain.Review{}, fmt.Errorf("api: add review %s: %w", courseID, err)
	}
	return decodeReview(raw, r), nil
}

func decodeReview(raw []byte, sent domain.Review) domain.Review {
	var wrapped struct {
		Review *domain.Review `json:"review"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Review != nil {
		return *wrapped.Review
	}
	var plain domain.Review
	if json.Unmarshal(raw, &plain) == nil && (plain.Comment != "" || plain.Rating != 0) {
		return plain
	}
	return sent
}

func enrollQuery(courseID, email string) string {
	return url.Values{"courseId": {courseID}, "userEmail": {email}}.Encode()
}

func (c *Client) EnrollmentStatus(ctx context.Context, courseID, email string) (EnrollmentStatus, error) {
	var out EnrollmentStatus
	if err := c.HTTP.Do(ctx, http.MethodGet, "/enroll?"+enrollQuery(courseID, email), nil, &out); err != nil {
		return EnrollmentStatus{}, fmt.Errorf("api: enrollment status %s: %w", courseID, err)
	}
	return out, nil
}

func (c *Client) Enroll(ctx context.Context, courseID, email string) error {
	if err := c.HTTP.Do(ctx, http.MethodPost, "/enroll", enrollRequest{CourseID: courseID, UserEmail: email}, nil); err != nil {
		return fmt.Errorf("api: enroll %s: %w", courseID, err)
	}
	return nil
}

func (c *Client) Unenroll(ctx context.Context, courseID, email string) error {
	if err := c.HTTP.Do(ctx, http.MethodDelete, "/enroll?"+enrollQuery(courseID, email), nil, nil); err != nil {
		return fmt.Errorf("api: unenroll %s: %w", courseID, err)
	}
	return nil
}

// RemoveEnrollment deletes an enrollment by its own id (my-enrollments view).
func (c *Client) RemoveEnrollment(ctx context.Context, enrollmentID string) error {
	if err := c.HTTP.Do(ctx, http.MethodDelete, "/enroll/"+url.PathEscape(enrollmentID), nil, nil); err != nil {
		return fmt.Errorf("api: remove enrollment %s: %w", enrollmentID, err)
	}
	return nil
}

func (c *Client) MyEnrollments(ctx context.Context, email string) ([]domain.Enrollment, error) {
	var out []domain.Enrollment
	if err := c.HTTP.Do(ctx, http.MethodGet, "/my-enrollments?"+url.Values{"email": {email}}.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("api: my enrollments: %w", err)
	}
	if out == nil {
		out = []domain.Enrollment{}
	}
	return out, nil
}
