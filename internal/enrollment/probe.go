package enrollment

import (
	"context"

	"coursion/internal/api"
	"coursion/internal/concurrency"
)

// Probe is one course's status snapshot.
type Probe struct {
	CourseID string
	Status   api.EnrollmentStatus
	Err      error
}

// ProbeAll probes many courses for one user with bounded parallelism, the
// way a list of cards each probes on mount. Results follow courseIDs.
// Nothing is deduplicated or cached.
func ProbeAll(ctx context.Context, b Backend, email string, courseIDs []string, workers int) []Probe {
	out := make([]Probe, len(courseIDs))
	for i, id := range courseIDs {
		out[i].CourseID = id
	}
	if email == "" {
		return out
	}

	res := concurrency.ProcessParallel(ctx, courseIDs, concurrency.ParallelOptions{MaxWorkers: workers},
		func(ctx context.Context, _ int, id string) (api.EnrollmentStatus, error) {
			return b.EnrollmentStatus(ctx, id, email)
		})
	for i, r := range res {
		out[i].Status, out[i].Err = r.Value, r.Err
	}
	return out
}
