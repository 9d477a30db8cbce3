package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"coursion/internal/concurrency"
	"coursion/internal/domain"
	"coursion/internal/httpx"
)

type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "loading"
}

const LoadFailedMessage = "Failed to load courses"

type Loader interface {
	ListCourses(ctx context.Context) ([]domain.Course, error)
}

// Row is one rendered card.
type Row struct {
	Course domain.Course
	Rank   string
}

type View struct {
	State   State
	Rows    []Row
	Stats   Stats
	Banner  string
	Message string
	Err     error
}

// List owns the full course set for one mounted list view. Each load runs
// under a context that OnUnmount (or a newer load) cancels; a cancelled
// load changes nothing.
type List struct {
	loader Loader
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	all    []domain.Course
	err    error
	query  Query
	cancel context.CancelFunc
	gen    int
	owner  int // gen of the load that last set Loading
}

func NewList(loader Loader, logger zerolog.Logger) *List {
	return &List{loader: loader, logger: logger, state: Loading, query: DefaultQuery()}
}

func (l *List) OnMount(ctx context.Context) error { return l.load(ctx) }

// Reload is the user-initiated retry.
func (l *List) Reload(ctx context.Context) error { return l.load(ctx) }

func (l *List) OnUnmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

func (l *List) load(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	prev := l.state
	l.owner = gen
	l.cancel = cancel
	l.state = Loading
	l.mu.Unlock()

	courses, err := l.loader.ListCourses(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// unmounted while in flight: nothing newer owns the state
		if l.owner == gen {
			l.state = prev
		}
		l.logger.Debug().Msg("stale course list load discarded")
		return nil
	}
	if httpx.IsCancelled(err) || ctx.Err() != nil {
		l.logger.Debug().Msg("course list load cancelled")
		l.state = prev
		l.cancel = nil
		return nil
	}
	l.cancel = nil
	if err != nil {
		l.logger.Error().Err(err).Msg("course list load failed")
		l.state = Failed
		l.err = err
		return err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	l.all = courses
	l.err = nil
	l.state = Ready
	return nil
}

func (l *List) SetQuery(q Query) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q.Difficulty == "" {
		q.Difficulty = DifficultyAll
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	l.query = q
}

func (l *List) Query() Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// View recomputes the derived rows. Stats cover the unfiltered set.
func (l *List) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := View{State: l.state, Banner: BannerLabel(l.query.Sort), Err: l.err}
	if l.state == Failed {
		v.Message = LoadFailedMessage
		return v
	}
	v.Stats = ComputeStats(l.all)
	for i, c := range Apply(l.all, l.query) {
		v.Rows = append(v.Rows, Row{Course: c, Rank: RankLabel(i, l.query.Sort)})
	}
	return v
}

// Courses is a copy of the unfiltered set.
func (l *List) Courses() []domain.Course {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Course(nil), l.all...)
}

type HomeLoader interface {
	LatestCourses(ctx context.Context) ([]domain.Course, error)
	PopularCourses(ctx context.Context) ([]domain.Course, error)
}

// Home holds the two curated collections; each fails on its own.
type Home struct {
	Latest     []domain.Course
	Popular    []domain.Course
	LatestErr  error
	PopularErr error
}

// LoadHome fetches latest and popular concurrently. Cancelled sections come
// back empty with a nil error.
func LoadHome(ctx context.Context, l HomeLoader) Home {
	fetchers := []func(context.Context) ([]domain.Course, error){l.LatestCourses, l.PopularCourses}
	res := concurrency.ProcessParallel(ctx, fetchers, concurrency.ParallelOptions{MaxWorkers: len(fetchers)},
		func(ctx context.Context, _ int, fetch func(context.Context) ([]domain.Course, error)) ([]domain.Course, error) {
			return fetch(ctx)
		})

	for i := range res {
		if httpx.IsCancelled(res[i].Err) || ctx.Err() != nil {
			res[i] = concurrency.Result[[]domain.Course]{}
		}
	}
	return Home{
		Latest:     res[0].Value,
		LatestErr:  res[0].Err,
		Popular:    res[1].Value,
		PopularErr: res[1].Err,
	}
}
