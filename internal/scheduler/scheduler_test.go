package scheduler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"github.com/santhoshkumr96/orchestapi/internal/connector"
	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/logging"
	"github.com/santhoshkumr96/orchestapi/internal/runregistry"
	"github.com/santhoshkumr96/orchestapi/internal/suiteexec"
	"github.com/santhoshkumr96/orchestapi/internal/verify"
)

type stubSource struct {
	suite *suite.TestSuite
	env   *suite.Environment
}

func (s stubSource) Suite(string) (*suite.TestSuite, error) { return s.suite, nil }
func (s stubSource) Environment(string) (*suite.Environment, error) { return s.env, nil }

type memStore struct {
	mu    sync.Mutex
	saved []runrec.RunSchedule
}

func (m *memStore) Save(sched runrec.RunSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, sched)
	return nil
}

func (m *memStore) last() (runrec.RunSchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return runrec.RunSchedule{}, false
	}
	return m.saved[len(m.saved)-1], true
}

func newTestScheduler(source SuiteSource, store Store) *Scheduler {
	eng := suiteexec.New(resty.New(), verify.NewCoordinator(connector.NewGateway()), runregistry.New())
	log, _ := logging.New(logging.Options{Writer: io.Discard})
	return New(eng, source, store, log)
}

func TestNormalizeExprPrependsSecondsToFiveFieldExpression(t *testing.T) {
	t.Parallel()

	got, err := normalizeExpr("*/5 * * * *")
	require.NoError(t, err)
	require.Equal(t, "0 */5 * * * *", got)
}

func TestNormalizeExprPassesSixFieldExpressionThrough(t *testing.T) {
	t.Parallel()

	got, err := normalizeExpr("30 */5 * * * *")
	require.NoError(t, err)
	require.Equal(t, "30 */5 * * * *", got)
}

func TestNormalizeExprRejectsOtherFieldCounts(t *testing.T) {
	t.Parallel()

	_, err := normalizeExpr("* * * *")
	require.Error(t, err)
}

func TestPreviewNextReturnsRequestedFireTimes(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 10, 0, 30, 0, time.UTC)
	times, err := PreviewNext("*/15 * * * *", 5, from)
	require.NoError(t, err)
	require.Len(t, times, 5)
	require.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC), times[0])
	for i := 1; i < len(times); i++ {
		require.Equal(t, 15*time.Minute, times[i].Sub(times[i-1]))
	}
}

func TestPreviewNextRejectsMalformedExpression(t *testing.T) {
	t.Parallel()

	_, err := PreviewNext("not a cron", 5, time.Now())
	require.Error(t, err)
}

func TestRegisterRejectsMalformedExpression(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(stubSource{}, nil)
	err := s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "bogus", Active: true})
	require.Error(t, err)
}

func TestRegisterReplacesExistingEntryForSameID(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(stubSource{}, nil)
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "* * * * *", Active: true}))
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "*/2 * * * *", Active: true}))
	require.Len(t, s.cron.Entries(), 1, "re-registering the same schedule id must cancel the old trigger")
}

func TestRegisterInactiveScheduleCancelsWithoutAdding(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(stubSource{}, nil)
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "* * * * *", Active: true}))
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "* * * * *", Active: false}))
	require.Empty(t, s.cron.Entries())
}

func TestUnregisterRemovesEntry(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(stubSource{}, nil)
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "* * * * *", Active: true}))
	s.Unregister("sch-1")
	require.Empty(t, s.cron.Entries())
}

func TestLoadAllSkipsInactiveSchedulesAndCollectsErrors(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(stubSource{}, nil)
	errs := s.LoadAll([]runrec.RunSchedule{
		{ID: "active", CronExpr: "* * * * *", Active: true},
		{ID: "inactive", CronExpr: "* * * * *", Active: false},
		{ID: "broken", CronExpr: "bogus", Active: true},
	})
	require.Len(t, errs, 1)
	require.Len(t, s.cron.Entries(), 1)
}

// A firing replays the suite non-interactively and persists lastRunAt/
// nextRunAt bookkeeping through the store.
func TestFireRunsSuiteAndPersistsBookkeeping(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "suite-1",
		Name: "scheduled",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL},
		},
	}
	store := &memStore{}
	s := newTestScheduler(stubSource{suite: def, env: &suite.Environment{ID: "env-1"}}, store)

	sched := runrec.RunSchedule{ID: "sch-1", SuiteID: "suite-1", EnvironmentID: "env-1", CronExpr: "* * * * *", Active: true}
	require.NoError(t, s.Register(sched))

	s.fire("sch-1")()

	mu.Lock()
	require.Equal(t, 1, calls)
	mu.Unlock()

	saved, ok := store.last()
	require.True(t, ok)
	require.False(t, saved.LastRunAt.IsZero())
}

// A firing whose schedule was unregistered in the meantime cancels its
// own trigger instead of running.
func TestFireAfterUnregisterCancelsItself(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := newTestScheduler(stubSource{}, store)
	require.NoError(t, s.Register(runrec.RunSchedule{ID: "sch-1", CronExpr: "* * * * *", Active: true}))

	job := s.fire("sch-1")
	s.Unregister("sch-1")
	job()

	require.Empty(t, s.cron.Entries())
	_, ok := store.last()
	require.False(t, ok, "a cancelled firing must not persist bookkeeping")
}
