package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Runtime
// =============================================================================

type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) CreateContainer(ctx context.Context, def domain.ContainerDefinition, basePath, configFile string) error {
	return m.Called(ctx, def, basePath, configFile).Error(0)
}

func (m *MockRuntime) StartContainer(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockRuntime) StopContainer(ctx context.Context, name string, grace time.Duration) error {
	return m.Called(ctx, name, grace).Error(0)
}

func (m *MockRuntime) RemoveContainer(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockRuntime) PullImage(ctx context.Context, image string) error {
	return m.Called(ctx, image).Error(0)
}

func (m *MockRuntime) ExistingContainers(ctx context.Context, names []string) (map[string]bool, error) {
	args := m.Called(ctx, names)
	existing, _ := args.Get(0).(map[string]bool)
	return existing, args.Error(1)
}

func (m *MockRuntime) ReadStatus(ctx context.Context, names []string) (domain.StateMap, error) {
	args := m.Called(ctx, names)
	state, _ := args.Get(0).(domain.StateMap)
	return state, args.Error(1)
}

func (m *MockRuntime) ManagedContainers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// =============================================================================
// Test Helpers
// =============================================================================

var ctx = context.Background()

const grace = 10 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// webStack is db <- api <- web, defined out of dependency order.
func webStack() *domain.Project {
	return domain.NewProject("/srv/app/dockwrkr.yml", []domain.ContainerDefinition{
		{Name: "web", Image: "nginx", Links: []domain.Link{domain.ParseLink("api")}},
		{Name: "api", Image: "app:1", Links: []domain.Link{domain.ParseLink("db")}},
		{Name: "db", Image: "postgres:16"},
	})
}

func newTestOrchestrator(project *domain.Project, rt *MockRuntime, opts Options) *Orchestrator {
	return New(project, rt, quietLogger(), opts)
}

// withLiveState stubs both state reads from a single StateMap.
func withLiveState(rt *MockRuntime, names []string, state domain.StateMap) {
	existing := map[string]bool{}
	var present []string
	for _, n := range names {
		if state.Has(n) {
			existing[n] = true
			present = append(present, n)
		}
	}
	rt.On("ExistingContainers", ctx, names).Return(existing, nil)
	if len(present) > 0 {
		rt.On("ReadStatus", ctx, present).Return(state, nil)
	}
}

func running(name string) domain.ContainerStatus {
	started := time.Now().Add(-time.Hour)
	return domain.ContainerStatus{Name: name, ID: name + "-id", Running: true, PID: 100, StartedAt: &started}
}

func stopped(name string) domain.ContainerStatus {
	code := 0
	return domain.ContainerStatus{Name: name, ID: name + "-id", ExitCode: &code}
}

func mutations(rt *MockRuntime) []string {
	var calls []string
	for _, c := range rt.Calls {
		switch c.Method {
		case "CreateContainer", "StartContainer", "StopContainer", "RemoveContainer", "PullImage":
			calls = append(calls, c.Method)
		}
	}
	return calls
}

// =============================================================================
// Start Tests
// =============================================================================

func TestStart_CreatesInDependencyOrder(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{})

	var order []string
	rt.On("CreateContainer", ctx, mock.Anything, "/srv/app", "/srv/app/dockwrkr.yml").
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(1).(domain.ContainerDefinition).Name)
		}).Return(nil)
	rt.On("StartContainer", ctx, mock.Anything).Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{All: true})

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"db", "api", "web"}, order)
	require.Len(t, res.Value(), 3)
	assert.Equal(t, "create+start", res.Value()[0].Action)
	assert.Equal(t, "'db' has been created and started", res.Value()[0].Description)
	rt.AssertNumberOfCalls(t, "StartContainer", 3)
}

func TestStart_AlreadyRunningIsNoop(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{"db": running("db")})

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db"}})

	require.NoError(t, res.Err())
	assert.Empty(t, res.Value())
	assert.Empty(t, mutations(rt))
}

func TestStart_StoppedContainerIsStartedNotCreated(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{"db": stopped("db")})
	rt.On("StartContainer", ctx, "db").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db"}})

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"StartContainer"}, mutations(rt))
}

func TestStart_UndefinedNameMakesNoCalls(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db", "ghost", "web"}})

	require.Error(t, res.Err())
	assert.ErrorIs(t, res.Err(), domain.ErrInvalidContainer)
	var invalid *domain.InvalidContainerError
	require.True(t, errors.As(res.Err(), &invalid))
	assert.Equal(t, []string{"ghost"}, invalid.Names)
	assert.Empty(t, rt.Calls)
}

func TestStart_CycleMakesNoCalls(t *testing.T) {
	rt := &MockRuntime{}
	project := domain.NewProject("", []domain.ContainerDefinition{
		{Name: "a", Image: "x", Links: []domain.Link{domain.ParseLink("b")}},
		{Name: "b", Image: "x", Links: []domain.Link{domain.ParseLink("a")}},
	})

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{All: true})

	assert.ErrorIs(t, res.Err(), domain.ErrDependencyCycle)
	assert.Empty(t, rt.Calls)
}

func TestStart_StateReadFailureMakesNoMutations(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	rt.On("ExistingContainers", ctx, []string{"db"}).Return(nil, errors.New("daemon unreachable"))

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db"}})

	assert.ErrorIs(t, res.Err(), domain.ErrRuntime)
	assert.Empty(t, mutations(rt))
}

func TestStart_ContinuesAfterFailureByDefault(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{
		"db": stopped("db"), "api": stopped("api"), "web": stopped("web"),
	})
	rt.On("StartContainer", ctx, "db").Return(errors.New("port in use"))
	rt.On("StartContainer", ctx, "api").Return(nil)
	rt.On("StartContainer", ctx, "web").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{All: true})

	require.Error(t, res.Err())
	var rtErr *domain.RuntimeError
	require.True(t, errors.As(res.Err(), &rtErr))
	assert.Equal(t, "db", rtErr.Container)
	assert.Equal(t, "start", rtErr.Op)
	rt.AssertNumberOfCalls(t, "StartContainer", 3)
}

func TestStart_FailFastStopsAtFirstFailure(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{
		"db": stopped("db"), "api": stopped("api"), "web": stopped("web"),
	})
	rt.On("StartContainer", ctx, "db").Return(errors.New("port in use"))

	res := newTestOrchestrator(project, rt, Options{FailFast: true}).Start(ctx, Selection{All: true})

	require.Error(t, res.Err())
	rt.AssertNumberOfCalls(t, "StartContainer", 1)
}

func TestStart_CreateFailureSkipsStart(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{})
	rt.On("CreateContainer", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no such image"))

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db"}})

	require.Error(t, res.Err())
	rt.AssertNotCalled(t, "StartContainer", mock.Anything, mock.Anything)
}

func TestStart_WritesPidFile(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	project.PidsDir = t.TempDir()
	rt.On("ExistingContainers", ctx, []string{"db"}).Return(map[string]bool{"db": true}, nil)
	rt.On("ReadStatus", ctx, []string{"db"}).Return(domain.StateMap{"db": stopped("db")}, nil).Once()
	rt.On("StartContainer", ctx, "db").Return(nil)
	rt.On("ReadStatus", ctx, []string{"db"}).Return(domain.StateMap{"db": running("db")}, nil).Once()

	res := newTestOrchestrator(project, rt, Options{}).Start(ctx, Selection{Names: []string{"db"}})

	require.NoError(t, res.Err())
	content, err := os.ReadFile(filepath.Join(project.PidsDir, "db.pid"))
	require.NoError(t, err)
	assert.Equal(t, "100\n", string(content))
}

// =============================================================================
// Stop Tests
// =============================================================================

func TestStop_ReverseOrderWithGrace(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{
		"db": running("db"), "api": running("api"), "web": running("web"),
	})

	var order []string
	rt.On("StopContainer", ctx, mock.Anything, 3*time.Second).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Stop(ctx, Selection{All: true}, 3*time.Second)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"web", "api", "db"}, order)
}

func TestStop_AbsentAndStoppedAreNoops(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api"}, domain.StateMap{"db": stopped("db")})

	res := newTestOrchestrator(project, rt, Options{}).Stop(ctx, Selection{Names: []string{"api", "db"}}, grace)

	require.NoError(t, res.Err())
	assert.Empty(t, mutations(rt))
}

func TestStop_RemovesPidFile(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	project.PidsDir = t.TempDir()
	pidPath := filepath.Join(project.PidsDir, "db.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("100\n"), 0o644))
	withLiveState(rt, []string{"db"}, domain.StateMap{"db": running("db")})
	rt.On("StopContainer", ctx, "db", grace).Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Stop(ctx, Selection{Names: []string{"db"}}, grace)

	require.NoError(t, res.Err())
	_, err := os.Stat(pidPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// =============================================================================
// Remove Tests
// =============================================================================

func TestRemove_RunningWithoutForceIsRefused(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{
		"db": running("db"), "api": stopped("api"), "web": running("web"),
	})

	res := newTestOrchestrator(project, rt, Options{}).Remove(ctx, Selection{All: true}, grace, false)

	assert.ErrorIs(t, res.Err(), domain.ErrInvalidState)
	var stateErr *domain.StateError
	require.True(t, errors.As(res.Err(), &stateErr))
	assert.Equal(t, []string{"web", "db"}, stateErr.Containers)
	assert.Empty(t, mutations(rt))
}

func TestRemove_ForceStopsThenRemoves(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{"db": running("db")})
	rt.On("StopContainer", ctx, "db", grace).Return(nil)
	rt.On("RemoveContainer", ctx, "db").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Remove(ctx, Selection{Names: []string{"db"}}, grace, true)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"StopContainer", "RemoveContainer"}, mutations(rt))
	assert.Equal(t, "'db' has been stopped and removed", res.Value()[0].Description)
}

func TestRemove_AbsentMakesNoCalls(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{})

	res := newTestOrchestrator(project, rt, Options{}).Remove(ctx, Selection{Names: []string{"db"}}, grace, false)

	require.NoError(t, res.Err())
	assert.Empty(t, res.Value())
	assert.Empty(t, mutations(rt))
}

// =============================================================================
// Restart Tests
// =============================================================================

func TestRestart_AbsentIsRefused(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api"}, domain.StateMap{"db": running("db")})

	res := newTestOrchestrator(project, rt, Options{}).Restart(ctx, Selection{Names: []string{"db", "api"}}, grace)

	assert.ErrorIs(t, res.Err(), domain.ErrInvalidState)
	assert.Empty(t, mutations(rt))
}

func TestRestart_RunningAndStopped(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api"}, domain.StateMap{"db": running("db"), "api": stopped("api")})
	rt.On("StopContainer", ctx, "db", grace).Return(nil)
	rt.On("StartContainer", ctx, "db").Return(nil)
	rt.On("StartContainer", ctx, "api").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Restart(ctx, Selection{Names: []string{"api", "db"}}, grace)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"StopContainer", "StartContainer", "StartContainer"}, mutations(rt))
	rt.AssertNotCalled(t, "StopContainer", ctx, "api", grace)
}

// =============================================================================
// Recreate Tests
// =============================================================================

func TestRecreate_StoppedContainer(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	names := []string{"db"}
	rt.On("ExistingContainers", ctx, names).Return(map[string]bool{"db": true}, nil).Once()
	rt.On("ReadStatus", ctx, names).Return(domain.StateMap{"db": stopped("db")}, nil).Once()
	rt.On("RemoveContainer", ctx, "db").Return(nil)
	rt.On("ExistingContainers", ctx, names).Return(map[string]bool{}, nil).Once()
	rt.On("CreateContainer", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	rt.On("StartContainer", ctx, "db").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Recreate(ctx, Selection{Names: names}, grace)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"RemoveContainer", "CreateContainer", "StartContainer"}, mutations(rt))
	require.Len(t, res.Value(), 2)
	assert.Equal(t, "remove", res.Value()[0].Action)
	assert.Equal(t, "create+start", res.Value()[1].Action)
}

func TestRecreate_RunningContainerIsStoppedFirst(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	names := []string{"db"}
	rt.On("ExistingContainers", ctx, names).Return(map[string]bool{"db": true}, nil).Once()
	rt.On("ReadStatus", ctx, names).Return(domain.StateMap{"db": running("db")}, nil).Once()
	rt.On("StopContainer", ctx, "db", grace).Return(nil)
	rt.On("RemoveContainer", ctx, "db").Return(nil)
	rt.On("ExistingContainers", ctx, names).Return(map[string]bool{}, nil).Once()
	rt.On("CreateContainer", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	rt.On("StartContainer", ctx, "db").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Recreate(ctx, Selection{Names: names}, grace)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"StopContainer", "RemoveContainer", "CreateContainer", "StartContainer"}, mutations(rt))
	assert.Equal(t, "stop+remove", res.Value()[0].Action)
}

func TestRecreate_RemoveFailureSkipsStart(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db"}, domain.StateMap{"db": stopped("db")})
	rt.On("RemoveContainer", ctx, "db").Return(errors.New("device busy"))

	res := newTestOrchestrator(project, rt, Options{}).Recreate(ctx, Selection{Names: []string{"db"}}, grace)

	require.Error(t, res.Err())
	assert.Equal(t, []string{"RemoveContainer"}, mutations(rt))
}

// =============================================================================
// Pull Tests
// =============================================================================

func TestPull_IgnoresLiveState(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	rt.On("PullImage", ctx, "postgres:16").Return(nil)
	rt.On("PullImage", ctx, "nginx").Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Pull(ctx, Selection{Names: []string{"web", "db"}})

	require.NoError(t, res.Err())
	require.Len(t, res.Value(), 2)
	assert.Equal(t, "'db' (postgres:16) has been pulled", res.Value()[0].Description)
	rt.AssertNotCalled(t, "ExistingContainers", mock.Anything, mock.Anything)
}

// =============================================================================
// Reset Tests
// =============================================================================

func TestReset_RemovesManagedContainersNewestFirst(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	managed := []string{"db", "orphan"}
	rt.On("ManagedContainers", ctx).Return(managed, nil)
	withLiveState(rt, managed, domain.StateMap{"db": running("db"), "orphan": stopped("orphan")})

	var removed []string
	rt.On("StopContainer", ctx, "db", grace).Return(nil)
	rt.On("RemoveContainer", ctx, mock.Anything).
		Run(func(args mock.Arguments) { removed = append(removed, args.String(1)) }).
		Return(nil)

	res := newTestOrchestrator(project, rt, Options{}).Reset(ctx, grace)

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"orphan", "db"}, removed)
}

func TestReset_NothingManaged(t *testing.T) {
	rt := &MockRuntime{}
	rt.On("ManagedContainers", ctx).Return([]string{}, nil)

	res := newTestOrchestrator(webStack(), rt, Options{}).Reset(ctx, grace)

	require.NoError(t, res.Err())
	assert.Empty(t, res.Value())
	assert.Empty(t, mutations(rt))
}

// =============================================================================
// Status Tests
// =============================================================================

func TestStatus_EmptyRuntimeGivesPlaceholders(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	withLiveState(rt, []string{"db", "api", "web"}, domain.StateMap{})

	res := newTestOrchestrator(project, rt, Options{}).Status(ctx, Selection{})

	require.NoError(t, res.Err())
	rows := res.Value()
	require.Len(t, rows, 3)
	for i, name := range []string{"db", "api", "web"} {
		assert.Equal(t, status.Row{
			Name: name, ID: status.Empty, PID: status.Empty, IP: status.Empty,
			Uptime: status.Empty, Error: status.Empty,
		}, rows[i])
	}
}

func TestStatus_RequestedOrder(t *testing.T) {
	rt := &MockRuntime{}
	project := webStack()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-2 * time.Hour)
	withLiveState(rt, []string{"web", "db"}, domain.StateMap{
		"db": {Name: "db", ID: "0123456789abcdef", Running: true, PID: 42, IP: "172.17.0.2", StartedAt: &started},
	})

	opts := Options{Now: func() time.Time { return now }}
	res := newTestOrchestrator(project, rt, opts).Status(ctx, Selection{Names: []string{"web", "db"}})

	require.NoError(t, res.Err())
	rows := res.Value()
	require.Len(t, rows, 2)
	assert.Equal(t, "web", rows[0].Name)
	assert.Equal(t, status.Empty, rows[0].ID)
	assert.Equal(t, "db", rows[1].Name)
	assert.Equal(t, "0123456789ab", rows[1].ID)
	assert.Equal(t, "42", rows[1].PID)
	assert.Equal(t, "2 hours ago", rows[1].Uptime)
}

func TestStatus_UndefinedName(t *testing.T) {
	rt := &MockRuntime{}

	res := newTestOrchestrator(webStack(), rt, Options{}).Status(ctx, Selection{Names: []string{"ghost"}})

	assert.ErrorIs(t, res.Err(), domain.ErrInvalidContainer)
	assert.Empty(t, rt.Calls)
}
