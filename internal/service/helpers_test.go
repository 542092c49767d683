package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/config"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/persistence"
	"github.com/spec-kit/hubops-service/internal/repository"
	"github.com/spec-kit/hubops-service/internal/service"
)

var startTime = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions map[string]int
	sweeps  int
}

func (f *fakeRecorder) TicketAction(action, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actions == nil {
		f.actions = map[string]int{}
	}
	f.actions[action+"/"+outcome]++
}

func (f *fakeRecorder) SweepCompleted(int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
}

type testEnv struct {
	Ctx       context.Context
	Store     *repository.Store
	Clock     *clock.FakeClock
	Events    *recordedEvents
	Recorder  *fakeRecorder
	Tickets   *service.TicketService
	Tasks     *service.RecurringTaskService
	Scheduler *service.SchedulerService
	Depts     map[string]*domain.Department
	Users     map[string]*domain.User
}

type envOption func(*service.TicketDependencies)

func strictScope(deps *service.TicketDependencies) { deps.StrictScope = true }

// newTestEnv opens a migrated SQLite database and seeds the departments
// given, in order, so that their ids are 1..n.
func newTestEnv(t *testing.T, departments []string, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	lite, err := persistence.NewSQLite(ctx, filepath.Join(t.TempDir(), "hubops.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(lite.Close)
	if err := persistence.RunMigrations(ctx, lite.DB, config.DriverSQLite, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := repository.NewStore(lite.DB, repository.DialectSQLite)
	fake := clock.Fake(startTime)
	recorded := &recordedEvents{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range []events.EventType{events.EventTicketCreated, events.EventTicketStatusChanged,
		events.EventTicketStaffChanged, events.EventSweepCompleted} {
		dispatcher.Subscribe(et, recorded.handle)
	}
	recorder := &fakeRecorder{}

	deps := service.TicketDependencies{Store: store, Clock: fake, Dispatcher: dispatcher, Recorder: recorder, Logger: logger}
	for _, opt := range opts {
		opt(&deps)
	}

	env := &testEnv{
		Ctx:      ctx,
		Store:    store,
		Clock:    fake,
		Events:   recorded,
		Recorder: recorder,
		Tickets:  service.NewTicketService(deps),
		Tasks:    service.NewRecurringTaskService(service.RecurringTaskDependencies{Store: store, Clock: fake, Logger: logger}),
		Scheduler: service.NewSchedulerService(service.SchedulerDependencies{
			Store: store, Clock: fake, Dispatcher: dispatcher, Recorder: recorder, Logger: logger,
		}),
		Depts: map[string]*domain.Department{},
		Users: map[string]*domain.User{},
	}

	repos := store.Repos()
	for _, name := range departments {
		dept := &domain.Department{Name: name, CreatedAt: startTime}
		if err := repos.Departments.Create(ctx, dept); err != nil {
			t.Fatalf("seed department: %v", err)
		}
		env.Depts[name] = dept
	}
	env.addUser(t, "tenant", domain.RoleTenant, "")
	env.addUser(t, "gm", domain.RoleGM, "")
	return env
}

func (env *testEnv) addUser(t *testing.T, key string, role domain.Role, dept string) *domain.User {
	t.Helper()
	user := &domain.User{Username: key, Role: role, CreatedAt: startTime}
	if dept != "" {
		user.DepartmentID = &env.Depts[dept].ID
	}
	if err := env.Store.Repos().Users.Create(env.Ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	env.Users[key] = user
	return user
}

func (env *testEnv) caller(key string) domain.Caller {
	u := env.Users[key]
	return domain.Caller{UserID: u.ID, Username: u.Username, Role: u.Role, DepartmentID: u.DepartmentID}
}

func (env *testEnv) createTicket(t *testing.T, desc string) *domain.TicketView {
	t.Helper()
	view, err := env.Tickets.Create(env.Ctx, env.caller("tenant"), service.TicketCreateInput{
		Type: "Plumbing", Priority: "High", Description: desc,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return view
}

func (env *testEnv) act(t *testing.T, who string, ticketID int64, input service.TicketActionInput) *domain.TicketView {
	t.Helper()
	view, err := env.Tickets.ApplyAction(env.Ctx, env.caller(who), ticketID, input)
	if err != nil {
		t.Fatalf("%s by %s: %v", input.Action, who, err)
	}
	return view
}

func (env *testEnv) reload(t *testing.T, id int64) *domain.Ticket {
	t.Helper()
	ticket, err := env.Store.Repos().Tickets.GetByID(env.Ctx, id)
	if err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	return ticket
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func i64Ptr(i int64) *int64   { return &i }
