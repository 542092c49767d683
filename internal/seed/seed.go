// Package seed loads demo fixtures (departments, users, sample tickets and
// recurring tasks) into an empty or partially seeded database.
package seed

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/hubops-service/internal/auth"
	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/repository"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is the YAML seed document.
type Fixture struct {
	Departments    []string             `yaml:"departments"`
	Users          []UserFixture        `yaml:"users"`
	Tickets        []TicketFixture      `yaml:"tickets"`
	RecurringTasks []RecurringTaskEntry `yaml:"recurring_tasks"`
}

// UserFixture describes one user. An empty password leaves the user
// without a hash, so any password is accepted at login.
type UserFixture struct {
	Username   string `yaml:"username"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Password   string `yaml:"password"`
}

// TicketFixture describes a sample ticket. Status defaults to Pending Approval.
type TicketFixture struct {
	Tenant           string `yaml:"tenant"`
	Anonymous        bool   `yaml:"anonymous"`
	Type             string `yaml:"type"`
	Priority         string `yaml:"priority"`
	Description      string `yaml:"description"`
	Status           string `yaml:"status"`
	Department       string `yaml:"department"`
	EstimatedFixTime string `yaml:"estimated_fix_time"`
	ProofURL         string `yaml:"proof_url"`
}

// RecurringTaskEntry describes a recurring task. An empty next_run_date
// schedules the first run for the seeding day.
type RecurringTaskEntry struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	FrequencyDays int    `yaml:"frequency_days"`
	NextRunDate   string `yaml:"next_run_date"`
	Department    string `yaml:"department"`
}

// Report counts the rows each run inserted.
type Report struct {
	Departments    int `json:"departments"`
	Users          int `json:"users"`
	Tickets        int `json:"tickets"`
	RecurringTasks int `json:"recurring_tasks"`
}

// Options tune Apply.
type Options struct {
	Clock      clock.Clock
	BcryptCost int
	Logger     *zap.Logger
}

// Default returns the built-in fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file, or the built-in fixture when path is empty.
func Load(path string) (*Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid seed yaml: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	known := map[string]bool{}
	for _, name := range f.Departments {
		if strings.TrimSpace(name) == "" {
			return errors.New("seed: department name is empty")
		}
		known[name] = true
	}
	for _, u := range f.Users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		if strings.TrimSpace(u.Username) == "" {
			return errors.New("seed: username is empty")
		}
		if role.RequiresDepartment() && !known[u.Department] {
			return fmt.Errorf("seed user %q: unknown department %q", u.Username, u.Department)
		}
	}
	for _, t := range f.Tickets {
		if t.Status != "" {
			if _, err := domain.ParseTicketStatus(t.Status); err != nil {
				return fmt.Errorf("seed ticket %q: %w", t.Description, err)
			}
		}
		if t.Department != "" && !known[t.Department] {
			return fmt.Errorf("seed ticket %q: unknown department %q", t.Description, t.Department)
		}
	}
	for _, rt := range f.RecurringTasks {
		if rt.FrequencyDays <= 0 {
			return fmt.Errorf("seed recurring task %q: frequency_days must be positive", rt.Title)
		}
		if rt.NextRunDate != "" {
			if _, err := domain.ParseDate(rt.NextRunDate); err != nil {
				return fmt.Errorf("seed recurring task %q: %w", rt.Title, err)
			}
		}
	}
	return nil
}

// Apply inserts whatever part of the fixture is missing, in one
// transaction. Departments and users are matched by name; sample tickets
// and recurring tasks are only inserted into empty tables, so running the
// seed twice is harmless.
func Apply(ctx context.Context, store *repository.Store, f *Fixture, opts Options) (*Report, error) {
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := c.Now()
	report := &Report{}

	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		depts := map[string]int64{}
		for _, name := range f.Departments {
			dept, err := repos.Departments.GetByName(ctx, name)
			if errors.Is(err, sql.ErrNoRows) {
				dept = &domain.Department{Name: name, CreatedAt: now}
				err = repos.Departments.Create(ctx, dept)
				report.Departments++
			}
			if err != nil {
				return err
			}
			depts[name] = dept.ID
		}

		for _, u := range f.Users {
			if _, err := repos.Users.GetByUsername(ctx, u.Username); err == nil {
				continue
			} else if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			role, _ := domain.ParseRole(u.Role)
			user := &domain.User{Username: u.Username, Role: role, CreatedAt: now}
			if role.RequiresDepartment() {
				id := depts[u.Department]
				user.DepartmentID = &id
			}
			if u.Password != "" {
				hash, err := auth.HashPassword(u.Password, opts.BcryptCost)
				if err != nil {
					return fmt.Errorf("hash password for %q: %w", u.Username, err)
				}
				user.PasswordHash = hash
			}
			if err := repos.Users.Create(ctx, user); err != nil {
				return err
			}
			report.Users++
		}

		existing, err := repos.Tickets.ListViews(ctx, repository.TicketFilter{Limit: 1})
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, t := range f.Tickets {
				if err := createTicket(ctx, repos, t, depts, now); err != nil {
					return err
				}
				report.Tickets++
			}
		}

		tasks, err := repos.RecurringTasks.List(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			for _, rt := range f.RecurringTasks {
				task := &domain.RecurringTask{
					Title:         rt.Title,
					Description:   rt.Description,
					FrequencyDays: rt.FrequencyDays,
					NextRunDate:   c.Today(),
					CreatedAt:     now,
				}
				if rt.NextRunDate != "" {
					task.NextRunDate, _ = domain.ParseDate(rt.NextRunDate)
				}
				if id, ok := depts[rt.Department]; ok {
					task.AssignedDeptID = &id
				}
				if err := repos.RecurringTasks.Create(ctx, task); err != nil {
					return err
				}
				report.RecurringTasks++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("seed applied",
		zap.Int("departments", report.Departments),
		zap.Int("users", report.Users),
		zap.Int("tickets", report.Tickets),
		zap.Int("recurring_tasks", report.RecurringTasks))
	return report, nil
}

func createTicket(ctx context.Context, repos repository.Repositories, t TicketFixture, depts map[string]int64, now time.Time) error {
	tenant := t.Tenant
	if tenant == "" {
		tenant = "Tenant User"
	}
	status := domain.TicketStatusPendingApproval
	if t.Status != "" {
		status, _ = domain.ParseTicketStatus(t.Status)
	}
	ticket := &domain.Ticket{
		TenantName:  tenant,
		Anonymous:   t.Anonymous,
		Type:        t.Type,
		Priority:    t.Priority,
		Description: t.Description,
		Status:      status,
		CreatedAt:   now,
	}
	if id, ok := depts[t.Department]; ok {
		ticket.AssignedDeptID = &id
	}
	if t.EstimatedFixTime != "" {
		estimate := t.EstimatedFixTime
		ticket.EstimatedFixTime = &estimate
	}
	if status == domain.TicketStatusInProgress || status == domain.TicketStatusResolved {
		ticket.AcceptedAt = &now
	}
	if status == domain.TicketStatusResolved {
		ticket.ResolvedAt = &now
		if t.ProofURL != "" {
			proof := t.ProofURL
			ticket.ProofURL = &proof
		}
	}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		return err
	}
	return repos.History.Create(ctx, &domain.TicketHistory{
		TicketID:  ticket.ID,
		ActorRole: "seed",
		Action:    domain.HistoryActionCreated,
		NewStatus: ticket.Status,
		CreatedAt: now,
	})
}
