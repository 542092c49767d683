package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/config"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/observability"
	"github.com/spec-kit/hubops-service/internal/persistence"
	"github.com/spec-kit/hubops-service/internal/repository"
	"github.com/spec-kit/hubops-service/internal/seed"
	"github.com/spec-kit/hubops-service/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries the per-invocation settings resolved by viper.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "hubopsctl",
		Short:         "HubOps administration",
		Long:          "hubopsctl migrates and seeds the HubOps database, runs recurring task sweeps and inspects tickets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("driver", "", "storage driver: postgres or sqlite (env STORAGE_DRIVER)")
	flags.String("sqlite-path", "", "sqlite database file (env SQLITE_PATH)")
	flags.String("postgres-dsn", "", "postgres connection string (env POSTGRES_DSN)")
	flags.String("log-level", "warn", "log level")
	flags.Bool("json", false, "output JSON")
	for _, name := range []string{"driver", "sqlite-path", "postgres-dsn", "log-level", "json"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}
	c.v.SetEnvPrefix("HUBOPS")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(c.migrateCmd(), c.seedCmd(), c.sweepCmd(), c.tasksCmd(), c.ticketsCmd())
	return root
}

// config layers flag values over the service's environment configuration.
func (c *cli) config() (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if driver := c.v.GetString("driver"); driver != "" {
		cfg.Storage.Driver = strings.ToLower(driver)
	}
	if path := c.v.GetString("sqlite-path"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if dsn := c.v.GetString("postgres-dsn"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	cfg.Logger.Level = c.v.GetString("log-level")
	return cfg, cfg.Validate()
}

type session struct {
	cfg    *config.Config
	db     *persistence.Database
	store  *repository.Store
	logger *zap.Logger
}

// withStore opens and migrates the database around fn.
func (c *cli) withStore(ctx context.Context, fn func(context.Context, *session) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := persistence.Open(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := persistence.RunMigrations(ctx, db.DB, db.Driver, logger); err != nil {
		return err
	}
	return fn(ctx, &session{cfg: cfg, db: db, store: repository.NewStore(db.DB, db.Driver), logger: logger})
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(context.Context, *session) error {
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo departments, users, tickets and recurring tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, s *session) error {
				report, err := seed.Apply(ctx, s.store, fixture, seed.Options{
					BcryptCost: s.cfg.Auth.BcryptCost,
					Logger:     s.logger,
				})
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), report)
				}
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Departments", "Users", "Tickets", "Recurring tasks"})
				tw.AppendRow(table.Row{report.Departments, report.Users, report.Tickets, report.RecurringTasks})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture (defaults to the built-in demo data)")
	return cmd
}

func (c *cli) sweepCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Materialize tickets from due recurring tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, s *session) error {
				scheduler := service.NewSchedulerService(service.SchedulerDependencies{
					Store:  s.store,
					Clock:  clock.Real(),
					Logger: s.logger,
				})
				today := scheduler.Today()
				if date != "" {
					parsed, err := domain.ParseDate(date)
					if err != nil {
						return err
					}
					today = parsed
				}
				result, err := scheduler.Sweep(ctx, today)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: processed %d recurring task(s), tickets %v\n",
					today.Format(domain.DateLayout), result.Processed, result.TicketIDs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "sweep as of YYYY-MM-DD instead of today")
	return cmd
}

func (c *cli) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List recurring tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, s *session) error {
				tasks, err := service.NewRecurringTaskService(service.RecurringTaskDependencies{Store: s.store, Logger: s.logger}).
					List(ctx, domain.Caller{Role: domain.RoleGM})
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), tasks)
				}
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Title", "Every (days)", "Next run", "Department"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.FrequencyDays, t.NextRunDate.Format(domain.DateLayout), deref(t.AssignedDeptName)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) ticketsCmd() *cobra.Command {
	var (
		role   string
		deptID int64
		status string
	)
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets as seen by a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			caller := domain.Caller{Role: parsedRole}
			if deptID > 0 {
				caller.DepartmentID = &deptID
			}
			filter := service.TicketListFilter{}
			if status != "" {
				st, err := domain.ParseTicketStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &st
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, s *session) error {
				tickets, err := service.NewTicketService(service.TicketDependencies{Store: s.store, Logger: s.logger}).
					List(ctx, caller, filter)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), tickets)
				}
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Status", "Type", "Priority", "Tenant", "Department", "Staff", "Created"})
				for i := range tickets {
					t := &tickets[i]
					tw.AppendRow(table.Row{
						t.ID, t.Status, t.Type, t.Priority, t.DisplayTenantName(),
						deref(t.AssignedDeptName), deref(t.AssignedStaffName), t.CreatedAt.Format(time.RFC3339),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleGM), "view as role: tenant, gm, dept or staff")
	cmd.Flags().Int64Var(&deptID, "department-id", 0, "department of a dept or staff viewer")
	cmd.Flags().StringVar(&status, "status", "", "only tickets in this status")
	return cmd
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
