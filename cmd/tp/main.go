package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"teampulse/internal/app"
	"teampulse/internal/config"
	"teampulse/internal/db"
	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/engine/auth"
	"teampulse/internal/repo"
	"teampulse/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "TeamPulse CLI",
	Long: `TeamPulse watches how a team is really doing: employees, tasks and daily
activity go in; burnout risk, task priorities, workload equity and
recognition suggestions come out.
Core concepts:
- Workspace: the .teampulse directory holding the SQLite database; teampulse.yml configures the server, auth and logging.
- Employees and teams: who does the work and how they group; each employee carries productivity periods (morning/afternoon/evening factors).
- Tasks: work items with urgency, deadline, effort and dependencies; statuses go pending -> in_progress -> completed (blocked/cancelled are exits).
- Daily metrics: hours worked, breaks and sentiment per day; they feed the burnout risk score and its interventions.
- Priority engine: scores tasks from urgency, deadline pressure, effort and dependents, and lays them out inside productive hours ('tp task schedule').
- Equity engine: compares workload across a team and suggests task transfers ('tp team redistribute').
- Recognition: mines completed work for achievements so managers stop sitting on praise.
- Event log: diary of every change, view with 'tp events'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TEAMPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (overrides <workspace>/teampulse.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(metricCmd())
	rootCmd.AddCommand(burnoutCmd())
	rootCmd.AddCommand(achievementCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(authCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			boot, err := app.Open(appOptions())
			if err != nil {
				return err
			}
			defer boot.Close()
			cfg := boot.Config
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is empty; run 'tp config init' or edit %s", config.Path(viper.GetString("workspace")))
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   boot.Engine,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret:              cfg.Auth.Secret,
					AllowLegacyActorHeader: cfg.Auth.AllowActorHeader,
					Logger:                 boot.Log,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			boot.Log.Info("serving teampulse api", zap.String("addr", addr), zap.String("base_path", basePath))
			fmt.Printf("Serving TeamPulse API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			boot.Log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8484", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api/v1", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage workspace config",
		Long:  "Config is the rulebook in teampulse.yml: server address, auth secret and token TTL, logging level. 'tp config init' writes a fresh one with a generated secret.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default teampulse.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !viper.GetBool("force") {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(org)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "default", "organization name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(appOptions())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	return cmd
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{
		Use:   "employee",
		Short: "Manage employees",
		Long:  "Employees are the people the engines watch over: their tasks feed priority and equity, their daily metrics feed burnout risk, their completed work feeds recognition.",
	}
	emp.AddCommand(employeeCreateCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeGetCmd())
	emp.AddCommand(employeeUpdateCmd())
	emp.AddCommand(employeeDeleteCmd())
	emp.AddCommand(employeeStatsCmd())
	return emp
}

func employeeCreateCmd() *cobra.Command {
	var opts engine.EmployeeCreateOptions
	var periods []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			m, err := parseFloatMap(periods)
			if err != nil {
				return err
			}
			opts.ProductivityPeriods = m
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.CreateEmployee(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "full name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role title")
	cmd.Flags().StringVar(&opts.TeamID, "team", "", "team id")
	cmd.Flags().StringArrayVar(&periods, "productivity", []string{}, "productivity period as period=factor (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func employeeListCmd() *cobra.Command {
	var f repo.EmployeeFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListEmployees(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Team"})
				for _, emp := range items {
					tw.AppendRow(table.Row{emp.ID, emp.Name, emp.Email, emp.Role, derefStr(emp.TeamID)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.TeamID, "team", "", "team filter")
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

func employeeGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.GetEmployee(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	return cmd
}

func employeeUpdateCmd() *cobra.Command {
	var name, email, role, team string
	var periods []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.EmployeeUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("name") {
				opts.Name = &name
			}
			if cmd.Flags().Changed("email") {
				opts.Email = &email
			}
			if cmd.Flags().Changed("role") {
				opts.Role = &role
			}
			if cmd.Flags().Changed("team") {
				opts.TeamID = &team
			}
			if cmd.Flags().Changed("productivity") {
				m, err := parseFloatMap(periods)
				if err != nil {
					return err
				}
				opts.ProductivityPeriods = m
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.UpdateEmployee(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "", "role title")
	cmd.Flags().StringVar(&team, "team", "", "team id (empty detaches)")
	cmd.Flags().StringArrayVar(&periods, "productivity", []string{}, "productivity period as period=factor (repeatable)")
	return cmd
}

func employeeDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteEmployee(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func employeeStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show employee overview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				overview, err := e.EmployeeOverview(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(overview)
				}
				fmt.Printf("Employee: %s (%s)\n", overview.Employee.Name, overview.Employee.ID)
				fmt.Printf("Active tasks: %d  Completed: %d  Workload: %.2f  Skills: %d\n",
					overview.ActiveTasks, overview.CompletedTasks, overview.CurrentWorkload, overview.SkillsCount)
				if overview.BurnoutRisk != nil {
					fmt.Printf("Burnout risk: %.2f\n", *overview.BurnoutRisk)
				} else {
					fmt.Println("Burnout risk: no data")
				}
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are the work items. They flow pending -> in_progress -> completed, can depend on each other, and carry a priority score the engine recomputes as urgency, deadlines and dependents change.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskPrioritizedCmd())
	task.AddCommand(taskRecalculateCmd())
	task.AddCommand(taskScheduleCmd())
	task.AddCommand(taskExtractCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var deadline, meta string
	var effort float64
	var deps []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if opts.CreatedBy == "" {
				opts.CreatedBy = opts.ActorID
			}
			opts.Dependencies = deps
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			if cmd.Flags().Changed("effort") {
				opts.EstimatedEffort = &effort
			}
			if cmd.Flags().Changed("source-metadata-json") {
				if !json.Valid([]byte(meta)) {
					return fmt.Errorf("--source-metadata-json must be valid JSON")
				}
				opts.SourceMetaJSON = &meta
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.AssignedTo, "assignee", "", "assignee employee id")
	cmd.Flags().StringVar(&opts.CreatedBy, "created-by", "", "creator employee id (defaults to --actor-id)")
	cmd.Flags().IntVar(&opts.Urgency, "urgency", 0, "urgency 1-5 (default 3)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC 3339)")
	cmd.Flags().Float64Var(&effort, "effort", 0, "estimated effort in hours")
	cmd.Flags().StringArrayVar(&deps, "depends-on", []string{}, "dependency task id (repeatable)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source (email, meeting, manual, calendar)")
	cmd.Flags().StringVar(&meta, "source-metadata-json", "", "source metadata JSON")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Urgency", "Priority", "Assignee", "Deadline"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Urgency, floatCell(t.PriorityScore), derefStr(t.AssignedTo), derefStr(t.Deadline)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assignee", "", "assignee filter")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator filter")
	cmd.Flags().StringVar(&f.Source, "source", "", "source filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

func taskGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, source, assign, deadline string
	var urgency int
	var effort, actualEffort float64
	var deps []string
	var clearDeadline, clearEffort, clearActualEffort bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:      args[0],
				ActorID: viper.GetString("actor-id"),
				Force:   viper.GetBool("force"),
			}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("source") {
				opts.Source = &source
			}
			if cmd.Flags().Changed("assign") {
				opts.Assign = &assign
			}
			if cmd.Flags().Changed("urgency") {
				opts.Urgency = &urgency
			}
			if clearDeadline {
				opts.ClearDeadline = true
			} else if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			if clearEffort {
				opts.ClearEstimatedEffort = true
			} else if cmd.Flags().Changed("effort") {
				opts.EstimatedEffort = &effort
			}
			if clearActualEffort {
				opts.ClearActualEffort = true
			} else if cmd.Flags().Changed("actual-effort") {
				opts.ActualEffort = &actualEffort
			}
			if cmd.Flags().Changed("depends-on") {
				opts.Dependencies = deps
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&source, "source", "", "source")
	cmd.Flags().StringVar(&assign, "assign", "", "assignee employee id (empty unassigns)")
	cmd.Flags().IntVar(&urgency, "urgency", 0, "urgency 1-5")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC 3339)")
	cmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "clear deadline")
	cmd.Flags().Float64Var(&effort, "effort", 0, "estimated effort in hours")
	cmd.Flags().BoolVar(&clearEffort, "clear-effort", false, "clear estimated effort")
	cmd.Flags().Float64Var(&actualEffort, "actual-effort", 0, "actual effort in hours")
	cmd.Flags().BoolVar(&clearActualEffort, "clear-actual-effort", false, "clear actual effort")
	cmd.Flags().StringArrayVar(&deps, "depends-on", []string{}, "dependency task id (replaces the set, repeatable)")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func taskPrioritizedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prioritized <employee-id>",
		Short: "List an employee's active tasks by priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.PrioritizedTasks(ctx, employeeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Urgency", "Deadline"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, floatCell(t.PriorityScore), t.Urgency, derefStr(t.Deadline)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskRecalculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate <employee-id>",
		Short: "Recalculate priorities for an employee's active tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				count, err := e.RecalculateAll(ctx, employeeID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"message": fmt.Sprintf("Recalculated priorities for %d tasks", count),
						"count":   count,
					})
				}
				fmt.Printf("Recalculated priorities for %d tasks\n", count)
				return nil
			})
		},
	}
	return cmd
}

func taskScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <id>",
		Short: "Suggest a time slot for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				slot, err := e.ScheduleTask(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(slot)
				}
				fmt.Printf("%s: %s -> %s (priority %.2f)\n", slot.TaskTitle, slot.SuggestedStart, slot.SuggestedEnd, slot.PriorityScore)
				return nil
			})
		},
	}
	return cmd
}

func taskExtractCmd() *cobra.Command {
	var source, content, file string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract task candidates from text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				content = string(data)
			}
			if content == "" {
				return fmt.Errorf("--content or --file required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				candidates, err := e.ExtractTasks(content, source)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(candidates)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Title", "Urgency", "Effort", "Deadline", "Confidence"})
				for _, c := range candidates {
					tw.AppendRow(table.Row{c.Title, c.Urgency, fmt.Sprintf("%.1f", c.EstimatedEffort), derefStr(c.Deadline), fmt.Sprintf("%.2f", c.Confidence)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "email", "source type (email, meeting)")
	cmd.Flags().StringVar(&content, "content", "", "text to scan")
	cmd.Flags().StringVar(&file, "file", "", "file to scan")
	return cmd
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{
		Use:   "team",
		Short: "Manage teams",
		Long:  "Teams group employees for the equity engine: 'tp team equity' scores how evenly work is spread, 'tp team redistribute' suggests transfers from the overloaded to the underloaded.",
	}
	team.AddCommand(teamCreateCmd())
	team.AddCommand(teamListCmd())
	team.AddCommand(teamGetCmd())
	team.AddCommand(teamUpdateCmd())
	team.AddCommand(teamDeleteCmd())
	team.AddCommand(teamEquityCmd())
	team.AddCommand(teamRedistributeCmd())
	team.AddCommand(teamSuggestCmd())
	return team
}

func teamCreateCmd() *cobra.Command {
	var opts engine.TeamCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTeam(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "team name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.ManagerID, "manager", "", "manager employee id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func teamListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teams, err := e.ListTeams(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(teams)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Manager", "Description"})
				for _, t := range teams {
					tw.AppendRow(table.Row{t.ID, t.Name, derefStr(t.ManagerID), t.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func teamGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTeam(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func teamUpdateCmd() *cobra.Command {
	var name, description, manager string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TeamUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("name") {
				opts.Name = &name
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("manager") {
				opts.ManagerID = &manager
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTeam(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "team name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&manager, "manager", "", "manager employee id (empty clears)")
	return cmd
}

func teamDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTeam(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func teamEquityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equity <id>",
		Short: "Score workload equity for a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.TeamEquity(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				fmt.Printf("Team: %s (%s)\nEquity score: %.2f\n", rep.TeamName, rep.TeamID, rep.EquityScore)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Employee", "Load", "Active", "High priority", "Global"})
				for _, m := range rep.MemberWorkloads {
					tw.AppendRow(table.Row{m.EmployeeName, fmt.Sprintf("%.1f", m.CumulativeLoad), m.ActiveTasks, m.HighPriority, fmt.Sprintf("%.2f", m.GlobalScore)})
				}
				tw.Render()
				for _, r := range rep.Recommendations {
					fmt.Println("-", r)
				}
				return nil
			})
		},
	}
	return cmd
}

func teamRedistributeCmd() *cobra.Command {
	var autoAssign bool
	cmd := &cobra.Command{
		Use:   "redistribute <id>",
		Short: "Suggest task transfers to balance a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				suggestions, err := e.RedistributeTasks(ctx, id, autoAssign, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"suggestions":   suggestions,
						"auto_assigned": autoAssign,
						"count":         len(suggestions),
					})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Task", "Title", "From", "To", "Priority"})
				for _, s := range suggestions {
					tw.AppendRow(table.Row{s.TaskID, s.TaskTitle, s.FromEmployee, s.ToEmployee, floatCell(s.PriorityScore)})
				}
				tw.Render()
				if autoAssign {
					fmt.Printf("%d transfers applied\n", len(suggestions))
				} else {
					fmt.Printf("%d transfers suggested\n", len(suggestions))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&autoAssign, "auto-assign", false, "apply the suggested transfers")
	return cmd
}

func teamSuggestCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "suggest <id>",
		Short: "Suggest the best assignee for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				suggestion, err := e.SuggestAssignment(ctx, id, taskID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(suggestion)
				}
				fmt.Printf("%s: %s\n", suggestion.EmployeeID, suggestion.Reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func metricCmd() *cobra.Command {
	metric := &cobra.Command{
		Use:   "metric",
		Short: "Track daily activity",
		Long:  "Daily metrics are the raw signal for burnout risk: hours worked, breaks taken and how the day felt. One row per employee per day; tracking twice updates the day.",
	}
	metric.AddCommand(metricTrackCmd())
	metric.AddCommand(metricHistoryCmd())
	return metric
}

func metricTrackCmd() *cobra.Command {
	var opts engine.ActivityOptions
	var sentiment float64
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a day of activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("sentiment") {
				opts.Sentiment = &sentiment
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.TrackActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date YYYY-MM-DD (defaults to today)")
	cmd.Flags().Float64Var(&opts.HoursWorked, "hours", 0, "hours worked")
	cmd.Flags().IntVar(&opts.BreaksTaken, "breaks", 0, "breaks taken")
	cmd.Flags().Float64Var(&sentiment, "sentiment", 0, "sentiment -1..1")
	cmd.Flags().StringVar(&opts.Note, "note", "", "free-form note (scored for sentiment when --sentiment is absent)")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func metricHistoryCmd() *cobra.Command {
	var employeeID string
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show metric history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				metrics, err := e.MetricHistory(ctx, employeeID, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(metrics)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Hours", "Breaks", "Sentiment", "Risk"})
				for _, m := range metrics {
					tw.AppendRow(table.Row{m.Date, fmt.Sprintf("%.1f", m.HoursWorked), m.BreaksTaken, floatCell(m.SentimentScore), floatCell(m.RiskScore)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee id")
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func burnoutCmd() *cobra.Command {
	burnout := &cobra.Command{
		Use:   "burnout",
		Short: "Burnout risk analysis",
		Long:  "The risk engine scores sustained overwork, skipped breaks and negative sentiment into a 0-1 burnout risk, then recommends (and records) interventions above the comfort line.",
	}
	burnout.AddCommand(burnoutReportCmd())
	burnout.AddCommand(burnoutInterveneCmd())
	return burnout
}

func burnoutReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <employee-id>",
		Short: "Analyze burnout risk for an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.BurnoutAnalysis(ctx, employeeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				fmt.Printf("Employee: %s\nRisk: %.2f (%s, %s)\n", rep.EmployeeID, rep.CurrentRiskScore, rep.RiskLevel, rep.Trend)
				factors := make([]string, 0, len(rep.Factors))
				for k := range rep.Factors {
					factors = append(factors, k)
				}
				sort.Strings(factors)
				for _, k := range factors {
					fmt.Printf("  %s: %.2f\n", k, rep.Factors[k])
				}
				for _, r := range rep.Recommendations {
					fmt.Println("-", r)
				}
				return nil
			})
		},
	}
	return cmd
}

func burnoutInterveneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intervene <employee-id>",
		Short: "Trigger interventions for an at-risk employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.TriggerInterventions(ctx, employeeID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				fmt.Printf("Employee: %s  Risk: %.2f (%s)\n", rep.EmployeeID, rep.RiskScore, rep.RiskLevel)
				for _, a := range rep.Actions {
					fmt.Printf("- [%s] %s\n", a.Severity, a.Action)
					for _, t := range a.Tasks {
						fmt.Printf("    %s\n", t)
					}
				}
				return nil
			})
		},
	}
	return cmd
}

func achievementCmd() *cobra.Command {
	ach := &cobra.Command{
		Use:   "achievement",
		Short: "Detect and recognize achievements",
		Long:  "Achievements are notable wins mined from completed work (deliverables, early finishes, efficient estimates, batches). Managers recognize them; the summary shows who is being overlooked.",
	}
	ach.AddCommand(achievementDetectCmd())
	ach.AddCommand(achievementRecordCmd())
	ach.AddCommand(achievementRecognizeCmd())
	ach.AddCommand(achievementListCmd())
	ach.AddCommand(achievementSummaryCmd())
	ach.AddCommand(achievementUnrecognizedCmd())
	ach.AddCommand(achievementOpportunitiesCmd())
	return ach
}

func achievementDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <employee-id>",
		Short: "Detect achievements from the last week of completed work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeeID := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				detected, err := e.DetectAchievements(ctx, employeeID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"detected_achievements": len(detected),
						"achievements":          detected,
					})
				}
				printAchievementTable(detected)
				return nil
			})
		},
	}
	return cmd
}

func achievementRecordCmd() *cobra.Command {
	var opts engine.AchievementRecordOptions
	var impact float64
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an achievement by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("impact") {
				opts.ImpactScore = &impact
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.RecordAchievement(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.Type, "type", "", "type (deliverable, innovation, client_feedback, collaboration, learning)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Float64Var(&impact, "impact", 0, "impact score 0-1 (default 0.5)")
	cmd.Flags().StringVar(&opts.RelatedTaskID, "task", "", "related task id")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func achievementRecognizeCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "recognize <id>",
		Short: "Mark an achievement as recognized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.RecognizeAchievement(ctx, id, note, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "recognition note")
	return cmd
}

func achievementListCmd() *cobra.Command {
	var employeeID, achievementType string
	var days int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListAchievements(ctx, employeeID, days, achievementType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printAchievementTable(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee id")
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	cmd.Flags().StringVar(&achievementType, "type", "", "type filter")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func achievementSummaryCmd() *cobra.Command {
	var employeeID string
	var days int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize achievements and recognition rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.AchievementSummary(ctx, employeeID, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Achievements: %d  Recognized: %d (%.0f%%)  Avg impact: %.2f\n",
					s.TotalAchievements, s.RecognizedByManager, s.RecognitionRate*100, s.AverageImpactScore)
				types := make([]string, 0, len(s.ByType))
				for k := range s.ByType {
					types = append(types, k)
				}
				sort.Strings(types)
				for _, k := range types {
					b := s.ByType[k]
					fmt.Printf("  %s: %d (avg impact %.2f)\n", k, b.Count, b.AvgImpact)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee id")
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func achievementUnrecognizedCmd() *cobra.Command {
	var teamID string
	var days int
	cmd := &cobra.Command{
		Use:   "unrecognized",
		Short: "List notable achievements awaiting recognition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.UnrecognizedAchievements(ctx, teamID, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Employee", "Type", "Impact", "Description"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.AchievementID, u.EmployeeName, u.Type, fmt.Sprintf("%.2f", u.ImpactScore), u.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "team filter")
	cmd.Flags().IntVar(&days, "days", 7, "trailing window in days")
	return cmd
}

func achievementOpportunitiesCmd() *cobra.Command {
	var teamID string
	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "Point out recognition a manager is sitting on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RecognitionOpportunities(ctx, teamID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				for _, o := range items {
					fmt.Printf("- %s: %s\n", o.EmployeeName, o.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "team id")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func skillCmd() *cobra.Command {
	skill := &cobra.Command{
		Use:   "skill",
		Short: "Manage skills",
		Long:  "Skills describe what people can do (technical, soft_skill, domain) at beginner/intermediate/expert levels; the equity engine uses them when suggesting assignees.",
	}
	skill.AddCommand(skillDefineCmd())
	skill.AddCommand(skillAssignCmd())
	skill.AddCommand(skillListCmd())
	return skill
}

func skillDefineCmd() *cobra.Command {
	var opts engine.SkillDefineOptions
	cmd := &cobra.Command{
		Use:   "define",
		Short: "Define a skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.DefineSkill(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "skill name")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category (technical, soft_skill, domain)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func skillAssignCmd() *cobra.Command {
	var opts engine.SkillAssignOptions
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a skill to an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.AssignSkill(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.SkillID, "skill", "", "skill id")
	cmd.Flags().StringVar(&opts.Level, "level", "", "level (beginner, intermediate, expert)")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("skill")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func skillListCmd() *cobra.Command {
	var category, employeeID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List skills, or an employee's skills with --employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if employeeID != "" {
					items, err := e.EmployeeSkills(ctx, employeeID)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(items)
					}
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Skill", "Category", "Level"})
					for _, s := range items {
						tw.AppendRow(table.Row{s.SkillName, s.SkillCategory, s.Level})
					}
					tw.Render()
					return nil
				}
				items, err := e.ListSkills(ctx, category)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Description"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Category, s.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	cmd.Flags().StringVar(&employeeID, "employee", "", "list this employee's skills instead")
	return cmd
}

func eventsCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func authCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "auth",
		Short: "Tokens and API keys",
		Long:  "The HTTP API wants either a bearer token ('tp auth token') or an API key ('tp auth key create'); keys are stored hashed, so the plaintext prints exactly once.",
	}
	a.AddCommand(authTokenCmd())
	a.AddCommand(authKeyCmd())
	return a
}

func authTokenCmd() *cobra.Command {
	var target string
	var roles []string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if a.Config.Auth.Secret == "" {
					return fmt.Errorf("auth.secret is empty; run 'tp config init' first")
				}
				if target == "" {
					target = viper.GetString("actor-id")
				}
				svc := auth.Service{
					Repo:     a.Engine.Repo,
					Secret:   a.Config.Auth.Secret,
					TokenTTL: time.Duration(a.Config.Auth.TokenTTLMinutes) * time.Minute,
				}
				token, err := svc.MintToken(target, roles)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"token": token})
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "subject (defaults to --actor-id)")
	cmd.Flags().StringArrayVar(&roles, "role", []string{}, "role claim (repeatable)")
	return cmd
}

func authKeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage API keys"}
	key.AddCommand(authKeyCreateCmd())
	key.AddCommand(authKeyListCmd())
	key.AddCommand(authKeyRevokeCmd())
	return key
}

func authKeyCreateCmd() *cobra.Command {
	var target, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if target == "" {
					target = viper.GetString("actor-id")
				}
				svc := auth.Service{Repo: e.Repo}
				key, plaintext, err := svc.CreateKey(ctx, target, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "actor_id": key.ActorID, "key": plaintext})
				}
				fmt.Printf("API key %s created for %s. The key is shown once:\n%s\n", key.ID, key.ActorID, plaintext)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "key owner (defaults to --actor-id)")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func authKeyListCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				svc := auth.Service{Repo: e.Repo}
				keys, err := svc.Keys(ctx, target)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "filter by owner")
	return cmd
}

func authKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				svc := auth.Service{Repo: e.Repo}
				if err := svc.RevokeKey(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Revoked %s\n", id)
				return nil
			})
		},
	}
	return cmd
}

// --- helpers ---

func appOptions() app.Options {
	return app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	boot, err := app.Open(appOptions())
	if err != nil {
		return err
	}
	defer boot.Close()
	return fn(ctx, boot)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.Context) error {
		return fn(ctx, a.Engine)
	})
}

func printAchievementTable(items []domain.Achievement) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Type", "Impact", "Recognized", "Description"})
	for _, a := range items {
		tw.AppendRow(table.Row{a.ID, a.Type, fmt.Sprintf("%.2f", a.ImpactScore), a.RecognizedByManager, a.Description})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseFloatMap(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected period=factor, got %q", p)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid factor %q: %w", v, err)
		}
		m[strings.TrimSpace(k)] = f
	}
	return m, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatCell(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *f)
}
