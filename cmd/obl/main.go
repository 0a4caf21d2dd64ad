package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"onboardline/internal/config"
	"onboardline/internal/db"
	"onboardline/internal/directory"
	"onboardline/internal/domain"
	"onboardline/internal/engine"
	"onboardline/internal/migrate"
	"onboardline/internal/repo"
	"onboardline/internal/server"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "obl",
	Short: "Onboardline CLI",
	Long: `Onboardline manages versioned onboarding checklists for municipal employees.
Core concepts:
- Workspace: the .onboardline directory holding the database; settings live in onboardline.yml.
- Organization: an org-tree unit identified by its number; checklists belong to organizations.
- Checklist: a versioned template of onboarding tasks. One draft (CREATED) and one
  ACTIVE version may exist per name; activating a draft deprecates the previous active.
- Phase: a shared catalog entry (e.g. "Before first day") that tasks point at.
- Employee checklist: the per-employee copy created at initiation. It pins the template
  versions that were active at the time and tracks fulfilment per task.
- Fulfilment: EMPTY/TRUE/FALSE per task with an optional response text; when every task
  is TRUE the employee checklist counts as completed.
- Locking: checklists past their expiration date are locked read-only by the sweeper.
- Event log: diary of changes, view with 'obl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		zcfg := zap.NewProductionConfig()
		if viper.GetBool("verbose") {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		l, err := zcfg.Build()
		if err != nil {
			return err
		}
		logger = l
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
	viper.SetEnvPrefix("ONBOARDLINE")
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().StringP("municipality", "m", "", "municipality id (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("municipality", rootCmd.PersistentFlags().Lookup("municipality"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(phaseCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(ecCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
}

// --- organizations ---

func orgCmd() *cobra.Command {
	org := &cobra.Command{Use: "org", Short: "Manage organizations"}
	org.AddCommand(orgCreateCmd())
	org.AddCommand(orgListCmd())
	org.AddCommand(orgUpdateCmd())
	return org
}

func orgCreateCmd() *cobra.Command {
	var number int
	var name string
	var channels []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if number == 0 || name == "" {
				return fmt.Errorf("--number and --name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				org, err := e.CreateOrganization(ctx, municipality(e), number, name, channels, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(org)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 0, "organization number")
	cmd.Flags().StringVar(&name, "name", "", "organization name")
	cmd.Flags().StringArrayVar(&channels, "channel", []string{}, "communication channels")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func orgListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListOrganizations(ctx, municipality(e))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Number", "Name"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.ID, o.OrganizationNumber, o.OrganizationName})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func orgUpdateCmd() *cobra.Command {
	var id, name string
	var channels []string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var namePtr *string
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				var chans []string
				if cmd.Flags().Changed("channel") {
					chans = channels
				}
				org, err := e.UpdateOrganization(ctx, municipality(e), id, namePtr, chans, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(org)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "organization id")
	cmd.Flags().StringVar(&name, "name", "", "organization name")
	cmd.Flags().StringArrayVar(&channels, "channel", []string{}, "communication channels")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- phases ---

func phaseCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "phase",
		Short: "Manage the phase catalog",
		Long:  "Phases group tasks on a timeline (before first day, first week, ...). They are shared across every checklist in the municipality.",
	}
	p.AddCommand(phaseCreateCmd())
	p.AddCommand(phaseListCmd())
	p.AddCommand(phaseUpdateCmd())
	p.AddCommand(phaseDeleteCmd())
	return p
}

func phaseCreateCmd() *cobra.Command {
	var name, bodyText, timeToComplete string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				phase, err := e.CreatePhase(ctx, domain.Phase{
					MunicipalityID: municipality(e),
					Name:           name,
					BodyText:       bodyText,
					SortOrder:      sortOrder,
					TimeToComplete: timeToComplete,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(phase)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "phase name")
	cmd.Flags().StringVar(&bodyText, "body-text", "", "descriptive text")
	cmd.Flags().StringVar(&timeToComplete, "time-to-complete", "", "nominal duration, e.g. P1M")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func phaseListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List phases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListPhases(ctx, municipality(e))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Sort", "Time to complete"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.SortOrder, p.TimeToComplete})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func phaseUpdateCmd() *cobra.Command {
	var id, name, bodyText, timeToComplete string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var namePtr, bodyPtr, ttcPtr *string
				var sortPtr *int
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				if cmd.Flags().Changed("body-text") {
					bodyPtr = &bodyText
				}
				if cmd.Flags().Changed("time-to-complete") {
					ttcPtr = &timeToComplete
				}
				if cmd.Flags().Changed("sort-order") {
					sortPtr = &sortOrder
				}
				phase, err := e.UpdatePhase(ctx, municipality(e), id, namePtr, bodyPtr, ttcPtr, sortPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(phase)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "phase id")
	cmd.Flags().StringVar(&name, "name", "", "phase name")
	cmd.Flags().StringVar(&bodyText, "body-text", "", "descriptive text")
	cmd.Flags().StringVar(&timeToComplete, "time-to-complete", "", "nominal duration")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func phaseDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete phase (fails while tasks reference it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeletePhase(ctx, municipality(e), id, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "phase id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- checklists ---

func checklistCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "checklist",
		Short: "Manage checklist templates",
		Long:  "Checklists are versioned templates. Edit the CREATED draft, activate it to hand it to new employees, create a new version to change an active one.",
	}
	c.AddCommand(checklistCreateCmd())
	c.AddCommand(checklistListCmd())
	c.AddCommand(checklistShowCmd())
	c.AddCommand(checklistUpdateCmd())
	c.AddCommand(checklistDeleteCmd())
	c.AddCommand(checklistNewVersionCmd())
	c.AddCommand(checklistActivateCmd())
	c.AddCommand(checklistTaskCmd())
	c.AddCommand(checklistExportCmd())
	c.AddCommand(checklistImportCmd())
	return c
}

func checklistCreateCmd() *cobra.Command {
	var orgNumber int
	var name, displayName, roleType string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create checklist (version 1, draft)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgNumber == 0 || name == "" {
				return fmt.Errorf("--org and --name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateChecklist(ctx, engine.ChecklistCreateOptions{
					MunicipalityID:     municipality(e),
					OrganizationNumber: orgNumber,
					Name:               name,
					DisplayName:        displayName,
					RoleType:           roleType,
					ActorID:            viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().IntVar(&orgNumber, "org", 0, "organization number")
	cmd.Flags().StringVar(&name, "name", "", "checklist name (stable across versions)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&roleType, "role-type", "", "role type")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func checklistListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListChecklists(ctx, municipality(e))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Version", "Lifecycle"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Version, c.LifeCycle})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func checklistShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show checklist with tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetChecklist(ctx, nil, municipality(e), id)
				if err != nil {
					return err
				}
				c.Tasks, err = e.Repo.ListTasks(ctx, nil, c.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistUpdateCmd() *cobra.Command {
	var id, displayName, roleType string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update checklist metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var opts engine.ChecklistUpdateOptions
				if cmd.Flags().Changed("display-name") {
					opts.DisplayName = &displayName
				}
				if cmd.Flags().Changed("role-type") {
					opts.RoleType = &roleType
				}
				c, err := e.UpdateChecklist(ctx, municipality(e), id, opts, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "checklist id")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&roleType, "role-type", "", "role type")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete draft checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteChecklist(ctx, municipality(e), id, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistNewVersionCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "new-version",
		Short: "Create the next draft version of a checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateNewVersion(ctx, municipality(e), id, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "checklist id of any version in the series")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistActivateCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a draft (deprecates the previous active version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ActivateChecklist(ctx, municipality(e), id, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistTaskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage checklist tasks"}
	t.AddCommand(taskAddCmd())
	t.AddCommand(taskUpdateCmd())
	t.AddCommand(taskRemoveCmd())
	return t
}

func taskAddCmd() *cobra.Command {
	var checklistID, phaseID, heading, text, roleType, questionType, permission string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add task to a mutable checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checklistID == "" || phaseID == "" || heading == "" {
				return fmt.Errorf("--checklist, --phase and --heading required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					MunicipalityID: municipality(e),
					ChecklistID:    checklistID,
					PhaseID:        phaseID,
					Heading:        heading,
					Text:           text,
					SortOrder:      sortOrder,
					RoleType:       roleType,
					QuestionType:   questionType,
					Permission:     permission,
					ActorID:        viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&checklistID, "checklist", "", "checklist id")
	cmd.Flags().StringVar(&phaseID, "phase", "", "phase id")
	cmd.Flags().StringVar(&heading, "heading", "", "task heading")
	cmd.Flags().StringVar(&text, "text", "", "task text")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	cmd.Flags().StringVar(&roleType, "role-type", "", "role type")
	cmd.Flags().StringVar(&questionType, "question-type", "", "question type")
	cmd.Flags().StringVar(&permission, "permission", "", "required permission")
	_ = cmd.MarkFlagRequired("checklist")
	_ = cmd.MarkFlagRequired("phase")
	_ = cmd.MarkFlagRequired("heading")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var checklistID, taskID, heading, text, roleType, questionType, permission string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checklistID == "" || taskID == "" {
				return fmt.Errorf("--checklist and --id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var opts engine.TaskUpdateOptions
				if cmd.Flags().Changed("heading") {
					opts.Heading = &heading
				}
				if cmd.Flags().Changed("text") {
					opts.Text = &text
				}
				if cmd.Flags().Changed("sort-order") {
					opts.SortOrder = &sortOrder
				}
				if cmd.Flags().Changed("role-type") {
					opts.RoleType = &roleType
				}
				if cmd.Flags().Changed("question-type") {
					opts.QuestionType = &questionType
				}
				if cmd.Flags().Changed("permission") {
					opts.Permission = &permission
				}
				t, err := e.UpdateTask(ctx, municipality(e), checklistID, taskID, opts, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&checklistID, "checklist", "", "checklist id")
	cmd.Flags().StringVar(&taskID, "id", "", "task id")
	cmd.Flags().StringVar(&heading, "heading", "", "task heading")
	cmd.Flags().StringVar(&text, "text", "", "task text")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	cmd.Flags().StringVar(&roleType, "role-type", "", "role type")
	cmd.Flags().StringVar(&questionType, "question-type", "", "question type")
	cmd.Flags().StringVar(&permission, "permission", "", "required permission")
	_ = cmd.MarkFlagRequired("checklist")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskRemoveCmd() *cobra.Command {
	var checklistID, taskID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove task from a mutable checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checklistID == "" || taskID == "" {
				return fmt.Errorf("--checklist and --id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, municipality(e), checklistID, taskID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&checklistID, "checklist", "", "checklist id")
	cmd.Flags().StringVar(&taskID, "id", "", "task id")
	_ = cmd.MarkFlagRequired("checklist")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func checklistExportCmd() *cobra.Command {
	var orgNumber, version int
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a checklist as a portable document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgNumber == 0 {
				return fmt.Errorf("--org required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.ExportChecklist(ctx, municipality(e), orgNumber, version)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println(string(data))
					return nil
				}
				return os.WriteFile(out, append(data, '\n'), 0o644)
			})
		},
	}
	cmd.Flags().IntVar(&orgNumber, "org", 0, "organization number")
	cmd.Flags().IntVar(&version, "version", 0, "version (0 = latest)")
	cmd.Flags().StringVar(&out, "out", "", "write document to file instead of stdout")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func checklistImportCmd() *cobra.Command {
	var orgNumber int
	var orgName, file string
	var replace bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a portable checklist document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgNumber == 0 || file == "" {
				return fmt.Errorf("--org and --file required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var doc engine.PortableChecklist
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse document: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ImportChecklist(ctx, engine.ImportOptions{
					MunicipalityID:     municipality(e),
					OrganizationNumber: orgNumber,
					OrganizationName:   orgName,
					Document:           doc,
					ReplaceExisting:    replace,
					ActorID:            viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().IntVar(&orgNumber, "org", 0, "organization number")
	cmd.Flags().StringVar(&orgName, "org-name", "", "organization name if it must be created")
	cmd.Flags().StringVar(&file, "file", "", "document file")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite the existing draft (or active version when no draft exists)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// --- employees ---

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{
		Use:   "employee",
		Short: "Employee onboarding initiation",
		Long:  "Initiation fetches new hires from the directory service and hands each one the active checklists along their org-tree branch.",
	}
	emp.AddCommand(employeeInitiateCmd())
	emp.AddCommand(employeeInitiateAllCmd())
	return emp
}

func employeeInitiateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initiate <username>",
		Short: "Initiate onboarding for one employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				detail, err := e.InitiateByUsername(ctx, municipality(e), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(detail)
			})
		},
	}
	return cmd
}

func employeeInitiateAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initiate-all",
		Short: "Initiate onboarding for every new employee in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				result, err := e.InitiateNewEmployees(ctx, municipality(e))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				fmt.Println(result.Summary)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Username", "Status", "Information"})
				for _, d := range result.Details {
					tw.AppendRow(table.Row{d.Username, d.Status, d.Information})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

// --- employee checklists ---

func ecCmd() *cobra.Command {
	ec := &cobra.Command{
		Use:   "ec",
		Short: "Manage employee checklists",
		Long:  "The per-employee checklist created at initiation: fulfilment, custom tasks, delegates and mentor.",
	}
	ec.AddCommand(ecListCmd())
	ec.AddCommand(ecShowCmd())
	ec.AddCommand(ecDeleteCmd())
	ec.AddCommand(ecFulfilCmd())
	ec.AddCommand(ecFulfilPhaseCmd())
	ec.AddCommand(ecCustomTaskCmd())
	ec.AddCommand(ecDelegateCmd())
	ec.AddCommand(ecMentorCmd())
	return ec
}

func ecListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employee checklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListEmployeeChecklists(ctx, municipality(e))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Employee", "Start", "End", "Completed", "Locked"})
				for _, ec := range items {
					tw.AppendRow(table.Row{ec.ID, ec.EmployeeID, ec.StartDate, ec.EndDate, ec.Completed, ec.Locked})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func ecShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show employee checklist with tasks and fulfilment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				detail, err := e.GetEmployeeChecklistDetail(ctx, municipality(e), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(detail)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "employee checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func ecDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete employee checklist and its employee record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteEmployeeChecklist(ctx, municipality(e), id, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "employee checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func ecFulfilCmd() *cobra.Command {
	var id, taskID, status, responseText string
	cmd := &cobra.Command{
		Use:   "fulfil",
		Short: "Update fulfilment of one task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || taskID == "" {
				return fmt.Errorf("--id and --task required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var statusPtr *domain.FulfilmentStatus
				if cmd.Flags().Changed("status") {
					s := domain.FulfilmentStatus(status)
					statusPtr = &s
				}
				var textPtr *string
				if cmd.Flags().Changed("response-text") {
					textPtr = &responseText
				}
				ec, err := e.UpdateTaskFulfilment(ctx, municipality(e), id, taskID, statusPtr, textPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ec)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&taskID, "task", "", "task or custom task id")
	cmd.Flags().StringVar(&status, "status", "", "EMPTY, TRUE or FALSE")
	cmd.Flags().StringVar(&responseText, "response-text", "", "response text")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func ecFulfilPhaseCmd() *cobra.Command {
	var id, phaseID, status string
	cmd := &cobra.Command{
		Use:   "fulfil-phase",
		Short: "Set fulfilment of every task in a phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || phaseID == "" {
				return fmt.Errorf("--id and --phase required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var statusPtr *domain.FulfilmentStatus
				if cmd.Flags().Changed("status") {
					s := domain.FulfilmentStatus(status)
					statusPtr = &s
				}
				ec, err := e.UpdateAllTasksInPhase(ctx, municipality(e), id, phaseID, statusPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ec)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&phaseID, "phase", "", "phase id")
	cmd.Flags().StringVar(&status, "status", "", "EMPTY, TRUE or FALSE")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func ecCustomTaskCmd() *cobra.Command {
	ct := &cobra.Command{Use: "custom-task", Short: "Manage custom tasks"}
	ct.AddCommand(customTaskAddCmd())
	ct.AddCommand(customTaskUpdateCmd())
	ct.AddCommand(customTaskRemoveCmd())
	return ct
}

func customTaskAddCmd() *cobra.Command {
	var ecID, phaseID, heading, text, questionType, roleType string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add custom task to an employee checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || phaseID == "" || heading == "" {
				return fmt.Errorf("--id, --phase and --heading required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ct, err := e.CreateCustomTask(ctx, engine.CustomTaskCreateOptions{
					MunicipalityID:      municipality(e),
					EmployeeChecklistID: ecID,
					PhaseID:             phaseID,
					Heading:             heading,
					Text:                text,
					QuestionType:        questionType,
					RoleType:            roleType,
					SortOrder:           sortOrder,
					ActorID:             viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ct)
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&phaseID, "phase", "", "phase id")
	cmd.Flags().StringVar(&heading, "heading", "", "task heading")
	cmd.Flags().StringVar(&text, "text", "", "task text")
	cmd.Flags().StringVar(&questionType, "question-type", "", "question type")
	cmd.Flags().StringVar(&roleType, "role-type", "", "role type")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("phase")
	_ = cmd.MarkFlagRequired("heading")
	return cmd
}

func customTaskUpdateCmd() *cobra.Command {
	var ecID, customTaskID, heading, text, questionType string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update custom task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || customTaskID == "" {
				return fmt.Errorf("--id and --task required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var opts engine.CustomTaskUpdateOptions
				if cmd.Flags().Changed("heading") {
					opts.Heading = &heading
				}
				if cmd.Flags().Changed("text") {
					opts.Text = &text
				}
				if cmd.Flags().Changed("question-type") {
					opts.QuestionType = &questionType
				}
				if cmd.Flags().Changed("sort-order") {
					opts.SortOrder = &sortOrder
				}
				ct, err := e.UpdateCustomTask(ctx, municipality(e), ecID, customTaskID, opts, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ct)
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&customTaskID, "task", "", "custom task id")
	cmd.Flags().StringVar(&heading, "heading", "", "task heading")
	cmd.Flags().StringVar(&text, "text", "", "task text")
	cmd.Flags().StringVar(&questionType, "question-type", "", "question type")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "sort order")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func customTaskRemoveCmd() *cobra.Command {
	var ecID, customTaskID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove custom task and its fulfilment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || customTaskID == "" {
				return fmt.Errorf("--id and --task required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteCustomTask(ctx, municipality(e), ecID, customTaskID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&customTaskID, "task", "", "custom task id")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func ecDelegateCmd() *cobra.Command {
	d := &cobra.Command{Use: "delegate", Short: "Manage delegated access"}
	d.AddCommand(delegateAddCmd())
	d.AddCommand(delegateRemoveCmd())
	return d
}

func delegateAddCmd() *cobra.Command {
	var ecID, email, username, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Delegate read access to an employee checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || email == "" {
				return fmt.Errorf("--id and --email required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.AddDelegate(ctx, municipality(e), ecID, domain.Delegate{
					Email:     email,
					Username:  username,
					FirstName: firstName,
					LastName:  lastName,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&email, "email", "", "delegate email")
	cmd.Flags().StringVar(&username, "username", "", "delegate username")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func delegateRemoveCmd() *cobra.Command {
	var ecID, email string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove delegated access",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || email == "" {
				return fmt.Errorf("--id and --email required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveDelegate(ctx, municipality(e), ecID, email, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&email, "email", "", "delegate email")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func ecMentorCmd() *cobra.Command {
	m := &cobra.Command{Use: "mentor", Short: "Manage checklist mentor"}
	m.AddCommand(mentorSetCmd())
	m.AddCommand(mentorRemoveCmd())
	return m
}

func mentorSetCmd() *cobra.Command {
	var ecID, userID, name string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Assign mentor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" || userID == "" {
				return fmt.Errorf("--id and --user required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ec, err := e.SetMentor(ctx, municipality(e), ecID, userID, name, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ec)
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	cmd.Flags().StringVar(&userID, "user", "", "mentor user id")
	cmd.Flags().StringVar(&name, "name", "", "mentor display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func mentorRemoveCmd() *cobra.Command {
	var ecID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove mentor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ecID == "" {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ec, err := e.RemoveMentor(ctx, municipality(e), ecID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ec)
			})
		},
	}
	cmd.Flags().StringVar(&ecID, "id", "", "employee checklist id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in onboardline.yml: municipality id, onboarding date windows, sweep interval and the directory service endpoint.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default onboardline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			muni := viper.GetString("municipality")
			if muni == "" {
				muni = "2281"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(muni)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

// --- api keys ---

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys for the HTTP server"}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create API key (the key is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actorID == "" {
				return fmt.Errorf("--actor required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				key := uuid.New().String()
				rec := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actorID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(key),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": rec.ID, "actor_id": rec.ActorID, "key": key})
				}
				fmt.Println(key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "key id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- events ---

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: template changes, initiations, fulfilment updates and sweeps.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, municipality(e), evtType, entityKind, entityID)
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

// --- server and sweeper ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	var withSweeper bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{
					JWTSecret: os.Getenv("ONBOARDLINE_JWT_SECRET"),
					Logger:    logger,
				}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("ONBOARDLINE_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				if withSweeper {
					interval, err := time.ParseDuration(e.Config.Onboarding.SweepInterval)
					if err != nil {
						return fmt.Errorf("invalid sweep_interval: %w", err)
					}
					go e.RunSweeper(ctx, logger, interval)
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Onboardline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&withSweeper, "sweep", false, "run the expiration sweeper alongside the server")
	return cmd
}

func sweepCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Lock employee checklists past their expiration date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if watch {
					interval, err := time.ParseDuration(e.Config.Onboarding.SweepInterval)
					if err != nil {
						return fmt.Errorf("invalid sweep_interval: %w", err)
					}
					e.RunSweeper(ctx, logger, interval)
					return nil
				}
				locked, err := e.SweepOnce(ctx, uuid.New().String(), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if locked < 0 {
					fmt.Println("sweep skipped: lock held by another runner")
					return nil
				}
				fmt.Printf("locked %d employee checklists\n", locked)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep sweeping on the configured interval")
	return cmd
}

// --- helpers ---

func municipality(e engine.Engine) string {
	if m := viper.GetString("municipality"); m != "" {
		return m
	}
	return e.Config.Municipality.ID
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		muni := viper.GetString("municipality")
		if muni == "" {
			muni = "default"
		}
		cfg = config.Default(muni)
	}
	e := engine.New(conn, cfg)
	if cfg.Directory.BaseURL != "" {
		e.Directory = directory.NewHTTPClient(cfg.Directory.BaseURL, cfg.Directory.APIKey)
	}
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
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
