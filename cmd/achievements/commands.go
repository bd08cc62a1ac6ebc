package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/alem-achievements/config"
	"github.com/alem-hub/alem-achievements/internal/application/command"
	"github.com/alem-hub/alem-achievements/internal/application/query"
	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/catalogfile"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// =============================================================================
// ROOT
// =============================================================================

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// newRootCmd builds the command tree. The returned cleanup closes whatever
// the executed command opened, also when it failed.
func newRootCmd() (*cobra.Command, func()) {
	var (
		flags globalFlags
		a     *app
	)

	root := &cobra.Command{
		Use:           "achievements",
		Short:         "Evaluate and report learner achievements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != outputText && flags.output != outputYAML {
				return fmt.Errorf("unknown output format %q", flags.output)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a = newApp(cfg, flags, cmd.ErrOrStderr())
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.learnersFile, "learners", "", "YAML learner fixtures (instead of DATABASE_URL)")
	root.PersistentFlags().StringVar(&flags.catalogFile, "catalog", "", "YAML catalog file (default: embedded catalog, or CATALOG_FILE)")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", outputText, "Output format: text or yaml")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newCheckCmd(),
		newGrantCmd(),
		newReportCmd(),
		newStatsCmd(),
		newCatalogCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newHealthCmd(),
	)

	cleanup := func() {
		if a != nil {
			a.Close()
		}
	}
	return root, cleanup
}

// =============================================================================
// EVALUATION
// =============================================================================

func newCheckCmd() *cobra.Command {
	var signals []string

	cmd := &cobra.Command{
		Use:   "check <learner-id>",
		Short: "Evaluate a learner and unlock satisfied achievements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := a.learnerStore(ctx)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}

			h := command.NewCheckAchievementsHandler(achievement.NewEngine(catalog), learners, a.log)
			result, err := h.Handle(ctx, command.CheckAchievementsCommand{
				LearnerID: args[0],
				Signals:   signals,
			})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), newCheckView(result))
		},
	}
	cmd.Flags().StringSliceVar(&signals, "signal", nil, "External signal satisfying a special achievement (repeatable)")
	return cmd
}

func newGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <learner-id> <achievement-id>",
		Short: "Unlock an achievement for a learner out of band",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := a.learnerStore(ctx)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}

			h := command.NewGrantAchievementHandler(achievement.NewEngine(catalog), learners, a.log)
			result, err := h.Handle(ctx, command.GrantAchievementCommand{
				LearnerID:     args[0],
				AchievementID: args[1],
			})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), grantView{
				LearnerID:   args[0],
				Achievement: newDefinitionView(result.Achievement),
				Granted:     result.Granted,
			})
		},
	}
}

// =============================================================================
// REPORTS
// =============================================================================

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <learner-id>",
		Short: "Show a learner's progress report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := a.learnerStore(ctx)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}

			h := query.NewGetProgressReportHandler(achievement.NewAggregator(catalog), learners)
			report, err := h.Handle(ctx, query.GetProgressReportQuery{LearnerID: args[0]})
			if err != nil {
				return err
			}
			if report == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no progress report: %s is missing or not a learner\n", args[0])
				return nil
			}
			return a.print(cmd.OutOrStdout(), newReportView(args[0], report))
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show population-wide achievement statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := a.learnerStore(ctx)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}

			stats, err := query.NewGetAchievementStatsHandler(achievement.NewAggregator(catalog), learners).Handle(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), newStatsView(stats))
		},
	}
}

// =============================================================================
// CATALOG
// =============================================================================

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and manage achievement definitions",
	}
	cmd.AddCommand(
		newCatalogListCmd(),
		newCatalogEarnedCmd(),
		newCatalogCreateCmd(),
		newCatalogDeactivateCmd(),
		newCatalogExportCmd(),
	)
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	var (
		category string
		rarity   string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List achievements in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			catalog, err := a.achievementCatalog(cmd.Context())
			if err != nil {
				return err
			}

			defs := query.NewListAchievementsHandler(catalog, nil).Handle(query.ListAchievementsQuery{
				Category:        achievement.Category(category),
				Rarity:          achievement.Rarity(rarity),
				IncludeInactive: all,
			})
			return a.print(cmd.OutOrStdout(), newDefinitionList(defs))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (time, completion, sequential, special)")
	cmd.Flags().StringVar(&rarity, "rarity", "", "Filter by rarity (common, rare, epic, legendary)")
	cmd.Flags().BoolVar(&all, "all", false, "Include deactivated achievements")
	return cmd
}

func newCatalogEarnedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "earned <learner-id>",
		Short: "List achievements a learner has unlocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := a.learnerStore(ctx)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}

			defs, err := query.NewListAchievementsHandler(catalog, learners).LearnerAchievements(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), newDefinitionList(defs))
		},
	}
}

func newCatalogCreateCmd() *cobra.Command {
	var (
		file         string
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "create --file <definitions.yaml>",
		Short: "Add custom achievements from a catalog-format YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			defs, err := catalogfile.LoadFile(file)
			if err != nil {
				return err
			}
			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}
			if a.store == nil {
				a.log.Warn("catalog store not configured, created achievements live for this run only")
			}

			h := command.NewCatalogHandler(catalog, a.store, a.log)
			created := make([]achievement.Definition, 0, len(defs))
			for _, def := range defs {
				d, err := h.Create(ctx, command.CreateAchievementCommand{Definition: def})
				if skipExisting && shared.IsAlreadyExists(err) {
					a.log.Info("achievement already in catalog, skipped", logger.AchievementID(def.ID))
					continue
				}
				if err != nil {
					return fmt.Errorf("achievement %s: %w", def.ID, err)
				}
				created = append(created, d)
			}
			return a.print(cmd.OutOrStdout(), newDefinitionList(created))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with an achievements list")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip achievements whose id is already in the catalog")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCatalogDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <achievement-id>",
		Short: "Soft-delete an achievement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			catalog, err := a.achievementCatalog(ctx)
			if err != nil {
				return err
			}
			if a.store == nil {
				a.log.Warn("catalog store not configured, deactivation lives for this run only")
			}

			h := command.NewCatalogHandler(catalog, a.store, a.log)
			if err := h.Deactivate(ctx, command.DeactivateAchievementCommand{AchievementID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", args[0])
			return nil
		},
	}
}

func newCatalogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the effective catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := appFrom(cmd).achievementCatalog(cmd.Context())
			if err != nil {
				return err
			}
			return catalogfile.Write(cmd.OutOrStdout(), catalog.List(false))
		},
	}
}

// =============================================================================
// DATABASE
// =============================================================================

func newMigrateCmd() *cobra.Command {
	var (
		rollback bool
		status   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			conn, err := a.database(ctx)
			if err != nil {
				return err
			}
			migrator := postgres.NewMigrator(conn)
			out := cmd.OutOrStdout()

			switch {
			case rollback:
				if err := migrator.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "rolled back last migration")
			case status:
				migrations, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				for _, m := range migrations {
					state := "pending"
					if m.IsApplied {
						state = "applied " + m.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(out, "%03d %-32s %s\n", m.Version, m.Name, state)
				}
			default:
				n, err := migrator.Migrate(ctx)
				if err != nil {
					return err
				}
				a.log.Info("migrations completed", logger.Int("applied", n))
				fmt.Fprintf(out, "applied %d migration(s)\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back the last applied migration")
	cmd.Flags().BoolVar(&status, "status", false, "Show migration status")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Load learner fixtures into PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)

			learners, err := memory.LoadLearnersFile(args[0])
			if err != nil {
				return err
			}
			if len(learners) == 0 {
				return errors.New("fixtures file contains no learners")
			}

			conn, err := a.database(ctx)
			if err != nil {
				return err
			}
			repo := postgres.NewLearnerRepository(conn)
			for _, l := range learners {
				if err := repo.Save(ctx, l); err != nil {
					return fmt.Errorf("learner %s: %w", l.ID, err)
				}
			}
			if !a.cfg.Redis.Disabled {
				cache, err := a.redisCache(ctx)
				if err == nil {
					err = redis.NewCachedLearnerStore(repo, cache, a.cfg.Redis.LearnerTTL, a.log).InvalidateAll(ctx)
				}
				if err != nil {
					a.log.Warn("learner cache not invalidated, entries expire by TTL", logger.Err(err))
				}
			}
			a.log.Info("learners imported", logger.Int("count", len(learners)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d learner(s)\n", len(learners))
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check PostgreSQL and Redis connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(cmd)
			view := healthView{Database: "not configured", Redis: "disabled"}

			if a.cfg.HasDatabase() {
				view.Database = "ok"
				conn, err := a.database(ctx)
				if err == nil {
					var status *postgres.HealthStatus
					status, err = conn.Health(ctx)
					if err == nil && !status.Healthy {
						err = errors.New(status.Error)
					}
					if err == nil {
						view.DatabaseLatency = status.PingLatency
						view.Connections = fmt.Sprintf("%d/%d", status.TotalConns, status.MaxConns)
					}
				}
				if err != nil {
					view.Database = "unreachable: " + err.Error()
					view.Unhealthy = true
				}
			}

			if !a.cfg.Redis.Disabled {
				view.Redis = "ok"
				cache, err := a.redisCache(ctx)
				if err == nil {
					start := time.Now()
					err = cache.Ping(ctx)
					view.RedisLatency = time.Since(start)
				}
				if err != nil {
					view.Redis = "unreachable: " + err.Error()
					view.RedisLatency = 0
					view.Unhealthy = true
				}
			}

			if err := a.print(cmd.OutOrStdout(), view); err != nil {
				return err
			}
			if view.Unhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}
