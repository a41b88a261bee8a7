package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/analytics"
	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/doctor"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/resource"
	"github.com/hms/hms/internal/etl"
	"github.com/hms/hms/internal/etl/scheduler"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/phi"
	"github.com/hms/hms/internal/warehouse"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the hospital management API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup instead.")
			return nil
		},
	})

	return cmd
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || email == "" || password == "" {
				return fmt.Errorf("--username, --email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := identity.NewService(identity.NewUserRepo(pool), []byte(cfg.SecretKey), cfg.AccessTokenTTL())
			u, err := users.Register(ctx, identity.RegisterRequest{
				Username: username,
				Email:    email,
				Password: password,
				FullName: "Administrator",
				Role:     auth.RoleAdmin,
			})
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			fmt.Printf("Created admin user %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Admin username")
	cmd.Flags().String("email", "", "Admin email")
	cmd.Flags().String("password", "", "Admin password")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	encryptor, err := phi.NewEncryptorFromHex(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Audit(logger))

	// Route groups. The public group carries login and health only; the
	// api group requires a valid access token.
	secret := []byte(cfg.SecretKey)
	public := e.Group("/api/v1")
	api := e.Group("/api/v1")
	api.Use(auth.JWTMiddleware(secret))
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	e.GET("/health", db.HealthHandler(pool))

	// Repositories
	userRepo := identity.NewUserRepo(pool)
	patientRepo := patient.NewRepo(pool, encryptor)
	doctorRepo := doctor.NewRepo(pool)
	apptRepo := appointment.NewRepo(pool)
	resourceRepo := resource.NewRepo(pool)

	// Services
	identitySvc := identity.NewService(userRepo, secret, cfg.AccessTokenTTL())
	patientSvc := patient.NewService(patientRepo)
	doctorSvc := doctor.NewService(doctorRepo)
	apptSvc := appointment.NewService(apptRepo)
	resourceSvc := resource.NewService(resourceRepo, db.NewTxRunner(pool))
	analyticsSvc := analytics.NewService(patientRepo, doctorRepo, apptRepo, resourceRepo, logger)

	// Warehouse ETL
	executor := etl.NewExecutor(etl.NewPolicyStore(), etl.NewLedger(), logger)
	exporter := warehouse.NewExporter(cfg.WarehouseExportDir, cfg.WarehouseUploadURL, logger)
	trigger := warehouse.NewPipelineTrigger(cfg.WarehousePipelineURL, logger)
	orchestrator := warehouse.NewOrchestrator(exporter, trigger, executor, logger)

	sched := scheduler.New(logger)
	registerETLJobs(sched, orchestrator, analyticsSvc, logger)
	if cfg.SchedulerEnabled {
		sched.Start()
		logger.Info().Msg("etl scheduler started")
	}
	etlControl := analytics.NewETLControl(sched, orchestrator, analyticsSvc, logger)

	// Handlers
	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)
	appointment.NewHandler(apptSvc).RegisterRoutes(api)
	resource.NewHandler(resourceSvc).RegisterRoutes(api)
	analytics.NewHandler(analyticsSvc, etlControl).RegisterRoutes(api)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown failed")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// registerETLJobs installs the recurring warehouse exports. Full exports run
// nightly; appointment data additionally syncs hourly so dashboards stay
// close to live.
func registerETLJobs(sched *scheduler.Scheduler, orch *warehouse.Orchestrator, src warehouse.DataSource, logger zerolog.Logger) {
	resultToPayload := func(res warehouse.Result) (scheduler.JobPayload, error) {
		payload := scheduler.JobPayload{
			DataExports:  res.DataExports,
			PipelineRuns: res.PipelineRuns,
		}
		if res.Error != "" {
			return payload, fmt.Errorf("%s", res.Error)
		}
		return payload, nil
	}

	mustAdd := func(err error) {
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to register etl job")
		}
	}

	mustAdd(sched.AddCronJob("daily_full_etl", "Daily full warehouse export", "0 2 * * *",
		func(ctx context.Context) (scheduler.JobPayload, error) {
			end := time.Now().UTC()
			return resultToPayload(orch.RunFullETL(ctx, src, end.AddDate(0, 0, -1), end))
		}))

	mustAdd(sched.AddCronJob("hourly_appointments_etl", "Hourly appointment sync", "0 * * * *",
		func(ctx context.Context) (scheduler.JobPayload, error) {
			end := time.Now().UTC()
			return resultToPayload(orch.RunIncrementalETL(ctx, src, "appointments", end.Add(-time.Hour), end))
		}))

	mustAdd(sched.AddIntervalJob("resource_utilization_etl", "Resource utilization sync", 4*time.Hour,
		func(ctx context.Context) (scheduler.JobPayload, error) {
			end := time.Now().UTC()
			return resultToPayload(orch.RunIncrementalETL(ctx, src, "resources", end.Add(-4*time.Hour), end))
		}))

	mustAdd(sched.AddCronJob("weekly_doctor_performance_etl", "Weekly doctor performance export", "0 3 * * 0",
		func(ctx context.Context) (scheduler.JobPayload, error) {
			end := time.Now().UTC()
			return resultToPayload(orch.RunIncrementalETL(ctx, src, "doctors", end.AddDate(0, 0, -7), end))
		}))
}
