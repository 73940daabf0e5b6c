package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carewatch/carewatch/internal/config"
	"github.com/carewatch/carewatch/internal/domain/alerting"
	"github.com/carewatch/carewatch/internal/domain/attendance"
	"github.com/carewatch/carewatch/internal/domain/audit"
	"github.com/carewatch/carewatch/internal/domain/identity"
	"github.com/carewatch/carewatch/internal/domain/inbox"
	"github.com/carewatch/carewatch/internal/domain/medication"
	"github.com/carewatch/carewatch/internal/domain/patient"
	"github.com/carewatch/carewatch/internal/platform/db"
	"github.com/carewatch/carewatch/internal/platform/middleware"
	"github.com/carewatch/carewatch/internal/platform/notification"
)

// contactDirectory adapts the identity and attendance services to the
// alerting.ContactDirectory interface, avoiding circular imports between
// the alerting and identity packages.
type contactDirectory struct {
	identity   *identity.Service
	attendance *attendance.Service
}

// FamilyContacts implements alerting.ContactDirectory.
func (d *contactDirectory) FamilyContacts(ctx context.Context, patientID uuid.UUID) ([]alerting.Contact, error) {
	users, err := d.identity.ListFamily(ctx, patientID)
	if err != nil {
		return nil, err
	}
	contacts := make([]alerting.Contact, 0, len(users))
	for _, u := range users {
		c, err := d.contact(ctx, u)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// OnDutyCaregiver implements alerting.ContactDirectory.
func (d *contactDirectory) OnDutyCaregiver(ctx context.Context, patientID uuid.UUID) (*alerting.Contact, bool, error) {
	caregiverID, onDuty, err := d.attendance.OnDutyCaregiver(ctx, patientID)
	if err != nil || !onDuty {
		return nil, false, err
	}
	u, err := d.identity.GetUser(ctx, caregiverID)
	if err != nil {
		return nil, false, err
	}
	c, err := d.contact(ctx, u)
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

func (d *contactDirectory) contact(ctx context.Context, u *identity.User) (alerting.Contact, error) {
	prefs, err := d.identity.GetPreferences(ctx, u.ID)
	if err != nil {
		return alerting.Contact{}, err
	}
	devices, err := d.identity.ListDevices(ctx, u.ID)
	if err != nil {
		return alerting.Contact{}, err
	}
	tokens := make([]string, 0, len(devices))
	for _, dev := range devices {
		tokens = append(tokens, dev.Token)
	}
	c := alerting.Contact{
		UserID:     u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		PushTokens: tokens,
		Prefs: alerting.Preferences{
			PushEnabled:           prefs.PushEnabled,
			EmailEnabled:          prefs.EmailEnabled,
			SMSEnabled:            prefs.SMSEnabled,
			QuietHoursStart:       prefs.QuietHoursStart,
			QuietHoursEnd:         prefs.QuietHoursEnd,
			CriticalOverrideQuiet: prefs.CriticalOverrideQuiet,
		},
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	return c, nil
}

// patientDirectory adapts the patient service to the narrow directory
// interfaces the alerting and attendance packages declare.
type patientDirectory struct {
	patients *patient.Service
}

// Info implements alerting.PatientDirectory.
func (d *patientDirectory) Info(ctx context.Context, patientID uuid.UUID) (*alerting.PatientInfo, error) {
	p, err := d.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &alerting.PatientInfo{
		FullName: p.FullName,
		Location: p.Location(),
	}, nil
}

// HomeLocation implements attendance.PatientDirectory.
func (d *patientDirectory) HomeLocation(ctx context.Context, patientID uuid.UUID) (*attendance.HomeLocation, error) {
	p, err := d.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &attendance.HomeLocation{
		FullName:     p.FullName,
		Lat:          p.HomeLat,
		Lng:          p.HomeLng,
		RadiusMeters: p.RadiusMeters,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "carewatch-server",
		Short: "Elder care medication and attendance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and escalation scheduler",
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

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group. Every route under it requires authentication.
	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set; running with development auth")
		api.Use(middleware.DevAuth())
	} else {
		api.Use(middleware.JWTAuth(cfg.JWTSecret))
	}

	// -- Repositories --
	patientRepo := patient.NewRepoPG(pool)
	userRepo := identity.NewUserRepoPG(pool)
	prefsRepo := identity.NewPreferencesRepoPG(pool)
	tokenRepo := identity.NewPushTokenRepoPG(pool)
	shiftRepo := attendance.NewRepoPG(pool)
	medRepo := medication.NewRepoPG(pool)
	doseRepo := medication.NewDoseRepoPG(pool)
	inboxRepo := inbox.NewRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)

	// -- Core services --
	auditSvc := audit.NewService(auditRepo, logger)
	patientSvc := patient.NewService(patientRepo)
	identitySvc := identity.NewService(userRepo, prefsRepo, tokenRepo)
	inboxSvc := inbox.NewService(inboxRepo)

	patients := &patientDirectory{patients: patientSvc}
	attendanceSvc := attendance.NewService(shiftRepo, patients, auditSvc, logger)
	contacts := &contactDirectory{identity: identitySvc, attendance: attendanceSvc}

	// -- Notification pipeline --
	templates := notification.NewTemplateEngine()
	emailSender := notification.NewSMTPEmailSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})
	dispatcher := notification.NewDispatcher(
		emailSender,
		notification.NewLogSMSSender(logger),
		notification.NewLogPushSender(logger),
		inboxSvc,
		logger,
	)

	// -- Escalation machinery --
	clock := alerting.NewClock()
	resolver := alerting.NewResolver(contacts, logger)
	notifier := alerting.NewNotifier(doseRepo, medRepo, patients, resolver, dispatcher, templates, auditSvc, clock, logger)
	engine := alerting.NewEngine(notifier, clock, logger)
	medSvc := medication.NewService(medRepo, doseRepo, engine, logger)

	courier := alerting.NewCourier(contacts, patients, dispatcher, templates, clock, logger)
	medSvc.SetAnnouncer(courier)
	attendanceSvc.SetAnnouncer(courier)

	generator := alerting.NewGenerator(medRepo, doseRepo, patients, engine, clock, logger, cfg.DoseLookback())
	sweeper := alerting.NewSweeper(doseRepo, medRepo, notifier, clock, logger, cfg.SweepInterval(), cfg.DoseLookback())

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	go generator.Run(schedCtx)
	go sweeper.Run(schedCtx)
	logger.Info().
		Dur("sweep_interval", cfg.SweepInterval()).
		Dur("dose_lookback", cfg.DoseLookback()).
		Msg("escalation scheduler started")

	// -- Register domain handlers --
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	identity.NewHandler(identitySvc).RegisterRoutes(api)
	attendance.NewHandler(attendanceSvc).RegisterRoutes(api)
	medication.NewHandler(medSvc).RegisterRoutes(api)
	inbox.NewHandler(inboxSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	schedCancel()
	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
