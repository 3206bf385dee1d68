package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"

	"github.com/vprep/preparator-backend-go/internal/broker/kafka"
	"github.com/vprep/preparator-backend-go/internal/cache/memcache"
	"github.com/vprep/preparator-backend-go/internal/cache/rediscache"
	"github.com/vprep/preparator-backend-go/internal/config"
	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	appHTTP "github.com/vprep/preparator-backend-go/internal/handler/http"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
	"github.com/vprep/preparator-backend-go/internal/pkg/email"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
	"github.com/vprep/preparator-backend-go/internal/repository/memory"
	"github.com/vprep/preparator-backend-go/internal/repository/postgresql"
	attendanceService "github.com/vprep/preparator-backend-go/internal/service/attendance"
	monitorService "github.com/vprep/preparator-backend-go/internal/service/monitor"
	notificationService "github.com/vprep/preparator-backend-go/internal/service/notification"
	preparationService "github.com/vprep/preparator-backend-go/internal/service/preparation"
)

type repositories struct {
	schedules    schedule.ScheduleRepository
	timesheets   timesheet.TimesheetRepository
	preparations preparation.PreparationRepository
	agencies     agency.AgencyRepository
	directory    user.Directory
	deliveries   alert.DeliveryRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage: ", err)
	}
	defer repos.close()

	var marker notification.SendMarker
	if cfg.Redis.Addr != "" {
		client := rediscache.NewClient(cfg.Redis)
		if err := rediscache.Ping(ctx, client); err != nil {
			log.Fatal("Failed to connect to redis: ", err)
		}
		defer client.Close()
		marker = rediscache.NewSendMarker(client, cfg.Monitor.SendMarkerTTL)
	} else {
		slog.Warn("REDIS_ADDR not set, using a process-local send marker")
		marker = memcache.NewSendMarker(cfg.Monitor.SendMarkerTTL)
	}

	var publisher notificationService.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		defer producer.Close()
		publisher = producer
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		log.Fatal("Failed to load email templates: ", err)
	}
	dispatcher := notificationService.NewDispatcher(
		repos.directory,
		renderer,
		email.NewTransport(cfg.SMTP),
		marker,
		publisher,
	)

	monitor, err := monitorService.NewService(cfg.Monitor, monitorService.Deps{
		Schedules:    repos.schedules,
		Timesheets:   repos.timesheets,
		Preparations: repos.preparations,
		Agencies:     repos.agencies,
		Directory:    repos.directory,
		Dispatcher:   dispatcher,
	})
	if err != nil {
		log.Fatal("Failed to initialize monitor: ", err)
	}
	if cfg.Monitor.Enabled {
		monitor.Start()
		defer monitor.Stop()
	} else {
		slog.Info("Monitor disabled, jobs can still be run manually")
	}

	defaults := agency.Thresholds{
		LateMinutes:        cfg.Monitor.LateThresholdMinutes,
		OvertimeMinutes:    cfg.Monitor.OvertimeThresholdMinutes,
		PreparationMinutes: cfg.Monitor.PreparationThresholdMinutes,
	}
	loc := cfg.Monitor.Location()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	timesheetSvc := attendanceService.NewTimesheetService(repos.timesheets, repos.schedules, loc, nil)
	preparationSvc := preparationService.NewPreparationService(repos.preparations, repos.agencies, defaults, nil)

	router := appHTTP.NewRouter(JWTService, appHTTP.Handlers{
		Timesheet:   appHTTP.NewTimesheetHandler(timesheetSvc),
		Preparation: appHTTP.NewPreparationHandler(preparationSvc),
		Schedule:    appHTTP.NewScheduleHandler(repos.schedules),
		Monitor:     appHTTP.NewMonitorHandler(monitor, repos.deliveries),
	}, appHTTP.RouterOptions{
		Logger:         logger,
		AllowedOrigins: []string{cfg.App.FrontendURL},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.App.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "preparator-backend"),
		slog.String("env", app.Env),
	)
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	if cfg.App.Storage == "memory" {
		slog.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		if cfg.App.SeedAdminEmail != "" {
			admin := store.SeedAdmin(cfg.App.SeedAdminEmail, cfg.App.SeedAdminName)
			slog.Info("Seeded memory administrator", "user_id", admin.ID, "email", admin.Email)
		} else {
			slog.Warn("MEMORY_ADMIN_EMAIL not set, monitor alerts have no recipient")
		}
		return repositories{
			schedules:    store.Schedules(),
			timesheets:   store.Timesheets(),
			preparations: store.Preparations(),
			agencies:     store.Agencies(),
			directory:    store.Directory(),
			deliveries:   store.DeliveryLog(),
			close:        func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return repositories{}, fmt.Errorf("connect to database: %w", err)
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		db.Close()
		return repositories{}, err
	}

	return repositories{
		schedules:    postgresql.NewScheduleRepository(db),
		timesheets:   postgresql.NewTimesheetRepository(db),
		preparations: postgresql.NewPreparationRepository(db),
		agencies:     postgresql.NewAgencyRepository(db),
		directory:    postgresql.NewUserDirectory(db),
		deliveries:   postgresql.NewDeliveryRepository(db),
		close:        db.Close,
	}, nil
}
