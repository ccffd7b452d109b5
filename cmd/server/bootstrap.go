package main

import (
	"os"

	"github.com/kanbanio/taskboard/internal/config"
	"github.com/kanbanio/taskboard/internal/handlers"
	"github.com/kanbanio/taskboard/internal/models"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/internal/utils"
	"github.com/kanbanio/taskboard/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	taskQueue         services.TaskQueue
	worker            *services.Worker
	authHandler       *handlers.AuthHandler
	projectHandler    *handlers.ProjectHandler
	memberHandler     *handlers.MemberHandler
	invitationHandler *handlers.InvitationHandler
	columnHandler     *handlers.ColumnHandler
	issueHandler      *handlers.IssueHandler
	userHandler       *handlers.UserHandler
	systemHandler     *handlers.SystemHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	// Initialize system logger and start the log cleanup scheduler
	services.InitSystemLogger(db)
	services.StartLogCleanupScheduler(db)

	// Email delivery: async via Redis when enabled, inline otherwise
	emailService := services.NewEmailService(db)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(emailService.SendInvitationEmail)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(emailService.SendInvitationEmail)
			worker.Start()
		}
	}

	ldapService := services.NewLDAPService(db)
	authService := services.NewAuthService(db, ldapService)

	adminUser := envOrDefault("ADMIN_USERNAME", "admin")
	adminPass := envOrDefault("ADMIN_PASSWORD", "admin123")
	adminEmail := envOrDefault("ADMIN_EMAIL", "admin@localhost")
	if err := authService.CreateAdminIfNotExists(adminUser, adminPass, adminEmail); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		taskQueue:         taskQueue,
		worker:            worker,
		authHandler:       handlers.NewAuthHandler(authService),
		projectHandler:    handlers.NewProjectHandler(services.NewProjectService(db)),
		memberHandler:     handlers.NewMemberHandler(services.NewMemberService(db)),
		invitationHandler: handlers.NewInvitationHandler(services.NewInvitationService(db, taskQueue, cfg.App.BaseURL)),
		columnHandler:     handlers.NewColumnHandler(services.NewColumnService(db)),
		issueHandler:      handlers.NewIssueHandler(services.NewIssueService(db)),
		userHandler:       handlers.NewUserHandler(db),
		systemHandler: handlers.NewSystemHandler(
			services.NewSystemLogService(db),
			services.NewSystemConfigService(db),
			ldapService,
		),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	services.StopLogCleanupScheduler()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All background services stopped")
}
