// internal/router/app.go
package router

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/middleware"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
)

// App is the wired server: the HTTP engine plus the pieces main needs to
// run background work and shut down cleanly.
type App struct {
	Engine   *gin.Engine
	Workflow *services.WorkflowService
	Ledger   *services.LedgerService
	Limiter  *middleware.RateLimiter

	redis redis.UniversalClient
}

func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	applicationRepo := repository.NewApplicationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	app := &App{}

	var locker services.ApplicationLocker = services.NewMemoryLocker()
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		locker = services.NewRedisLocker(client, cfg.Redis.LockTTL, log)
	}

	var sess *session.Session
	if cfg.Email.Provider == "ses" || cfg.SMS.Enabled {
		var err error
		if sess, err = services.NewAWSSession(cfg.AWS); err != nil {
			return nil, err
		}
	}

	ledger := services.NewLedgerService(paymentRepo, cfg.Payment, log)
	transitions := services.NewTransitionService(applicationRepo, ledger, locker, log)
	applications := services.NewApplicationService(applicationRepo, cfg.Payment, log)
	dispatcher := services.NewDispatcher(applicationRepo, userRepo, services.DispatcherOptions{
		Email:      services.NewEmailSender(cfg.Email, sess),
		SMS:        services.NewSMSSender(cfg.SMS, sess),
		Deliveries: notificationRepo,
		OpsEmail:   cfg.Notification.OpsEmail,
		PortalURL:  cfg.Frontend.BaseURL,
		Policy:     services.RetryPolicyFromConfig(cfg.Notification),
	}, log)
	workflowService := services.NewWorkflowService(applications, transitions, ledger, dispatcher, cfg.Notification.DispatchBudget, log)
	gateway := services.NewPaymentGateway(cfg.Payment, paymentRepo, workflowService, log)
	adminService := services.NewAdminService(applicationRepo, paymentRepo, notificationRepo)

	app.Workflow = workflowService
	app.Ledger = ledger
	app.Limiter = middleware.NewRateLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	app.Engine = Setup(cfg, Dependencies{
		Applications: applications,
		Workflow:     workflowService,
		Ledger:       ledger,
		Gateway:      gateway,
		Users:        userRepo,
		Dispatcher:   dispatcher,
		Dashboard:    adminService,
		Audit:        auditRepo,
		Limiter:      app.Limiter,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Log: log,
	})

	return app, nil
}

// Close waits for pending notifications and releases external clients.
func (a *App) Close() error {
	a.Workflow.Wait()
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
