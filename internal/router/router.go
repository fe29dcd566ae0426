// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/handlers"
	"github.com/javajoker/trademark-backend/internal/middleware"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
)

const webhookPath = "/v1/payments/stripe/webhook"

type LedgerAPI interface {
	handlers.Ledger
	handlers.OverdueReconciler
}

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Applications handlers.ApplicationReader
	Workflow     handlers.WorkflowRunner
	Ledger       LedgerAPI
	Gateway      handlers.PaymentGateway
	Users        handlers.UserLookup
	Dispatcher   services.Notifier
	Dashboard    handlers.DashboardProvider
	Audit        middleware.AuditWriter
	Limiter      *middleware.RateLimiter
	// Ping reports storage health; nil skips the check.
	Ping func(ctx context.Context) error
	Log  logrus.FieldLogger
}

func Setup(cfg *config.Config, deps Dependencies) *gin.Engine {
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	statusHandler := handlers.NewStatusHandler()
	applicationHandler := handlers.NewApplicationHandler(deps.Applications, deps.Workflow, deps.Ledger)
	paymentHandler := handlers.NewPaymentHandler(deps.Gateway, deps.Ledger, deps.Applications, deps.Users, deps.Workflow)
	notificationHandler := handlers.NewNotificationHandler(deps.Dispatcher)
	adminHandler := handlers.NewAdminHandler(deps.Dashboard, deps.Ledger)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			if err := deps.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	if deps.Audit != nil {
		v1.Use(middleware.AuditLogMiddleware(deps.Audit, deps.Log, webhookPath))
	}
	{
		statuses := v1.Group("/statuses")
		{
			statuses.GET("", statusHandler.List)
			statuses.GET("/:status", statusHandler.Get)
		}

		// Signature-verified, no bearer token
		v1.POST("/payments/stripe/webhook", paymentHandler.Webhook)

		authed := v1.Group("")
		authed.Use(middleware.AuthRequired())
		{
			applications := authed.Group("/applications")
			{
				applications.POST("", applicationHandler.Submit)
				applications.GET("/:id", applicationHandler.Get)
				applications.GET("/:id/history", applicationHandler.History)
				applications.GET("/:id/payments/summary", applicationHandler.PaymentSummary)
			}

			authed.POST("/payments/:id/intent", paymentHandler.CreateIntent)

			admin := authed.Group("/admin")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("/applications", applicationHandler.AdminList)
				admin.POST("/applications/:id/transition", applicationHandler.Transition)
				admin.POST("/applications/:id/payments", applicationHandler.RequestPayment)
				admin.POST("/payments/:id/confirm", paymentHandler.Confirm)
				admin.POST("/payments/reconcile-overdue", adminHandler.ReconcileOverdue)
				admin.POST("/notifications/dispatch", notificationHandler.Dispatch)
				admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			}
		}
	}

	return r
}
