package api

import (
	"net/http"

	applicantDelivery "ats-backend/internal/applicant/delivery"
	"ats-backend/internal/auth/delivery"
	authUsecase "ats-backend/internal/auth/usecase"
	companyDelivery "ats-backend/internal/company/delivery"
	syncDelivery "ats-backend/internal/mailsync/delivery"
	"ats-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	authHandler *delivery.AuthHandler,
	applicantHandler *applicantDelivery.ApplicantHandler,
	companyHandler *companyDelivery.CompanyHandler,
	syncHandler *syncDelivery.SyncHandler,
	cfg *config.Config,
) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
			auth.PUT("/users/:id/role", delivery.AuthMiddleware(authUc), delivery.AdminMiddleware(), authHandler.UpdateUserRole)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUc))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Applicant routes (protected)
		applicants := api.Group("/applicants")
		applicants.Use(delivery.AuthMiddleware(authUc))
		{
			applicants.GET("", applicantHandler.List)
			applicants.GET("/:id", applicantHandler.Get)
		}

		// Company routes (admin only)
		companies := api.Group("/companies")
		companies.Use(delivery.AuthMiddleware(authUc), delivery.AdminMiddleware())
		{
			companies.GET("", companyHandler.List)
			companies.POST("", companyHandler.Create)
			companies.POST("/:id/users", companyHandler.LinkUser)
		}

		// Mailbox connection and sync routes
		gmail := api.Group("/gmail")
		{
			// Google redirects here without our JWT; the signed state guards it.
			gmail.GET("/auth/callback", syncHandler.OAuthCallback)

			admin := gmail.Group("")
			admin.Use(delivery.AuthMiddleware(authUc), delivery.AdminMiddleware())
			{
				admin.GET("/auth", syncHandler.StartOAuth)
				admin.GET("/status", syncHandler.GetStatus)
				admin.GET("/runs", syncHandler.ListRuns)
				admin.POST("/sync", syncHandler.TriggerManualSync)
				admin.POST("/watch", syncHandler.RegisterWatch)
				admin.DELETE("/watch", syncHandler.StopWatch)
			}
		}

		// Scheduled sync trigger, authenticated by shared secret
		api.POST("/sync/cron", syncDelivery.CronAuthMiddleware(cfg.CronSecret), syncHandler.TriggerCronSync)
	}
}
