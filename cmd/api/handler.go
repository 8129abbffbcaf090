package api

import (
	applicantDelivery "ats-backend/internal/applicant/delivery"
	authDelivery "ats-backend/internal/auth/delivery"
	authUsecase "ats-backend/internal/auth/usecase"
	companyDelivery "ats-backend/internal/company/delivery"
	syncDelivery "ats-backend/internal/mailsync/delivery"
	"ats-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

// Handler owns the HTTP surface of the service.
type Handler struct {
	authUsecase      authUsecase.AuthUsecase
	authHandler      *authDelivery.AuthHandler
	applicantHandler *applicantDelivery.ApplicantHandler
	companyHandler   *companyDelivery.CompanyHandler
	syncHandler      *syncDelivery.SyncHandler
	config           *config.Config
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	authHandler *authDelivery.AuthHandler,
	applicantHandler *applicantDelivery.ApplicantHandler,
	companyHandler *companyDelivery.CompanyHandler,
	syncHandler *syncDelivery.SyncHandler,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:      authUc,
		authHandler:      authHandler,
		applicantHandler: applicantHandler,
		companyHandler:   companyHandler,
		syncHandler:      syncHandler,
		config:           cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.authHandler, h.applicantHandler, h.companyHandler, h.syncHandler, h.config)

	return r.Run(addr)
}
