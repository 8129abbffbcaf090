package delivery

import (
	"net/http"

	"ats-backend/internal/company/domain"
	"ats-backend/internal/company/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CompanyHandler struct {
	companyRepo repository.CompanyRepository
}

func NewCompanyHandler(companyRepo repository.CompanyRepository) *CompanyHandler {
	return &CompanyHandler{companyRepo: companyRepo}
}

type createCompanyRequest struct {
	Name             string `json:"name" binding:"required"`
	ApplicationEmail string `json:"application_email" binding:"required,email"`
}

func (h *CompanyHandler) Create(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := &domain.Company{
		ID:               uuid.NewString(),
		Name:             req.Name,
		ApplicationEmail: req.ApplicationEmail,
	}
	if err := h.companyRepo.Create(c.Request.Context(), company); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.companyRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

type linkUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Active *bool  `json:"active"`
}

// LinkUser attaches a user to a company as a notification recipient.
func (h *CompanyHandler) LinkUser(c *gin.Context) {
	var req linkUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	link := &domain.ClientUser{
		ID:        uuid.NewString(),
		CompanyID: c.Param("id"),
		UserID:    req.UserID,
		Active:    active,
	}
	if err := h.companyRepo.LinkUser(c.Request.Context(), link); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user linked"})
}
