package delivery

import (
	"net/http"
	"strconv"

	applicantrepo "ats-backend/internal/applicant/repository"
	authdelivery "ats-backend/internal/auth/delivery"
	authdomain "ats-backend/internal/auth/domain"
	companyrepo "ats-backend/internal/company/repository"

	"github.com/gin-gonic/gin"
)

type ApplicantHandler struct {
	applicantRepo applicantrepo.ApplicantRepository
	companyRepo   companyrepo.CompanyRepository
}

func NewApplicantHandler(applicantRepo applicantrepo.ApplicantRepository, companyRepo companyrepo.CompanyRepository) *ApplicantHandler {
	return &ApplicantHandler{applicantRepo: applicantRepo, companyRepo: companyRepo}
}

// List returns applicants, newest first. Client users only see companies
// they are linked to; staff and admins see everything.
func (h *ApplicantHandler) List(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	companyID := c.Query("company_id")
	limit := parsePositive(c.Query("limit"), 50, 200)
	offset := parsePositive(c.Query("offset"), 0, 1<<30)

	if user.Role == authdomain.RoleClient {
		allowed, err := h.companyRepo.ListCompanyIDsByUser(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if companyID == "" || !contains(allowed, companyID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "no access to this company"})
			return
		}
	}

	applicants, total, err := h.applicantRepo.List(c.Request.Context(), companyID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicants": applicants, "total": total})
}

func (h *ApplicantHandler) Get(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	applicant, err := h.applicantRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if applicant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "applicant not found"})
		return
	}

	if user.Role == authdomain.RoleClient {
		allowed, err := h.companyRepo.ListCompanyIDsByUser(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if applicant.CompanyID == nil || !contains(allowed, *applicant.CompanyID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "no access to this applicant"})
			return
		}
	}

	c.JSON(http.StatusOK, applicant)
}

func parsePositive(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 || parsed > max {
		return fallback
	}
	return parsed
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
