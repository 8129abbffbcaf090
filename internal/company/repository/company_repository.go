package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"ats-backend/internal/company/domain"
)

type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	LinkUser(ctx context.Context, link *domain.ClientUser) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	FindByApplicationEmail(ctx context.Context, email string) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
	ListActiveUserIDs(ctx context.Context, companyID string) ([]string, error)
	ListCompanyIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	company.ApplicationEmail = strings.ToLower(strings.TrimSpace(company.ApplicationEmail))
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// LinkUser upserts a user's membership in a company, reactivating an
// existing link instead of duplicating it.
func (r *companyRepository) LinkUser(ctx context.Context, link *domain.ClientUser) error {
	var existing domain.ClientUser
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", link.CompanyID, link.UserID).
		First(&existing).Error
	if err == nil {
		existing.Active = link.Active
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update client link: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to check client link: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("failed to create client link: %w", err)
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	var company domain.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (r *companyRepository) FindByApplicationEmail(ctx context.Context, email string) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).
		Where("LOWER(application_email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find company by application email: %w", err)
	}
	return &company, nil
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// ListActiveUserIDs returns the user ids of active client links for a company.
func (r *companyRepository) ListActiveUserIDs(ctx context.Context, companyID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&domain.ClientUser{}).
		Where("company_id = ? AND active = ?", companyID, true).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list client users: %w", err)
	}
	return userIDs, nil
}

// ListCompanyIDsByUser returns the companies a user has an active link to.
func (r *companyRepository) ListCompanyIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var companyIDs []string
	err := r.db.WithContext(ctx).
		Model(&domain.ClientUser{}).
		Where("user_id = ? AND active = ?", userID, true).
		Pluck("company_id", &companyIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user companies: %w", err)
	}
	return companyIDs, nil
}
