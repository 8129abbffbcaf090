package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ats-backend/internal/applicant/domain"
)

type ApplicantRepository interface {
	InsertIfAbsent(ctx context.Context, applicant *domain.Applicant) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Applicant, error)
	List(ctx context.Context, companyID string, limit, offset int) ([]domain.Applicant, int64, error)
}

type applicantRepository struct {
	db *gorm.DB
}

func NewApplicantRepository(db *gorm.DB) ApplicantRepository {
	return &applicantRepository{db: db}
}

// InsertIfAbsent inserts the applicant unless a row with the same
// gmail_message_id already exists. Returns true when a new row was written.
func (r *applicantRepository) InsertIfAbsent(ctx context.Context, applicant *domain.Applicant) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gmail_message_id"}},
			DoNothing: true,
		}).
		Create(applicant)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert applicant: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *applicantRepository) GetByID(ctx context.Context, id string) (*domain.Applicant, error) {
	var applicant domain.Applicant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&applicant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get applicant: %w", err)
	}
	return &applicant, nil
}

func (r *applicantRepository) List(ctx context.Context, companyID string, limit, offset int) ([]domain.Applicant, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Applicant{})
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applicants: %w", err)
	}

	var applicants []domain.Applicant
	if err := query.Order("received_at DESC").Limit(limit).Offset(offset).Find(&applicants).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list applicants: %w", err)
	}
	return applicants, total, nil
}
