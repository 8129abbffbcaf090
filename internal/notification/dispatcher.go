package notification

import (
	"context"
	"fmt"
	"log"

	applicantrepo "ats-backend/internal/applicant/repository"
	authrepo "ats-backend/internal/auth/repository"
	companyrepo "ats-backend/internal/company/repository"
	syncdomain "ats-backend/internal/mailsync/domain"
	"ats-backend/pkg/fcm"
)

// Sender is the push transport. pkg/fcm.Client satisfies it.
type Sender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// Dispatcher fans new-applicant notifications out to the active client users
// of each applicant's matched company. Delivery failures are counted in the
// summary and never returned as errors; a notification must not be able to
// fail a sync.
type Dispatcher struct {
	applicantRepo applicantrepo.ApplicantRepository
	companyRepo   companyrepo.CompanyRepository
	fcmRepo       authrepo.FCMTokenRepository
	sender        Sender
}

func NewDispatcher(
	applicantRepo applicantrepo.ApplicantRepository,
	companyRepo companyrepo.CompanyRepository,
	fcmRepo authrepo.FCMTokenRepository,
	sender Sender,
) *Dispatcher {
	return &Dispatcher{
		applicantRepo: applicantRepo,
		companyRepo:   companyRepo,
		fcmRepo:       fcmRepo,
		sender:        sender,
	}
}

// NotifyNewApplicants sends one push per (client user, applicant) pair.
// Applicants without a matched company have no recipients and are skipped.
func (d *Dispatcher) NotifyNewApplicants(ctx context.Context, applicantIDs []string) (*syncdomain.NotificationSummary, error) {
	summary := &syncdomain.NotificationSummary{}

	for _, id := range applicantIDs {
		applicant, err := d.applicantRepo.GetByID(ctx, id)
		if err != nil {
			log.Printf("[Notify] Failed to load applicant %s: %v", id, err)
			continue
		}
		if applicant == nil || applicant.CompanyID == nil {
			continue
		}

		userIDs, err := d.companyRepo.ListActiveUserIDs(ctx, *applicant.CompanyID)
		if err != nil {
			log.Printf("[Notify] Failed to resolve recipients for company %s: %v", *applicant.CompanyID, err)
			continue
		}

		title := "新しい応募がありました"
		body := applicant.Subject
		if applicant.Name != "" {
			title = fmt.Sprintf("新しい応募: %s", applicant.Name)
		}
		if body == "" {
			body = fmt.Sprintf("%s からの応募を受信しました", applicant.SiteKey)
		}
		data := map[string]string{
			"type":         "new_applicant",
			"applicant_id": applicant.ID,
			"site_key":     applicant.SiteKey,
			"click_action": fmt.Sprintf("/applicants/%s", applicant.ID),
		}

		for _, userID := range userIDs {
			tokens, err := d.fcmRepo.GetTokensByUserID(userID)
			if err != nil {
				log.Printf("[Notify] Failed to load tokens for user %s: %v", userID, err)
				continue
			}
			if len(tokens) == 0 {
				continue
			}

			tokenStrings := make([]string, 0, len(tokens))
			for _, t := range tokens {
				tokenStrings = append(tokenStrings, t.Token)
			}

			summary.TotalSent++
			failedTokens, err := d.sender.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
				Title: title,
				Body:  body,
				Data:  data,
			})
			if err != nil {
				log.Printf("[Notify] Failed to send to user %s: %v", userID, err)
				summary.TotalFailed++
				continue
			}

			// The multicast call succeeding does not mean anything was
			// delivered; a batch where every token failed is a failure.
			if len(failedTokens) == len(tokenStrings) {
				log.Printf("[Notify] All %d tokens rejected for user %s", len(tokenStrings), userID)
				summary.TotalFailed++
			} else {
				summary.TotalSuccess++
			}

			for _, token := range failedTokens {
				if err := d.fcmRepo.DeleteToken(token); err != nil {
					log.Printf("[Notify] Failed to prune dead token: %v", err)
				}
			}
		}
	}

	log.Printf("[Notify] Dispatch complete: sent=%d success=%d failed=%d",
		summary.TotalSent, summary.TotalSuccess, summary.TotalFailed)
	return summary, nil
}
