package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	applicantdomain "ats-backend/internal/applicant/domain"
	applicantrepo "ats-backend/internal/applicant/repository"
	companyrepo "ats-backend/internal/company/repository"
	syncdomain "ats-backend/internal/mailsync/domain"
)

// recipient headers checked, in priority order, when matching a message to a
// company's application inbox. Forwarded mail often only carries the original
// address in Delivered-To or X-Forwarded-To.
var recipientHeaders = []string{"to", "delivered-to", "x-original-to", "x-forwarded-to", "envelope-to"}

var (
	angleAddrRe   = regexp.MustCompile(`<([^>]+)>`)
	quotedLocalRe = regexp.MustCompile(`^"([^"]+)"@`)
	phoneRe       = regexp.MustCompile(`0\d{1,4}-?\d{1,4}-?\d{3,4}`)
	nameLineRe    = regexp.MustCompile(`(?m)^(?:氏名|お名前|名前|Name)\s*[:：]\s*(.+)$`)
)

type Mapper struct {
	applicantRepo applicantrepo.ApplicantRepository
	companyRepo   companyrepo.CompanyRepository
}

func NewMapper(applicantRepo applicantrepo.ApplicantRepository, companyRepo companyrepo.CompanyRepository) *Mapper {
	return &Mapper{applicantRepo: applicantRepo, companyRepo: companyRepo}
}

// MapAndInsert builds an applicant record from a fetched message and inserts
// it if no record for the same Gmail message exists yet. Returns the record
// id and whether a new row was written.
func (m *Mapper) MapAndInsert(ctx context.Context, msg *syncdomain.Message) (string, bool, error) {
	from := msg.Header("From")
	fromEmail := NormalizeEmailAddress(from)

	applicant := &applicantdomain.Applicant{
		ID:             uuid.NewString(),
		GmailMessageID: msg.ID,
		ThreadID:       msg.ThreadID,
		Name:           extractName(from, msg.Bodies.Text),
		Email:          fromEmail,
		Phone:          extractPhone(msg.Bodies.Text),
		Subject:        msg.Header("Subject"),
		Snippet:        msg.Snippet,
		BodyText:       msg.Bodies.Text,
		BodyHTML:       msg.Bodies.HTML,
		SiteKey:        InferSiteKey(fromEmail),
		ReceivedAt:     msg.ReceivedAt,
	}

	if companyID := m.matchCompany(ctx, msg); companyID != "" {
		applicant.CompanyID = &companyID
	}

	inserted, err := m.applicantRepo.InsertIfAbsent(ctx, applicant)
	if err != nil {
		return "", false, fmt.Errorf("failed to save applicant for message %s: %w", msg.ID, err)
	}
	return applicant.ID, inserted, nil
}

// matchCompany resolves the company whose application inbox received the
// message. Matching is best effort and never fails the insert.
func (m *Mapper) matchCompany(ctx context.Context, msg *syncdomain.Message) string {
	for _, header := range recipientHeaders {
		for _, candidate := range ParseEmailsFromHeader(msg.Header(header)) {
			company, err := m.companyRepo.FindByApplicationEmail(ctx, candidate)
			if err != nil {
				log.Printf("[Mapper] company lookup failed for %s: %v", candidate, err)
				continue
			}
			if company != nil {
				return company.ID
			}
		}
	}
	return ""
}

// NormalizeEmailAddress extracts the bare lowercase address from a header
// value like `"Taro Yamada" <taro@example.com>`.
func NormalizeEmailAddress(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if m := angleAddrRe.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	s = strings.Trim(s, "<>")
	s = quotedLocalRe.ReplaceAllString(s, "$1@")
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.TrimRight(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseEmailsFromHeader splits a comma-separated recipient header into
// normalized addresses, dropping anything empty.
func ParseEmailsFromHeader(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if addr := NormalizeEmailAddress(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// InferSiteKey guesses the job board a message came from by its sender
// address. Unknown senders count as direct applications.
func InferSiteKey(fromEmail string) string {
	s := strings.ToLower(strings.TrimSpace(fromEmail))
	switch {
	case strings.Contains(s, "indeed"):
		return "Indeed"
	case strings.Contains(s, "airwork"), strings.Contains(s, "air-work"), strings.Contains(s, "joboplite"):
		return "AirWork"
	case strings.Contains(s, "engage"), strings.Contains(s, "en-gage"):
		return "Engage"
	case strings.Contains(s, "jmty"), strings.Contains(s, "jimoty"):
		return "ジモティー"
	case strings.Contains(s, "saiyo-kakaricho"), strings.Contains(s, "saiyokakaricho"):
		return "採用係長"
	case strings.Contains(s, "kyujinbox"), strings.Contains(s, "kyujin-box"):
		return "求人ボックス"
	}
	return "Direct"
}

// extractName prefers the From display name, then a labeled name line in the
// plain-text body.
func extractName(fromHeader, bodyText string) string {
	display := fromHeader
	if idx := strings.Index(display, "<"); idx >= 0 {
		display = display[:idx]
	}
	display = strings.Trim(strings.TrimSpace(display), `"`)
	if display != "" && !strings.Contains(display, "@") {
		return display
	}

	if m := nameLineRe.FindStringSubmatch(bodyText); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractPhone(bodyText string) string {
	return phoneRe.FindString(bodyText)
}
