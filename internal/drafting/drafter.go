// Package drafting soạn email gửi nhà cung cấp bằng Gemini, với template dự phòng.
package drafting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"

	"go.uber.org/zap"
)

const (
	KindRequest      = "request"
	KindConfirmation = "confirmation"
	KindFollowUp     = "follow_up"
	KindNegotiation  = "negotiation"
)

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// PriceConcern là một dòng giá cao bất thường cần đàm phán.
type PriceConcern struct {
	ProductName      string
	CurrentPrice     float64
	AveragePrice     float64
	DeviationPercent float64
}

type Drafter struct {
	ai          TextGenerator
	companyName string
	logger      *zap.Logger
	now         func() time.Time
}

func NewDrafter(ai TextGenerator, companyName string, logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafter{ai: ai, companyName: companyName, logger: logger, now: time.Now}
}

type aiEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (d *Drafter) QuotationRequest(ctx context.Context, q *models.Quotation) models.EmailDraft {
	prompt := fmt.Sprintf(`You write professional purchasing emails for %s, a pizzeria.
Write an email to %s asking for a price quotation for the items below.
Ask for unit price, availability and delivery date for each item.
Items:
%s
Reply ONLY with JSON: {"subject": "...", "body": "..."}`,
		d.companyName, q.Supplier.Name, itemList(q.Items, false))
	return d.draft(ctx, KindRequest, prompt, func() (string, string) { return requestTemplate(d.companyName, q) })
}

func (d *Drafter) OrderConfirmation(ctx context.Context, q *models.Quotation) models.EmailDraft {
	prompt := fmt.Sprintf(`You write professional purchasing emails for %s, a pizzeria.
Write an email to %s confirming an order for the quoted items below at the quoted prices.
Items:
%s
Total: %.2f
Reply ONLY with JSON: {"subject": "...", "body": "..."}`,
		d.companyName, q.Supplier.Name, itemList(q.Items, true), quotedOrEstimated(q))
	return d.draft(ctx, KindConfirmation, prompt, func() (string, string) { return confirmationTemplate(d.companyName, q) })
}

func (d *Drafter) FollowUp(ctx context.Context, q *models.Quotation) models.EmailDraft {
	days := int(d.now().Sub(q.UpdatedAt).Hours() / 24)
	prompt := fmt.Sprintf(`You write professional purchasing emails for %s, a pizzeria.
Write a polite follow-up email to %s about quotation %s sent %d days ago that has not been answered yet.
Items:
%s
Reply ONLY with JSON: {"subject": "...", "body": "..."}`,
		d.companyName, q.Supplier.Name, q.QuotationID, days, itemList(q.Items, false))
	return d.draft(ctx, KindFollowUp, prompt, func() (string, string) { return followUpTemplate(d.companyName, q) })
}

func (d *Drafter) Negotiation(ctx context.Context, q *models.Quotation, concerns []PriceConcern) models.EmailDraft {
	var lines strings.Builder
	for _, c := range concerns {
		fmt.Fprintf(&lines, "- %s: quoted %.2f, our historical average %.2f (+%.1f%%)\n",
			c.ProductName, c.CurrentPrice, c.AveragePrice, c.DeviationPercent)
	}
	prompt := fmt.Sprintf(`You write professional purchasing emails for %s, a pizzeria.
Write a courteous but firm email to %s asking to revise the prices below, which are above what we usually pay them.
%s
Reply ONLY with JSON: {"subject": "...", "body": "..."}`,
		d.companyName, q.Supplier.Name, lines.String())
	return d.draft(ctx, KindNegotiation, prompt, func() (string, string) { return negotiationTemplate(d.companyName, q, concerns) })
}

// draft gọi AI; mọi lỗi đều rơi về template, không bao giờ trả lỗi.
func (d *Drafter) draft(ctx context.Context, kind, prompt string, fallback func() (string, string)) models.EmailDraft {
	email := models.EmailDraft{Kind: kind, CreatedAt: d.now().UTC()}

	if d.ai != nil {
		text, err := d.ai.GenerateText(ctx, prompt)
		if err == nil {
			var out aiEmail
			if err = gemini.DecodeJSON(text, &out, "subject", "body"); err == nil && out.Body != "" {
				email.Subject = out.Subject
				email.Body = out.Body
				email.AIGenerated = true
				return email
			}
		}
		d.logger.Warn("drafting.ai_fallback", zap.String("kind", kind), zap.Error(err))
	}

	metrics.AIFallbacks.WithLabelValues("drafting").Inc()
	email.Subject, email.Body = fallback()
	return email
}

func quotedOrEstimated(q *models.Quotation) float64 {
	if q.QuotedTotal != nil {
		return *q.QuotedTotal
	}
	return q.EstimatedTotal
}

func itemList(items []models.LineItem, withPrice bool) string {
	var sb strings.Builder
	for _, item := range items {
		if withPrice {
			fmt.Fprintf(&sb, "- %s: %g %s x %.2f\n", item.ProductName, item.Quantity, item.Unit, item.EffectiveUnitPrice())
		} else {
			fmt.Fprintf(&sb, "- %s: %g %s\n", item.ProductName, item.Quantity, item.Unit)
		}
	}
	return sb.String()
}
