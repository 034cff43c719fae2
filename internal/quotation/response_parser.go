package quotation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/models"

	"go.uber.org/zap"
)

var ErrParserUnavailable = errors.New("response parser has no AI backend")

// ResponseItem là một dòng giá do AI trích xuất từ email nhà cung cấp.
type ResponseItem struct {
	Name      string   `json:"name"`
	UnitPrice *float64 `json:"unitPrice"`
	Available *bool    `json:"available"`
	Notes     string   `json:"notes"`
}

type SupplierResponse struct {
	Items         []ResponseItem `json:"items"`
	DeliveryDate  string         `json:"deliveryDate"`
	DeliveryTerms string         `json:"deliveryTerms"`
	PaymentTerms  string         `json:"paymentTerms"`
	Notes         string         `json:"notes"`
}

type ResponseParser struct {
	ai     drafting.TextGenerator
	logger *zap.Logger
}

func NewResponseParser(ai drafting.TextGenerator, logger *zap.Logger) *ResponseParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseParser{ai: ai, logger: logger}
}

const parsePrompt = `You extract pricing information from supplier emails for a pizzeria.
The quotation asked for these items:
%s
Supplier email:
"""
%s
"""
Reply ONLY with a JSON object of this shape:
{"items": [{"name": "item name as requested", "unitPrice": 0.0, "available": true, "notes": ""}],
 "deliveryDate": "YYYY-MM-DD or empty", "deliveryTerms": "", "paymentTerms": "", "notes": ""}
Use null for unitPrice when the email gives no price for an item.`

// Parse gửi email và danh sách mặt hàng cho AI rồi giải mã JSON trả về.
func (p *ResponseParser) Parse(ctx context.Context, email string, itemNames []string) (*SupplierResponse, error) {
	if p.ai == nil {
		return nil, ErrParserUnavailable
	}
	var names strings.Builder
	for _, name := range itemNames {
		fmt.Fprintf(&names, "- %s\n", name)
	}

	text, err := p.ai.GenerateText(ctx, fmt.Sprintf(parsePrompt, names.String(), email))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	var resp SupplierResponse
	if err := gemini.DecodeJSON(text, &resp, "items"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// namesMatch so khớp không phân biệt hoa thường, chứa nhau theo cả hai chiều.
func namesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// ApplyResponse gán giá/tình trạng cho từng dòng theo mục khớp đầu tiên
// trong phản hồi, rồi tính lại tổng. Trả về số dòng đã khớp.
func ApplyResponse(q *models.Quotation, resp *SupplierResponse) int {
	matched := 0
	for i := range q.Items {
		item := &q.Items[i]
		for _, r := range resp.Items {
			if !namesMatch(item.ProductName, r.Name) {
				continue
			}
			if r.UnitPrice != nil {
				price := *r.UnitPrice
				item.QuotedUnitPrice = &price
			}
			if r.Available != nil {
				available := *r.Available
				item.QuotedAvailability = &available
			}
			if r.Notes != "" {
				item.Notes = r.Notes
			}
			matched++
			break
		}
	}
	q.RecalculateTotals()
	return matched
}
