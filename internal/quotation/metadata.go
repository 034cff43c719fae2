package quotation

import (
	"fmt"
	"time"

	"pizzeria-backoffice-api-server/internal/models"
)

// mergeMetadata chép các trường được nhận diện từ metadata vào báo giá.
// Các khóa khác chỉ được lưu trong history.
func mergeMetadata(q *models.Quotation, metadata map[string]interface{}) error {
	for key, value := range metadata {
		switch key {
		case "deliveryDate":
			t, err := parseDate(value)
			if err != nil {
				return fmt.Errorf("%w: deliveryDate: %v", ErrInvalidQuotation, err)
			}
			q.DeliveryDate = t
		case "deliveryTerms":
			if s, ok := value.(string); ok {
				q.DeliveryTerms = s
			}
		case "paymentTerms":
			if s, ok := value.(string); ok {
				q.PaymentTerms = s
			}
		case "supplierNotes":
			if s, ok := value.(string); ok {
				q.SupplierNotes = s
			}
		case "needsManualReview":
			if b, ok := value.(bool); ok {
				q.NeedsManualReview = b
			}
		}
	}
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v.UTC()
		return &t, nil
	case *time.Time:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		return nil, fmt.Errorf("unrecognised date %q", v)
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
