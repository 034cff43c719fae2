package quotation

import (
	"errors"

	"pizzeria-backoffice-api-server/internal/models"
)

var ErrIllegalTransition = errors.New("illegal status transition")

var transitions = map[models.QuotationStatus][]models.QuotationStatus{
	models.StatusDraft:    {models.StatusPending, models.StatusCancelled},
	models.StatusPending:  {models.StatusAwaiting, models.StatusQuoted, models.StatusCancelled, models.StatusExpired},
	models.StatusAwaiting: {models.StatusQuoted, models.StatusCancelled, models.StatusExpired},
	models.StatusQuoted:   {models.StatusAwaiting, models.StatusOrdered, models.StatusCancelled, models.StatusExpired},
	models.StatusOrdered:  {models.StatusShipped, models.StatusReceived, models.StatusCancelled},
	models.StatusShipped:  {models.StatusReceived},
}

// CanTransition cho phép giữ nguyên trạng thái khi chưa kết thúc,
// ví dụ nhà cung cấp gửi lại báo giá mới khi đang ở quoted.
func CanTransition(from, to models.QuotationStatus) bool {
	if !to.Valid() || from.Terminal() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses trả về các trạng thái có thể chuyển tới từ from.
func NextStatuses(from models.QuotationStatus) []models.QuotationStatus {
	next := transitions[from]
	out := make([]models.QuotationStatus, len(next))
	copy(out, next)
	return out
}
