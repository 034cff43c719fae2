package quotation

import (
	"testing"

	"pizzeria-backoffice-api-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.QuotationStatus
		ok       bool
	}{
		{models.StatusDraft, models.StatusPending, true},
		{models.StatusDraft, models.StatusOrdered, false},
		{models.StatusPending, models.StatusQuoted, true},
		{models.StatusAwaiting, models.StatusAwaiting, true},
		{models.StatusQuoted, models.StatusOrdered, true},
		{models.StatusOrdered, models.StatusReceived, true},
		{models.StatusShipped, models.StatusCancelled, false},
		{models.StatusReceived, models.StatusReceived, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusPending, models.QuotationStatus("approved"), false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextStatuses_TerminalIsEmpty(t *testing.T) {
	assert.Empty(t, NextStatuses(models.StatusExpired))
	assert.Contains(t, NextStatuses(models.StatusQuoted), models.StatusOrdered)
}
