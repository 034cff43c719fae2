package negotiation

import (
	"context"
	"testing"

	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHistory []models.PricePoint

func (s staticHistory) Recent(context.Context, string) ([]models.PricePoint, error) {
	return s, nil
}

func points(productID string, prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(prices))
	for i, p := range prices {
		out = append(out, models.PricePoint{
			SupplierID:  "SUP-1",
			QuotationID: "QUO-OLD" + string(rune('A'+i)),
			ProductID:   productID,
			UnitPrice:   p,
		})
	}
	return out
}

func quotedAt(v float64) *float64 { return &v }

func TestAnalyze_FlagsHighDeviation(t *testing.T) {
	history := staticHistory(points("P1", 10, 10, 11))
	a := NewAnalyzer(history, nil, 3)

	q := &models.Quotation{
		QuotationID: "QUO-NEW",
		Supplier:    models.SupplierRef{SupplierID: "SUP-1"},
		Items: []models.LineItem{
			{ProductID: "P1", ProductName: "Mozzarella", Quantity: 5, EstimatedUnitPrice: 9, QuotedUnitPrice: quotedAt(12)},
		},
	}
	res, err := a.Analyze(context.Background(), q, "")
	require.NoError(t, err)

	require.Len(t, res.Anomalies, 1)
	an := res.Anomalies[0]
	assert.Equal(t, SeverityHigh, an.Severity)
	assert.InDelta(t, 16.13, an.DeviationPercent, 0.01)
	assert.Equal(t, 10.33, an.AveragePrice)
	assert.Equal(t, 3, an.SampleSize)
	assert.Equal(t, 57, res.OpportunityScore)
	assert.Equal(t, 8.33, res.PotentialSavings)
	assert.Equal(t, 1, res.AnalyzedItems)
}

func TestAnalyze_SkipsThinHistoryAndSmallDeviation(t *testing.T) {
	var history staticHistory
	history = append(history, points("P1", 10, 10)...)
	history = append(history, points("P2", 2, 2, 2)...)
	a := NewAnalyzer(history, nil, 3)

	q := &models.Quotation{QuotationID: "QUO-NEW", Items: []models.LineItem{
		{ProductID: "P1", ProductName: "Mozzarella", Quantity: 1, EstimatedUnitPrice: 20},
		{ProductID: "P2", ProductName: "Farina", Quantity: 1, EstimatedUnitPrice: 2.09},
	}}
	res, err := a.Analyze(context.Background(), q, "SUP-1")
	require.NoError(t, err)

	assert.Empty(t, res.Anomalies)
	assert.Equal(t, []string{"Mozzarella"}, res.SkippedItems)
	assert.Equal(t, 0, res.OpportunityScore)
}

func TestAnalyze_ExcludesOwnQuotation(t *testing.T) {
	history := staticHistory(points("P1", 10, 10))
	history = append(history, models.PricePoint{ProductID: "P1", QuotationID: "QUO-NEW", UnitPrice: 12})
	a := NewAnalyzer(history, nil, 3)

	q := &models.Quotation{QuotationID: "QUO-NEW", Items: []models.LineItem{
		{ProductID: "P1", ProductName: "Mozzarella", Quantity: 1, QuotedUnitPrice: quotedAt(12)},
	}}
	res, err := a.Analyze(context.Background(), q, "SUP-1")
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
	assert.Equal(t, []string{"Mozzarella"}, res.SkippedItems)
}

func TestSeverityAndScore(t *testing.T) {
	assert.Equal(t, SeverityLow, severityOf(5))
	assert.Equal(t, SeverityLow, severityOf(10))
	assert.Equal(t, SeverityMedium, severityOf(12))
	assert.Equal(t, SeverityHigh, severityOf(15.5))
	assert.Equal(t, 100, opportunityScore(200, 4, 4))
}

func TestDraftEmail(t *testing.T) {
	a := NewAnalyzer(staticHistory(nil), drafting.NewDrafter(nil, "Pizzeria Test", nil), 3)
	q := &models.Quotation{QuotationID: "QUO-NEW"}

	_, err := a.DraftEmail(context.Background(), q, &Analysis{})
	assert.ErrorIs(t, err, ErrNothingToNegotiate)

	email, err := a.DraftEmail(context.Background(), q, &Analysis{Anomalies: []Anomaly{
		{ProductName: "Mozzarella", CurrentPrice: 12, AveragePrice: 10.33, DeviationPercent: 16.13},
	}})
	require.NoError(t, err)
	assert.Equal(t, drafting.KindNegotiation, email.Kind)
	assert.Contains(t, email.Body, "Mozzarella")
}
