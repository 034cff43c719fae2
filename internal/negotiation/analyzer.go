// Package negotiation phát hiện giá bất thường so với lịch sử của nhà cung cấp
// và gợi ý email đàm phán.
package negotiation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/models"

	"github.com/shopspring/decimal"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

const (
	flagThreshold   = 5.0
	mediumThreshold = 10.0
	highThreshold   = 15.0
)

type HistorySource interface {
	Recent(ctx context.Context, supplierID string) ([]models.PricePoint, error)
}

type NegotiationDrafter interface {
	Negotiation(ctx context.Context, q *models.Quotation, concerns []drafting.PriceConcern) models.EmailDraft
}

type Anomaly struct {
	ProductID        string  `json:"productID"`
	ProductName      string  `json:"productName"`
	Quantity         float64 `json:"quantity"`
	CurrentPrice     float64 `json:"currentPrice"`
	AveragePrice     float64 `json:"averagePrice"`
	StdDev           float64 `json:"stdDev"`
	SampleSize       int     `json:"sampleSize"`
	DeviationPercent float64 `json:"deviationPercent"`
	Severity         string  `json:"severity"`
	PotentialSaving  float64 `json:"potentialSaving"`
}

type Analysis struct {
	QuotationID      string    `json:"quotationID"`
	SupplierID       string    `json:"supplierID"`
	Anomalies        []Anomaly `json:"anomalies"`
	AnalyzedItems    int       `json:"analyzedItems"`
	SkippedItems     []string  `json:"skippedItems"`
	OpportunityScore int       `json:"opportunityScore"`
	PotentialSavings float64   `json:"potentialSavings"`
}

type Analyzer struct {
	history    HistorySource
	drafter    NegotiationDrafter
	minSamples int
}

func NewAnalyzer(history HistorySource, drafter NegotiationDrafter, minSamples int) *Analyzer {
	if minSamples <= 0 {
		minSamples = 3
	}
	return &Analyzer{history: history, drafter: drafter, minSamples: minSamples}
}

func productKey(productID, name string) string {
	if productID != "" {
		return "id:" + productID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(name))
}

// Analyze so sánh giá hiện tại (báo giá, nếu không có thì ước tính) với
// trung bình lịch sử. Điểm giá của chính báo giá này bị loại.
func (a *Analyzer) Analyze(ctx context.Context, q *models.Quotation, supplierID string) (*Analysis, error) {
	if supplierID == "" {
		supplierID = q.Supplier.SupplierID
	}
	points, err := a.history.Recent(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}

	byProduct := make(map[string][]float64)
	for _, p := range points {
		if p.QuotationID == q.QuotationID {
			continue
		}
		key := productKey(p.ProductID, p.ProductName)
		byProduct[key] = append(byProduct[key], p.UnitPrice)
	}

	result := &Analysis{
		QuotationID:  q.QuotationID,
		SupplierID:   supplierID,
		Anomalies:    []Anomaly{},
		SkippedItems: []string{},
	}
	savings := decimal.Zero
	var deviationSum float64
	high := 0

	for _, item := range q.Items {
		prices := byProduct[productKey(item.ProductID, item.ProductName)]
		current := item.EffectiveUnitPrice()
		if len(prices) < a.minSamples || current <= 0 {
			result.SkippedItems = append(result.SkippedItems, item.ProductName)
			continue
		}
		result.AnalyzedItems++

		mean, std := meanStdDev(prices)
		if mean <= 0 {
			continue
		}
		deviation := (current - mean) / mean * 100
		if deviation < flagThreshold {
			continue
		}

		saving := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(mean)).Mul(decimal.NewFromFloat(item.Quantity))
		savings = savings.Add(saving)
		deviationSum += deviation

		severity := severityOf(deviation)
		if severity == SeverityHigh {
			high++
		}
		result.Anomalies = append(result.Anomalies, Anomaly{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			CurrentPrice:     current,
			AveragePrice:     round2(mean),
			StdDev:           round2(std),
			SampleSize:       len(prices),
			DeviationPercent: round2(deviation),
			Severity:         severity,
			PotentialSaving:  saving.Round(2).InexactFloat64(),
		})
	}

	sort.SliceStable(result.Anomalies, func(i, j int) bool {
		return result.Anomalies[i].DeviationPercent > result.Anomalies[j].DeviationPercent
	})
	result.PotentialSavings = savings.Round(2).InexactFloat64()
	result.OpportunityScore = opportunityScore(deviationSum, len(result.Anomalies), high)
	return result, nil
}

func severityOf(deviation float64) string {
	switch {
	case deviation > highThreshold:
		return SeverityHigh
	case deviation > mediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// opportunityScore = min(100, round(avgDeviation*2 + count*10 + high*15)).
func opportunityScore(deviationSum float64, count, high int) int {
	if count == 0 {
		return 0
	}
	avg := deviationSum / float64(count)
	score := int(math.Round(avg*2 + float64(count)*10 + float64(high)*15))
	if score > 100 {
		return 100
	}
	return score
}

// meanStdDev trả về trung bình và độ lệch chuẩn tổng thể.
func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// DraftEmail soạn email đàm phán cho các giá bất thường.
func (a *Analyzer) DraftEmail(ctx context.Context, q *models.Quotation, analysis *Analysis) (models.EmailDraft, error) {
	if len(analysis.Anomalies) == 0 {
		return models.EmailDraft{}, ErrNothingToNegotiate
	}
	concerns := make([]drafting.PriceConcern, 0, len(analysis.Anomalies))
	for _, an := range analysis.Anomalies {
		concerns = append(concerns, drafting.PriceConcern{
			ProductName:      an.ProductName,
			CurrentPrice:     an.CurrentPrice,
			AveragePrice:     an.AveragePrice,
			DeviationPercent: an.DeviationPercent,
		})
	}
	return a.drafter.Negotiation(ctx, q, concerns), nil
}
