// Package invoice đọc ảnh hóa đơn nhà cung cấp bằng Gemini và đối chiếu
// từng dòng với sản phẩm trong kho.
package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrUnsupportedImage = errors.New("unsupported invoice image type")

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type ImageStore interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, prompt, mimeType string, image []byte) (string, error)
}

type ProductSource interface {
	Snapshot(ctx context.Context) (*models.InventorySnapshot, error)
}

type Line struct {
	Description        string  `json:"description"`
	Quantity           float64 `json:"quantity"`
	Unit               string  `json:"unit"`
	UnitPrice          float64 `json:"unitPrice"`
	Total              float64 `json:"total"`
	MatchedProductID   string  `json:"matchedProductID,omitempty"`
	MatchedProductName string  `json:"matchedProductName,omitempty"`
	MatchScore         float64 `json:"matchScore"`
}

type Result struct {
	ImageURL      string   `json:"imageURL,omitempty"`
	SupplierName  string   `json:"supplierName"`
	InvoiceNumber string   `json:"invoiceNumber"`
	InvoiceDate   string   `json:"invoiceDate"`
	Currency      string   `json:"currency"`
	Total         float64  `json:"total"`
	Lines         []Line   `json:"lines"`
	AIExtracted   bool     `json:"aiExtracted"`
	Warnings      []string `json:"warnings"`
}

type Scanner struct {
	images   ImageStore
	ai       VisionGenerator
	products ProductSource
	logger   *zap.Logger
	now      func() time.Time
}

func NewScanner(images ImageStore, ai VisionGenerator, products ProductSource, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{images: images, ai: ai, products: products, logger: logger, now: time.Now}
}

const ocrPrompt = `You read supplier invoices for a pizzeria. Extract the invoice in this image.
Reply ONLY with JSON of this shape:
{"supplierName": "", "invoiceNumber": "", "invoiceDate": "YYYY-MM-DD", "currency": "EUR", "total": 0.0,
 "lines": [{"description": "", "quantity": 0.0, "unit": "", "unitPrice": 0.0, "total": 0.0}]}`

// Scan lưu ảnh lên S3 (nếu có), OCR bằng Gemini rồi đối chiếu với kho.
// Lỗi OCR không làm thất bại lượt quét: kết quả trả về kèm cảnh báo.
func (s *Scanner) Scan(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	ext, ok := allowedTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}

	res := &Result{Lines: []Line{}, Warnings: []string{}}

	if s.images != nil {
		key := path.Join("invoices", s.now().UTC().Format("2006/01"), uuid.New().String()+ext)
		url, err := s.images.UploadFile(ctx, bytes.NewReader(image), key, mimeType)
		if err != nil {
			s.logger.Warn("invoice.upload_failed", zap.Error(err))
			res.Warnings = append(res.Warnings, "image was not archived")
		} else {
			res.ImageURL = url
		}
	}

	text, err := s.ocr(ctx, image, mimeType)
	if err != nil {
		metrics.AIFallbacks.WithLabelValues("invoice_scanner").Inc()
		s.logger.Warn("invoice.ocr_failed", zap.Error(err))
		res.Warnings = append(res.Warnings, "text recognition unavailable")
		return res, nil
	}

	var extracted Result
	if err := gemini.DecodeJSON(text, &extracted, "lines"); err == nil {
		res.SupplierName = extracted.SupplierName
		res.InvoiceNumber = extracted.InvoiceNumber
		res.InvoiceDate = extracted.InvoiceDate
		res.Currency = extracted.Currency
		res.Total = extracted.Total
		res.Lines = extracted.Lines
		res.AIExtracted = true
	} else {
		metrics.AIFallbacks.WithLabelValues("invoice_scanner").Inc()
		res.Warnings = append(res.Warnings, "structured extraction failed, matched raw lines")
		res.Lines = rawLines(text)
	}

	if err := s.match(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Scanner) ocr(ctx context.Context, image []byte, mimeType string) (string, error) {
	if s.ai == nil {
		return "", gemini.ErrNotConfigured
	}
	return s.ai.GenerateFromImage(ctx, ocrPrompt, mimeType, image)
}

func rawLines(text string) []Line {
	lines := []Line{}
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, Line{Description: l})
	}
	return lines
}

// match gán sản phẩm kho cho từng dòng và bổ sung total còn thiếu.
func (s *Scanner) match(ctx context.Context, res *Result) error {
	var products []models.Product
	if s.products != nil {
		snap, err := s.products.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		products = snap.Items
	}

	sum := decimal.Zero
	for i := range res.Lines {
		line := &res.Lines[i]
		if line.Total == 0 && line.Quantity > 0 && line.UnitPrice > 0 {
			line.Total = decimal.NewFromFloat(line.Quantity).Mul(decimal.NewFromFloat(line.UnitPrice)).Round(2).InexactFloat64()
		}
		sum = sum.Add(decimal.NewFromFloat(line.Total))

		if p, score := bestMatch(line.Description, products); p != nil {
			line.MatchedProductID = p.ProductID
			line.MatchedProductName = p.Name
			line.MatchScore = decimal.NewFromFloat(score).Round(2).InexactFloat64()
		}
	}
	if res.Total == 0 {
		res.Total = sum.Round(2).InexactFloat64()
	}
	return nil
}
