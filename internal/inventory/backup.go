package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pizzeria-backoffice-api-server/internal/models"

	"github.com/xuri/excelize/v2"
)

const backupVersion = 2

// Backup là định dạng file sao lưu kho.
type Backup struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Items      []models.Product `json:"items"`
	Categories []string         `json:"categories"`
}

func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(Backup{
		Version:    backupVersion,
		ExportedAt: s.now().UTC(),
		Items:      snap.Items,
		Categories: snap.Categories,
	}, "", "  ")
}

// ImportJSON thay toàn bộ kho bằng nội dung file sao lưu.
func (s *Service) ImportJSON(ctx context.Context, data []byte) (*models.InventorySnapshot, error) {
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if b.Version < 1 || b.Version > backupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	seen := make(map[string]struct{}, len(b.Items))
	for _, p := range b.Items {
		if p.ProductID == "" || p.Name == "" {
			return nil, fmt.Errorf("%w: product without id or name", ErrInvalidBackup)
		}
		if _, dup := seen[p.ProductID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %s", ErrInvalidBackup, p.ProductID)
		}
		seen[p.ProductID] = struct{}{}
	}
	if b.Items == nil {
		b.Items = []models.Product{}
	}

	return s.update(ctx, func(snap *models.InventorySnapshot) error {
		snap.Items = b.Items
		snap.Categories = b.Categories
		return nil
	})
}

var xlsxHeaders = []string{"ProductID", "Name", "Category", "Unit", "CurrentStock", "MinStock", "UnitCost", "StockValue", "SupplierID"}

// ExportXLSX ghi bảng tồn kho ra file Excel.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Inventory"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for r, p := range snap.Items {
		row := r + 2
		values := []interface{}{p.ProductID, p.Name, p.Category, p.Unit, p.CurrentStock, p.MinStock, p.UnitCost, p.CurrentStock * p.UnitCost, p.SupplierID}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f.Write(w)
}
