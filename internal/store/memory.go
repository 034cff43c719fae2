package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pizzeria-backoffice-api-server/internal/models"
)

// Memory là store trong bộ nhớ, dùng cho test và chạy cục bộ không có MongoDB.
type Memory struct {
	mu         sync.RWMutex
	quotations map[string]models.Quotation
	order      []string
	audits     []models.AuditEntry
	suppliers  map[string]models.Supplier
	users      map[string]models.User
	inventory  *models.InventorySnapshot
}

func NewMemory() *Memory {
	return &Memory{
		quotations: make(map[string]models.Quotation),
		suppliers:  make(map[string]models.Supplier),
		users:      make(map[string]models.User),
	}
}

func cloneQuotation(q models.Quotation) models.Quotation {
	q.Items = append([]models.LineItem(nil), q.Items...)
	q.History = append([]models.HistoryEntry(nil), q.History...)
	if q.LastEmail != nil {
		email := *q.LastEmail
		q.LastEmail = &email
	}
	return q
}

func (m *Memory) Get(_ context.Context, quotationID string) (*models.Quotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotations[quotationID]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneQuotation(q)
	return &c, nil
}

func (m *Memory) Save(_ context.Context, q *models.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[q.QuotationID]; !ok {
		m.order = append(m.order, q.QuotationID)
	}
	m.quotations[q.QuotationID] = cloneQuotation(*q)
	return nil
}

func (m *Memory) List(_ context.Context, filter QuotationFilter) ([]models.Quotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.Quotation{}
	for _, id := range m.order {
		q := m.quotations[id]
		if !matchesFilter(q, filter) {
			continue
		}
		result = append(result, cloneQuotation(q))
	}
	// mới nhất trước, giống truy vấn Mongo
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesFilter(q models.Quotation, f QuotationFilter) bool {
	if f.SupplierID != "" && q.Supplier.SupplierID != f.SupplierID {
		return false
	}
	if !f.UpdatedBefore.IsZero() && !q.UpdatedAt.Before(f.UpdatedBefore) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if q.Status == s {
			return true
		}
	}
	return false
}

func (m *Memory) RecentBySupplier(ctx context.Context, supplierID string, limit int) ([]models.PricePoint, error) {
	quotations, err := m.List(ctx, QuotationFilter{
		Statuses:   pricedStatuses,
		SupplierID: supplierID,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return PricePointsFromQuotations(quotations), nil
}

func (m *Memory) Append(_ context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *Memory) ListByQuotation(_ context.Context, quotationID string) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := []models.AuditEntry{}
	for _, e := range m.audits {
		if e.QuotationID == quotationID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Suppliers trả về view SupplierStore của Memory (tránh trùng tên method Get/List).
func (m *Memory) Suppliers() SupplierStore { return memorySuppliers{m} }

type memorySuppliers struct{ m *Memory }

func (s memorySuppliers) Create(_ context.Context, sup *models.Supplier) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.suppliers[sup.SupplierID]; ok {
		return ErrDuplicate
	}
	s.m.suppliers[sup.SupplierID] = *sup
	return nil
}

func (s memorySuppliers) Get(_ context.Context, supplierID string) (*models.Supplier, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	sup, ok := s.m.suppliers[supplierID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sup, nil
}

func (s memorySuppliers) List(_ context.Context) ([]models.Supplier, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	list := make([]models.Supplier, 0, len(s.m.suppliers))
	for _, sup := range s.m.suppliers {
		list = append(list, sup)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s memorySuppliers) Update(_ context.Context, sup *models.Supplier) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.suppliers[sup.SupplierID]; !ok {
		return ErrNotFound
	}
	s.m.suppliers[sup.SupplierID] = *sup
	return nil
}

func (m *Memory) LoadInventory(_ context.Context) (*models.InventorySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.inventory == nil {
		return nil, ErrNotFound
	}
	snap := *m.inventory
	snap.Items = append([]models.Product(nil), m.inventory.Items...)
	snap.Categories = append([]string(nil), m.inventory.Categories...)
	return &snap, nil
}

func (m *Memory) SaveInventory(_ context.Context, snap *models.InventorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *snap
	c.Items = append([]models.Product(nil), snap.Items...)
	c.Categories = append([]string(nil), snap.Categories...)
	m.inventory = &c
	return nil
}

// PutUser thêm user (dùng trong test và seed cục bộ).
func (m *Memory) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Email)] = u
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
