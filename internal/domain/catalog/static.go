package catalog

import (
	"context"
	"sync"

	"tillpoint/internal/core/id"
)

// Static is an in-memory Reader. It backs the memory storage mode and tests.
type Static struct {
	mu        sync.RWMutex
	variants  map[id.ID]SystemVariant
	products  map[id.ID]CompanyProduct
	services  map[id.ID]string
	customers map[id.ID]string
}

var _ Reader = (*Static)(nil)

// NewStatic creates an empty static catalog.
func NewStatic() *Static {
	return &Static{
		variants:  make(map[id.ID]SystemVariant),
		products:  make(map[id.ID]CompanyProduct),
		services:  make(map[id.ID]string),
		customers: make(map[id.ID]string),
	}
}

func (s *Static) PutSystemVariant(v SystemVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = v
}

func (s *Static) PutCompanyProduct(p CompanyProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Static) PutService(serviceID id.ID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[serviceID] = name
}

func (s *Static) PutCustomer(userID id.ID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[userID] = name
}

func (s *Static) SystemVariant(_ context.Context, systemVariantID id.ID) (SystemVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[systemVariantID]
	if !ok {
		return SystemVariant{}, ErrNotFound
	}
	return v, nil
}

func (s *Static) CompanyProduct(_ context.Context, companyProductID id.ID) (CompanyProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[companyProductID]
	if !ok {
		return CompanyProduct{}, ErrNotFound
	}
	return p, nil
}

func (s *Static) ServiceName(_ context.Context, serviceID id.ID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.services[serviceID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (s *Static) CustomerName(_ context.Context, userID id.ID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.customers[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}
