package allocation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"github.com/grainlyyy/pds-api/internal/pkg/id"
)

type Store interface {
	Put(ctx context.Context, a *domain.Allocation) error
	List(ctx context.Context, status string) ([]domain.Allocation, error)
	Update(ctx context.Context, allocationID string, updates map[string]interface{}) (*domain.Allocation, error)
	Delete(ctx context.Context, allocationID string) error
}

type Service interface {
	Create(ctx context.Context, req domain.CreateAllocationRequest) (*domain.Allocation, error)
	List(ctx context.Context, f domain.AllocationFilter) ([]domain.Allocation, error)
	Update(ctx context.Context, allocationID string, req domain.UpdateAllocationRequest) (*domain.Allocation, error)
	Delete(ctx context.Context, allocationID string) error
}

type service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{store: store, now: now}
}

func (s *service) Create(ctx context.Context, req domain.CreateAllocationRequest) (*domain.Allocation, error) {
	shop, err := address.Normalize(req.Shopkeeper.Address)
	if err != nil {
		return nil, fmt.Errorf("shopkeeper: %w", err)
	}
	rider, err := address.Normalize(req.DeliveryRider.Address)
	if err != nil {
		return nil, fmt.Errorf("deliveryRider: %w", err)
	}
	status := req.Status
	if status == "" {
		status = domain.AllocationActive
	}
	if !validStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}
	now := s.now().UTC()
	a := &domain.Allocation{
		AllocationID:      id.New(),
		ShopkeeperName:    strings.TrimSpace(req.Shopkeeper.Name),
		ShopkeeperAddress: shop,
		RiderName:         strings.TrimSpace(req.DeliveryRider.Name),
		RiderAddress:      rider,
		AllocationDate:    now,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List filters by status in the store and by shopkeeper/rider name in memory
// (case-insensitive substring).
func (s *service) List(ctx context.Context, f domain.AllocationFilter) ([]domain.Allocation, error) {
	if f.Status != "" && !validStatus(domain.AllocationStatus(f.Status)) {
		return nil, fmt.Errorf("unknown status %q: %w", f.Status, domain.ErrBadRequest)
	}
	items, err := s.store.List(ctx, f.Status)
	if err != nil {
		return nil, err
	}
	shop := strings.ToLower(strings.TrimSpace(f.Shopkeeper))
	rider := strings.ToLower(strings.TrimSpace(f.Rider))
	out := items[:0]
	for _, a := range items {
		if shop != "" && !strings.Contains(strings.ToLower(a.ShopkeeperName), shop) {
			continue
		}
		if rider != "" && !strings.Contains(strings.ToLower(a.RiderName), rider) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AllocationDate.After(out[j].AllocationDate) })
	return out, nil
}

func (s *service) Update(ctx context.Context, allocationID string, req domain.UpdateAllocationRequest) (*domain.Allocation, error) {
	updates := map[string]interface{}{}
	if req.ShopkeeperName != nil {
		updates["shopkeeper_name"] = strings.TrimSpace(*req.ShopkeeperName)
	}
	if req.RiderName != nil {
		updates["rider_name"] = strings.TrimSpace(*req.RiderName)
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, fmt.Errorf("unknown status %q: %w", *req.Status, domain.ErrBadRequest)
		}
		updates["status"] = string(*req.Status)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	return s.store.Update(ctx, allocationID, updates)
}

func (s *service) Delete(ctx context.Context, allocationID string) error {
	return s.store.Delete(ctx, allocationID)
}

func validStatus(st domain.AllocationStatus) bool {
	switch st {
	case domain.AllocationActive, domain.AllocationInactive, domain.AllocationSuspended:
		return true
	}
	return false
}
