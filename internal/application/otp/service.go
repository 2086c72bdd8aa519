package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"sort"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
)

const (
	recentWindow = 24 * time.Hour
	recentLimit  = 50
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

// Store is the persistence the OTP lifecycle needs.
type Store interface {
	Get(ctx context.Context, tripleKey string) (*domain.OTP, error)
	PutIfInactive(ctx context.Context, o *domain.OTP, now time.Time) error
	FindUnused(ctx context.Context, pickupID, shopkeeper, code string) (*domain.OTP, error)
	MarkUsed(ctx context.Context, tripleKey, code string, usedAt time.Time) error
	ListByPickup(ctx context.Context, pickupID string) ([]domain.OTP, error)
	Scan(ctx context.Context) ([]domain.OTP, error)
	DeleteGeneratedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Service interface {
	Generate(ctx context.Context, req domain.GenerateOTPRequest) (*domain.GeneratedOTP, error)
	Verify(ctx context.Context, req domain.VerifyOTPRequest) (*domain.VerifiedOTP, error)
	Details(ctx context.Context, pickupID, userAddress string) (*domain.OTPDetails, error)
	Stats(ctx context.Context) (*domain.OTPStats, error)
	Cleanup(ctx context.Context) (int, error)
}

type ServiceDeps struct {
	Store Store
	// Now and NewCode default to the wall clock and a crypto/rand code.
	Now     func() time.Time
	NewCode func() (string, error)
}

type service struct {
	store   Store
	now     func() time.Time
	newCode func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{store: deps.Store, now: deps.Now, newCode: deps.NewCode}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = randomCode
	}
	return s
}

// randomCode draws uniformly from [100000, 999999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func (s *service) Generate(ctx context.Context, req domain.GenerateOTPRequest) (*domain.GeneratedOTP, error) {
	if req.PickupID == "" || req.DeliveryAgentAddress == "" || req.ShopkeeperAddress == "" {
		return nil, fmt.Errorf("pickupId, deliveryAgentAddress and shopkeeperAddress are required: %w", domain.ErrMissingField)
	}
	agent, err := address.Normalize(req.DeliveryAgentAddress)
	if err != nil {
		return nil, fmt.Errorf("deliveryAgentAddress: %w", err)
	}
	shopkeeper, err := address.Normalize(req.ShopkeeperAddress)
	if err != nil {
		return nil, fmt.Errorf("shopkeeperAddress: %w", err)
	}
	key := domain.OTPTripleKey(req.PickupID, agent, shopkeeper)
	now := s.now().UTC()

	existing, err := s.store.Get(ctx, key)
	switch {
	case err == nil && existing.Active(now):
		return generated(existing, now), nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}
	o := &domain.OTP{
		TripleKey:            key,
		PickupID:             req.PickupID,
		DeliveryAgentAddress: agent,
		ShopkeeperAddress:    shopkeeper,
		Code:                 code,
		GeneratedAt:          now,
		ExpiresAt:            now.Add(domain.OTPValidity).Unix(),
	}
	if d := req.DeliveryDetails; d != nil {
		o.DeliveryLocation = d.Location
		o.RationAmount = d.RationAmount
		o.Category = d.Category
	}

	for attempt := 0; ; attempt++ {
		err := s.store.PutIfInactive(ctx, o, now)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		// a concurrent request stored a code first; hand back the winner
		// while it is still valid, otherwise replace it once more
		winner, gerr := s.store.Get(ctx, key)
		if gerr != nil {
			return nil, gerr
		}
		if winner.Active(now) {
			return generated(winner, now), nil
		}
		if attempt == 1 {
			return nil, fmt.Errorf("otp for pickup %s: %w", req.PickupID, err)
		}
	}

	slog.Info("otp generated", "pickup_id", req.PickupID, "delivery_agent", agent, "shopkeeper", shopkeeper)
	return generated(o, now), nil
}

func generated(o *domain.OTP, now time.Time) *domain.GeneratedOTP {
	return &domain.GeneratedOTP{
		PickupID:      o.PickupID,
		OTPCode:       o.Code,
		ExpiresAt:     o.GeneratedAt.Add(domain.OTPValidity),
		RemainingTime: int(o.Remaining(now).Seconds()),
	}
}

func (s *service) Verify(ctx context.Context, req domain.VerifyOTPRequest) (*domain.VerifiedOTP, error) {
	if req.PickupID == "" || req.ShopkeeperAddress == "" || req.OTPCode == "" {
		return nil, fmt.Errorf("pickupId, shopkeeperAddress and otpCode are required: %w", domain.ErrMissingField)
	}
	if !sixDigits.MatchString(req.OTPCode) {
		return nil, fmt.Errorf("otp must be exactly 6 digits: %w", domain.ErrInvalidFormat)
	}
	shopkeeper, err := address.Normalize(req.ShopkeeperAddress)
	if err != nil {
		return nil, fmt.Errorf("shopkeeperAddress: %w", err)
	}

	o, err := s.store.FindUnused(ctx, req.PickupID, shopkeeper, req.OTPCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid otp or otp already used: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	now := s.now().UTC()
	if o.Expired(now) {
		return nil, fmt.Errorf("otp has expired, generate a new one: %w", domain.ErrExpired)
	}
	if err := s.store.MarkUsed(ctx, o.TripleKey, req.OTPCode, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid otp or otp already used: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	slog.Info("otp verified", "pickup_id", o.PickupID, "shopkeeper", shopkeeper)
	return &domain.VerifiedOTP{
		PickupID:             o.PickupID,
		DeliveryAgentAddress: o.DeliveryAgentAddress,
		ShopkeeperAddress:    o.ShopkeeperAddress,
		VerifiedAt:           now,
		DeliveryDetails: domain.DeliveryContext{
			Location:     o.DeliveryLocation,
			RationAmount: o.RationAmount,
			Category:     o.Category,
		},
	}, nil
}

// Details returns the newest code for pickupID in which userAddress takes part.
func (s *service) Details(ctx context.Context, pickupID, userAddress string) (*domain.OTPDetails, error) {
	if pickupID == "" || userAddress == "" {
		return nil, fmt.Errorf("pickupId and userAddress are required: %w", domain.ErrMissingField)
	}
	user, err := address.Normalize(userAddress)
	if err != nil {
		return nil, fmt.Errorf("userAddress: %w", err)
	}
	otps, err := s.store.ListByPickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	var newest *domain.OTP
	for i := range otps {
		o := &otps[i]
		if o.DeliveryAgentAddress != user && o.ShopkeeperAddress != user {
			continue
		}
		if newest == nil || o.GeneratedAt.After(newest.GeneratedAt) {
			newest = o
		}
	}
	if newest == nil {
		return nil, fmt.Errorf("no otp found for this pickup: %w", domain.ErrNotFound)
	}
	d := details(newest, s.now().UTC())
	return &d, nil
}

func details(o *domain.OTP, now time.Time) domain.OTPDetails {
	return domain.OTPDetails{
		PickupID:             o.PickupID,
		DeliveryAgentAddress: o.DeliveryAgentAddress,
		ShopkeeperAddress:    o.ShopkeeperAddress,
		GeneratedAt:          o.GeneratedAt,
		ExpiresAt:            o.GeneratedAt.Add(domain.OTPValidity),
		IsUsed:               o.IsUsed,
		UsedAt:               o.UsedAt,
		IsExpired:            o.Expired(now),
		RemainingTime:        int(o.Remaining(now).Seconds()),
	}
}

func (s *service) Stats(ctx context.Context) (*domain.OTPStats, error) {
	otps, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	stats := &domain.OTPStats{Total: len(otps), Recent: []domain.OTPDetails{}}
	var recent []domain.OTP
	for _, o := range otps {
		switch {
		case o.IsUsed:
			stats.Used++
		case o.Expired(now):
			stats.Expired++
		default:
			stats.Active++
		}
		if now.Sub(o.GeneratedAt) <= recentWindow {
			recent = append(recent, o)
		}
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].GeneratedAt.After(recent[j].GeneratedAt) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	for i := range recent {
		stats.Recent = append(stats.Recent, details(&recent[i], now))
	}
	return stats, nil
}

// Cleanup removes every code generated more than OTPValidity ago.
func (s *service) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-domain.OTPValidity)
	n, err := s.store.DeleteGeneratedBefore(ctx, cutoff)
	if err != nil {
		return n, err
	}
	slog.Info("expired otps cleaned up", "deleted", n)
	return n, nil
}
