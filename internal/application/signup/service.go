package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"github.com/grainlyyy/pds-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Chain is the contract surface used by approvals and reconciliation.
type Chain interface {
	ShopkeeperInfo(ctx context.Context, wallet string) (*domain.ShopkeeperRecord, error)
	DeliveryAgentInfo(ctx context.Context, wallet string) (*domain.DeliveryAgentRecord, error)
	RegisterShopkeeper(ctx context.Context, wallet, name, area string) (*domain.TxResult, error)
	RegisterDeliveryAgent(ctx context.Context, wallet, name, mobile string) (*domain.TxResult, error)
	AssignDeliveryAgentToShopkeeper(ctx context.Context, agent, shopkeeper string) (*domain.TxResult, error)
	RegisterConsumer(ctx context.Context, aadhaar, name, mobile, category, shopkeeper string) (*domain.TxResult, error)
	CategoryStats(ctx context.Context) ([]domain.CategoryStat, error)
}

type ConsumerStore interface {
	Create(ctx context.Context, s *domain.ConsumerSignup) error
	Get(ctx context.Context, id string) (*domain.ConsumerSignup, error)
	ListByStatus(ctx context.Context, status string) ([]domain.ConsumerSignup, error)
	Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.ConsumerSignup, error)
	GetByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error)
	GetByRationCard(ctx context.Context, rationCardID string) (*domain.ConsumerSignup, error)
}

type DeliveryStore interface {
	Create(ctx context.Context, s *domain.DeliverySignup) error
	Get(ctx context.Context, id string) (*domain.DeliverySignup, error)
	ListByStatus(ctx context.Context, status string) ([]domain.DeliverySignup, error)
	Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.DeliverySignup, error)
	GetByWallet(ctx context.Context, wallet string) (*domain.DeliverySignup, error)
	GetByLicense(ctx context.Context, license string) (*domain.DeliverySignup, error)
}

type ShopkeeperStore interface {
	Create(ctx context.Context, s *domain.ShopkeeperSignup) error
	Get(ctx context.Context, id string) (*domain.ShopkeeperSignup, error)
	ListByStatus(ctx context.Context, status string) ([]domain.ShopkeeperSignup, error)
	Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.ShopkeeperSignup, error)
	GetByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error)
}

// Notifier stores an in-app notification for a wallet holder.
type Notifier interface {
	Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

// ListQuery selects a page of one queue. Status "" means pending; "all" lists every status.
type ListQuery struct {
	Status string
	Page   int
	Limit  int
}

type Service interface {
	SubmitConsumer(ctx context.Context, req domain.ConsumerSignupRequest) (*domain.ConsumerSignup, error)
	SubmitDelivery(ctx context.Context, req domain.DeliverySignupRequest) (*domain.DeliverySignup, error)
	SubmitShopkeeper(ctx context.Context, req domain.ShopkeeperSignupRequest) (*domain.ShopkeeperSignup, error)

	ListConsumers(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.ConsumerSignup], error)
	ListDelivery(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.DeliverySignup], error)
	ListShopkeepers(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.ShopkeeperSignup], error)

	GetConsumer(ctx context.Context, id string) (*domain.ConsumerSignup, error)
	GetDelivery(ctx context.Context, id string) (*domain.DeliverySignup, error)
	GetShopkeeper(ctx context.Context, id string) (*domain.ShopkeeperSignup, error)

	ReviewConsumer(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.ConsumerSignup, error)
	ReviewDelivery(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.DeliverySignup, error)
	ReviewShopkeeper(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.ShopkeeperSignup, error)

	Reconcile(ctx context.Context) (*ReconcileReport, error)

	Categories(ctx context.Context) (*domain.CategoryList, error)
}

// ServiceDeps wires the signup service. Notifier, SMS and Mailer are optional.
type ServiceDeps struct {
	Consumers   ConsumerStore
	Delivery    DeliveryStore
	Shopkeepers ShopkeeperStore
	Chain       Chain
	Notifier    Notifier
	SMS         SMSSender
	Mailer      Mailer
	AdminEmail  string
	Now         func() time.Time
}

type service struct {
	consumers   ConsumerStore
	delivery    DeliveryStore
	shopkeepers ShopkeeperStore
	chain       Chain
	notifier    Notifier
	sms         SMSSender
	mailer      Mailer
	adminEmail  string
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		consumers:   deps.Consumers,
		delivery:    deps.Delivery,
		shopkeepers: deps.Shopkeepers,
		chain:       deps.Chain,
		notifier:    deps.Notifier,
		sms:         deps.SMS,
		mailer:      deps.Mailer,
		adminEmail:  deps.AdminEmail,
		now:         deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ── Submission ────────────────────────────────────────────────────────────────

func (s *service) SubmitConsumer(ctx context.Context, req domain.ConsumerSignupRequest) (*domain.ConsumerSignup, error) {
	if err := unused(s.consumers.GetByAadhaar(ctx, req.AadharNumber)); err != nil {
		return nil, fmt.Errorf("aadhaar number already registered: %w", err)
	}
	if err := unused(s.consumers.GetByRationCard(ctx, req.RationCardID)); err != nil {
		return nil, fmt.Errorf("ration card already registered: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	rec := &domain.ConsumerSignup{
		ID:           id.New(),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		HomeAddress:  strings.TrimSpace(req.HomeAddress),
		RationCardID: req.RationCardID,
		AadharNumber: req.AadharNumber,
		PINHash:      string(hash),
		Status:       domain.SignupPending,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.consumers.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.alertAdmin(domain.SignupConsumer, rec.ID, rec.Name)
	return rec, nil
}

func (s *service) SubmitDelivery(ctx context.Context, req domain.DeliverySignupRequest) (*domain.DeliverySignup, error) {
	wallet, err := address.Normalize(req.WalletAddress)
	if err != nil {
		return nil, err
	}
	if err := unused(s.delivery.GetByWallet(ctx, wallet)); err != nil {
		return nil, fmt.Errorf("wallet address already registered: %w", err)
	}
	if err := unused(s.delivery.GetByLicense(ctx, req.LicenseNumber)); err != nil {
		return nil, fmt.Errorf("license number already registered: %w", err)
	}
	rec := &domain.DeliverySignup{
		ID:            id.New(),
		Name:          strings.TrimSpace(req.Name),
		Phone:         req.Phone,
		Address:       strings.TrimSpace(req.Address),
		VehicleType:   req.VehicleType,
		LicenseNumber: req.LicenseNumber,
		WalletAddress: wallet,
		Status:        domain.SignupPending,
		SubmittedAt:   s.now().UTC(),
	}
	if err := s.delivery.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.alertAdmin(domain.SignupDelivery, rec.ID, rec.Name)
	return rec, nil
}

func (s *service) SubmitShopkeeper(ctx context.Context, req domain.ShopkeeperSignupRequest) (*domain.ShopkeeperSignup, error) {
	wallet, err := address.Normalize(req.WalletAddress)
	if err != nil {
		return nil, err
	}
	if err := unused(s.shopkeepers.GetByWallet(ctx, wallet)); err != nil {
		return nil, fmt.Errorf("wallet address already registered: %w", err)
	}
	rec := &domain.ShopkeeperSignup{
		ID:            id.New(),
		Name:          strings.TrimSpace(req.Name),
		Mobile:        req.Mobile,
		Area:          strings.TrimSpace(req.Area),
		Address:       strings.TrimSpace(req.Address),
		WalletAddress: wallet,
		ShopLicense:   req.ShopLicense,
		Status:        domain.SignupPending,
		SubmittedAt:   s.now().UTC(),
	}
	if err := s.shopkeepers.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.alertAdmin(domain.SignupShopkeeper, rec.ID, rec.Name)
	return rec, nil
}

// unused turns a uniqueness lookup into nil when nothing matched and
// domain.ErrConflict when something did.
func unused[T any](found *T, err error) error {
	if err == nil && found != nil {
		return domain.ErrConflict
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *service) alertAdmin(kind domain.SignupKind, signupID, name string) {
	if s.mailer == nil || s.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("New %s signup request", kind)
	body := fmt.Sprintf("%s submitted a %s signup request (%s). Review it in the admin dashboard.", name, kind, signupID)
	if err := s.mailer.SendEmail(s.adminEmail, subject, body); err != nil {
		slog.Warn("admin signup alert failed", "kind", kind, "signup_id", signupID, "err", err)
	}
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *service) ListConsumers(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.ConsumerSignup], error) {
	return list(ctx, q, s.consumers.ListByStatus, func(c domain.ConsumerSignup) time.Time { return c.SubmittedAt })
}

func (s *service) ListDelivery(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.DeliverySignup], error) {
	return list(ctx, q, s.delivery.ListByStatus, func(d domain.DeliverySignup) time.Time { return d.SubmittedAt })
}

func (s *service) ListShopkeepers(ctx context.Context, q ListQuery) (*domain.SignupPage[domain.ShopkeeperSignup], error) {
	return list(ctx, q, s.shopkeepers.ListByStatus, func(sk domain.ShopkeeperSignup) time.Time { return sk.SubmittedAt })
}

func list[T any](
	ctx context.Context,
	q ListQuery,
	fetch func(context.Context, string) ([]T, error),
	submitted func(T) time.Time,
) (*domain.SignupPage[T], error) {
	status := q.Status
	switch status {
	case "":
		status = string(domain.SignupPending)
	case "all", string(domain.SignupPending), string(domain.SignupApproved), string(domain.SignupRejected):
	default:
		return nil, fmt.Errorf("unknown status %q: %w", q.Status, domain.ErrBadRequest)
	}
	items, err := fetch(ctx, status)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return submitted(items[i]).After(submitted(items[j])) })
	return paginate(items, q.Page, q.Limit), nil
}

func paginate[T any](items []T, page, limit int) *domain.SignupPage[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return &domain.SignupPage[T]{
		Items: out,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}
}

func (s *service) GetConsumer(ctx context.Context, id string) (*domain.ConsumerSignup, error) {
	return s.consumers.Get(ctx, id)
}

func (s *service) GetDelivery(ctx context.Context, id string) (*domain.DeliverySignup, error) {
	return s.delivery.Get(ctx, id)
}

func (s *service) GetShopkeeper(ctx context.Context, id string) (*domain.ShopkeeperSignup, error) {
	return s.shopkeepers.Get(ctx, id)
}
