package signup

import (
	"context"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockConsumers struct{ mock.Mock }

func (m *mockConsumers) Create(ctx context.Context, s *domain.ConsumerSignup) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockConsumers) Get(ctx context.Context, id string) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConsumers) ListByStatus(ctx context.Context, status string) ([]domain.ConsumerSignup, error) {
	args := m.Called(ctx, status)
	items, _ := args.Get(0).([]domain.ConsumerSignup)
	return items, args.Error(1)
}
func (m *mockConsumers) Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, id, d)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConsumers) GetByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, aadhaar)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConsumers) GetByRationCard(ctx context.Context, card string) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, card)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDelivery struct{ mock.Mock }

func (m *mockDelivery) Create(ctx context.Context, s *domain.DeliverySignup) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockDelivery) Get(ctx context.Context, id string) (*domain.DeliverySignup, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*domain.DeliverySignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDelivery) ListByStatus(ctx context.Context, status string) ([]domain.DeliverySignup, error) {
	args := m.Called(ctx, status)
	items, _ := args.Get(0).([]domain.DeliverySignup)
	return items, args.Error(1)
}
func (m *mockDelivery) Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.DeliverySignup, error) {
	args := m.Called(ctx, id, d)
	if s, _ := args.Get(0).(*domain.DeliverySignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDelivery) GetByWallet(ctx context.Context, wallet string) (*domain.DeliverySignup, error) {
	args := m.Called(ctx, wallet)
	if s, _ := args.Get(0).(*domain.DeliverySignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDelivery) GetByLicense(ctx context.Context, license string) (*domain.DeliverySignup, error) {
	args := m.Called(ctx, license)
	if s, _ := args.Get(0).(*domain.DeliverySignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockShopkeepers struct{ mock.Mock }

func (m *mockShopkeepers) Create(ctx context.Context, s *domain.ShopkeeperSignup) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockShopkeepers) Get(ctx context.Context, id string) (*domain.ShopkeeperSignup, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*domain.ShopkeeperSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockShopkeepers) ListByStatus(ctx context.Context, status string) ([]domain.ShopkeeperSignup, error) {
	args := m.Called(ctx, status)
	items, _ := args.Get(0).([]domain.ShopkeeperSignup)
	return items, args.Error(1)
}
func (m *mockShopkeepers) Decide(ctx context.Context, id string, d domain.SignupDecision) (*domain.ShopkeeperSignup, error) {
	args := m.Called(ctx, id, d)
	if s, _ := args.Get(0).(*domain.ShopkeeperSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockShopkeepers) GetByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error) {
	args := m.Called(ctx, wallet)
	if s, _ := args.Get(0).(*domain.ShopkeeperSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockChain struct{ mock.Mock }

func (m *mockChain) ShopkeeperInfo(ctx context.Context, wallet string) (*domain.ShopkeeperRecord, error) {
	args := m.Called(ctx, wallet)
	if r, _ := args.Get(0).(*domain.ShopkeeperRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockChain) DeliveryAgentInfo(ctx context.Context, wallet string) (*domain.DeliveryAgentRecord, error) {
	args := m.Called(ctx, wallet)
	if r, _ := args.Get(0).(*domain.DeliveryAgentRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockChain) tx(args mock.Arguments) (*domain.TxResult, error) {
	if r, _ := args.Get(0).(*domain.TxResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockChain) RegisterShopkeeper(ctx context.Context, wallet, name, area string) (*domain.TxResult, error) {
	return m.tx(m.Called(ctx, wallet, name, area))
}
func (m *mockChain) RegisterDeliveryAgent(ctx context.Context, wallet, name, mobile string) (*domain.TxResult, error) {
	return m.tx(m.Called(ctx, wallet, name, mobile))
}
func (m *mockChain) AssignDeliveryAgentToShopkeeper(ctx context.Context, agent, shopkeeper string) (*domain.TxResult, error) {
	return m.tx(m.Called(ctx, agent, shopkeeper))
}
func (m *mockChain) RegisterConsumer(ctx context.Context, aadhaar, name, mobile, category, shopkeeper string) (*domain.TxResult, error) {
	return m.tx(m.Called(ctx, aadhaar, name, mobile, category, shopkeeper))
}

func (m *mockChain) CategoryStats(ctx context.Context) ([]domain.CategoryStat, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).([]domain.CategoryStat)
	return stats, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	args := m.Called(ctx, req)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}
