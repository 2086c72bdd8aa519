package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	chaininfra "github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

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
func (m *mockChain) ConsumerByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerRecord, error) {
	args := m.Called(ctx, aadhaar)
	if r, _ := args.Get(0).(*domain.ConsumerRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockShopkeepers struct{ mock.Mock }

func (m *mockShopkeepers) GetApprovedByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error) {
	args := m.Called(ctx, wallet)
	if s, _ := args.Get(0).(*domain.ShopkeeperSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConsumers struct{ mock.Mock }

func (m *mockConsumers) GetByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, aadhaar)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConsumers) GetApprovedByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error) {
	args := m.Called(ctx, aadhaar)
	if s, _ := args.Get(0).(*domain.ConsumerSignup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConsumers) Create(ctx context.Context, s *domain.ConsumerSignup) error {
	return m.Called(ctx, s).Error(0)
}

// --- fixtures ---

const (
	wallet  = "0xcccccccccccccccccccccccccccccccccccccccc"
	aadhaar = "123456789012"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func selectorMissing() error { return errors.New("execution reverted: Function does not exist") }

func nodeDown() error {
	return &chaininfra.CallError{
		Method: "getShopkeeperInfo",
		Kind:   chaininfra.ErrUnavailable,
		Reason: "dial tcp 127.0.0.1:8545: connect: connection refused",
	}
}

func newService(chain *mockChain, shops *mockShopkeepers, consumers *mockConsumers) Service {
	deps := ServiceDeps{DefaultPIN: "123456", Now: func() time.Time { return now }}
	if chain != nil {
		deps.Chain = chain
	}
	if shops != nil {
		deps.Shopkeepers = shops
	}
	if consumers != nil {
		deps.Consumers = consumers
	}
	return NewService(deps)
}

// --- Resolve ---

func TestResolve_ChainHit(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(&domain.ShopkeeperRecord{
		ShopkeeperAddress: wallet, Name: "Ravi Stores", Area: "Ward 4", IsActive: true, TotalConsumersAssigned: 3,
	}, nil)
	shops := &mockShopkeepers{}

	id, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceBlockchain, id.Provenance)
	assert.Equal(t, "Ravi Stores", id.Name)
	assert.Equal(t, uint64(3), id.TotalConsumersAssigned)
	shops.AssertNotCalled(t, "GetApprovedByWallet", mock.Anything, mock.Anything)
}

func TestResolve_InactiveShortCircuits(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(&domain.ShopkeeperRecord{ShopkeeperAddress: wallet, IsActive: false}, nil)
	shops := &mockShopkeepers{}

	_, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	assert.ErrorIs(t, err, domain.ErrInactive)
	assert.Contains(t, err.Error(), "account is inactive, contact administrator")
	shops.AssertNotCalled(t, "GetApprovedByWallet", mock.Anything, mock.Anything)
}

func TestResolve_ChainErrorFallsBackToDatabase(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(nil, selectorMissing())
	shops := &mockShopkeepers{}
	shops.On("GetApprovedByWallet", mock.Anything, wallet).Return(&domain.ShopkeeperSignup{
		WalletAddress: wallet, Name: "Ravi Stores", Mobile: "9876543210", SubmittedAt: now,
	}, nil)

	id, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceDatabase, id.Provenance)
	assert.Equal(t, "9876543210", id.Mobile)
	assert.True(t, id.IsActive)
}

func TestResolve_UnreachableChainAndDatabaseMiss(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(nil, nodeDown())
	shops := &mockShopkeepers{}
	shops.On("GetApprovedByWallet", mock.Anything, wallet).Return(nil, domain.ErrNotFound)

	_, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	assert.ErrorIs(t, err, chaininfra.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, chaininfra.IsChainError(err))
}

func TestResolve_UnreachableChainDatabaseHit(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(nil, nodeDown())
	shops := &mockShopkeepers{}
	shops.On("GetApprovedByWallet", mock.Anything, wallet).Return(&domain.ShopkeeperSignup{WalletAddress: wallet, Name: "Ravi Stores"}, nil)

	id, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceDatabase, id.Provenance)
}

func TestResolve_SelectorMissingAndDatabaseMissIsNotRegistered(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(nil, selectorMissing())
	shops := &mockShopkeepers{}
	shops.On("GetApprovedByWallet", mock.Anything, wallet).Return(nil, domain.ErrNotFound)

	_, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "not registered")
}

func TestResolve_ZeroRecordFallsBackToDatabase(t *testing.T) {
	chain := &mockChain{}
	chain.On("ShopkeeperInfo", mock.Anything, wallet).Return(&domain.ShopkeeperRecord{}, nil)
	shops := &mockShopkeepers{}
	shops.On("GetApprovedByWallet", mock.Anything, wallet).Return(nil, domain.ErrNotFound)

	_, err := newService(chain, shops, nil).Resolve(context.Background(), domain.RoleShopkeeper, wallet)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "not registered")
}

func TestResolve_RoleWithoutDatabaseSource(t *testing.T) {
	chain := &mockChain{}
	chain.On("DeliveryAgentInfo", mock.Anything, wallet).Return(&domain.DeliveryAgentRecord{}, nil)

	_, err := newService(chain, nil, nil).Resolve(context.Background(), domain.RoleDeliveryAgent, wallet)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_InvalidKeys(t *testing.T) {
	svc := newService(nil, nil, nil)

	_, err := svc.Resolve(context.Background(), domain.RoleShopkeeper, "not-an-address")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = svc.Resolve(context.Background(), domain.RoleConsumer, "1234")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = svc.Resolve(context.Background(), domain.RoleAdmin, "admin")
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.Resolve(context.Background(), domain.RoleConsumer, "")
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestResolve_ConsumerProvisionsShadowOnce(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{
		Aadhaar: aadhaar, Name: "Asha", Category: "BPL", IsActive: true,
	}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)
	consumers.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.ConsumerSignup) bool {
		return s.ID == "chain-"+aadhaar &&
			s.RationCardID == "RC"+aadhaar &&
			s.Phone == "0000000000" &&
			s.HomeAddress == "Village (Synced from blockchain)" &&
			s.TxHash == "blockchain-sync" &&
			s.Status == domain.SignupApproved &&
			bcrypt.CompareHashAndPassword([]byte(s.PINHash), []byte("123456")) == nil
	})).Return(nil)

	id, err := newService(chain, nil, consumers).Resolve(context.Background(), domain.RoleConsumer, aadhaar)
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceBlockchain, id.Provenance)
	assert.Equal(t, "BPL", id.Category)
	consumers.AssertExpectations(t)
}

func TestResolve_ConsumerShadowNotOverwritten(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{Aadhaar: aadhaar, IsActive: true}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerSignup{ID: "existing"}, nil)

	_, err := newService(chain, nil, consumers).Resolve(context.Background(), domain.RoleConsumer, aadhaar)
	require.NoError(t, err)
	consumers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- ConsumerAccount ---

func TestConsumerAccount_DatabaseRecordWhenChainHasNone(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{}, nil)
	consumers := &mockConsumers{}
	rec := &domain.ConsumerSignup{ID: "s1", AadharNumber: aadhaar, Name: "Asha", Status: domain.SignupApproved}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(rec, nil)

	got, id, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.Equal(t, domain.ProvenanceDatabase, id.Provenance)
	chain.AssertExpectations(t)
}

func TestConsumerAccount_InactiveOnChainWithApprovedRecord(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{Aadhaar: aadhaar, Name: "Asha", IsActive: false}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).
		Return(&domain.ConsumerSignup{ID: "s1", AadharNumber: aadhaar, Status: domain.SignupApproved}, nil)

	_, _, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	assert.ErrorIs(t, err, domain.ErrInactive)
	assert.Contains(t, err.Error(), "account is inactive, contact administrator")
	consumers.AssertNotCalled(t, "GetApprovedByAadhaar", mock.Anything, mock.Anything)
}

func TestConsumerAccount_ChainRecordWinsOverDatabase(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).
		Return(&domain.ConsumerRecord{Aadhaar: aadhaar, Name: "Asha Devi", Category: "AAY", IsActive: true}, nil)
	consumers := &mockConsumers{}
	rec := &domain.ConsumerSignup{ID: "s1", AadharNumber: aadhaar, Name: "Asha D.", Status: domain.SignupApproved}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(rec, nil)

	got, id, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	require.NoError(t, err)
	assert.Same(t, rec, got, "database record still supplies the PIN hash")
	assert.Equal(t, domain.ProvenanceBlockchain, id.Provenance)
	assert.Equal(t, "Asha Devi", id.Name)
	assert.Equal(t, "AAY", id.Category)
	consumers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConsumerAccount_UnreachableChainFallsBackToDatabase(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(nil, nodeDown())
	consumers := &mockConsumers{}
	rec := &domain.ConsumerSignup{ID: "s1", AadharNumber: aadhaar, Status: domain.SignupApproved}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(rec, nil)

	got, id, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.Equal(t, domain.ProvenanceDatabase, id.Provenance)
}

func TestConsumerAccount_UnreachableChainAndDatabaseMiss(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(nil, nodeDown())
	consumers := &mockConsumers{}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)

	_, _, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	assert.ErrorIs(t, err, chaininfra.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestConsumerAccount_ChainOnlyReturnsFallbackShadow(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{Aadhaar: aadhaar, Name: "Asha", Mobile: "9876543210", IsActive: true}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)
	consumers.On("Create", mock.Anything, mock.Anything).Return(nil)

	rec, id, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceFallback, id.Provenance)
	assert.Equal(t, "9876543210", rec.Phone)
	assert.Equal(t, "chain-"+aadhaar, rec.ID)
}

func TestConsumerAccount_LostShadowRaceReadsWinner(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{Aadhaar: aadhaar, IsActive: true}, nil)
	consumers := &mockConsumers{}
	winner := &domain.ConsumerSignup{ID: "chain-" + aadhaar, Status: domain.SignupApproved}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound).Once()
	consumers.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(winner, nil).Once()

	rec, _, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	require.NoError(t, err)
	assert.Same(t, winner, rec)
}

func TestConsumerAccount_NotRegistered(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)

	_, _, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsumerAccount_PendingSignupIsNotALogin(t *testing.T) {
	chain := &mockChain{}
	chain.On("ConsumerByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerRecord{Aadhaar: aadhaar, IsActive: true}, nil)
	consumers := &mockConsumers{}
	consumers.On("GetApprovedByAadhaar", mock.Anything, aadhaar).Return(nil, domain.ErrNotFound)
	consumers.On("GetByAadhaar", mock.Anything, aadhaar).Return(&domain.ConsumerSignup{Status: domain.SignupPending}, nil)

	_, _, err := newService(chain, nil, consumers).ConsumerAccount(context.Background(), aadhaar)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
