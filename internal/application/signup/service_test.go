package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	agentWallet = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	shopWallet  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	consumers   *mockConsumers
	delivery    *mockDelivery
	shopkeepers *mockShopkeepers
	chain       *mockChain
	notifier    *mockNotifier
	sms         *mockSMS
	mailer      *mockMailer
	svc         Service
}

func newFixture() *fixture {
	f := &fixture{
		consumers:   &mockConsumers{},
		delivery:    &mockDelivery{},
		shopkeepers: &mockShopkeepers{},
		chain:       &mockChain{},
		notifier:    &mockNotifier{},
		sms:         &mockSMS{},
		mailer:      &mockMailer{},
	}
	f.svc = NewService(ServiceDeps{
		Consumers:   f.consumers,
		Delivery:    f.delivery,
		Shopkeepers: f.shopkeepers,
		Chain:       f.chain,
		Notifier:    f.notifier,
		SMS:         f.sms,
		Mailer:      f.mailer,
		AdminEmail:  "admin@grainlyyy.in",
		Now:         func() time.Time { return now },
	})
	return f
}

// --- Submit ---

func TestSubmitConsumer_HashesPINAndAlertsAdmin(t *testing.T) {
	f := newFixture()
	f.consumers.On("GetByAadhaar", mock.Anything, "123456789012").Return(nil, domain.ErrNotFound)
	f.consumers.On("GetByRationCard", mock.Anything, "RC-1").Return(nil, domain.ErrNotFound)
	f.consumers.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.ConsumerSignup) bool {
		return s.Status == domain.SignupPending &&
			s.ID != "" &&
			bcrypt.CompareHashAndPassword([]byte(s.PINHash), []byte("246810")) == nil
	})).Return(nil)
	f.mailer.On("SendEmail", "admin@grainlyyy.in", "New consumer signup request", mock.Anything).Return(nil)

	rec, err := f.svc.SubmitConsumer(context.Background(), domain.ConsumerSignupRequest{
		Name: " Asha ", Phone: "9876543210", HomeAddress: "Ward 4", RationCardID: "RC-1", AadharNumber: "123456789012", PIN: "246810",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", rec.Name)
	assert.Equal(t, now, rec.SubmittedAt)
	f.mailer.AssertExpectations(t)
}

func TestSubmitConsumer_DuplicateAadhaar(t *testing.T) {
	f := newFixture()
	f.consumers.On("GetByAadhaar", mock.Anything, "123456789012").Return(&domain.ConsumerSignup{ID: "x"}, nil)

	_, err := f.svc.SubmitConsumer(context.Background(), domain.ConsumerSignupRequest{AadharNumber: "123456789012", RationCardID: "RC-1", PIN: "123456"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.consumers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitDelivery_LowercasesWalletAndChecksLicense(t *testing.T) {
	f := newFixture()
	f.delivery.On("GetByWallet", mock.Anything, agentWallet).Return(nil, domain.ErrNotFound)
	f.delivery.On("GetByLicense", mock.Anything, "DL-9").Return(&domain.DeliverySignup{ID: "other"}, nil)

	_, err := f.svc.SubmitDelivery(context.Background(), domain.DeliverySignupRequest{
		WalletAddress: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", LicenseNumber: "DL-9",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "license")
}

func TestSubmitShopkeeper_StoreErrorPropagates(t *testing.T) {
	f := newFixture()
	f.shopkeepers.On("GetByWallet", mock.Anything, shopWallet).Return(nil, errors.New("throttled"))

	_, err := f.svc.SubmitShopkeeper(context.Background(), domain.ShopkeeperSignupRequest{WalletAddress: shopWallet})
	assert.EqualError(t, err, "wallet address already registered: throttled")
}

func TestSubmitShopkeeper_MailFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.shopkeepers.On("GetByWallet", mock.Anything, shopWallet).Return(nil, domain.ErrNotFound)
	f.shopkeepers.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	rec, err := f.svc.SubmitShopkeeper(context.Background(), domain.ShopkeeperSignupRequest{Name: "Ravi", WalletAddress: shopWallet, Area: "Ward 4"})
	require.NoError(t, err)
	assert.Equal(t, shopWallet, rec.WalletAddress)
}

// --- List ---

func TestListDelivery_DefaultsToPendingAndPaginates(t *testing.T) {
	f := newFixture()
	var items []domain.DeliverySignup
	for i := 0; i < 25; i++ {
		items = append(items, domain.DeliverySignup{ID: string(rune('a' + i)), SubmittedAt: now.Add(time.Duration(i) * time.Minute)})
	}
	f.delivery.On("ListByStatus", mock.Anything, "pending").Return(items, nil)

	page, err := f.svc.ListDelivery(context.Background(), ListQuery{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Items, 5)
	// newest first, so the last page holds the oldest
	assert.Equal(t, "a", page.Items[4].ID)
}

func TestListConsumers_UnknownStatus(t *testing.T) {
	_, err := newFixture().svc.ListConsumers(context.Background(), ListQuery{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestPaginate_PastEnd(t *testing.T) {
	page := paginate([]int{1, 2, 3}, 5, 2)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.Pages)

	page = paginate([]int{1, 2, 3}, 1, 1000)
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Items, 3)
}

// --- Review ---

func pendingDelivery() *domain.DeliverySignup {
	return &domain.DeliverySignup{
		ID: "d1", Name: "Kiran", Phone: "9876543210", WalletAddress: agentWallet, Status: domain.SignupPending,
	}
}

func TestReviewDelivery_ApproveRegistersThenFlips(t *testing.T) {
	f := newFixture()
	f.delivery.On("Get", mock.Anything, "d1").Return(pendingDelivery(), nil)
	f.chain.On("RegisterDeliveryAgent", mock.Anything, agentWallet, "Kiran", "9876543210").
		Return(&domain.TxResult{TxHash: "0xtx"}, nil)
	approved := pendingDelivery()
	approved.Status = domain.SignupApproved
	approved.TxHash = "0xtx"
	f.delivery.On("Decide", mock.Anything, "d1", mock.MatchedBy(func(d domain.SignupDecision) bool {
		return d.Status == domain.SignupApproved && d.TxHash == "0xtx" && d.ReviewedBy == "admin"
	})).Return(approved, nil)
	f.chain.On("AssignDeliveryAgentToShopkeeper", mock.Anything, agentWallet, shopWallet).Return(nil, errors.New("execution reverted"))
	f.notifier.On("Create", mock.Anything, mock.MatchedBy(func(r domain.CreateNotificationRequest) bool {
		return r.RecipientAddress == agentWallet && r.Type == "signup_approved"
	})).Return(&domain.Notification{}, nil)
	f.sms.On("SendSMS", mock.Anything, "9876543210", mock.Anything).Return(nil)

	got, err := f.svc.ReviewDelivery(context.Background(), "d1", "admin", domain.ReviewRequest{
		Action: domain.ReviewApprove, ShopkeeperAddress: "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
	})
	require.NoError(t, err, "assignment failure is only logged")
	assert.Equal(t, domain.SignupApproved, got.Status)
	f.chain.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestReviewDelivery_ChainFailureLeavesPending(t *testing.T) {
	f := newFixture()
	f.delivery.On("Get", mock.Anything, "d1").Return(pendingDelivery(), nil)
	chainErr := errors.New("could not reach the blockchain")
	f.chain.On("RegisterDeliveryAgent", mock.Anything, agentWallet, "Kiran", "9876543210").Return(nil, chainErr)

	_, err := f.svc.ReviewDelivery(context.Background(), "d1", "admin", domain.ReviewRequest{Action: domain.ReviewApprove})
	assert.ErrorIs(t, err, chainErr)
	f.delivery.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewDelivery_AlreadyDecidedHasNoSideEffects(t *testing.T) {
	f := newFixture()
	rec := pendingDelivery()
	rec.Status = domain.SignupRejected
	f.delivery.On("Get", mock.Anything, "d1").Return(rec, nil)

	_, err := f.svc.ReviewDelivery(context.Background(), "d1", "admin", domain.ReviewRequest{Action: domain.ReviewApprove})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	f.chain.AssertNotCalled(t, "RegisterDeliveryAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewDelivery_ConcurrentReviewerLoses(t *testing.T) {
	f := newFixture()
	f.delivery.On("Get", mock.Anything, "d1").Return(pendingDelivery(), nil)
	f.delivery.On("Decide", mock.Anything, "d1", mock.Anything).Return(nil, domain.ErrAlreadyProcessed)

	_, err := f.svc.ReviewDelivery(context.Background(), "d1", "admin", domain.ReviewRequest{Action: domain.ReviewReject})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewShopkeeper_RejectSkipsChain(t *testing.T) {
	f := newFixture()
	f.shopkeepers.On("Get", mock.Anything, "s1").Return(&domain.ShopkeeperSignup{ID: "s1", WalletAddress: shopWallet, Mobile: "9876543210", Status: domain.SignupPending}, nil)
	f.shopkeepers.On("Decide", mock.Anything, "s1", mock.MatchedBy(func(d domain.SignupDecision) bool {
		return d.Status == domain.SignupRejected && d.RejectionReason == "No reason provided"
	})).Return(&domain.ShopkeeperSignup{ID: "s1", WalletAddress: shopWallet, Mobile: "9876543210", Status: domain.SignupRejected, RejectionReason: "No reason provided"}, nil)
	f.notifier.On("Create", mock.Anything, mock.Anything).Return(&domain.Notification{}, nil)
	f.sms.On("SendSMS", mock.Anything, "9876543210", "Grainlyyy: your shopkeeper registration was rejected. Reason: No reason provided").Return(nil)

	got, err := f.svc.ReviewShopkeeper(context.Background(), "s1", "admin", domain.ReviewRequest{Action: domain.ReviewReject})
	require.NoError(t, err)
	assert.Equal(t, domain.SignupRejected, got.Status)
	f.chain.AssertNotCalled(t, "RegisterShopkeeper", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.sms.AssertExpectations(t)
}

func TestReviewShopkeeper_ApproveMarksBlockchainRegistered(t *testing.T) {
	f := newFixture()
	f.shopkeepers.On("Get", mock.Anything, "s1").Return(&domain.ShopkeeperSignup{ID: "s1", Name: "Ravi", Area: "Ward 4", WalletAddress: shopWallet, Status: domain.SignupPending}, nil)
	f.chain.On("RegisterShopkeeper", mock.Anything, shopWallet, "Ravi", "Ward 4").Return(&domain.TxResult{TxHash: "0xs"}, nil)
	f.shopkeepers.On("Decide", mock.Anything, "s1", mock.MatchedBy(func(d domain.SignupDecision) bool {
		return d.BlockchainRegistered && d.TxHash == "0xs"
	})).Return(&domain.ShopkeeperSignup{ID: "s1", WalletAddress: shopWallet, Status: domain.SignupApproved, BlockchainRegistered: true}, nil)
	f.notifier.On("Create", mock.Anything, mock.Anything).Return(&domain.Notification{}, nil)

	got, err := f.svc.ReviewShopkeeper(context.Background(), "s1", "admin", domain.ReviewRequest{Action: domain.ReviewApprove})
	require.NoError(t, err)
	assert.True(t, got.BlockchainRegistered)
	// no mobile on the decided record, so no SMS
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewConsumer_ChainRegistrationNeedsCategory(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupPending}, nil)

	_, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{Action: domain.ReviewApprove, ShopkeeperAddress: shopWallet})
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestReviewConsumer_UnknownCategory(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupPending}, nil)
	f.chain.On("CategoryStats", mock.Anything).Return([]domain.CategoryStat{{Category: "BPL"}, {Category: "AAY"}}, nil)

	_, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{
		Action: domain.ReviewApprove, ShopkeeperAddress: shopWallet, Category: "GOLD",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
	f.chain.AssertNotCalled(t, "RegisterConsumer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewConsumer_CategoryIsCanonicalised(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{
		ID: "c1", Name: "Asha", AadharNumber: "123456789012", Status: domain.SignupPending,
	}, nil)
	f.chain.On("CategoryStats", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))
	f.chain.On("RegisterConsumer", mock.Anything, "123456789012", "Asha", "", "AAY", shopWallet).Return(&domain.TxResult{TxHash: "0xd"}, nil)
	f.consumers.On("Decide", mock.Anything, "c1", mock.Anything).Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupApproved}, nil)

	_, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{
		Action: domain.ReviewApprove, ShopkeeperAddress: shopWallet, Category: " aay ",
	})
	require.NoError(t, err)
	f.chain.AssertExpectations(t)
}

func TestReviewConsumer_CategoryListedOnlyOnChain(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{
		ID: "c1", Name: "Asha", AadharNumber: "123456789012", Status: domain.SignupPending,
	}, nil)
	f.chain.On("CategoryStats", mock.Anything).Return([]domain.CategoryStat{{Category: "Antyodaya"}}, nil)
	f.chain.On("RegisterConsumer", mock.Anything, "123456789012", "Asha", "", "Antyodaya", shopWallet).Return(&domain.TxResult{TxHash: "0xe"}, nil)
	f.consumers.On("Decide", mock.Anything, "c1", mock.Anything).Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupApproved}, nil)

	_, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{
		Action: domain.ReviewApprove, ShopkeeperAddress: shopWallet, Category: "ANTYODAYA",
	})
	require.NoError(t, err)
	f.chain.AssertExpectations(t)
}

func TestReviewConsumer_ApproveWithShopkeeperRegistersOnChain(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{
		ID: "c1", Name: "Asha", Phone: "9876543210", AadharNumber: "123456789012", Status: domain.SignupPending,
	}, nil)
	f.chain.On("CategoryStats", mock.Anything).Return([]domain.CategoryStat{{Category: "BPL", Consumers: 12}}, nil)
	f.chain.On("RegisterConsumer", mock.Anything, "123456789012", "Asha", "9876543210", "BPL", shopWallet).Return(&domain.TxResult{TxHash: "0xc"}, nil)
	f.consumers.On("Decide", mock.Anything, "c1", mock.MatchedBy(func(d domain.SignupDecision) bool { return d.TxHash == "0xc" })).
		Return(&domain.ConsumerSignup{ID: "c1", Phone: "9876543210", Status: domain.SignupApproved, TxHash: "0xc"}, nil)
	f.sms.On("SendSMS", mock.Anything, "9876543210", mock.Anything).Return(errors.New("sns throttled"))

	got, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{
		Action: domain.ReviewApprove, ShopkeeperAddress: shopWallet, Category: "BPL",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xc", got.TxHash)
}

func TestReviewConsumer_ApproveWithoutShopkeeperIsDatabaseOnly(t *testing.T) {
	f := newFixture()
	f.consumers.On("Get", mock.Anything, "c1").Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupPending}, nil)
	f.consumers.On("Decide", mock.Anything, "c1", mock.Anything).Return(&domain.ConsumerSignup{ID: "c1", Status: domain.SignupApproved}, nil)

	_, err := f.svc.ReviewConsumer(context.Background(), "c1", "admin", domain.ReviewRequest{Action: domain.ReviewApprove})
	require.NoError(t, err)
	f.chain.AssertNotCalled(t, "RegisterConsumer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Categories ---

func TestCategories_FromChain(t *testing.T) {
	f := newFixture()
	f.chain.On("CategoryStats", mock.Anything).Return([]domain.CategoryStat{
		{Category: "BPL", Consumers: 40, Amount: 1000},
		{Category: "AAY", Consumers: 9, Amount: 315},
	}, nil)

	got, err := f.svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BPL", "AAY"}, got.Categories)
	assert.Equal(t, domain.CategorySourceBlockchain, got.Source)
	assert.Len(t, got.Stats, 2)
}

func TestCategories_DefaultsWhenChainFailsOrIsEmpty(t *testing.T) {
	for name, stub := range map[string][]interface{}{
		"error": {nil, errors.New("dial tcp: connection refused")},
		"empty": {[]domain.CategoryStat{}, nil},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.chain.On("CategoryStats", mock.Anything).Return(stub...)

			got, err := f.svc.Categories(context.Background())
			require.NoError(t, err)
			assert.Equal(t, domain.DefaultConsumerCategories, got.Categories)
			assert.Equal(t, domain.CategorySourceDefault, got.Source)
			assert.Empty(t, got.Stats)
		})
	}
}

// --- Reconcile ---

func TestReconcile(t *testing.T) {
	f := newFixture()
	f.delivery.On("ListByStatus", mock.Anything, "pending").Return([]domain.DeliverySignup{
		{ID: "d1", WalletAddress: agentWallet},
		{ID: "d2", WalletAddress: "0xdddddddddddddddddddddddddddddddddddddddd"},
	}, nil)
	f.chain.On("DeliveryAgentInfo", mock.Anything, agentWallet).Return(&domain.DeliveryAgentRecord{AgentAddress: agentWallet, IsActive: true}, nil)
	f.chain.On("DeliveryAgentInfo", mock.Anything, "0xdddddddddddddddddddddddddddddddddddddddd").Return(&domain.DeliveryAgentRecord{}, nil)
	f.delivery.On("Decide", mock.Anything, "d1", mock.MatchedBy(func(d domain.SignupDecision) bool {
		return d.ReviewedBy == Reconciler && d.Status == domain.SignupApproved
	})).Return(&domain.DeliverySignup{ID: "d1"}, nil)

	f.shopkeepers.On("ListByStatus", mock.Anything, "pending").Return([]domain.ShopkeeperSignup{{ID: "s1", WalletAddress: shopWallet}}, nil)
	f.chain.On("ShopkeeperInfo", mock.Anything, shopWallet).Return(nil, errors.New("dial tcp: connection refused"))

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{Checked: 3, Approved: 1, Failed: 1}, report)
	f.delivery.AssertNotCalled(t, "Decide", mock.Anything, "d2", mock.Anything)
}
