package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("identity")

var aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)

// Defaults written into consumer records synced from chain.
const (
	ShadowIDPrefix     = "chain-"
	ShadowHomeAddress  = "Village (Synced from blockchain)"
	ShadowPhone        = "0000000000"
	ShadowTxHash       = "blockchain-sync"
	ShadowReviewer     = "blockchain-sync"
	RationCardIDPrefix = "RC"
)

// ChainReader is the read side of the Diamond contract.
type ChainReader interface {
	ShopkeeperInfo(ctx context.Context, wallet string) (*domain.ShopkeeperRecord, error)
	DeliveryAgentInfo(ctx context.Context, wallet string) (*domain.DeliveryAgentRecord, error)
	ConsumerByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerRecord, error)
}

type ShopkeeperStore interface {
	GetApprovedByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error)
}

type DeliveryStore interface {
	GetApprovedByWallet(ctx context.Context, wallet string) (*domain.DeliverySignup, error)
}

type ConsumerStore interface {
	GetByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error)
	GetApprovedByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error)
	Create(ctx context.Context, s *domain.ConsumerSignup) error
}

type Service interface {
	// Resolve looks a participant up on chain first and falls back to approved
	// signup records.
	Resolve(ctx context.Context, role domain.Role, key string) (*domain.Identity, error)
	// ConsumerAccount returns the PIN-login record for aadhaar, creating the
	// chain-synced shadow record when only the chain knows the consumer.
	ConsumerAccount(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, *domain.Identity, error)
}

// ServiceDeps wires the resolver. A nil store leaves that role without a
// database fallback.
type ServiceDeps struct {
	Chain       ChainReader
	Shopkeepers ShopkeeperStore
	Delivery    DeliveryStore
	Consumers   ConsumerStore
	DefaultPIN  string
	Now         func() time.Time
}

type dbLookup func(ctx context.Context, key string) (*domain.Identity, error)

type service struct {
	chain      ChainReader
	consumers  ConsumerStore
	database   map[domain.Role]dbLookup
	defaultPIN string
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		chain:      deps.Chain,
		consumers:  deps.Consumers,
		database:   map[domain.Role]dbLookup{},
		defaultPIN: deps.DefaultPIN,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if st := deps.Shopkeepers; st != nil {
		s.database[domain.RoleShopkeeper] = func(ctx context.Context, key string) (*domain.Identity, error) {
			rec, err := st.GetApprovedByWallet(ctx, key)
			if err != nil {
				return nil, err
			}
			return fromShopkeeperSignup(rec), nil
		}
	}
	if st := deps.Delivery; st != nil {
		s.database[domain.RoleDeliveryAgent] = func(ctx context.Context, key string) (*domain.Identity, error) {
			rec, err := st.GetApprovedByWallet(ctx, key)
			if err != nil {
				return nil, err
			}
			return fromDeliverySignup(rec), nil
		}
	}
	if st := deps.Consumers; st != nil {
		s.database[domain.RoleConsumer] = func(ctx context.Context, key string) (*domain.Identity, error) {
			rec, err := st.GetApprovedByAadhaar(ctx, key)
			if err != nil {
				return nil, err
			}
			return fromConsumerSignup(rec, domain.ProvenanceDatabase), nil
		}
	}
	return s
}

// NormalizeKey validates key for role: a wallet address for shopkeepers and
// delivery agents, a 12-digit Aadhaar number for consumers.
func NormalizeKey(role domain.Role, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("identifier is required: %w", domain.ErrMissingField)
	}
	switch role {
	case domain.RoleShopkeeper, domain.RoleDeliveryAgent:
		return address.Normalize(key)
	case domain.RoleConsumer:
		if !aadhaarPattern.MatchString(key) {
			return "", fmt.Errorf("aadhaar must be 12 digits: %w", domain.ErrInvalidFormat)
		}
		return key, nil
	}
	return "", fmt.Errorf("role %q has no identity lookup: %w", role, domain.ErrBadRequest)
}

func (s *service) Resolve(ctx context.Context, role domain.Role, key string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Identity.Service.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(role)))

	key, err := NormalizeKey(role, key)
	if err != nil {
		return nil, err
	}

	id, lookupErr, err := s.fromChain(ctx, role, key)
	if err != nil {
		// inactive accounts never fall through to the database
		span.RecordError(err)
		return nil, err
	}
	if id != nil {
		annotate(span, id)
		return id, nil
	}

	id, err = s.fromDatabase(ctx, role, key)
	if err != nil {
		err = unreachable(err, lookupErr)
		span.RecordError(err)
		return nil, err
	}
	annotate(span, id)
	return id, nil
}

// unreachable replaces a database miss with the chain failure when the node
// could not be reached, so "not registered" only means the chain answered.
func unreachable(dbErr, lookupErr error) error {
	if errors.Is(dbErr, domain.ErrNotFound) && errors.Is(lookupErr, chain.ErrUnavailable) {
		return fmt.Errorf("identity lookup: %w", lookupErr)
	}
	return dbErr
}

// fromChain returns a nil identity when the chain could not answer or has no
// record; lookupErr then holds the chain failure, if any. err is only set for
// inactive accounts.
func (s *service) fromChain(ctx context.Context, role domain.Role, key string) (id *domain.Identity, lookupErr, err error) {
	if s.chain == nil {
		return nil, nil, nil
	}
	switch role {
	case domain.RoleShopkeeper:
		var rec *domain.ShopkeeperRecord
		if rec, lookupErr = s.chain.ShopkeeperInfo(ctx, key); lookupErr == nil && !address.IsZero(rec.ShopkeeperAddress) {
			id = fromShopkeeperRecord(rec)
		}
	case domain.RoleDeliveryAgent:
		var rec *domain.DeliveryAgentRecord
		if rec, lookupErr = s.chain.DeliveryAgentInfo(ctx, key); lookupErr == nil && !address.IsZero(rec.AgentAddress) {
			id = fromDeliveryRecord(rec)
		}
	case domain.RoleConsumer:
		var rec *domain.ConsumerRecord
		if rec, lookupErr = s.chain.ConsumerByAadhaar(ctx, key); lookupErr == nil && registeredConsumer(rec) {
			id = fromConsumerRecord(rec)
			if id.IsActive {
				s.provisionShadow(ctx, rec)
			}
		}
	}
	if lookupErr != nil {
		slog.Warn("chain lookup failed, falling back to database", "role", role, "key", key, "err", lookupErr)
		return nil, lookupErr, nil
	}
	if id == nil {
		slog.Debug("no chain record", "role", role, "key", key)
		return nil, nil, nil
	}
	if !id.IsActive {
		return nil, nil, fmt.Errorf("%s %s: %w", role, key, domain.ErrInactive)
	}
	return id, nil, nil
}

func registeredConsumer(rec *domain.ConsumerRecord) bool {
	return rec != nil && rec.Aadhaar != "" && rec.Aadhaar != "0"
}

func (s *service) fromDatabase(ctx context.Context, role domain.Role, key string) (*domain.Identity, error) {
	lookup, ok := s.database[role]
	if !ok {
		slog.Warn("database lookup not implemented for role", "role", role, "key", key)
		return nil, fmt.Errorf("%s %s not registered: %w", role, key, domain.ErrNotFound)
	}
	id, err := lookup(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("identity not registered", "role", role, "key", key)
		return nil, fmt.Errorf("%s %s not registered: %w", role, key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

// ConsumerAccount asks the chain first. A chain record decides activity and
// the returned identity; the database only supplies the PIN record, and the
// whole answer when the chain has no record or could not be reached.
func (s *service) ConsumerAccount(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, *domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Identity.Service.ConsumerAccount")
	defer span.End()

	aadhaar, err := NormalizeKey(domain.RoleConsumer, aadhaar)
	if err != nil {
		return nil, nil, err
	}
	if s.consumers == nil {
		return nil, nil, fmt.Errorf("consumer store not configured: %w", domain.ErrNotFound)
	}

	var lookupErr error
	if s.chain != nil {
		chainRec, err := s.chain.ConsumerByAadhaar(ctx, aadhaar)
		switch {
		case err != nil:
			lookupErr = err
			slog.Warn("chain lookup failed for consumer login, falling back to database", "aadhaar", aadhaar, "err", err)
		case registeredConsumer(chainRec):
			if !chainRec.IsActive {
				return nil, nil, fmt.Errorf("consumer %s: %w", aadhaar, domain.ErrInactive)
			}
			rec, id, err := s.chainConsumerAccount(ctx, chainRec)
			if err != nil {
				span.RecordError(err)
				return nil, nil, err
			}
			annotate(span, id)
			return rec, id, nil
		}
	}

	rec, err := s.consumers.GetApprovedByAadhaar(ctx, aadhaar)
	if errors.Is(err, domain.ErrNotFound) {
		err = unreachable(fmt.Errorf("consumer %s not registered: %w", aadhaar, domain.ErrNotFound), lookupErr)
	}
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	id := fromConsumerSignup(rec, domain.ProvenanceDatabase)
	annotate(span, id)
	return rec, id, nil
}

// chainConsumerAccount pairs an active chain record with its PIN-login
// record, provisioning the shadow record when none is approved yet.
func (s *service) chainConsumerAccount(ctx context.Context, chainRec *domain.ConsumerRecord) (*domain.ConsumerSignup, *domain.Identity, error) {
	aadhaar := chainRec.Aadhaar
	id := fromConsumerRecord(chainRec)
	id.Provenance = domain.ProvenanceBlockchain

	rec, err := s.consumers.GetApprovedByAadhaar(ctx, aadhaar)
	if err == nil {
		return rec, id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	shadow := s.provisionShadow(ctx, chainRec)
	if shadow == nil {
		return nil, nil, fmt.Errorf("consumer %s could not be provisioned: %w", aadhaar, domain.ErrNotFound)
	}
	if shadow.Status != domain.SignupApproved {
		return nil, nil, fmt.Errorf("consumer %s not approved: %w", aadhaar, domain.ErrNotFound)
	}
	id.Provenance = domain.ProvenanceFallback
	return shadow, id, nil
}

// provisionShadow writes the chain-synced PIN-login record for a consumer
// that has no database record yet. The conditional create makes it write-once.
// It returns whichever record now backs the consumer, or nil on failure.
func (s *service) provisionShadow(ctx context.Context, rec *domain.ConsumerRecord) *domain.ConsumerSignup {
	if s.consumers == nil {
		return nil
	}
	existing, err := s.consumers.GetByAadhaar(ctx, rec.Aadhaar)
	if err == nil {
		return existing
	}
	if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("consumer shadow lookup failed", "aadhaar", rec.Aadhaar, "err", err)
		return nil
	}

	shadow, err := s.newShadow(rec)
	if err != nil {
		slog.Warn("consumer shadow build failed", "aadhaar", rec.Aadhaar, "err", err)
		return nil
	}
	if err := s.consumers.Create(ctx, shadow); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if existing, gerr := s.consumers.GetByAadhaar(ctx, rec.Aadhaar); gerr == nil {
				return existing
			}
			return nil
		}
		slog.Warn("consumer shadow create failed", "aadhaar", rec.Aadhaar, "err", err)
		return nil
	}
	slog.Info("consumer shadow record created", "aadhaar", rec.Aadhaar, "signup_id", shadow.ID)
	return shadow
}

func (s *service) newShadow(rec *domain.ConsumerRecord) (*domain.ConsumerSignup, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.defaultPIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	mobile := rec.Mobile
	if mobile == "" {
		mobile = ShadowPhone
	}
	return &domain.ConsumerSignup{
		ID:           ShadowIDPrefix + rec.Aadhaar,
		Name:         rec.Name,
		Phone:        mobile,
		HomeAddress:  ShadowHomeAddress,
		RationCardID: RationCardIDPrefix + rec.Aadhaar,
		AadharNumber: rec.Aadhaar,
		PINHash:      string(hash),
		Status:       domain.SignupApproved,
		TxHash:       ShadowTxHash,
		SubmittedAt:  now,
		ReviewedAt:   &now,
		ReviewedBy:   ShadowReviewer,
	}, nil
}

func annotate(span trace.Span, id *domain.Identity) {
	span.SetAttributes(
		attribute.String("provenance", string(id.Provenance)),
		attribute.Bool("active", id.IsActive),
	)
}
