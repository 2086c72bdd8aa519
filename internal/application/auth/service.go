package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

// Resolver is the identity lookup behind every non-admin login.
type Resolver interface {
	Resolve(ctx context.Context, role domain.Role, key string) (*domain.Identity, error)
	ConsumerAccount(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, *domain.Identity, error)
}

type ConsumerStore interface {
	GetApprovedByRationCard(ctx context.Context, rationCardID string) (*domain.ConsumerSignup, error)
}

type TokenSigner interface {
	Sign(subject, role string) (string, time.Time, error)
}

type Service interface {
	AdminLogin(ctx context.Context, req domain.AdminLoginRequest) (*domain.LoginResult, error)
	ConsumerLogin(ctx context.Context, req domain.ConsumerLoginRequest) (*domain.LoginResult, error)
	WalletLogin(ctx context.Context, role domain.Role, req domain.WalletLoginRequest) (*domain.LoginResult, error)
}

type ServiceDeps struct {
	Identity          Resolver
	Consumers         ConsumerStore
	Tokens            TokenSigner
	AdminUsername     string
	AdminPasswordHash string
	Now               func() time.Time
}

type service struct {
	identity          Resolver
	consumers         ConsumerStore
	tokens            TokenSigner
	adminUsername     string
	adminPasswordHash string
	now               func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		identity:          deps.Identity,
		consumers:         deps.Consumers,
		tokens:            deps.Tokens,
		adminUsername:     deps.AdminUsername,
		adminPasswordHash: deps.AdminPasswordHash,
		now:               deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) AdminLogin(_ context.Context, req domain.AdminLoginRequest) (*domain.LoginResult, error) {
	if s.adminPasswordHash == "" {
		return nil, fmt.Errorf("admin login is not configured: %w", domain.ErrUnauthorized)
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		slog.Warn("admin login rejected", "username", req.Username)
		return nil, errInvalidCredentials
	}
	return s.issue(domain.RoleAdmin, s.adminUsername, nil)
}

func (s *service) ConsumerLogin(ctx context.Context, req domain.ConsumerLoginRequest) (*domain.LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.PIN == "" {
		return nil, fmt.Errorf("identifier and pin are required: %w", domain.ErrMissingField)
	}
	if len(req.PIN) != 6 || strings.Trim(req.PIN, "0123456789") != "" {
		return nil, fmt.Errorf("pin must be 6 digits: %w", domain.ErrInvalidFormat)
	}

	var aadhaar string
	switch req.IdentifierType {
	case "aadhar":
		aadhaar = identifier
	case "ration":
		rec, err := s.consumers.GetApprovedByRationCard(ctx, identifier)
		if err != nil {
			return nil, err
		}
		aadhaar = rec.AadharNumber
	default:
		return nil, fmt.Errorf("identifierType must be aadhar or ration: %w", domain.ErrBadRequest)
	}

	account, id, err := s.identity.ConsumerAccount(ctx, aadhaar)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PINHash), []byte(req.PIN)); err != nil {
		return nil, fmt.Errorf("invalid PIN: %w", domain.ErrUnauthorized)
	}
	return s.issue(domain.RoleConsumer, account.AadharNumber, id)
}

// WalletLogin resolves a shopkeeper or delivery agent. Without a signature the
// identity is returned without a token.
func (s *service) WalletLogin(ctx context.Context, role domain.Role, req domain.WalletLoginRequest) (*domain.LoginResult, error) {
	if role != domain.RoleShopkeeper && role != domain.RoleDeliveryAgent {
		return nil, fmt.Errorf("wallet login is not available for %s: %w", role, domain.ErrBadRequest)
	}
	wallet, err := address.Normalize(req.Address)
	if err != nil {
		return nil, err
	}
	id, err := s.identity.Resolve(ctx, role, wallet)
	if err != nil {
		return nil, err
	}
	if req.Signature == "" {
		return &domain.LoginResult{Role: role, Subject: wallet, User: id}, nil
	}
	if err := chain.VerifyLogin(wallet, req.IssuedAt, req.Signature, s.now()); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	return s.issue(role, wallet, id)
}

func (s *service) issue(role domain.Role, subject string, id *domain.Identity) (*domain.LoginResult, error) {
	token, expires, err := s.tokens.Sign(subject, string(role))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	slog.Info("login", "role", role, "subject", subject)
	return &domain.LoginResult{
		Role:      role,
		Subject:   subject,
		Token:     token,
		ExpiresAt: &expires,
		User:      id,
	}, nil
}
