package pickup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
)

// ABIURLTTL is how long a presigned ABI download link stays valid.
const ABIURLTTL = 15 * time.Minute

// Chain is the admin transaction surface for ration logistics.
type Chain interface {
	AssignRationPickup(ctx context.Context, req domain.AssignPickupRequest) (string, *domain.TxResult, error)
	ConfirmRationReceipt(ctx context.Context, pickupID string) (*domain.TxResult, error)
	MarkRationDeliveredByAadhaar(ctx context.Context, aadhaar, tokenID string) (*domain.TxResult, error)
}

type Notifier interface {
	Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error)
}

// ABIDocument is the stored facet document the chain client loads its ABI from.
type ABIDocument interface {
	WriteDocument(ctx context.Context, data []byte) (string, error)
	URL(ctx context.Context, ttl time.Duration) (string, error)
}

// ABICache drops the parsed ABI so the next call reloads the document.
type ABICache interface {
	Invalidate()
}

type ABIUpload struct {
	Location string `json:"location"`
	Entries  int    `json:"entries"`
	Methods  int    `json:"methods"`
	Events   int    `json:"events"`
}

type Service interface {
	Assign(ctx context.Context, req domain.AssignPickupRequest) (*domain.PickupAssignment, error)
	Confirm(ctx context.Context, pickupID string) (*domain.TxResult, error)
	MarkDelivered(ctx context.Context, req domain.MarkDeliveredRequest) (*domain.TxResult, error)
	UploadABI(ctx context.Context, doc []byte) (*ABIUpload, error)
	ABIURL(ctx context.Context) (string, error)
}

// ServiceDeps wires the pickup service. Notifier is optional; ABI document
// management is disabled when Document is nil.
type ServiceDeps struct {
	Chain    Chain
	Notifier Notifier
	Document ABIDocument
	Cache    ABICache
}

type service struct {
	chain    Chain
	notifier Notifier
	document ABIDocument
	cache    ABICache
}

func NewService(deps ServiceDeps) Service {
	return &service{
		chain:    deps.Chain,
		notifier: deps.Notifier,
		document: deps.Document,
		cache:    deps.Cache,
	}
}

func (s *service) Assign(ctx context.Context, req domain.AssignPickupRequest) (*domain.PickupAssignment, error) {
	agent, err := address.Normalize(req.DeliveryAgent)
	if err != nil {
		return nil, fmt.Errorf("deliveryAgent: %w", err)
	}
	shop, err := address.Normalize(req.Shopkeeper)
	if err != nil {
		return nil, fmt.Errorf("shopkeeper: %w", err)
	}
	if req.RationAmount == 0 || strings.TrimSpace(req.Category) == "" || strings.TrimSpace(req.PickupLocation) == "" {
		return nil, fmt.Errorf("rationAmount, category and pickupLocation are required: %w", domain.ErrMissingField)
	}
	req.DeliveryAgent, req.Shopkeeper = agent, shop

	pickupID, tx, err := s.chain.AssignRationPickup(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("assign ration pickup: %w", err)
	}
	slog.Info("ration pickup assigned", "pickup_id", pickupID, "agent", agent, "shopkeeper", shop, "tx_hash", tx.TxHash)

	data := map[string]interface{}{
		"pickupId":       pickupID,
		"rationAmount":   req.RationAmount,
		"category":       req.Category,
		"pickupLocation": req.PickupLocation,
		"txHash":         tx.TxHash,
	}
	s.notify(ctx, agent, string(domain.RoleDeliveryAgent), data,
		fmt.Sprintf("New ration pickup assigned: %d units of %s at %s.", req.RationAmount, req.Category, req.PickupLocation))
	s.notify(ctx, shop, string(domain.RoleShopkeeper), data,
		fmt.Sprintf("A delivery agent has been assigned to bring %d units of %s.", req.RationAmount, req.Category))

	return &domain.PickupAssignment{
		PickupID:    pickupID,
		TxHash:      tx.TxHash,
		ExplorerURL: tx.ExplorerURL,
		Assignment:  req,
	}, nil
}

func (s *service) notify(ctx context.Context, recipient, recipientType string, data map[string]interface{}, message string) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Create(ctx, domain.CreateNotificationRequest{
		Type:             "pickup_assigned",
		RecipientAddress: recipient,
		RecipientType:    recipientType,
		Data:             data,
		Message:          message,
	})
	if err != nil {
		slog.Warn("pickup notification failed", "recipient", recipient, "err", err)
	}
}

func (s *service) Confirm(ctx context.Context, pickupID string) (*domain.TxResult, error) {
	if strings.TrimSpace(pickupID) == "" {
		return nil, fmt.Errorf("pickupId is required: %w", domain.ErrMissingField)
	}
	tx, err := s.chain.ConfirmRationReceipt(ctx, pickupID)
	if err != nil {
		return nil, fmt.Errorf("confirm ration receipt: %w", err)
	}
	return tx, nil
}

func (s *service) MarkDelivered(ctx context.Context, req domain.MarkDeliveredRequest) (*domain.TxResult, error) {
	if req.Aadhaar == "" || req.TokenID == "" {
		return nil, fmt.Errorf("aadhaar and tokenId are required: %w", domain.ErrMissingField)
	}
	tx, err := s.chain.MarkRationDeliveredByAadhaar(ctx, req.Aadhaar, req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("mark ration delivered: %w", err)
	}
	return tx, nil
}

// UploadABI validates a facet document by merging and parsing it, stores the
// raw document and drops the cached ABI.
func (s *service) UploadABI(ctx context.Context, doc []byte) (*ABIUpload, error) {
	if s.document == nil {
		return nil, fmt.Errorf("ABI document storage is not configured: %w", domain.ErrBadRequest)
	}
	parsed, merged, err := chain.ParseMerged(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid ABI document: %w: %w", domain.ErrBadRequest, err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(merged, &entries); err != nil {
		return nil, err
	}
	location, err := s.document.WriteDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	slog.Info("ABI document uploaded", "location", location, "methods", len(parsed.Methods), "events", len(parsed.Events))
	return &ABIUpload{
		Location: location,
		Entries:  len(entries),
		Methods:  len(parsed.Methods),
		Events:   len(parsed.Events),
	}, nil
}

func (s *service) ABIURL(ctx context.Context) (string, error) {
	if s.document == nil {
		return "", fmt.Errorf("ABI document storage is not configured: %w", domain.ErrNotFound)
	}
	return s.document.URL(ctx, ABIURLTTL)
}
