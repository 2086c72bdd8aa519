package signup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"github.com/grainlyyy/pds-api/internal/pkg/phone"
)

// Reviews follow one order: reject a decided request before any side effect,
// send the chain transaction and wait for its receipt, then flip the status
// with a conditional update. A failed transaction leaves the request pending.

func (s *service) ReviewConsumer(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.ConsumerSignup, error) {
	rec, err := s.consumers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.SignupPending {
		return nil, fmt.Errorf("consumer signup %s is %s: %w", id, rec.Status, domain.ErrAlreadyProcessed)
	}
	decision, err := s.baseDecision(reviewer, req)
	if err != nil {
		return nil, err
	}

	if req.Action == domain.ReviewApprove && req.ShopkeeperAddress != "" {
		shopkeeper, err := address.Normalize(req.ShopkeeperAddress)
		if err != nil {
			return nil, fmt.Errorf("shopkeeperAddress: %w", err)
		}
		if strings.TrimSpace(req.Category) == "" {
			return nil, fmt.Errorf("category is required to register a consumer on chain: %w", domain.ErrMissingField)
		}
		categories, err := s.Categories(ctx)
		if err != nil {
			return nil, err
		}
		category, ok := categories.Normalize(req.Category)
		if !ok {
			return nil, fmt.Errorf("category must be one of %s: %w", strings.Join(categories.Categories, ", "), domain.ErrInvalidFormat)
		}
		tx, err := s.chain.RegisterConsumer(ctx, rec.AadharNumber, rec.Name, rec.Phone, category, shopkeeper)
		if err != nil {
			return nil, fmt.Errorf("register consumer on chain: %w", err)
		}
		decision.TxHash = tx.TxHash
		decision.BlockchainRegistered = true
	}

	decided, err := s.consumers.Decide(ctx, id, decision)
	if err != nil {
		return nil, err
	}
	slog.Info("consumer signup reviewed", "signup_id", id, "status", decided.Status, "reviewed_by", reviewer, "tx_hash", decided.TxHash)
	s.sendSMS(ctx, decided.Phone, decisionSMS("consumer", decided.Status, decided.RejectionReason))
	return decided, nil
}

func (s *service) ReviewDelivery(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.DeliverySignup, error) {
	rec, err := s.delivery.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.SignupPending {
		return nil, fmt.Errorf("delivery signup %s is %s: %w", id, rec.Status, domain.ErrAlreadyProcessed)
	}
	decision, err := s.baseDecision(reviewer, req)
	if err != nil {
		return nil, err
	}

	var shopkeeper string
	if req.Action == domain.ReviewApprove {
		if req.ShopkeeperAddress != "" {
			if shopkeeper, err = address.Normalize(req.ShopkeeperAddress); err != nil {
				return nil, fmt.Errorf("shopkeeperAddress: %w", err)
			}
		}
		tx, err := s.chain.RegisterDeliveryAgent(ctx, rec.WalletAddress, rec.Name, rec.Phone)
		if err != nil {
			return nil, fmt.Errorf("register delivery agent on chain: %w", err)
		}
		decision.TxHash = tx.TxHash
	}

	decided, err := s.delivery.Decide(ctx, id, decision)
	if err != nil {
		return nil, err
	}
	slog.Info("delivery signup reviewed", "signup_id", id, "status", decided.Status, "reviewed_by", reviewer, "tx_hash", decided.TxHash)

	if shopkeeper != "" {
		if _, err := s.chain.AssignDeliveryAgentToShopkeeper(ctx, decided.WalletAddress, shopkeeper); err != nil {
			slog.Warn("delivery agent approved but shopkeeper assignment failed",
				"signup_id", id, "agent", decided.WalletAddress, "shopkeeper", shopkeeper, "err", err)
		}
	}
	s.notify(ctx, decided.WalletAddress, string(domain.RoleDeliveryAgent), decided.Status, decided.TxHash)
	s.sendSMS(ctx, decided.Phone, decisionSMS("delivery agent", decided.Status, decided.RejectionReason))
	return decided, nil
}

func (s *service) ReviewShopkeeper(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (*domain.ShopkeeperSignup, error) {
	rec, err := s.shopkeepers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.SignupPending {
		return nil, fmt.Errorf("shopkeeper signup %s is %s: %w", id, rec.Status, domain.ErrAlreadyProcessed)
	}
	decision, err := s.baseDecision(reviewer, req)
	if err != nil {
		return nil, err
	}

	if req.Action == domain.ReviewApprove {
		tx, err := s.chain.RegisterShopkeeper(ctx, rec.WalletAddress, rec.Name, rec.Area)
		if err != nil {
			return nil, fmt.Errorf("register shopkeeper on chain: %w", err)
		}
		decision.TxHash = tx.TxHash
		decision.BlockchainRegistered = true
	}

	decided, err := s.shopkeepers.Decide(ctx, id, decision)
	if err != nil {
		return nil, err
	}
	slog.Info("shopkeeper signup reviewed", "signup_id", id, "status", decided.Status, "reviewed_by", reviewer, "tx_hash", decided.TxHash)
	s.notify(ctx, decided.WalletAddress, string(domain.RoleShopkeeper), decided.Status, decided.TxHash)
	s.sendSMS(ctx, decided.Mobile, decisionSMS("shopkeeper", decided.Status, decided.RejectionReason))
	return decided, nil
}

func (s *service) baseDecision(reviewer string, req domain.ReviewRequest) (domain.SignupDecision, error) {
	d := domain.SignupDecision{
		ReviewedBy: reviewer,
		ReviewedAt: s.now().UTC(),
		AdminNote:  req.AdminNote,
	}
	switch req.Action {
	case domain.ReviewApprove:
		d.Status = domain.SignupApproved
	case domain.ReviewReject:
		d.Status = domain.SignupRejected
		d.RejectionReason = req.RejectionReason
		if d.RejectionReason == "" {
			d.RejectionReason = "No reason provided"
		}
	default:
		return d, fmt.Errorf("action must be approve or reject: %w", domain.ErrBadRequest)
	}
	return d, nil
}

func (s *service) notify(ctx context.Context, wallet, recipientType string, status domain.SignupStatus, txHash string) {
	if s.notifier == nil || wallet == "" {
		return
	}
	data := map[string]interface{}{"status": string(status)}
	if txHash != "" {
		data["txHash"] = txHash
	}
	_, err := s.notifier.Create(ctx, domain.CreateNotificationRequest{
		Type:             "signup_" + string(status),
		RecipientAddress: wallet,
		RecipientType:    recipientType,
		Data:             data,
		Message:          fmt.Sprintf("Your %s registration was %s.", strings.ReplaceAll(recipientType, "-", " "), status),
	})
	if err != nil {
		slog.Warn("signup decision notification failed", "recipient", wallet, "err", err)
	}
}

func (s *service) sendSMS(ctx context.Context, to, message string) {
	if s.sms == nil || phone.Placeholder(to) {
		return
	}
	if err := s.sms.SendSMS(ctx, to, message); err != nil {
		slog.Warn("signup decision sms failed", "err", err)
	}
}

func decisionSMS(role string, status domain.SignupStatus, reason string) string {
	if status == domain.SignupApproved {
		return fmt.Sprintf("Grainlyyy: your %s registration has been approved.", role)
	}
	return fmt.Sprintf("Grainlyyy: your %s registration was rejected. Reason: %s", role, reason)
}
