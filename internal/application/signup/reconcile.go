package signup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
)

// Reconciler is recorded as reviewer on requests approved by Reconcile.
const Reconciler = "reconciler"

type ReconcileReport struct {
	Checked  int `json:"checked"`
	Approved int `json:"approved"`
	Failed   int `json:"failed"`
}

// Reconcile approves pending delivery and shopkeeper requests whose wallet is
// already registered on chain, e.g. after a crash between the transaction and
// the status flip. Chain lookup failures are counted and skipped.
func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	pendingDelivery, err := s.delivery.ListByStatus(ctx, string(domain.SignupPending))
	if err != nil {
		return nil, err
	}
	for _, rec := range pendingDelivery {
		report.Checked++
		info, err := s.chain.DeliveryAgentInfo(ctx, rec.WalletAddress)
		if err != nil {
			report.Failed++
			slog.Warn("reconcile chain lookup failed", "kind", domain.SignupDelivery, "signup_id", rec.ID, "err", err)
			continue
		}
		if address.IsZero(info.AgentAddress) {
			continue
		}
		_, err = s.delivery.Decide(ctx, rec.ID, s.reconciledDecision(false))
		s.countDecision(report, domain.SignupDelivery, rec.ID, err)
	}

	pendingShops, err := s.shopkeepers.ListByStatus(ctx, string(domain.SignupPending))
	if err != nil {
		return report, err
	}
	for _, rec := range pendingShops {
		report.Checked++
		info, err := s.chain.ShopkeeperInfo(ctx, rec.WalletAddress)
		if err != nil {
			report.Failed++
			slog.Warn("reconcile chain lookup failed", "kind", domain.SignupShopkeeper, "signup_id", rec.ID, "err", err)
			continue
		}
		if address.IsZero(info.ShopkeeperAddress) {
			continue
		}
		_, err = s.shopkeepers.Decide(ctx, rec.ID, s.reconciledDecision(true))
		s.countDecision(report, domain.SignupShopkeeper, rec.ID, err)
	}

	if report.Approved > 0 || report.Failed > 0 {
		slog.Info("signup reconciliation finished", "checked", report.Checked, "approved", report.Approved, "failed", report.Failed)
	}
	return report, nil
}

func (s *service) reconciledDecision(blockchainRegistered bool) domain.SignupDecision {
	return domain.SignupDecision{
		Status:               domain.SignupApproved,
		ReviewedBy:           Reconciler,
		ReviewedAt:           s.now().UTC(),
		AdminNote:            "approved after matching on-chain registration",
		BlockchainRegistered: blockchainRegistered,
	}
}

func (s *service) countDecision(report *ReconcileReport, kind domain.SignupKind, id string, err error) {
	switch {
	case err == nil:
		report.Approved++
		slog.Info("signup reconciled", "kind", kind, "signup_id", id)
	case errors.Is(err, domain.ErrAlreadyProcessed):
		// an admin decided it meanwhile
	default:
		report.Failed++
		slog.Warn("reconcile status update failed", "kind", kind, "signup_id", id, "err", err)
	}
}
