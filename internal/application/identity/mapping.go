package identity

import "github.com/grainlyyy/pds-api/internal/domain"

func fromShopkeeperRecord(r *domain.ShopkeeperRecord) *domain.Identity {
	return &domain.Identity{
		Role:                   domain.RoleShopkeeper,
		Address:                r.ShopkeeperAddress,
		Name:                   r.Name,
		Mobile:                 r.Mobile,
		Area:                   r.Area,
		RegistrationTime:       r.RegistrationTime,
		TotalConsumersAssigned: r.TotalConsumersAssigned,
		TotalTokensIssued:      r.TotalTokensIssued,
		TotalDeliveries:        r.TotalDeliveries,
		IsActive:               r.IsActive,
		Provenance:             domain.ProvenanceBlockchain,
	}
}

func fromDeliveryRecord(r *domain.DeliveryAgentRecord) *domain.Identity {
	return &domain.Identity{
		Role:               domain.RoleDeliveryAgent,
		Address:            r.AgentAddress,
		Name:               r.Name,
		Mobile:             r.Mobile,
		AssignedShopkeeper: r.AssignedShopkeeper,
		RegistrationTime:   r.RegistrationTime,
		TotalDeliveries:    r.TotalDeliveries,
		IsActive:           r.IsActive,
		Provenance:         domain.ProvenanceBlockchain,
	}
}

func fromConsumerRecord(r *domain.ConsumerRecord) *domain.Identity {
	return &domain.Identity{
		Role:                domain.RoleConsumer,
		Aadhaar:             r.Aadhaar,
		Name:                r.Name,
		Mobile:              r.Mobile,
		Category:            r.Category,
		AssignedShopkeeper:  r.AssignedShopkeeper,
		RegistrationTime:    r.RegistrationTime,
		TotalTokensReceived: r.TotalTokensReceived,
		TotalTokensClaimed:  r.TotalTokensClaimed,
		IsActive:            r.IsActive,
		Provenance:          domain.ProvenanceBlockchain,
	}
}

func fromShopkeeperSignup(s *domain.ShopkeeperSignup) *domain.Identity {
	return &domain.Identity{
		Role:             domain.RoleShopkeeper,
		Address:          s.WalletAddress,
		Name:             s.Name,
		Mobile:           s.Mobile,
		Area:             s.Area,
		RegistrationTime: s.SubmittedAt.Unix(),
		IsActive:         true,
		Provenance:       domain.ProvenanceDatabase,
	}
}

func fromDeliverySignup(s *domain.DeliverySignup) *domain.Identity {
	return &domain.Identity{
		Role:             domain.RoleDeliveryAgent,
		Address:          s.WalletAddress,
		Name:             s.Name,
		Mobile:           s.Phone,
		RegistrationTime: s.SubmittedAt.Unix(),
		IsActive:         true,
		Provenance:       domain.ProvenanceDatabase,
	}
}

func fromConsumerSignup(s *domain.ConsumerSignup, p domain.Provenance) *domain.Identity {
	return &domain.Identity{
		Role:             domain.RoleConsumer,
		Aadhaar:          s.AadharNumber,
		Name:             s.Name,
		Mobile:           s.Phone,
		RegistrationTime: s.SubmittedAt.Unix(),
		IsActive:         true,
		Provenance:       p,
	}
}
