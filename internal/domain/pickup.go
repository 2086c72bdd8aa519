package domain

// AssignPickupRequest schedules a ration pickup on chain.
type AssignPickupRequest struct {
	DeliveryAgent        string `json:"deliveryAgent" validate:"required,eth_addr"`
	Shopkeeper           string `json:"shopkeeper" validate:"required,eth_addr"`
	RationAmount         uint64 `json:"rationAmount" validate:"required,gt=0"`
	Category             string `json:"category" validate:"required"`
	PickupLocation       string `json:"pickupLocation" validate:"required"`
	DeliveryInstructions string `json:"deliveryInstructions"`
}

type PickupAssignment struct {
	PickupID    string              `json:"pickupId,omitempty"`
	TxHash      string              `json:"txHash"`
	ExplorerURL string              `json:"explorerUrl,omitempty"`
	Assignment  AssignPickupRequest `json:"assignment"`
}

type MarkDeliveredRequest struct {
	Aadhaar string `json:"aadhaar" validate:"required,numeric,len=12"`
	TokenID string `json:"tokenId" validate:"required,numeric"`
}

// TxResult is the outcome of a confirmed admin transaction.
type TxResult struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}
