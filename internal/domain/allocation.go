package domain

import "time"

type AllocationStatus string

const (
	AllocationActive    AllocationStatus = "active"
	AllocationInactive  AllocationStatus = "inactive"
	AllocationSuspended AllocationStatus = "suspended"
)

// Allocation pairs a delivery rider with a shopkeeper.
type Allocation struct {
	AllocationID      string           `json:"id" dynamodbav:"allocation_id"`
	ShopkeeperName    string           `json:"shopkeeperName" dynamodbav:"shopkeeper_name"`
	ShopkeeperAddress string           `json:"shopkeeperAddress" dynamodbav:"shopkeeper_address"`
	RiderName         string           `json:"riderName" dynamodbav:"rider_name"`
	RiderAddress      string           `json:"riderAddress" dynamodbav:"rider_address"`
	AllocationDate    time.Time        `json:"allocationDate" dynamodbav:"allocation_date"`
	Status            AllocationStatus `json:"status" dynamodbav:"status"`
	CreatedAt         time.Time        `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" dynamodbav:"updated_at"`
}

type AllocationParty struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required,eth_addr"`
}

type CreateAllocationRequest struct {
	Shopkeeper    AllocationParty  `json:"shopkeeper" validate:"required"`
	DeliveryRider AllocationParty  `json:"deliveryRider" validate:"required"`
	Status        AllocationStatus `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

type UpdateAllocationRequest struct {
	ShopkeeperName *string           `json:"shopkeeperName"`
	RiderName      *string           `json:"riderName"`
	Status         *AllocationStatus `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

type AllocationFilter struct {
	Status     string
	Shopkeeper string
	Rider      string
}
