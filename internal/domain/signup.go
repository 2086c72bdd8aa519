package domain

import (
	"strings"
	"time"
)

type SignupStatus string

const (
	SignupPending  SignupStatus = "pending"
	SignupApproved SignupStatus = "approved"
	SignupRejected SignupStatus = "rejected"
)

// SignupKind selects one of the three signup queues.
type SignupKind string

const (
	SignupConsumer   SignupKind = "consumer"
	SignupDelivery   SignupKind = "delivery"
	SignupShopkeeper SignupKind = "shopkeeper"
)

// ConsumerSignup is a consumer application and, once approved, the PIN-login record.
type ConsumerSignup struct {
	ID              string       `json:"id" dynamodbav:"signup_id"`
	Name            string       `json:"name" dynamodbav:"name"`
	Phone           string       `json:"phone" dynamodbav:"phone"`
	HomeAddress     string       `json:"homeAddress" dynamodbav:"home_address"`
	RationCardID    string       `json:"rationCardId" dynamodbav:"ration_card_id"`
	AadharNumber    string       `json:"aadharNumber" dynamodbav:"aadhar_number"`
	PINHash         string       `json:"-" dynamodbav:"pin_hash"`
	Status          SignupStatus `json:"status" dynamodbav:"status"`
	AdminNote       string       `json:"adminNote,omitempty" dynamodbav:"admin_note"`
	RejectionReason string       `json:"rejectionReason,omitempty" dynamodbav:"rejection_reason"`
	TxHash          string       `json:"txHash,omitempty" dynamodbav:"tx_hash"`
	SubmittedAt     time.Time    `json:"submittedAt" dynamodbav:"submitted_at"`
	ReviewedAt      *time.Time   `json:"reviewedAt,omitempty" dynamodbav:"reviewed_at"`
	ReviewedBy      string       `json:"reviewedBy,omitempty" dynamodbav:"reviewed_by"`
}

// DeliverySignup is a delivery agent application.
type DeliverySignup struct {
	ID              string       `json:"id" dynamodbav:"signup_id"`
	Name            string       `json:"name" dynamodbav:"name"`
	Phone           string       `json:"phone" dynamodbav:"phone"`
	Address         string       `json:"address" dynamodbav:"address"`
	VehicleType     string       `json:"vehicleType" dynamodbav:"vehicle_type"`
	LicenseNumber   string       `json:"licenseNumber" dynamodbav:"license_number"`
	WalletAddress   string       `json:"walletAddress" dynamodbav:"wallet_address"`
	Status          SignupStatus `json:"status" dynamodbav:"status"`
	AdminNote       string       `json:"adminNote,omitempty" dynamodbav:"admin_note"`
	RejectionReason string       `json:"rejectionReason,omitempty" dynamodbav:"rejection_reason"`
	TxHash          string       `json:"blockchainTxHash,omitempty" dynamodbav:"tx_hash"`
	SubmittedAt     time.Time    `json:"submittedAt" dynamodbav:"submitted_at"`
	ReviewedAt      *time.Time   `json:"reviewedAt,omitempty" dynamodbav:"reviewed_at"`
	ReviewedBy      string       `json:"reviewedBy,omitempty" dynamodbav:"reviewed_by"`
}

// ShopkeeperSignup is a shopkeeper application.
type ShopkeeperSignup struct {
	ID                   string       `json:"id" dynamodbav:"signup_id"`
	Name                 string       `json:"name" dynamodbav:"name"`
	Mobile               string       `json:"mobile" dynamodbav:"mobile"`
	Area                 string       `json:"area" dynamodbav:"area"`
	Address              string       `json:"address" dynamodbav:"address"`
	WalletAddress        string       `json:"walletAddress" dynamodbav:"wallet_address"`
	ShopLicense          string       `json:"shopLicense,omitempty" dynamodbav:"shop_license"`
	Status               SignupStatus `json:"status" dynamodbav:"status"`
	AdminNote            string       `json:"adminNote,omitempty" dynamodbav:"admin_note"`
	RejectionReason      string       `json:"rejectionReason,omitempty" dynamodbav:"rejection_reason"`
	TxHash               string       `json:"txHash,omitempty" dynamodbav:"tx_hash"`
	BlockchainRegistered bool         `json:"blockchainRegistered" dynamodbav:"blockchain_registered"`
	SubmittedAt          time.Time    `json:"submittedAt" dynamodbav:"submitted_at"`
	ReviewedAt           *time.Time   `json:"reviewedAt,omitempty" dynamodbav:"reviewed_at"`
	ReviewedBy           string       `json:"reviewedBy,omitempty" dynamodbav:"reviewed_by"`
}

type ConsumerSignupRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,numeric,len=10"`
	HomeAddress  string `json:"homeAddress" validate:"required,max=500"`
	RationCardID string `json:"rationCardId" validate:"required"`
	AadharNumber string `json:"aadharNumber" validate:"required,numeric,len=12"`
	PIN          string `json:"pin" validate:"required,numeric,len=6"`
}

type DeliverySignupRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,numeric,len=10"`
	Address       string `json:"address" validate:"required,max=500"`
	VehicleType   string `json:"vehicleType" validate:"required,oneof=bicycle motorcycle car van truck"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
}

type ShopkeeperSignupRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Mobile        string `json:"mobile" validate:"required,numeric,len=10"`
	Area          string `json:"area" validate:"required"`
	Address       string `json:"address" validate:"required,max=500"`
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
	ShopLicense   string `json:"shopLicense"`
}

// ReviewAction is the admin decision on a pending request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

type ReviewRequest struct {
	Action          ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	AdminNote       string       `json:"adminNote"`
	RejectionReason string       `json:"rejectionReason"`
	// ShopkeeperAddress assigns an approved delivery agent, or registers an
	// approved consumer on chain under that shopkeeper.
	ShopkeeperAddress string `json:"shopkeeperAddress" validate:"omitempty,eth_addr"`
	// Category is the consumer ration category used for chain registration.
	Category string `json:"category"`
}

// SignupPage is one page of a signup queue.
type SignupPage[T any] struct {
	Items []T `json:"requests"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// SignupDecision is what gets written when a pending request is decided.
type SignupDecision struct {
	Status               SignupStatus
	ReviewedBy           string
	ReviewedAt           time.Time
	AdminNote            string
	RejectionReason      string
	TxHash               string
	BlockchainRegistered bool
}

// DefaultConsumerCategories are served when the contract cannot be read.
var DefaultConsumerCategories = []string{"BPL", "AAY", "APL", "PHH", "ANNAPURNA"}

// CategoryStat is one row of the contract's category-wise statistics.
type CategoryStat struct {
	Category  string `json:"category"`
	Consumers uint64 `json:"consumers"`
	Amount    uint64 `json:"amount"`
}

const (
	CategorySourceBlockchain = "blockchain"
	CategorySourceDefault    = "default"
)

// CategoryList is the set of ration categories a consumer can be registered under.
type CategoryList struct {
	Categories []string       `json:"categories"`
	Stats      []CategoryStat `json:"stats,omitempty"`
	Source     string         `json:"source"`
}

// Normalize returns the listed spelling of c, matched case-insensitively, or
// false when c is not listed.
func (l *CategoryList) Normalize(c string) (string, bool) {
	c = strings.TrimSpace(c)
	for _, known := range l.Categories {
		if strings.EqualFold(c, known) {
			return known, true
		}
	}
	return "", false
}
