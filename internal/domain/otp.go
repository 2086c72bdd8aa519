package domain

import (
	"strings"
	"time"
)

// OTPValidity is how long a delivery-confirmation code stays usable.
const OTPValidity = 300 * time.Second

// OTP is a single-use delivery confirmation code for a
// (pickup, delivery agent, shopkeeper) triple.
// PK: triple_key. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OTP struct {
	TripleKey            string     `json:"-" dynamodbav:"triple_key"`
	PickupID             string     `json:"pickupId" dynamodbav:"pickup_id"`
	DeliveryAgentAddress string     `json:"deliveryAgentAddress" dynamodbav:"delivery_agent_address"`
	ShopkeeperAddress    string     `json:"shopkeeperAddress" dynamodbav:"shopkeeper_address"`
	Code                 string     `json:"-" dynamodbav:"otp_code"`
	GeneratedAt          time.Time  `json:"generatedAt" dynamodbav:"generated_at"`
	ExpiresAt            int64      `json:"-" dynamodbav:"expires_at"`
	IsUsed               bool       `json:"isUsed" dynamodbav:"is_used"`
	UsedAt               *time.Time `json:"usedAt,omitempty" dynamodbav:"used_at"`
	DeliveryLocation     string     `json:"deliveryLocation,omitempty" dynamodbav:"delivery_location"`
	RationAmount         string     `json:"rationAmount,omitempty" dynamodbav:"ration_amount"`
	Category             string     `json:"category,omitempty" dynamodbav:"category"`
}

// OTPTripleKey builds the storage key for a triple. Addresses are expected to be lower case.
func OTPTripleKey(pickupID, agent, shopkeeper string) string {
	return strings.Join([]string{pickupID, agent, shopkeeper}, "#")
}

// Age reports how long ago the code was generated.
func (o *OTP) Age(now time.Time) time.Duration {
	return now.Sub(o.GeneratedAt)
}

// Expired reports whether the code is past its validity window at now.
func (o *OTP) Expired(now time.Time) bool {
	return o.Age(now) > OTPValidity
}

// Active reports whether the code can still be verified at now.
func (o *OTP) Active(now time.Time) bool {
	return !o.IsUsed && !o.Expired(now)
}

// Remaining is the time left in the validity window, never negative.
func (o *OTP) Remaining(now time.Time) time.Duration {
	if d := OTPValidity - o.Age(now); d > 0 {
		return d
	}
	return 0
}

// DeliveryContext is optional information attached to a code at generation.
type DeliveryContext struct {
	Location     string `json:"location,omitempty"`
	RationAmount string `json:"rationAmount,omitempty"`
	Category     string `json:"category,omitempty"`
}

type GenerateOTPRequest struct {
	PickupID             string           `json:"pickupId"`
	DeliveryAgentAddress string           `json:"deliveryAgentAddress"`
	ShopkeeperAddress    string           `json:"shopkeeperAddress"`
	DeliveryDetails      *DeliveryContext `json:"deliveryDetails,omitempty"`
}

type VerifyOTPRequest struct {
	PickupID          string `json:"pickupId"`
	ShopkeeperAddress string `json:"shopkeeperAddress"`
	OTPCode           string `json:"otpCode"`
}

type GeneratedOTP struct {
	PickupID      string    `json:"pickupId"`
	OTPCode       string    `json:"otpCode"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RemainingTime int       `json:"remainingTime"` // seconds
}

type VerifiedOTP struct {
	PickupID             string          `json:"pickupId"`
	DeliveryAgentAddress string          `json:"deliveryAgentAddress"`
	ShopkeeperAddress    string          `json:"shopkeeperAddress"`
	VerifiedAt           time.Time       `json:"verifiedAt"`
	DeliveryDetails      DeliveryContext `json:"deliveryDetails"`
}

// OTPDetails is the code-free view returned to participants and admins.
type OTPDetails struct {
	PickupID             string     `json:"pickupId"`
	DeliveryAgentAddress string     `json:"deliveryAgentAddress"`
	ShopkeeperAddress    string     `json:"shopkeeperAddress"`
	GeneratedAt          time.Time  `json:"generatedAt"`
	ExpiresAt            time.Time  `json:"expiresAt"`
	IsUsed               bool       `json:"isUsed"`
	UsedAt               *time.Time `json:"usedAt,omitempty"`
	IsExpired            bool       `json:"isExpired"`
	RemainingTime        int        `json:"remainingTime"`
}

type OTPStats struct {
	Total   int          `json:"total"`
	Active  int          `json:"active"`
	Used    int          `json:"used"`
	Expired int          `json:"expired"`
	Recent  []OTPDetails `json:"recentOtps"`
}
