package domain

import "time"

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ConsumerLoginRequest identifies a consumer by Aadhaar or ration card number.
type ConsumerLoginRequest struct {
	IdentifierType string `json:"identifierType" validate:"required,oneof=aadhar ration"`
	Identifier     string `json:"identifier" validate:"required"`
	PIN            string `json:"pin" validate:"required,numeric,len=6"`
}

// WalletLoginRequest logs a shopkeeper or delivery agent in by address. A
// token is only issued when Signature and IssuedAt are present.
type WalletLoginRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Signature string `json:"signature"`
	IssuedAt  int64  `json:"issuedAt"`
}

type LoginResult struct {
	Role      Role       `json:"role"`
	Subject   string     `json:"subject"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	User      *Identity  `json:"user,omitempty"`
}
