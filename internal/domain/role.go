package domain

import "fmt"

// Role identifies who is acting. Values double as JWT role claims.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleShopkeeper    Role = "shopkeeper"
	RoleDeliveryAgent Role = "delivery-agent"
	RoleConsumer      Role = "consumer"
)

// ParseRole accepts the canonical names plus the short "delivery" alias used by
// the signup and login routes.
func ParseRole(s string) (Role, error) {
	switch s {
	case "shopkeeper":
		return RoleShopkeeper, nil
	case "delivery-agent", "delivery":
		return RoleDeliveryAgent, nil
	case "consumer":
		return RoleConsumer, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrBadRequest)
}
