package http

import (
	"github.com/grainlyyy/pds-api/internal/application/allocation"
	"github.com/grainlyyy/pds-api/internal/application/auth"
	"github.com/grainlyyy/pds-api/internal/application/identity"
	"github.com/grainlyyy/pds-api/internal/application/notification"
	"github.com/grainlyyy/pds-api/internal/application/otp"
	"github.com/grainlyyy/pds-api/internal/application/pickup"
	"github.com/grainlyyy/pds-api/internal/application/signup"
	"github.com/grainlyyy/pds-api/internal/transport/http/handler"
	"github.com/grainlyyy/pds-api/internal/transport/http/middleware"
)

// Deps holds the application services and infrastructure the router serves.
type Deps struct {
	Auth          auth.Service
	Identity      identity.Service
	OTP           otp.Service
	Signups       signup.Service
	Notifications notification.Service
	Allocations   allocation.Service
	Pickups       pickup.Service

	Tokens       middleware.TokenVerifier
	HealthChecks map[string]handler.HealthCheck
}
