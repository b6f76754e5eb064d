package middleware

import (
	"context"
	"log"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// FleetClaims carries the custom claims the fleet API cares about.
type FleetClaims struct {
	// Admin marks fleet operators, who see all bookings and may run the
	// maintenance flow.
	Admin bool `json:"https://scooterfleet/admin"`
}

func (c *FleetClaims) Validate(_ context.Context) error {
	return nil
}

// EnsureValidToken validates the Bearer token against the Auth0 tenant's
// JWKS and stores the claims in the request context.
func EnsureValidToken(domain, audience string) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &FleetClaims{}
		}),
	)
	if err != nil {
		return nil, err
	}

	m := jwtmiddleware.New(jwtValidator.ValidateToken)
	return adapter.Wrap(m.CheckJWT), nil
}

// GetAuth0ID extracts the user ID (sub claim) from the JWT token in the Gin context
func GetAuth0ID(c *gin.Context) (string, bool) {
	claims, exists := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !exists {
		log.Printf("No user claims found in context")
		return "", false
	}

	return claims.RegisteredClaims.Subject, true
}

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(c *gin.Context) bool {
	claims, exists := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !exists {
		return false
	}
	fc, ok := claims.CustomClaims.(*FleetClaims)
	return ok && fc.Admin
}
