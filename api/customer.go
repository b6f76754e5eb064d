package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v84"
	stripecustomer "github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/customersession"

	"github.com/citywheel/scooterfleet/internal/middleware"
)

// createCustomerSessionHandler links the rider to a Stripe customer on first
// use and hands the mobile client a customer session for payment setup.
func (a *API) createCustomerSessionHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	if !cust.StripeID.Valid {
		stripeCustomer, err := stripecustomer.New(&stripe.CustomerParams{
			Metadata: map[string]string{
				"auth0_id": cust.Auth0ID,
				"id":       cust.ID.String(),
			},
		})
		if err != nil {
			logger.Error("failed to create stripe customer", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if err := a.cr.AddStripeID(c, cust.Auth0ID, stripeCustomer.ID); err != nil {
			logger.Error("failed to save stripe customer ID", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		cust.StripeID.String = stripeCustomer.ID
		cust.StripeID.Valid = true
	}

	csParams := &stripe.CustomerSessionParams{
		Customer: stripe.String(cust.StripeID.String),
	}
	csParams.AddExtra("components[customer_sheet][enabled]", "true")
	csParams.AddExtra("components[customer_sheet][features][payment_method_remove]", "enabled")
	cs, err := customersession.New(csParams)
	if err != nil {
		logger.Error("failed to create customer session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, struct {
		CustomerID   string `json:"customerId"`
		ClientSecret string `json:"clientSecret"`
	}{
		CustomerID:   cust.StripeID.String,
		ClientSecret: cs.ClientSecret,
	})
}
