package api

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/invoice"

	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/customer"
)

// invoiceRide bills a finished ride through Stripe. It runs off the request
// goroutine so a slow payment provider never holds up the receipt response.
func (a *API) invoiceRide(logger *slog.Logger, cust *customer.Customer, r coordinator.Receipt) {
	if !cust.StripeID.Valid {
		logger.Warn("customer has no stripe ID, skipping invoice", "customer_id", cust.ID)
		return
	}

	in, err := invoice.New(&stripe.InvoiceParams{
		Customer: stripe.String(cust.StripeID.String),
	})
	if err != nil {
		logger.Error("failed to create invoice", "error", err)
		return
	}

	// Stripe amounts are in the smallest currency unit.
	lines := []*stripe.InvoiceAddLinesLineParams{
		{
			Amount:      stripe.Int64(int64(math.Round(coordinator.BaseFee * 100))),
			Description: stripe.String("Ride unlock"),
		},
		{
			Amount: stripe.Int64(int64(math.Round(float64(r.DurationMinutes) * coordinator.PerMinuteRate * 100))),
			Description: stripe.String(
				fmt.Sprintf("Ride - %dm%02ds", r.DurationMinutes, r.DurationSeconds)),
		},
	}
	if r.ParkingFee > 0 {
		lines = append(lines, &stripe.InvoiceAddLinesLineParams{
			Amount:      stripe.Int64(int64(math.Round(r.ParkingFee * 100))),
			Description: stripe.String("Parking surcharge"),
		})
	}

	_, err = invoice.AddLines(in.ID, &stripe.InvoiceAddLinesParams{Lines: lines})
	if err != nil {
		logger.Error("failed to add lines to invoice", "error", err)
		return
	}

	_, err = invoice.FinalizeInvoice(in.ID, &stripe.InvoiceFinalizeInvoiceParams{})
	if err != nil {
		logger.Error("failed to finalize invoice", "error", err)
		return
	}

	_, err = invoice.Pay(in.ID, nil)
	if err != nil {
		logger.Error("failed to pay invoice", "error", err)
	}
}
