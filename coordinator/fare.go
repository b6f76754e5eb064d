package coordinator

import "time"

// Fare schedule, in NOK.
const (
	PerMinuteRate    = 2.5
	BaseFee          = 2.5
	ParkingSurcharge = 10.0
)

// Receipt is the fare breakdown for a completed ride.
type Receipt struct {
	DurationMinutes int     `json:"durationMinutes"`
	DurationSeconds int     `json:"durationSeconds"`
	Cost            float64 `json:"cost"`
	ParkingFee      float64 `json:"parkingFee"`
	TotalCost       float64 `json:"totalCost"`
}

// ComputeReceipt prices a ride. Whole minutes are charged; the leftover
// seconds appear on the receipt but are free. The parking surcharge applies
// when the scooter was left in a non-upright orientation.
func ComputeReceipt(activatedAt, stoppedAt time.Time, increasedFare bool) Receipt {
	elapsed := stoppedAt.Sub(activatedAt)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60

	r := Receipt{
		DurationMinutes: minutes,
		DurationSeconds: seconds,
		Cost:            float64(minutes)*PerMinuteRate + BaseFee,
	}
	if increasedFare {
		r.ParkingFee = ParkingSurcharge
	}
	r.TotalCost = r.Cost + r.ParkingFee
	return r
}
