package device

import (
	"context"
	"sync"
	"time"
)

// SimSensor is a software stand-in for the scooter's hardware, used by the
// test suite and by `cmd/scooter --sim`. Impact and orientation values are
// settable; acknowledgement is delivered through Press.
type SimSensor struct {
	mu          sync.Mutex
	magnitude   float64
	orientation Orientation
	indicator   IndicatorState
	indicators  []IndicatorState

	pressed chan struct{}
}

func NewSimSensor() *SimSensor {
	return &SimSensor{
		orientation: Upright,
		pressed:     make(chan struct{}, 1),
	}
}

// SetMagnitude sets the value returned by subsequent impact samples.
func (s *SimSensor) SetMagnitude(g float64) {
	s.mu.Lock()
	s.magnitude = g
	s.mu.Unlock()
}

// SetOrientation sets the attitude returned by subsequent orientation samples.
func (s *SimSensor) SetOrientation(o Orientation) {
	s.mu.Lock()
	s.orientation = o
	s.mu.Unlock()
}

// Press simulates the rider pressing the acknowledgement button.
func (s *SimSensor) Press() {
	select {
	case s.pressed <- struct{}{}:
	default:
	}
}

// Indicator returns the state the indicator currently shows.
func (s *SimSensor) Indicator() IndicatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator
}

// IndicatorHistory returns every state the indicator has been set to.
func (s *SimSensor) IndicatorHistory() []IndicatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IndicatorState(nil), s.indicators...)
}

func (s *SimSensor) SampleImpact() (bool, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.magnitude > ImpactThreshold, s.magnitude
}

func (s *SimSensor) SampleOrientation() Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orientation
}

func (s *SimSensor) WaitForAcknowledgement(ctx context.Context, timeout time.Duration) bool {
	s.SetIndicator(IndicatorAlert)
	select {
	case <-s.pressed:
		return true
	case <-time.After(timeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *SimSensor) SetIndicator(state IndicatorState) {
	s.mu.Lock()
	s.indicator = state
	s.indicators = append(s.indicators, state)
	s.mu.Unlock()
}
