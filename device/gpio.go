package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// IMU supplies the accelerometer-derived readings. The concrete driver for a
// given IMU chip lives outside this package; tests and the sim rig use
// SimSensor, which satisfies this too.
type IMU interface {
	SampleImpact() (bool, float64)
	SampleOrientation() Orientation
}

const blinkInterval = 200 * time.Millisecond

// HardwarePanel drives the rider-facing indicator LED and acknowledgement
// button through GPIO character device lines.
type HardwarePanel struct {
	led *gpiocdev.Line
	btn *gpiocdev.Line

	mu        sync.Mutex
	blinkStop chan struct{}

	pressed chan struct{}
}

// NewHardwarePanel requests the LED output line and the button input line
// from the named GPIO chip (e.g. "gpiochip0").
func NewHardwarePanel(chip string, ledOffset, buttonOffset int) (*HardwarePanel, error) {
	p := &HardwarePanel{pressed: make(chan struct{}, 1)}

	led, err := gpiocdev.RequestLine(chip, ledOffset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request led line %d: %w", ledOffset, err)
	}
	p.led = led

	btn, err := gpiocdev.RequestLine(chip, buttonOffset,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(10*time.Millisecond),
		gpiocdev.WithEventHandler(func(_ gpiocdev.LineEvent) {
			select {
			case p.pressed <- struct{}{}:
			default:
			}
		}))
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("request button line %d: %w", buttonOffset, err)
	}
	p.btn = btn

	return p, nil
}

func (p *HardwarePanel) Close() {
	p.stopBlink()
	p.led.Close()
	p.btn.Close()
}

// SetIndicator maps indicator states onto the single LED: locked is solid
// on, unlocked and off are dark, alert blinks.
func (p *HardwarePanel) SetIndicator(state IndicatorState) {
	p.stopBlink()
	switch state {
	case IndicatorLocked:
		p.led.SetValue(1)
	case IndicatorAlert:
		p.startBlink()
	default:
		p.led.SetValue(0)
	}
}

// WaitForAcknowledgement blinks the alert pattern and waits for a button
// press, the timeout or cancellation.
func (p *HardwarePanel) WaitForAcknowledgement(ctx context.Context, timeout time.Duration) bool {
	// Drain a stale press from before the collision.
	select {
	case <-p.pressed:
	default:
	}

	p.SetIndicator(IndicatorAlert)
	defer p.stopBlink()

	select {
	case <-p.pressed:
		return true
	case <-time.After(timeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (p *HardwarePanel) startBlink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.blinkStop != nil {
		return
	}
	stop := make(chan struct{})
	p.blinkStop = stop
	go func() {
		on := false
		ticker := time.NewTicker(blinkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				on = !on
				v := 0
				if on {
					v = 1
				}
				p.led.SetValue(v)
			}
		}
	}()
}

func (p *HardwarePanel) stopBlink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.blinkStop != nil {
		close(p.blinkStop)
		p.blinkStop = nil
	}
}

// HardwareSensor combines an IMU with a HardwarePanel to satisfy Sensor.
type HardwareSensor struct {
	IMU
	panel *HardwarePanel
}

func NewHardwareSensor(imu IMU, panel *HardwarePanel) *HardwareSensor {
	return &HardwareSensor{IMU: imu, panel: panel}
}

func (h *HardwareSensor) WaitForAcknowledgement(ctx context.Context, timeout time.Duration) bool {
	return h.panel.WaitForAcknowledgement(ctx, timeout)
}

func (h *HardwareSensor) SetIndicator(state IndicatorState) {
	h.panel.SetIndicator(state)
}
