package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/citywheel/scooterfleet/device"
	"github.com/citywheel/scooterfleet/transport"
)

var cli = struct {
	NATSUrl   string `name:"nats-url" env:"NATS_URL" default:"nats://localhost:4222"`
	ScooterID int64  `name:"scooter-id" env:"SCOOTER_ID" required:""`

	Sim bool `name:"sim" env:"SIM" help:"Use the simulated sensor rig instead of GPIO."`

	GPIOChip     string `name:"gpio-chip" env:"GPIO_CHIP" default:"gpiochip0"`
	LEDOffset    int    `name:"led-offset" env:"LED_OFFSET" default:"17"`
	ButtonOffset int    `name:"button-offset" env:"BUTTON_OFFSET" default:"27"`
}{}

func main() {
	if err := run(); err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	kong.Parse(&cli)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).
		With("scooter_id", cli.ScooterID)

	bus, err := transport.Dial(cli.NATSUrl, "scooterfleet-device", logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	// The sim sensor doubles as the IMU on hardware rigs until a real
	// accelerometer driver lands.
	sim := device.NewSimSensor()
	var sensor device.Sensor = sim
	if !cli.Sim {
		panel, err := device.NewHardwarePanel(cli.GPIOChip, cli.LEDOffset, cli.ButtonOffset)
		if err != nil {
			return err
		}
		defer panel.Close()
		sensor = device.NewHardwareSensor(sim, panel)
	}

	machine := device.NewMachine(cli.ScooterID, sensor, bus, logger)

	dispatcher := device.NewDispatcher(machine, bus, logger)
	sub, err := dispatcher.Start(cli.ScooterID)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	monitor := device.NewMonitor(machine, sensor, device.DefaultSampleInterval, logger)
	go monitor.Run(ctx)

	logger.Info("scooter online")
	machine.Run(ctx)
	return nil
}
