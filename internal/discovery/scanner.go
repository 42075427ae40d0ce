package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/description"
	"github.com/muurk/dialscan/internal/logging"
	"github.com/muurk/dialscan/internal/ssdp"
)

const (
	// DefaultScanTimeout is the default discovery budget
	DefaultScanTimeout = ssdp.DefaultTimeout

	// eventBuffer decouples the session worker from slow consumers
	eventBuffer = 64
)

var (
	// ErrScanInProgress is returned when the engine already runs a session
	ErrScanInProgress = errors.New("a discovery session is already running")

	// ErrDiscoveryFailed wraps the message of a session that ended in error
	ErrDiscoveryFailed = errors.New("discovery failed")
)

// Describer fetches the description document behind a location
type Describer interface {
	Fetch(ctx context.Context, location string) (*description.Description, error)
}

// Scanner runs blocking SSDP scans on top of an engine
type Scanner struct {
	// Engine runs the discovery session
	Engine *ssdp.Engine

	// Timeout is the discovery budget
	Timeout time.Duration

	// TargetPort filters locations (ssdp.AnyPort accepts all)
	TargetPort int

	// Describer, when set, names each device before it is reported
	Describer Describer
}

// NewScanner creates a scanner with default settings
func NewScanner(engine *ssdp.Engine) *Scanner {
	return &Scanner{
		Engine:     engine,
		Timeout:    DefaultScanTimeout,
		TargetPort: ssdp.AnyPort,
	}
}

// ScanForDevices runs one discovery session and returns every device found.
// Devices found before a failure or cancellation are returned with the error.
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	devices := make([]*Device, 0)
	err := s.Stream(ctx, func(d *Device) {
		devices = append(devices, d)
	})
	return devices, err
}

// Stream runs one discovery session and calls fn for each device in
// discovery order. fn runs on the caller's goroutine. Stream returns once
// the session has stopped.
func (s *Scanner) Stream(ctx context.Context, fn func(*Device)) error {
	sink, events := ssdp.ChanSink(eventBuffer)
	session, started := s.Engine.Start(ctx, sink, s.Timeout, s.TargetPort)
	if !started {
		return fmt.Errorf("%w (session %s)", ErrScanInProgress, session.ID())
	}

	var failure string
	for ev := range events {
		switch ev.Kind {
		case ssdp.EventFound:
			fn(s.newDevice(ctx, ev.Location))
		case ssdp.EventError:
			failure = ev.Message
		}
	}

	if failure != "" {
		return fmt.Errorf("%w: %s", ErrDiscoveryFailed, failure)
	}
	return ctx.Err()
}

func (s *Scanner) newDevice(ctx context.Context, location string) *Device {
	device := NewDeviceFromLocation(location, SourceSSDP)
	if s.Describer == nil {
		return device
	}

	desc, err := s.Describer.Fetch(ctx, location)
	if err != nil {
		logging.Debug("Device description unavailable",
			zap.String("location", location),
			zap.Error(err))
		device.DescribeError = description.GetShortErrorMessage(err)
		return device
	}
	device.ApplyDescription(desc)
	return device
}
