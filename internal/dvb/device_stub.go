//go:build !linux

package dvb

import (
	"errors"
	"log/slog"
	"time"

	"github.com/godtm/godtm/internal/channel"
)

// ErrNotSupported is returned on platforms without the Linux DVB API.
var ErrNotSupported = errors.New("dvb devices are only supported on linux")

// Device is a stub for non-Linux compilation.
type Device struct{}

// Open returns an error on non-Linux platforms.
func Open(adapter, tuner int, log *slog.Logger) (*Device, error) {
	return nil, ErrNotSupported
}

// Close is a no-op off Linux.
func (d *Device) Close() error { return nil }

// Tune always fails off Linux.
func (d *Device) Tune(t channel.Tunable, lockTime time.Duration) error {
	return ErrNotSupported
}

// SetBufferSize always fails off Linux.
func (d *Device) SetBufferSize(bytes int) error { return ErrNotSupported }

// StartFilter always fails off Linux.
func (d *Device) StartFilter() error { return ErrNotSupported }

// StopFilter always fails off Linux.
func (d *Device) StopFilter() error { return ErrNotSupported }

// DVR returns a stub handle whose reads fail.
func (d *Device) DVR() *DVR { return &DVR{} }

// Poller returns a stub poller whose waits fail.
func (d *Device) Poller() *Poller { return &Poller{} }

// DVR is a stub for non-Linux compilation.
type DVR struct{}

// Read always fails off Linux.
func (r *DVR) Read(p []byte) (int, error) { return 0, ErrNotSupported }

// Poller is a stub for non-Linux compilation.
type Poller struct{}

// Wait always fails off Linux.
func (p *Poller) Wait(timeout time.Duration) (bool, error) { return false, ErrNotSupported }
