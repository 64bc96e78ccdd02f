//go:build linux

package dvb

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/godtm/godtm/internal/channel"
)

// Device bundles the three kernel handles of one DVB-C tuner. All handles
// are opened once and held for the process lifetime; the hardware is a
// single tuner, so callers must never interleave channels.
type Device struct {
	frontendFd int
	demuxFd    int
	dvrFd      int

	log *slog.Logger
}

// Open opens the frontend, demux and dvr nodes of the given adapter/tuner
// pair. The dvr handle is opened non-blocking, since it is only ever
// drained behind a readiness poll. A failure releases any handle already
// opened.
func Open(adapter, tuner int, log *slog.Logger) (*Device, error) {
	root := fmt.Sprintf("/dev/dvb/adapter%d", adapter)

	frontendFd, err := unix.Open(fmt.Sprintf("%s/frontend%d", root, tuner), unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening frontend: %w", err)
	}

	demuxFd, err := unix.Open(fmt.Sprintf("%s/demux%d", root, tuner), unix.O_RDWR, 0)
	if err != nil {
		unix.Close(frontendFd)
		return nil, fmt.Errorf("opening demux: %w", err)
	}

	dvrFd, err := unix.Open(fmt.Sprintf("%s/dvr%d", root, tuner), unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		unix.Close(demuxFd)
		unix.Close(frontendFd)
		return nil, fmt.Errorf("opening dvr: %w", err)
	}

	log.Debug("dvb_devices_opened", "adapter", adapter, "tuner", tuner)

	return &Device{
		frontendFd: frontendFd,
		demuxFd:    demuxFd,
		dvrFd:      dvrFd,
		log:        log,
	}, nil
}

// Close releases all three handles. The device is unusable afterwards.
func (d *Device) Close() error {
	var errs []error
	if err := unix.Close(d.dvrFd); err != nil {
		errs = append(errs, fmt.Errorf("closing dvr: %w", err))
	}
	if err := unix.Close(d.demuxFd); err != nil {
		errs = append(errs, fmt.Errorf("closing demux: %w", err))
	}
	if err := unix.Close(d.frontendFd); err != nil {
		errs = append(errs, fmt.Errorf("closing frontend: %w", err))
	}
	return errors.Join(errs...)
}

// Tune programs the frontend for the given channel with a single property
// batch, waits lockTime for the hardware to settle, then checks the lock
// bit once. No retries; the caller decides what a failed channel means.
func (d *Device) Tune(t channel.Tunable, lockTime time.Duration) error {
	d.log.Debug("tuning_frontend",
		"frequency_mhz", t.Frequency,
		"modulation", t.Modulation.String())

	props := tuneSequence(t)
	wrapper := dtvProperties{Num: uint32(len(props)), Props: &props[0]}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.frontendFd), feSetProperty, uintptr(unsafe.Pointer(&wrapper)))
	runtime.KeepAlive(&props)
	if errno != 0 {
		return &TuneError{Frequency: t.Frequency, Stage: StageCommandRejected, Err: errno}
	}

	// The lock bit is meaningless until the frontend has settled.
	time.Sleep(lockTime)

	status, err := unix.IoctlGetUint32(d.frontendFd, uint(feReadStatus))
	if err != nil {
		return &TuneError{Frequency: t.Frequency, Stage: StageStatusUnavailable, Err: err}
	}
	if status&feHasLock == 0 {
		return &TuneError{Frequency: t.Frequency, Stage: StageNoLock}
	}

	d.log.Debug("frontend_locked", "frequency_mhz", t.Frequency)
	return nil
}

// SetBufferSize sizes the demux ring buffer. Called once at startup, before
// the first filter starts.
func (d *Device) SetBufferSize(bytes int) error {
	d.log.Debug("setting_demux_buffer", "bytes", bytes)
	return unix.IoctlSetInt(d.demuxFd, uint(dmxSetBufferSize), bytes)
}

// StartFilter points the demux at the DOCSIS data PID. The filter starts
// immediately as part of the call; exactly one filter may be active, so the
// caller must stop it before the next start.
func (d *Device) StartFilter() error {
	d.log.Debug("starting_demux_filter", "pid", DocsisPID)

	params := docsisFilter()
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.demuxFd), dmxSetPesFilter, uintptr(unsafe.Pointer(&params)))
	runtime.KeepAlive(&params)
	if errno != 0 {
		return &FilterError{Op: "start", Err: errno}
	}
	return nil
}

// StopFilter halts the running demux filter.
func (d *Device) StopFilter() error {
	d.log.Debug("stopping_demux_filter")

	if err := unix.IoctlSetInt(d.demuxFd, uint(dmxStop), 0); err != nil {
		return &FilterError{Op: "stop", Err: err}
	}
	return nil
}

// DVR returns the transport stream read handle.
func (d *Device) DVR() *DVR {
	return &DVR{fd: d.dvrFd}
}

// Poller returns a readiness poller for the dvr handle. The handle is
// registered once here and reused for every wait.
func (d *Device) Poller() *Poller {
	return &Poller{
		fds: []unix.PollFd{{Fd: int32(d.dvrFd), Events: unix.POLLIN | unix.POLLPRI}},
	}
}

// DVR drains raw transport stream bytes from the non-blocking dvr node.
type DVR struct {
	fd int
}

// Read reads whatever the demux has buffered. A drained buffer reports
// (0, nil) instead of EAGAIN, so callers can treat "nothing there yet" as
// an empty read rather than an error.
func (r *DVR) Read(p []byte) (int, error) {
	n, err := unix.Read(r.fd, p)
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Poller waits for the dvr handle to become readable.
type Poller struct {
	fds []unix.PollFd
}

// Wait blocks until the handle is readable or the timeout passes. Returns
// true when data is waiting. An interrupted wait (EINTR) surfaces as an
// error; the caller decides whether to abort the measurement.
func (p *Poller) Wait(timeout time.Duration) (bool, error) {
	n, err := unix.Poll(p.fds, timeoutMs(timeout))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return p.fds[0].Revents&(unix.POLLIN|unix.POLLPRI) != 0, nil
}

// timeoutMs converts a duration to poll's millisecond timeout, rounding up
// so a sub-millisecond remainder never turns into a busy loop.
func timeoutMs(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
