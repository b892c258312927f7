// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package serialport owns the tty the microcontroller is attached to.
package serialport

import (
	"coolrig/pkg/logger"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

type Config struct {
	Device   string
	BaudRate int
	Timeout  time.Duration

	// ReconnectAttempts bounds the reopen attempts after an I/O error.
	// Zero means an I/O error is returned straight away.
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
}

// timeoutError marks a read that saw no data within Config.Timeout.
type timeoutError struct{}

func (timeoutError) Error() string   { return "serial: timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// ErrTimeout is returned by Read when no byte arrived in time.
var ErrTimeout error = timeoutError{}

// opener is swapped in tests.
type opener func(cfg Config) (io.ReadWriteCloser, error)

// Port is an exclusively locked serial port that reopens itself a bounded
// number of times when the device disappears.
type Port struct {
	mu   sync.Mutex
	cfg  Config
	open opener
	conn io.ReadWriteCloser
	lock io.Closer
	log  *logger.Logger
}

// Open locks and opens the device. The lock is advisory: it keeps a second
// controller instance off the same tty.
func Open(cfg Config) (*Port, error) {
	lock, err := lockDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	p, err := newPort(cfg, openSerial)
	if err != nil {
		lock.Close()
		return nil, err
	}
	p.lock = lock
	return p, nil
}

func newPort(cfg Config, open opener) (*Port, error) {
	p := &Port{
		cfg:  cfg,
		open: open,
		log:  logger.New("Serial"),
	}
	conn, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	p.conn = conn
	p.log.Info("Opened %s at %d baud", cfg.Device, cfg.BaudRate)
	return p, nil
}

func openSerial(cfg Config) (io.ReadWriteCloser, error) {
	return serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
}

// Read returns ErrTimeout when nothing arrived within the configured timeout.
func (p *Port) Read(b []byte) (int, error) {
	conn, err := p.current()
	if err != nil {
		return 0, err
	}
	n, err := conn.Read(b)
	if err == nil || n > 0 {
		return n, nil
	}
	if errors.Is(err, serial.ErrTimeout) {
		return 0, ErrTimeout
	}
	if rerr := p.reconnect(conn, err); rerr != nil {
		return 0, rerr
	}
	// the frame in flight is lost either way; let the caller rescan
	return 0, ErrTimeout
}

func (p *Port) Write(b []byte) (int, error) {
	conn, err := p.current()
	if err != nil {
		return 0, err
	}
	n, err := conn.Write(b)
	if err == nil {
		return n, nil
	}
	if rerr := p.reconnect(conn, err); rerr != nil {
		return n, rerr
	}
	conn, err = p.current()
	if err != nil {
		return 0, err
	}
	return conn.Write(b)
}

// Close releases the device and its lock.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	if p.lock != nil {
		p.lock.Close()
		p.lock = nil
	}
	return err
}

func (p *Port) current() (io.ReadWriteCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.Device, io.ErrClosedPipe)
	}
	return p.conn, nil
}

// reconnect reopens the device after ioErr, with doubling backoff, at most
// ReconnectAttempts times. It returns ioErr wrapped if every attempt failed.
func (p *Port) reconnect(failed io.ReadWriteCloser, ioErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != failed {
		// another caller already reopened it
		return nil
	}
	_ = p.conn.Close()
	p.conn = nil

	if p.cfg.ReconnectAttempts == 0 {
		return fmt.Errorf("%s: %w", p.cfg.Device, ioErr)
	}
	p.log.Error("%s: %v, reconnecting", p.cfg.Device, ioErr)

	backoff := p.cfg.ReconnectBackoff
	for attempt := 1; attempt <= p.cfg.ReconnectAttempts; attempt++ {
		time.Sleep(backoff)
		conn, err := p.open(p.cfg)
		if err == nil {
			p.conn = conn
			p.log.Info("Reopened %s after %d attempt(s)", p.cfg.Device, attempt)
			return nil
		}
		p.log.Error("attempt %d/%d: %v", attempt, p.cfg.ReconnectAttempts, err)

		if backoff < 30*time.Second {
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		}
	}
	return fmt.Errorf("%s: gave up after %d reconnect attempts: %w", p.cfg.Device, p.cfg.ReconnectAttempts, ioErr)
}
