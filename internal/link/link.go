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

// Package link implements the framing spoken with the cooling-loop
// microcontroller.
//
// Inbound:  '!' <reading hi> <reading lo>
// Outbound: 'F' <fan pwm> <pump pwm>
package link

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SyncByte    byte = '!'
	CommandByte byte = 'F'

	CommandLen = 3
)

// ErrTimeout is returned by Decoder.Next when the port timed out before a
// complete frame arrived. It is not a failure: the caller just tries again.
var ErrTimeout = errors.New("link: read timeout")

// Decoder extracts coolant readings from the inbound byte stream.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64)}
}

// Next discards bytes up to the next sync byte and returns the big-endian
// reading that follows it. A timeout anywhere drops the partial frame.
func (d *Decoder) Next() (uint16, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, d.wrap(err)
		}
		if b == SyncByte {
			break
		}
	}

	var buf [2]byte
	for i := range buf {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, d.wrap(err)
		}
		buf[i] = b
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (d *Decoder) wrap(err error) error {
	if IsTimeout(err) {
		return ErrTimeout
	}
	return fmt.Errorf("link: read: %w", err)
}

// Command holds the PWM levels sent back to the microcontroller.
type Command struct {
	Fan  uint8
	Pump uint8
}

func (c Command) String() string {
	return fmt.Sprintf("F:%d P:%d", c.Fan, c.Pump)
}

func Encode(c Command) []byte {
	return []byte{CommandByte, c.Fan, c.Pump}
}

func DecodeCommand(b []byte) (Command, error) {
	if len(b) != CommandLen {
		return Command{}, fmt.Errorf("link: command frame has %d bytes, want %d", len(b), CommandLen)
	}
	if b[0] != CommandByte {
		return Command{}, fmt.Errorf("link: command frame starts with 0x%02x", b[0])
	}
	return Command{Fan: b[1], Pump: b[2]}, nil
}

// WriteCommand writes exactly one command frame.
func WriteCommand(w io.Writer, c Command) error {
	n, err := w.Write(Encode(c))
	if err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	if n != CommandLen {
		return fmt.Errorf("link: write: %w", io.ErrShortWrite)
	}
	return nil
}

// IsTimeout reports whether err carries a Timeout() bool that returns true,
// as serial port and net errors do.
func IsTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
