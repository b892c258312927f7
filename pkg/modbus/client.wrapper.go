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

package modbus

import (
	"context"
	"coolrig/pkg/logger"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	wrapper "github.com/grid-x/modbus"
)

// Client is a Modbus TCP client that connects lazily and reconnects on the
// next call after a connection error. It never blocks longer than one
// connect plus one request, so a dead device cannot stall its caller.
type Client struct {
	mu      sync.Mutex
	handler *wrapper.TCPClientHandler
	client  wrapper.Client
	config  *Config
	log     *logger.Logger
}

func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		log:    logger.New("ModbusConn"),
	}
}

// connect (re)connects the Modbus client once. Caller holds c.mu.
func (c *Client) connect(ctx context.Context) error {
	if c.handler != nil {
		_ = c.handler.Close()
		c.handler = nil
		c.client = nil
	}

	url := c.config.Addr()
	handler := wrapper.NewTCPClientHandler(url)
	handler.SlaveID = c.config.SlaveID
	handler.Timeout = c.config.Timeout
	handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
	handler.LinkRecoveryTimeout = 0

	c.log.Debug("Connecting to %s...", url)
	if err := handler.Connect(ctx); err != nil {
		return fmt.Errorf("modbus connect %s: %w", url, err)
	}

	c.handler = handler
	c.client = wrapper.NewClient(handler)
	c.log.Info("Connected to %s", url)
	return nil
}

// ReadRegisters reads holding registers, connecting first if needed.
func (c *Client) ReadRegisters(ctx context.Context, addr, quantity uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	data, err := c.client.ReadHoldingRegisters(ctx, addr, quantity)
	if err != nil && isConnError(err) {
		c.log.Debug("connection error: %v, will reconnect on next read", err)
		_ = c.handler.Close()
		c.handler = nil
		c.client = nil
	}
	return data, err
}

// Close closes the underlying handler.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		_ = c.handler.Close()
		c.handler = nil
		c.client = nil
	}
}

// --- helpers ---

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed by the remote host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused")
}
