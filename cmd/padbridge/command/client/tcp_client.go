package client

// tcp_client.go = one-shot TCP client used by "padbridge send" to exercise a running bridge.

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"padbridge/internal/command"
)

const DefaultDialTimeout = 5 * time.Second

// TCPClient sends newline-delimited commands to a bridge.
// The protocol is one-way, so nothing is read back.
type TCPClient struct {
	serverAddr  string
	dialTimeout time.Duration
}

// NewTCPClient creates a new TCP client
func NewTCPClient(serverAddr string) *TCPClient {
	return &TCPClient{
		serverAddr:  serverAddr,
		dialTimeout: DefaultDialTimeout,
	}
}

// Send opens a connection, writes each message as one JSON line in order, then closes.
func (c *TCPClient) Send(msgs ...command.Message) error {
	conn, err := net.DialTimeout("tcp", c.serverAddr, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
		}
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to send %s message: %w", msg.Type, err)
		}
	}
	return nil
}
