package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"padbridge/internal/command"
)

const (
	DefaultMaxMessageSize = 64 * 1024 // messages are tiny, anything this big is garbage
	readBufferSize        = 4096
)

var errLineTooLong = errors.New("line exceeds max message size")

// ConnOptions tune a single client connection. Zero values disable the limit.
type ConnOptions struct {
	IdleTimeout    time.Duration // read deadline per line, 0 = none
	MaxMessageSize int           // bytes per line, excluding the newline
	RateLimit      float64       // messages/sec, 0 = unlimited
	RateBurst      int
}

type ClientConnection struct {
	ID          string // unique identifier = key in map
	conn        net.Conn
	Manager     *ConnectionManager
	Limiter     *rate.Limiter // nil when rate limiting is off
	interpreter *command.Interpreter
	opts        ConnOptions
}

// constructor for Connection
func NewClientConnection(conn net.Conn, manager *ConnectionManager, interpreter *command.Interpreter, opts ConnOptions) *ClientConnection {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	c := &ClientConnection{
		ID:          uuid.NewString(),
		conn:        conn,
		Manager:     manager,
		interpreter: interpreter,
		opts:        opts,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		// the limiter auto depletes tokens when Allow is called and refills over time
		c.Limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Listen reads newline-delimited JSON commands until the peer goes away.
// Commands are dispatched in arrival order. Nothing is ever written back.
func (c *ClientConnection) Listen(ctx context.Context) {
	defer c.conn.Close()
	reader := bufio.NewReaderSize(c.conn, readBufferSize) // per-connection buffer
	logger := c.Manager.logger

	logger.Info("client_connected",
		"client_id", c.ID,
		"remote_addr", c.conn.RemoteAddr().String(),
	)

	for {
		if c.opts.IdleTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
		}

		line, err := readLine(reader, c.opts.MaxMessageSize)
		if errors.Is(err, errLineTooLong) {
			logger.Warn("message_too_large",
				"client_id", c.ID,
				"max_size", c.opts.MaxMessageSize,
			)
			continue
		}
		if err != nil {
			c.logDisconnect(err)
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// check rate limit
		if c.Limiter != nil && !c.Limiter.Allow() {
			logger.Warn("rate_limit_exceeded",
				"client_id", c.ID,
			)
			continue
		}

		var msg command.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			logger.Warn("invalid_json_received",
				"client_id", c.ID,
				"line", string(line),
				"error", err.Error(),
			)
			continue
		}

		c.interpreter.Dispatch(ctx, msg)
	}
}

// every read error ends the connection, only the log level differs
func (c *ClientConnection) logDisconnect(err error) {
	logger := c.Manager.logger
	if errors.Is(err, io.EOF) {
		logger.Info("client_disconnected",
			"client_id", c.ID,
		)
		return
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		logger.Warn("client_read_timeout",
			"client_id", c.ID,
		)
		return
	}
	// On Windows: "wsarecv: An existing connection was forcibly closed by the remote host."
	// On Linux: "use of closed network connection", "connection reset by peer"
	if errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "closed network connection") ||
		strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "connection was aborted") ||
		strings.Contains(err.Error(), "forcibly closed") {
		logger.Info("client_disconnected",
			"client_id", c.ID,
			"reason", err.Error(),
		)
		return
	}
	logger.Error("client_read_error",
		"client_id", c.ID,
		"error", err,
	)
}

// method to close the connection
func (c *ClientConnection) Close() {
	c.conn.Close()
}

// readLine returns the next line including its newline. A line longer than limit
// is consumed up to its newline and reported as errLineTooLong, so the next line
// starts clean. A partial line followed by EOF is dropped.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return nil, errLineTooLong
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, err
		}
	}
}
