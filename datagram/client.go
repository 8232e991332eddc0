package datagram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/moffa90/go-bflb/protocol"
	"github.com/moffa90/go-bflb/secure"
)

// Client sends command lines to a Server. Requests are serialized; a
// Client is safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	config Config
	static *secure.Channel
}

// Dial creates a client for the service at addr ("host:port").
func Dial(addr string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{config: cfg}
	if cfg.Mode == ModeStatic {
		ch, err := secure.NewChannel(cfg.StaticKey, cfg.Padding)
		if err != nil {
			return nil, fmt.Errorf("static key: %w", err)
		}
		c.static = ch
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.conn = conn
	return c, nil
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send delivers one command line and waits for the service reply. It
// reports whether the service answered with success; a fail reply is not
// an error.
func (c *Client) Send(ctx context.Context, line string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var ch *secure.Channel
	switch c.config.Mode {
	case ModeStatic:
		ch = c.static
	case ModeECDH:
		var err error
		if ch, err = c.handshake(ctx); err != nil {
			return false, err
		}
	}

	payload := []byte(line)
	if ch != nil {
		sealed, err := ch.Seal(payload)
		if err != nil {
			return false, err
		}
		payload = sealed
	}
	if len(payload) > protocol.MaxDatagramSize {
		return false, fmt.Errorf("command too large: %d bytes", len(payload))
	}

	c.logDebug("sending command", "addr", c.conn.RemoteAddr().String(), "bytes", len(payload))
	if _, err := c.conn.Write(payload); err != nil {
		return false, fmt.Errorf("send command: %w", err)
	}

	reply, err := c.receive(ctx)
	if err != nil {
		return false, err
	}
	ok, err := protocol.ParseReply(reply)
	if err != nil {
		return false, err
	}
	c.logInfo("command finished", "success", ok)
	return ok, nil
}

func (c *Client) handshake(ctx context.Context) (*secure.Channel, error) {
	session, err := secure.NewSession(nil)
	if err != nil {
		return nil, err
	}
	hello, err := protocol.BuildClientHello(session.PublicKey())
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(hello); err != nil {
		return nil, fmt.Errorf("send client hello: %w", err)
	}

	reply, err := c.receive(ctx)
	if err != nil {
		return nil, err
	}
	peer, ok := protocol.ParseServerHello(reply)
	if !ok {
		return nil, &protocol.ProtocolError{Operation: "handshake", Reason: fmt.Sprintf("unexpected reply %q", reply)}
	}
	if _, err := session.SharedKey(peer); err != nil {
		return nil, err
	}
	c.logDebug("handshake complete")
	return session.Channel(c.config.Padding)
}

func (c *Client) receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.config.ReplyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	// A cancel that landed before the deadline above was set.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, protocol.MaxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("waiting for reply: %w", err)
		}
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return buf[:n], nil
}

func (c *Client) logDebug(msg string, keyvals ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keyvals...)
	}
}

func (c *Client) logInfo(msg string, keyvals ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keyvals...)
	}
}
