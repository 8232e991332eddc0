package datagram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moffa90/go-bflb/protocol"
	"github.com/moffa90/go-bflb/secure"
)

// Server answers command datagrams on a packet connection.
type Server struct {
	conn     net.PacketConn
	worker   Worker
	config   Config
	static   *secure.Channel
	sessions *registry
	metrics  *metrics

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewServer creates a server reading from conn. The server does not own
// conn until Serve is called; Serve closes it on return.
func NewServer(conn net.PacketConn, worker Worker, opts ...Option) (*Server, error) {
	if conn == nil {
		return nil, errors.New("conn cannot be nil")
	}
	if worker == nil {
		return nil, errors.New("worker cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		conn:     conn,
		worker:   worker,
		config:   cfg,
		sessions: newRegistry(cfg.SessionTTL),
		metrics:  newMetrics(cfg.Registerer),
		stopped:  make(chan struct{}),
	}

	if cfg.Mode == ModeStatic {
		ch, err := secure.NewChannel(cfg.StaticKey, cfg.Padding)
		if err != nil {
			return nil, fmt.Errorf("static key: %w", err)
		}
		s.static = ch
	}
	return s, nil
}

// Stats returns the request counters.
func (s *Server) Stats() Stats {
	return s.metrics.snapshot()
}

// Stop ends the receive loop. Requests already dispatched still finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Serve runs the receive loop until ctx is cancelled, Stop is called, or a
// "stop" command arrives. It waits for in-flight requests, closes the
// connection and returns nil on a clean stop.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.conn.Close() }()
	defer s.wg.Wait()

	s.logInfo("datagram service listening", "addr", s.conn.LocalAddr().String(), "mode", s.config.Mode.String())

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			s.logInfo("datagram service cancelled")
			return nil
		case <-s.stopped:
			s.logInfo("datagram service stopped", "total", s.metrics.total.Load(), "succeeded", s.metrics.succeeded.Load())
			return nil
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.PollInterval)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.expireSessions()
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		s.dispatch(ctx, msg, addr)
	}
}

// dispatch runs inside the receive loop. Handshakes and session lookups
// happen here so a client's hello is always registered before its payload
// is looked up; everything slower runs in its own goroutine.
func (s *Server) dispatch(ctx context.Context, msg []byte, addr net.Addr) {
	var ch *secure.Channel
	var sessionID string

	switch s.config.Mode {
	case ModeStatic:
		ch = s.static

	case ModeECDH:
		if peer, ok := protocol.ParseClientHello(msg); ok {
			s.handshake(peer, addr)
			return
		}

		p, ok := s.sessions.take(addr.String())
		s.metrics.pending.Set(float64(s.sessions.len()))
		if !ok {
			s.logWarn("datagram without handshake", "client", addr.String())
			s.metrics.recordRejected()
			s.reply(addr, false)
			return
		}

		sessionID = p.id.String()
		var err error
		if ch, err = p.session.Channel(s.config.Padding); err != nil {
			s.logError("session unusable", "client", addr.String(), "session", sessionID, "err", err)
			s.metrics.recordRejected()
			s.reply(addr, false)
			return
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handle(ctx, msg, addr, ch, sessionID)
	}()
}

func (s *Server) handshake(peer []byte, addr net.Addr) {
	session, err := secure.NewSession(nil)
	if err != nil {
		s.logError("session create failed", "err", err)
		s.reply(addr, false)
		return
	}
	if _, err := session.SharedKey(peer); err != nil {
		s.logWarn("handshake rejected", "client", addr.String(), "err", err)
		s.metrics.recordRejected()
		s.reply(addr, false)
		return
	}

	hello, err := protocol.BuildServerHello(session.PublicKey())
	if err != nil {
		s.logError("server hello failed", "err", err)
		return
	}

	id := uuid.New()
	if replaced := s.sessions.put(addr.String(), &pending{id: id, session: session, created: time.Now()}); replaced {
		s.logDebug("pending handshake replaced", "client", addr.String())
	}
	s.metrics.handshakes.Inc()
	s.metrics.pending.Set(float64(s.sessions.len()))
	s.logDebug("handshake complete", "client", addr.String(), "session", id.String())

	if _, err := s.conn.WriteTo(hello, addr); err != nil {
		s.logError("write server hello failed", "client", addr.String(), "err", err)
	}
}

func (s *Server) handle(ctx context.Context, msg []byte, addr net.Addr, ch *secure.Channel, sessionID string) {
	line := msg
	if ch != nil {
		plain, err := ch.Open(msg)
		if err != nil {
			s.logWarn("decrypt failed", "client", addr.String(), "session", sessionID, "err", err)
			s.metrics.recordRejected()
			s.reply(addr, false)
			return
		}
		line = plain
	}

	cmd, err := ParseCommand(string(line))
	if err != nil {
		s.logWarn("bad command", "client", addr.String(), "err", err)
		s.metrics.recordRejected()
		s.reply(addr, false)
		return
	}

	if cmd.Kind == CommandStop {
		s.logInfo("stop requested", "client", addr.String())
		s.Stop()
		s.reply(addr, true)
		return
	}

	s.logInfo("request", "client", addr.String(), "session", sessionID, "args", cmd.Args)
	start := time.Now()
	err = s.worker.Run(ctx, cmd.Args)
	ok := err == nil
	s.metrics.recordResult(ok)

	if ok {
		s.logInfo("request finished", "client", addr.String(), "elapsed", time.Since(start).String())
	} else {
		s.logError("request failed", "client", addr.String(), "err", err)
	}
	s.reply(addr, ok)
}

func (s *Server) reply(addr net.Addr, ok bool) {
	msg := protocol.ReplyFail
	if ok {
		msg = protocol.ReplySuccess
	}
	if _, err := s.conn.WriteTo([]byte(msg), addr); err != nil {
		s.logError("write reply failed", "client", addr.String(), "err", err)
	}
}

func (s *Server) expireSessions() {
	if n := s.sessions.sweep(); n > 0 {
		s.metrics.expired.Add(float64(n))
		s.metrics.pending.Set(float64(s.sessions.len()))
		s.logDebug("pending handshakes expired", "count", n)
	}
}

func (s *Server) logDebug(msg string, keyvals ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keyvals...)
	}
}

func (s *Server) logInfo(msg string, keyvals ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keyvals...)
	}
}

func (s *Server) logWarn(msg string, keyvals ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, keyvals...)
	}
}

func (s *Server) logError(msg string, keyvals ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keyvals...)
	}
}
