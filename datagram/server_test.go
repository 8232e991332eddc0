package datagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-bflb/protocol"
	"github.com/moffa90/go-bflb/secure"
)

var testKey = []byte("0123456789abcdef")

// recordingWorker remembers every argument list it was given.
type recordingWorker struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (w *recordingWorker) Run(_ context.Context, args []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, args)
	return w.err
}

func (w *recordingWorker) Calls() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type testServer struct {
	*Server
	addr   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// wait blocks until Serve has returned.
func (ts *testServer) wait(t *testing.T) error {
	t.Helper()
	select {
	case <-ts.done:
		return ts.err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func startServer(t *testing.T, worker Worker, opts ...Option) *testServer {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	opts = append([]Option{WithPollInterval(20 * time.Millisecond)}, opts...)
	srv, err := NewServer(conn, worker, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{
		Server: srv,
		addr:   conn.LocalAddr().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		ts.err = srv.Serve(ctx)
		close(ts.done)
	}()

	t.Cleanup(func() {
		cancel()
		<-ts.done
	})
	return ts
}

func dial(t *testing.T, addr string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithReplyTimeout(5 * time.Second)}, opts...)
	c, err := Dial(addr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServePlain(t *testing.T) {
	worker := &recordingWorker{}
	ts := startServer(t, worker, WithLogger(log.New(io.Discard)))
	c := dial(t, ts.addr)

	ok, err := c.Send(context.Background(), "--chipname bl602 --port /dev/ttyUSB0")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, worker.Calls(), 1)
	assert.Equal(t, []string{"--chipname", "bl602", "--port", "/dev/ttyUSB0"}, worker.Calls()[0])
	assert.Equal(t, Stats{Total: 1, Succeeded: 1}, ts.Stats())
}

func TestServeWorkerFailure(t *testing.T) {
	worker := &recordingWorker{err: errors.New("flash failed")}
	ts := startServer(t, worker)
	c := dial(t, ts.addr)

	ok, err := c.Send(context.Background(), "--chipname bl602")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Send(context.Background(), "--chipname bl602")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, Stats{Total: 2, Succeeded: 0}, ts.Stats())
}

func TestServeEmptyCommand(t *testing.T) {
	worker := &recordingWorker{}
	ts := startServer(t, worker)
	c := dial(t, ts.addr)

	ok, err := c.Send(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, worker.Calls())
	assert.Equal(t, Stats{Total: 1, Rejected: 1}, ts.Stats())
}

func TestServeStaticKey(t *testing.T) {
	tests := []struct {
		name    string
		padding secure.Padding
	}{
		{name: "pkcs7", padding: secure.PaddingPKCS7},
		{name: "zero", padding: secure.PaddingZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := &recordingWorker{}
			ts := startServer(t, worker, WithStaticKey(testKey), WithPadding(tt.padding))
			c := dial(t, ts.addr, WithStaticKey(testKey), WithPadding(tt.padding))

			ok, err := c.Send(context.Background(), "--chipname bl702 --interface uart")
			require.NoError(t, err)
			assert.True(t, ok)

			require.Len(t, worker.Calls(), 1)
			assert.Equal(t, []string{"--chipname", "bl702", "--interface", "uart"}, worker.Calls()[0])
		})
	}
}

func TestServeStaticKeyMismatch(t *testing.T) {
	// Garbage that happens to unpad cleanly still reaches the worker, which
	// refuses anything that is not a real request.
	worker := WorkerFunc(func(_ context.Context, args []string) error {
		if len(args) > 0 && args[0] == "--chipname" {
			return nil
		}
		return errors.New("bad args")
	})
	ts := startServer(t, worker, WithStaticKey(testKey))
	c := dial(t, ts.addr, WithStaticKey([]byte("fedcba9876543210")))

	ok, err := c.Send(context.Background(), "--chipname bl602")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := ts.Stats()
	assert.Equal(t, uint64(1), stats.Total)
	assert.Equal(t, uint64(0), stats.Succeeded)
}

func TestServeECDH(t *testing.T) {
	reg := prometheus.NewRegistry()
	worker := &recordingWorker{}
	ts := startServer(t, worker, WithECDH(), WithMetrics(reg))
	c := dial(t, ts.addr, WithECDH())

	for i := 0; i < 3; i++ {
		ok, err := c.Send(context.Background(), fmt.Sprintf("--chipname bl602 --run %d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	require.Len(t, worker.Calls(), 3)
	assert.Equal(t, Stats{Total: 3, Succeeded: 3}, ts.Stats())
	assert.Equal(t, 3.0, testutil.ToFloat64(ts.metrics.handshakes))
	assert.Equal(t, 3.0, testutil.ToFloat64(ts.metrics.requests.WithLabelValues(resultSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(ts.metrics.pending))

	count, err := testutil.GatherAndCount(reg, "bflb_datagram_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServeECDHWithoutHandshake(t *testing.T) {
	worker := &recordingWorker{}
	ts := startServer(t, worker, WithECDH())

	conn, err := net.Dial("udp", ts.addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(bytes.Repeat([]byte{0xAB}, 32))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, protocol.MaxDatagramSize)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.ReplyFail, string(buf[:n]))

	assert.Empty(t, worker.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.requests.WithLabelValues(resultRejected)))
	assert.Equal(t, Stats{Total: 1, Rejected: 1}, ts.Stats())
}

func TestServeECDHBadHello(t *testing.T) {
	ts := startServer(t, &recordingWorker{}, WithECDH())

	conn, err := net.Dial("udp", ts.addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(protocol.ClientHello + "short"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, protocol.MaxDatagramSize)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.ReplyFail, string(buf[:n]))
	assert.Equal(t, 0.0, testutil.ToFloat64(ts.metrics.handshakes))
	assert.Equal(t, Stats{Total: 1, Rejected: 1}, ts.Stats())
}

func TestServeECDHConcurrentClients(t *testing.T) {
	worker := &recordingWorker{}
	ts := startServer(t, worker, WithECDH())

	const clients = 5
	var wg sync.WaitGroup
	results := make([]bool, clients)
	errs := make([]error, clients)

	for i := 0; i < clients; i++ {
		c := dial(t, ts.addr, WithECDH())
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			results[i], errs[i] = c.Send(context.Background(), fmt.Sprintf("--board %d", i))
		}(i, c)
	}
	wg.Wait()

	for i := 0; i < clients; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}

	var got []string
	for _, call := range worker.Calls() {
		require.Len(t, call, 2)
		got = append(got, call[1])
	}
	sort.Strings(got)
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, got)
}

func TestServeStop(t *testing.T) {
	worker := &recordingWorker{}
	ts := startServer(t, worker)
	c := dial(t, ts.addr)

	ok, err := c.Send(context.Background(), "stop")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ts.wait(t))
	assert.Empty(t, worker.Calls())
}

func TestServeStopOverECDH(t *testing.T) {
	ts := startServer(t, &recordingWorker{}, WithECDH())
	c := dial(t, ts.addr, WithECDH())

	ok, err := c.Send(context.Background(), "stop")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, ts.wait(t))
}

func TestServeCancel(t *testing.T) {
	ts := startServer(t, &recordingWorker{})
	ts.cancel()
	require.NoError(t, ts.wait(t))
}

func TestServeWaitsForWorkers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	worker := WorkerFunc(func(context.Context, []string) error {
		close(started)
		<-release
		return nil
	})
	ts := startServer(t, worker)
	c := dial(t, ts.addr)

	result := make(chan bool, 1)
	go func() {
		ok, _ := c.Send(context.Background(), "--chipname bl602")
		result <- ok
	}()

	<-started
	ts.Stop()

	select {
	case <-ts.done:
		t.Fatal("Serve returned while a worker was running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	assert.True(t, <-result)
	require.NoError(t, ts.wait(t))
}

func TestNewServerValidation(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	_, err = NewServer(nil, &recordingWorker{})
	assert.Error(t, err)

	_, err = NewServer(conn, nil)
	assert.Error(t, err)

	_, err = NewServer(conn, &recordingWorker{}, WithStaticKey([]byte("short")))
	require.Error(t, err)
	assert.True(t, secure.IsCryptoError(err))
}

func TestClientReplyTimeout(t *testing.T) {
	sink, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sink.Close()

	c := dial(t, sink.LocalAddr().String(), WithReplyTimeout(50*time.Millisecond))

	_, err = c.Send(context.Background(), "--chipname bl602")
	require.Error(t, err)

	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
}

func TestClientCancelled(t *testing.T) {
	sink, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sink.Close()

	c := dial(t, sink.LocalAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = c.Send(ctx, "--chipname bl602")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientUnexpectedReply(t *testing.T) {
	peer, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer peer.Close()

	go func() {
		buf := make([]byte, protocol.MaxDatagramSize)
		_, addr, err := peer.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = peer.WriteTo([]byte("maybe"), addr)
	}()

	c := dial(t, peer.LocalAddr().String())
	_, err = c.Send(context.Background(), "--chipname bl602")
	require.Error(t, err)
	assert.True(t, protocol.IsProtocolError(err))
}
