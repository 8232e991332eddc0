package fastload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-bflb/protocol"
)

// MockDevice replays scripted replies and records every write.
type MockDevice struct {
	mu       sync.Mutex
	writes   [][]byte
	replies  [][]byte
	writeErr error
}

func NewMockDevice(replies ...string) *MockDevice {
	m := &MockDevice{}
	for _, r := range replies {
		m.replies = append(m.replies, []byte(r))
	}
	return m
}

func (m *MockDevice) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.replies) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.replies[0])
	if n < len(m.replies[0]) {
		m.replies[0] = m.replies[0][n:]
	} else {
		m.replies = m.replies[1:]
	}
	return n, nil
}

func (m *MockDevice) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (m *MockDevice) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// MockLogger records messages by level.
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg interface{}, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg.(string))
}

func (l *MockLogger) Info(msg interface{}, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg.(string))
}

func (l *MockLogger) Error(msg interface{}, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg.(string))
}

// recordingConn records every frame the sender writes.
type recordingConn struct {
	net.Conn
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.frames = append(c.frames, append([]byte(nil), p...))
	c.mu.Unlock()
	return c.Conn.Write(p)
}

func testData(n int) []byte {
	data := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(data)
	return data
}

func hashReply(data []byte) string {
	sum := sha256.Sum256(data)
	return "OK" + hex.EncodeToString(sum[:])
}

func TestSendOverPipe(t *testing.T) {
	data := testData(9000)
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()

	rec := &recordingConn{Conn: host}

	var (
		got     bytes.Buffer
		result  *Result
		recvErr error
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, recvErr = NewReceiver(dev).Receive(context.Background(), &got)
	}()

	var phases []string
	s := New(rec, WithProgressCallback(func(p Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	}))
	require.NoError(t, s.Send(context.Background(), bytes.NewReader(data), int64(len(data))))
	wg.Wait()

	require.NoError(t, recvErr)
	assert.Equal(t, data, got.Bytes())
	assert.Equal(t, sha256.Sum256(data), result.Digest)
	assert.Equal(t, uint32(9000), result.Announced)
	assert.Equal(t, 3, result.Chunks)

	// header, three chunks, trailer, check hash
	require.Len(t, rec.frames, 6)
	assert.Equal(t, []byte{0xF0, 0x00, 0x04, 0x00, 0x28, 0x23, 0x00, 0x00}, rec.frames[0])

	wantLens := []int{4096, 4096, 808}
	offset := 0
	for i, n := range wantLens {
		frame := rec.frames[i+1]
		require.Len(t, frame, protocol.FrameHeaderSize+n)
		assert.Equal(t, []byte{0xF1, 0x00, byte(n), byte(n >> 8)}, frame[:4])
		assert.Equal(t, data[offset:offset+n], frame[4:])
		offset += n
	}

	assert.Equal(t, []byte{0xF2, 0x00, 0x00, 0x00}, rec.frames[4])
	assert.Equal(t, "check hash", string(rec.frames[5]))
	assert.Equal(t, []string{PhaseHeader, PhaseSending, PhaseVerifying, PhaseComplete}, phases)
}

func TestSendFailures(t *testing.T) {
	data := []byte("0123456789")

	tests := []struct {
		name     string
		replies  []string
		wantCode Code
		wantStep string
	}{
		{
			name:     "header rejected",
			replies:  []string{"NO"},
			wantCode: CodeHeaderAck,
			wantStep: "header",
		},
		{
			name:     "chunk rejected",
			replies:  []string{"OK", "ER"},
			wantCode: CodeChunkAck,
			wantStep: "chunk 1/1",
		},
		{
			name:     "trailer not ok",
			replies:  []string{"OK", "OK", "FL"},
			wantCode: CodeTrailerReply,
			wantStep: "trailer",
		},
		{
			name:     "hash mismatch",
			replies:  []string{"OK", "OK", "OK" + strings.Repeat("0", 64)},
			wantCode: CodeHashMismatch,
			wantStep: "trailer",
		},
		{
			name:     "truncated hash",
			replies:  []string{"OK", "OK", hashReply(data)[:40]},
			wantCode: CodeHashMismatch,
			wantStep: "trailer",
		},
		{
			name:     "no header reply",
			replies:  nil,
			wantCode: CodeTimeout,
			wantStep: "header",
		},
		{
			name:     "no chunk reply",
			replies:  []string{"OK"},
			wantCode: CodeTimeout,
			wantStep: "chunk 1/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := NewMockDevice(tt.replies...)
			logger := &MockLogger{}
			s := New(device, WithLogger(logger))

			err := s.Send(context.Background(), bytes.NewReader(data), int64(len(data)))
			require.Error(t, err)

			var te *TransferError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.wantCode, te.Code)
			assert.Equal(t, tt.wantStep, te.Step)
			assert.NotEmpty(t, logger.errorMsgs)

			// Nothing follows a failed step.
			for _, w := range device.Writes() {
				assert.NotEqual(t, protocol.CheckHash, string(w))
			}
		})
	}
}

func TestSendWithMock(t *testing.T) {
	data := []byte("0123456789")
	device := NewMockDevice("OK", "OK", strings.ToUpper(hashReply(data)))
	logger := &MockLogger{}

	s := New(device, WithLogger(logger))
	require.NoError(t, s.Send(context.Background(), bytes.NewReader(data), int64(len(data))))

	writes := device.Writes()
	require.Len(t, writes, 4)
	assert.Equal(t, append([]byte{0xF1, 0x00, 0x0A, 0x00}, data...), writes[1])
	assert.Equal(t, protocol.CheckHash, string(writes[3]))
	assert.Equal(t, []string{"fast load complete"}, logger.infoMsgs)
}

func TestSendEmpty(t *testing.T) {
	device := NewMockDevice("OK", hashReply(nil))
	s := New(device)
	require.NoError(t, s.Send(context.Background(), bytes.NewReader(nil), 0))

	writes := device.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, protocol.BuildHeaderFrame(0), writes[0])
	assert.Equal(t, protocol.BuildTrailerFrame(), writes[1])
}

func TestSendShortSource(t *testing.T) {
	device := NewMockDevice("OK", "OK")
	s := New(device)

	err := s.Send(context.Background(), bytes.NewReader([]byte("short")), 20)
	assert.Equal(t, CodeIO, ErrorCode(err))
}

func TestSendWriteError(t *testing.T) {
	device := NewMockDevice()
	device.writeErr = errors.New("port closed")

	err := New(device).Send(context.Background(), bytes.NewReader([]byte("x")), 1)
	assert.Equal(t, CodeIO, ErrorCode(err))
	assert.ErrorContains(t, err, "port closed")
}

func TestSendTimeoutOverPipe(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()

	// Device drains frames but never answers.
	go func() { _, _ = io.Copy(io.Discard, dev) }()

	s := New(host, WithReadTimeout(50*time.Millisecond))
	start := time.Now()
	err := s.Send(context.Background(), bytes.NewReader([]byte("abc")), 3)

	assert.Equal(t, CodeTimeout, ErrorCode(err))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	device := NewMockDevice("OK")
	err := New(device).Send(ctx, bytes.NewReader([]byte("abc")), 3)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, device.Writes())
}

func TestSendCancelledWhileWaiting(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()
	go func() { _, _ = io.Copy(io.Discard, dev) }()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	s := New(host, WithReadTimeout(10*time.Second))
	err := s.Send(ctx, bytes.NewReader([]byte("abc")), 3)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestSendFile(t *testing.T) {
	data := testData(5000)
	path := filepath.Join(t.TempDir(), "img.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	device := NewMockDevice("OK", "OK", "OK", hashReply(data))
	s := New(device, WithChunkSize(4096))
	require.NoError(t, s.SendFile(context.Background(), path))

	err := s.SendFile(context.Background(), filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantChunk int
		wantRead  time.Duration
	}{
		{name: "defaults", wantChunk: 4096, wantRead: time.Second},
		{name: "chunk size", opts: []Option{WithChunkSize(1024)}, wantChunk: 1024, wantRead: time.Second},
		{name: "chunk too large", opts: []Option{WithChunkSize(70000)}, wantChunk: 4096, wantRead: time.Second},
		{name: "chunk zero", opts: []Option{WithChunkSize(0)}, wantChunk: 4096, wantRead: time.Second},
		{name: "timeout", opts: []Option{WithTimeout(3 * time.Second)}, wantChunk: 4096, wantRead: 3 * time.Second},
		{name: "read timeout", opts: []Option{WithReadTimeout(200 * time.Millisecond)}, wantChunk: 4096, wantRead: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(NewMockDevice(), tt.opts...)
			assert.Equal(t, tt.wantChunk, s.config.ChunkSize)
			assert.Equal(t, tt.wantRead, s.config.ReadTimeout)
		})
	}

	assert.Panics(t, func() { New(nil) })
}
