package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildHeaderFrame(t *testing.T) {
	tests := []struct {
		name string
		size uint32
		want []byte
	}{
		{
			name: "9000 bytes",
			size: 9000,
			want: []byte{0xF0, 0x00, 0x04, 0x00, 0x28, 0x23, 0x00, 0x00},
		},
		{
			name: "zero",
			size: 0,
			want: []byte{0xF0, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "max",
			size: 0xFFFFFFFF,
			want: []byte{0xF0, 0x00, 0x04, 0x00, 0xFF, 0xFF, 0xFF, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildHeaderFrame(tt.size)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("BuildHeaderFrame(%d) = % X, want % X", tt.size, got, tt.want)
			}
		})
	}
}

func TestBuildChunkFrame(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantHeader []byte
		wantErr    bool
		errMsg     string
	}{
		{
			name:       "small chunk",
			data:       []byte{0xAA, 0xBB, 0xCC},
			wantHeader: []byte{0xF1, 0x00, 0x03, 0x00},
		},
		{
			name:       "default chunk",
			data:       make([]byte, DefaultChunkSize),
			wantHeader: []byte{0xF1, 0x00, 0x00, 0x10},
		},
		{
			name:       "tail chunk",
			data:       make([]byte, 808),
			wantHeader: []byte{0xF1, 0x00, 0x28, 0x03},
		},
		{
			name:    "empty",
			data:    nil,
			wantErr: true,
			errMsg:  "chunk cannot be empty",
		},
		{
			name:    "too large",
			data:    make([]byte, MaxChunkSize+1),
			wantErr: true,
			errMsg:  "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildChunkFrame(tt.data)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(frame[:FrameHeaderSize], tt.wantHeader) {
				t.Errorf("header = % X, want % X", frame[:FrameHeaderSize], tt.wantHeader)
			}
			if !bytes.Equal(frame[FrameHeaderSize:], tt.data) {
				t.Errorf("payload mismatch")
			}
		})
	}
}

func TestBuildTrailerFrame(t *testing.T) {
	want := []byte{0xF2, 0x00, 0x00, 0x00}
	if got := BuildTrailerFrame(); !bytes.Equal(got, want) {
		t.Errorf("BuildTrailerFrame() = % X, want % X", got, want)
	}
}

func TestBuildHello(t *testing.T) {
	pub := bytes.Repeat([]byte{0x42}, PublicKeySize)

	msg, err := BuildClientHello(pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(msg, []byte("csk:")) || len(msg) != 4+PublicKeySize {
		t.Errorf("client hello = %q", msg)
	}

	got, ok := ParseClientHello(msg)
	if !ok || !bytes.Equal(got, pub) {
		t.Errorf("ParseClientHello() = %v, %v", got, ok)
	}
	if _, ok := ParseServerHello(msg); ok {
		t.Error("client hello parsed as server hello")
	}

	msg, err = BuildServerHello(pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := ParseServerHello(msg); !ok || !bytes.Equal(got, pub) {
		t.Errorf("ParseServerHello() = %v, %v", got, ok)
	}

	if _, err := BuildClientHello(pub[:10]); err == nil {
		t.Error("expected error for short key")
	}
}
