package ratelimit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		if NewLimiter(0) != nil {
			t.Error("NewLimiter(0) should return nil (no limiting)")
		}
		if NewLimiter(-100) != nil {
			t.Error("NewLimiter(-100) should return nil (no limiting)")
		}
	})

	t.Run("SmallRateHasMinimumBurst", func(t *testing.T) {
		l := NewLimiter(1000)
		if l.Burst() != minBurst {
			t.Errorf("Burst() = %d, want %d", l.Burst(), minBurst)
		}
	})

	t.Run("LargeRateBurstIsOneSecond", func(t *testing.T) {
		l := NewLimiter(10 * 1024 * 1024)
		if l.Burst() != 10*1024*1024 {
			t.Errorf("Burst() = %d, want %d", l.Burst(), 10*1024*1024)
		}
	})
}

func TestNewReader_NilLimiterPassesThrough(t *testing.T) {
	base := strings.NewReader("content")
	if r := NewReader(context.Background(), base, nil); r != io.Reader(base) {
		t.Error("NewReader() with nil limiter should return the original reader")
	}
}

func TestReader_ReadsAllData(t *testing.T) {
	data := bytes.Repeat([]byte("asset"), 10000)
	r := NewReader(context.Background(), bytes.NewReader(data), NewLimiter(100*1024*1024))

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read %d bytes, want %d", len(got), len(data))
	}
}

func TestReader_LimitsRate(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	// the first 128KB burst is free, the remaining 64KB take about 0.5s
	data := make([]byte, 192*1024)
	r := NewReader(context.Background(), bytes.NewReader(data), NewLimiter(128*1024))

	start := time.Now()
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("transfer took %v, expected rate limiting", elapsed)
	}
}

func TestReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(ctx, strings.NewReader("data"), NewLimiter(1024))
	if _, err := r.Read(make([]byte, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReadCloser_Close(t *testing.T) {
	base := &closeRecorder{Reader: strings.NewReader("x")}
	rc := NewReadCloser(context.Background(), base, NewLimiter(1024*1024))
	if err := rc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !base.closed {
		t.Error("Close() did not close the underlying reader")
	}
}
