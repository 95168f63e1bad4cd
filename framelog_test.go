package framelog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/framelog"
)

func TestHelloAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.dat")

	w, err := framelog.OpenWriter(path, 1<<20)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if !w.Append([]byte("hello")) {
		t.Fatal("Append failed")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := framelog.OpenReader(path, 1<<20)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := r.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Take = %q, want %q", got, "hello")
	}
}

func TestOpenRejectsSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.dat")

	w, err := framelog.OpenWriter(path, 1000)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	w.Close()

	if _, err := framelog.OpenReader(path, 2000); !errors.Is(err, framelog.ErrSizeMismatch) {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestOpenRejectsTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.dat")

	for _, capacity := range []int64{0, 1, framelog.Overhead, 2 * framelog.Overhead} {
		if _, err := framelog.OpenWriter(path, capacity); !errors.Is(err, framelog.ErrTooSmall) {
			t.Errorf("OpenWriter(%d): got %v, want ErrTooSmall", capacity, err)
		}
	}
}

func TestEstimateFileSizeScenario(t *testing.T) {
	const n, size = 1000, 1024
	path := filepath.Join(t.TempDir(), "chan.dat")

	w, err := framelog.OpenWriter(path, framelog.EstimateFileSize(n, size))
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	defer w.Close()

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < n; i++ {
		if !w.Append(payload) {
			t.Fatalf("append %d failed", i)
		}
	}
	if w.Append(payload) {
		t.Fatal("append beyond estimated capacity succeeded")
	}
}

func TestCrossMappingHandoff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.dat")
	capacity := framelog.EstimateFileSize(100, 64)

	w, err := framelog.OpenWriter(path, capacity)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	defer w.Close()

	r, err := framelog.OpenReader(path, capacity)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if !w.Append([]byte{byte(i)}) {
				t.Errorf("append %d failed", i)
				return
			}
		}
		w.Finish()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		got, err := r.Take(ctx)
		if err != nil {
			t.Fatalf("Take %d: %v", i, err)
		}
		if len(got) != 1 || got[0] != byte(i) {
			t.Fatalf("frame %d out of order: %v", i, got)
		}
	}
	<-done

	if _, err := r.Poll(); !errors.Is(err, framelog.ErrEndOfStream) {
		t.Fatalf("after drain: got %v, want ErrEndOfStream", err)
	}
}
