package tailer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/internal/pump"
	"github.com/bft-labs/framelog/internal/region"
)

func openChannel(t *testing.T, capacity int64) (*channel.Writer, *channel.Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chan.dat")

	wreg, err := region.Open(path, capacity)
	if err != nil {
		t.Fatalf("open writer region: %v", err)
	}
	w, err := channel.NewWriter(wreg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	rreg, err := region.Open(path, capacity)
	if err != nil {
		t.Fatalf("open reader region: %v", err)
	}
	r, err := channel.NewReader(rreg)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	return w, r
}

func TestRunStopsAtEndOfStream(t *testing.T) {
	w, r := openChannel(t, 1<<16)

	for _, msg := range []string{"one", "two", "three"} {
		if !w.Append([]byte(msg)) {
			t.Fatalf("append %q failed", msg)
		}
	}
	w.Finish()

	var out bytes.Buffer
	tl := New(r, &out, nil, Config{PollInterval: 10 * time.Millisecond})

	if err := tl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := out.String(), "one\ntwo\nthree\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if tl.Consumed() != 3 {
		t.Fatalf("consumed = %d, want 3", tl.Consumed())
	}
}

func TestRunOnceDrainsWithoutMarker(t *testing.T) {
	w, r := openChannel(t, 1<<16)
	w.Append([]byte("only"))

	var out bytes.Buffer
	tl := New(r, &out, nil, Config{PollInterval: 10 * time.Millisecond, Once: true})

	if err := tl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "only\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunFollowSeesLateFrames(t *testing.T) {
	w, r := openChannel(t, 1<<16)
	w.Finish()

	go func() {
		time.Sleep(30 * time.Millisecond)
		w.Append([]byte("late"))
		w.Finish()
	}()

	var out bytes.Buffer
	tl := New(r, &out, nil, Config{PollInterval: 5 * time.Millisecond, Follow: true})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		// Follow never returns on its own; stop once the frame arrives.
		for tl.Consumed() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	err := tl.Run(ctx)
	if err != context.Canceled && err != context.DeadlineExceeded {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "late\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestResumeSkipsEmittedFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chan.dat")

	wreg, err := region.Open(path, 1<<16)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	w, err := channel.NewWriter(wreg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()
	for _, msg := range []string{"a", "b", "c", "d"} {
		w.Append([]byte(msg))
	}
	w.Finish()

	run := func() string {
		rreg, err := region.Open(path, 1<<16)
		if err != nil {
			t.Fatalf("open region: %v", err)
		}
		r, err := channel.NewReader(rreg)
		if err != nil {
			t.Fatalf("new reader: %v", err)
		}
		defer r.Close()

		var out bytes.Buffer
		tl := New(r, &out, nil, Config{PollInterval: 10 * time.Millisecond, StateDir: dir})
		if err := tl.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out.String()
	}

	if got := run(); got != "a\nb\nc\nd\n" {
		t.Fatalf("first run output = %q", got)
	}
	// Second run resumes at the persisted position: nothing re-emitted.
	if got := run(); got != "" {
		t.Fatalf("second run output = %q, want empty", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := state{Consumed: 42, Offset: 1234, UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := saveState(dir, want); err != nil {
		t.Fatalf("saveState: %v", err)
	}

	got, err := loadState(dir)
	if err != nil {
		t.Fatalf("loadState: %v", err)
	}
	if got.Consumed != want.Consumed || got.Offset != want.Offset {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "tail-state.json")); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestStaleStateDiscarded(t *testing.T) {
	dir := t.TempDir()
	// State claims 10 frames consumed, but the region holds only 2.
	if err := saveState(dir, state{Consumed: 10, Offset: 9999}); err != nil {
		t.Fatalf("saveState: %v", err)
	}

	path := filepath.Join(dir, "chan.dat")
	wreg, err := region.Open(path, 1<<16)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	w, err := channel.NewWriter(wreg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()
	w.Append([]byte("x"))
	w.Append([]byte("y"))
	w.Finish()

	rreg, err := region.Open(path, 1<<16)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	r, err := channel.NewReader(rreg)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	var out bytes.Buffer
	tl := New(r, &out, nil, Config{PollInterval: 10 * time.Millisecond, StateDir: dir})
	if err := tl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Both frames were walked during fast forward; none re-emitted,
	// and the run ends cleanly at the marker.
	if out.String() != "" {
		t.Fatalf("output = %q, want empty", out.String())
	}
}

func TestPumpToTailerRoundTrip(t *testing.T) {
	w, r := openChannel(t, 1<<16)

	input := "alpha\nbeta\ngamma\n"
	p := pump.New(w, nil)
	n, err := p.Run(strings.NewReader(input))
	if err != nil {
		t.Fatalf("pump: %v", err)
	}
	if n != 3 {
		t.Fatalf("pumped %d records, want 3", n)
	}

	var out bytes.Buffer
	tl := New(r, &out, nil, Config{PollInterval: 10 * time.Millisecond})
	if err := tl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != input {
		t.Fatalf("round trip = %q, want %q", out.String(), input)
	}
}

func TestConfigWatcherUpdatesPollInterval(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("poll_interval = \"200ms\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, r := openChannel(t, 1<<16)
	tl := New(r, &bytes.Buffer{}, nil, Config{PollInterval: 200 * time.Millisecond})

	w := NewConfigWatcher(cfgPath, tl, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond) // let the watch register
	if err := os.WriteFile(cfgPath, []byte("poll_interval = \"7ms\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if time.Duration(tl.pollNanos.Load()) == 7*time.Millisecond {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("poll interval not updated, still %v", time.Duration(tl.pollNanos.Load()))
}
