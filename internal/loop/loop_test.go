package loop_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/j0hnnybash/ashuffle/internal/config"
	"github.com/j0hnnybash/ashuffle/internal/loop"
	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
	"github.com/j0hnnybash/ashuffle/internal/mpdclient/mpdtest"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// initOnly runs the initial fill and no loop iterations.
func initOnly() loop.Delegate {
	return loop.Delegate{Until: func() bool { return false }}
}

// loopOnce skips init and runs exactly one iteration.
func loopOnce() loop.Delegate {
	first := true
	return loop.Delegate{
		SkipInit: true,
		Until: func() bool {
			ran := first
			first = false
			return ran
		},
	}
}

func queueEvents(s *mpdtest.Server) {
	s.IdleFunc = func() mpdclient.Interest { return mpdclient.InterestQueue }
}

func singleTrackChain(t *testing.T, uris ...string) *shuffle.Chain {
	t.Helper()
	chain := shuffle.NewChain(shuffle.DefaultWindowSize)
	for _, uri := range uris {
		if err := chain.Add(uri); err != nil {
			t.Fatalf("Add(%s) failed: %v", uri, err)
		}
	}
	return chain
}

func options(queueBuffer int) *config.Options {
	return &config.Options{QueueBuffer: queueBuffer}
}

func TestInitEmptyQueue(t *testing.T) {
	server := mpdtest.NewServer()
	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(0), initOnly(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(server.Queued) != 1 {
		t.Errorf("expected 1 queued track, got %d", len(server.Queued))
	}
	if !server.Playing {
		t.Error("expected playback to start")
	}
	if server.Pos != 0 {
		t.Errorf("expected position 0, got %d", server.Pos)
	}
}

func TestInitAlreadyPlaying(t *testing.T) {
	server := mpdtest.NewServer()
	server.Queued = []string{"song_a"}
	server.PlayAt(0)

	chain := singleTrackChain(t, "song_b")

	err := loop.Run(server.Connect(), chain, options(0), initOnly(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// A playing server is attached to silently: no pick consumed, queue
	// and position untouched.
	if len(server.Queued) != 1 {
		t.Errorf("expected unchanged queue of 1, got %d", len(server.Queued))
	}
	if server.Pos != 0 {
		t.Errorf("expected position 0, got %d", server.Pos)
	}
}

func TestInitStopped(t *testing.T) {
	server := mpdtest.NewServer()
	server.Queued = []string{"song_b"}
	server.Pos = 0
	server.Playing = false

	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(0), initOnly(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(server.Queued) != 2 {
		t.Errorf("expected 2 queued tracks, got %d", len(server.Queued))
	}
	if !server.Playing {
		t.Error("expected playback to start")
	}
	// Playback starts on the appended track, right after the stale one.
	if server.Pos != 1 {
		t.Errorf("expected position 1, got %d", server.Pos)
	}
}

func TestInitEmptyChainFails(t *testing.T) {
	server := mpdtest.NewServer()
	chain := shuffle.NewChain(shuffle.DefaultWindowSize)

	err := loop.Run(server.Connect(), chain, options(0), initOnly(), zerolog.Nop())
	if !errors.Is(err, shuffle.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestRefillPastEnd(t *testing.T) {
	server := mpdtest.NewServer()
	server.Queued = []string{"song_b"}
	server.Playing = false
	server.Pos = -1 // consumed past the end of the queue
	queueEvents(server)

	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(0), loopOnce(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(server.Queued) != 2 {
		t.Errorf("expected 2 queued tracks, got %d", len(server.Queued))
	}
	if !server.Playing {
		t.Error("expected playback to restart")
	}
	if server.Pos != 1 {
		t.Errorf("expected position 1, got %d", server.Pos)
	}
	if server.Queued[1] != "song_a" {
		t.Errorf("expected song_a appended, got %q", server.Queued[1])
	}
}

func TestRefillEmptyQueue(t *testing.T) {
	server := mpdtest.NewServer()
	queueEvents(server)

	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(0), loopOnce(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(server.Queued) != 1 {
		t.Errorf("expected 1 queued track, got %d", len(server.Queued))
	}
	if !server.Playing {
		t.Error("expected playback to start")
	}
	if server.Pos != 0 {
		t.Errorf("expected position 0, got %d", server.Pos)
	}
}

func TestRefillEmptyQueueWithBuffer(t *testing.T) {
	server := mpdtest.NewServer()
	queueEvents(server)

	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(3), loopOnce(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// queue buffer plus the now-playing slot.
	if len(server.Queued) != 4 {
		t.Errorf("expected 4 queued tracks, got %d", len(server.Queued))
	}
	if !server.Playing {
		t.Error("expected playback to start")
	}
	if server.Pos != 0 {
		t.Errorf("expected position 0, got %d", server.Pos)
	}
}

func TestRefillPartialBuffer(t *testing.T) {
	server := mpdtest.NewServer()
	server.Queued = []string{"song_b", "song_b", "song_b"}
	server.PlayAt(1)
	queueEvents(server)

	chain := singleTrackChain(t, "song_a")

	err := loop.Run(server.Connect(), chain, options(3), loopOnce(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Two tracks from the current position onward, so two more reach the
	// buffered depth of four.
	if len(server.Queued) != 5 {
		t.Errorf("expected 5 queued tracks, got %d", len(server.Queued))
	}
	if server.Pos != 1 {
		t.Errorf("expected unchanged position 1, got %d", server.Pos)
	}
	if !server.Playing {
		t.Error("expected playback to continue")
	}
}

func TestRefillNoop(t *testing.T) {
	server := mpdtest.NewServer()
	server.Queued = []string{"song_b", "song_b"}
	server.PlayAt(0)
	queueEvents(server)

	chain := singleTrackChain(t, "song_a")

	// Two tracks remain from position 0 and the buffer wants one beyond
	// the playing slot: a wakeup that changes nothing is a no-op.
	err := loop.Run(server.Connect(), chain, options(1), loopOnce(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(server.Queued) != 2 {
		t.Errorf("expected unchanged queue of 2, got %d", len(server.Queued))
	}
	if server.Pos != 0 {
		t.Errorf("expected unchanged position 0, got %d", server.Pos)
	}
}

func TestOnce(t *testing.T) {
	server := mpdtest.NewServer()
	chain := singleTrackChain(t, "song_a", "song_b", "song_c")

	if err := loop.Once(server.Connect(), chain, 3, zerolog.Nop()); err != nil {
		t.Fatalf("Once failed: %v", err)
	}

	if len(server.Queued) != 3 {
		t.Errorf("expected 3 queued tracks, got %d", len(server.Queued))
	}
	// Only-mode never touches playback.
	if server.Playing {
		t.Error("expected playback to stay stopped")
	}
	if server.Pos != -1 {
		t.Errorf("expected no position, got %d", server.Pos)
	}
}

func TestOnceEmptyChainFails(t *testing.T) {
	server := mpdtest.NewServer()
	chain := shuffle.NewChain(shuffle.DefaultWindowSize)

	if err := loop.Once(server.Connect(), chain, 1, zerolog.Nop()); !errors.Is(err, shuffle.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}
