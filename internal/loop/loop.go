// Package loop implements the controller that keeps the server queue
// supplied with upcoming tracks and playback running.
package loop

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/j0hnnybash/ashuffle/internal/config"
	"github.com/j0hnnybash/ashuffle/internal/metrics"
	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// Delegate injects test control over the loop lifecycle. The zero value
// runs the initial queue fill and then loops forever.
type Delegate struct {
	// SkipInit suppresses the initial queue fill.
	SkipInit bool
	// Until is evaluated before each iteration; the loop exits once it
	// returns false. Nil means run until the session breaks.
	Until func() bool
}

// Run drives the main lifecycle: initial fill, then event-driven refill.
// Everything runs on the caller's goroutine; the only suspension point is
// the blocking wait for a server notification.
func Run(client mpdclient.Client, chain *shuffle.Chain, opts *config.Options, d Delegate, logger zerolog.Logger) error {
	if !d.SkipInit {
		if err := initQueue(client, chain, logger); err != nil {
			return err
		}
	}

	for d.Until == nil || d.Until() {
		events, err := client.AwaitChange(mpdclient.InterestQueue | mpdclient.InterestPlayer)
		if err != nil {
			return fmt.Errorf("waiting for mpd event: %w", err)
		}
		metrics.Get().RecordWakeup()
		logger.Debug().Stringer("events", events).Msg("woke up")

		if err := refill(client, chain, opts, logger); err != nil {
			return err
		}
		metrics.Get().RecordIteration()
	}
	return nil
}

// initQueue performs the one-time startup step. A server that is already
// playing is left untouched (silent attach); otherwise one pick is
// appended and playback starts on it.
func initQueue(client mpdclient.Client, chain *shuffle.Chain, logger zerolog.Logger) error {
	snap, err := client.Queue()
	if err != nil {
		return fmt.Errorf("reading queue state: %w", err)
	}
	if snap.Playing {
		logger.Debug().Msg("mpd already playing, attaching silently")
		return nil
	}

	uri, err := pick(chain)
	if err != nil {
		return err
	}
	if err := client.Enqueue(uri); err != nil {
		return fmt.Errorf("enqueueing %q: %w", uri, err)
	}
	metrics.Get().RecordEnqueue()

	// The appended track landed at the end of the queue we just read, so
	// the pre-append length is its position.
	if err := client.PlayAt(len(snap.Tracks)); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	logger.Info().Str("uri", uri).Int("pos", len(snap.Tracks)).Msg("started playback")
	return nil
}

// refill re-reads the queue and appends however many picks are needed to
// keep queueBuffer upcoming tracks beyond the current one. Playback is
// only touched when the queue had been fully consumed (empty, or position
// past the end).
func refill(client mpdclient.Client, chain *shuffle.Chain, opts *config.Options, logger zerolog.Logger) error {
	snap, err := client.Queue()
	if err != nil {
		return fmt.Errorf("reading queue state: %w", err)
	}

	needed := opts.QueueBuffer + 1 - snap.Remaining()
	if needed <= 0 {
		return nil
	}

	oldLen := len(snap.Tracks)
	for i := 0; i < needed; i++ {
		uri, err := pick(chain)
		if err != nil {
			return err
		}
		if err := client.Enqueue(uri); err != nil {
			return fmt.Errorf("enqueueing %q: %w", uri, err)
		}
		metrics.Get().RecordEnqueue()
	}
	logger.Debug().Int("added", needed).Int("queue_len", oldLen+needed).Msg("refilled queue")

	consumed := oldLen == 0 || snap.Position < 0 || snap.Position >= oldLen
	if consumed {
		if err := client.PlayAt(oldLen); err != nil {
			return fmt.Errorf("starting playback: %w", err)
		}
		logger.Info().Int("pos", oldLen).Msg("restarted playback")
	}
	return nil
}

// Once enqueues n picks without touching playback, for --only mode.
func Once(client mpdclient.Client, chain *shuffle.Chain, n int, logger zerolog.Logger) error {
	for i := 0; i < n; i++ {
		uri, err := pick(chain)
		if err != nil {
			return err
		}
		if err := client.Enqueue(uri); err != nil {
			return fmt.Errorf("enqueueing %q: %w", uri, err)
		}
		metrics.Get().RecordEnqueue()
	}
	logger.Info().Int("added", n).Msg("enqueued tracks")
	return nil
}

func pick(chain *shuffle.Chain) (string, error) {
	uri, err := chain.Pick()
	if err != nil {
		return "", fmt.Errorf("drawing a track: %w", err)
	}
	metrics.Get().RecordPick()
	return uri, nil
}
