// Package mpdclient abstracts the MPD wire protocol behind a small client
// interface, and implements the connection negotiator that validates the
// permission set ashuffle needs.
package mpdclient

import (
	"strings"

	"github.com/j0hnnybash/ashuffle/internal/config"
)

// Track is a library entry: an opaque URI plus its tag values, keyed by
// lower-cased tag name.
type Track struct {
	URI  string
	Tags map[string]string
}

// QueueSnapshot mirrors the server's play queue at one point in time. It is
// read fresh each loop iteration and never cached.
type QueueSnapshot struct {
	Tracks   []string
	Position int // index of the current track, -1 when unreported
	Playing  bool
}

// Remaining returns the number of tracks from the current position onward,
// or zero when the position is unreported or past the end.
func (q QueueSnapshot) Remaining() int {
	if q.Position < 0 || q.Position >= len(q.Tracks) {
		return 0
	}
	return len(q.Tracks) - q.Position
}

// Interest is a bit set of server subsystems to wait on.
type Interest uint8

const (
	InterestQueue Interest = 1 << iota
	InterestPlayer
	InterestDatabase
)

// subsystem names as MPD reports them in idle responses. The queue
// subsystem is called "playlist" on the wire.
var subsystems = map[string]Interest{
	"playlist": InterestQueue,
	"player":   InterestPlayer,
	"database": InterestDatabase,
}

func interestOf(subsystem string) Interest {
	return subsystems[subsystem]
}

func (i Interest) String() string {
	var names []string
	if i&InterestQueue != 0 {
		names = append(names, "queue")
	}
	if i&InterestPlayer != 0 {
		names = append(names, "player")
	}
	if i&InterestDatabase != 0 {
		names = append(names, "database")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Client is the session surface the rest of the program consumes. The
// production implementation speaks the MPD protocol via gompd; tests use
// the in-memory fake from the mpdtest package.
type Client interface {
	// Permissions returns the command names the session may execute.
	Permissions() ([]string, error)

	// Queue reads the current queue, position and play state.
	Queue() (QueueSnapshot, error)

	// Enqueue appends a track URI to the play queue.
	Enqueue(uri string) error

	// PlayAt starts playback at the given queue position.
	PlayAt(pos int) error

	// AwaitChange blocks until one of the subsystems of interest changes,
	// and returns the subset that did.
	AwaitChange(interest Interest) (Interest, error)

	// Library enumerates every track in the server's database.
	Library() ([]Track, error)

	Close() error
}

// Dialer establishes a session with the server at the given address,
// authenticating with the address's embedded password if present.
type Dialer func(addr config.Address) (Client, error)

// PasswordProvider supplies a credential when the negotiator needs one. It
// is invoked at most once per connection attempt.
type PasswordProvider func() (string, error)
