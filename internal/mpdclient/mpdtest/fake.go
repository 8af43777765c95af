// Package mpdtest provides an in-memory MPD double for tests: a scripted
// server with per-password permission sets and a fake client session over
// its state.
package mpdtest

import (
	"fmt"

	"github.com/j0hnnybash/ashuffle/internal/config"
	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
)

// AllCommands grants everything ashuffle requires.
var AllCommands = []string{"add", "status", "play", "pause", "idle"}

// Server is the scripted server state shared by every session dialed
// against it.
type Server struct {
	// Default is the permission set of an unauthenticated session.
	Default []string
	// Users maps passwords to the permission sets they unlock. Dialing
	// with an unknown password is rejected as an auth failure.
	Users map[string][]string

	// DB is the server's library.
	DB []mpdclient.Track

	// Queue state, mutated by sessions.
	Queued  []string
	Pos     int
	Playing bool

	// IdleFunc scripts AwaitChange results. Nil means no events: calling
	// AwaitChange then fails the invariant that tests script every wait.
	IdleFunc func() mpdclient.Interest

	// Dialed records every address handed to the Dialer.
	Dialed []config.Address
}

// NewServer returns a server whose anonymous sessions hold all required
// permissions, with an empty queue and no current position.
func NewServer() *Server {
	return &Server{Default: AllCommands, Pos: -1}
}

// PlayAt positions the server's player like a running MPD would.
func (s *Server) PlayAt(pos int) {
	s.Pos = pos
	s.Playing = true
}

// Dialer returns an mpdclient.Dialer producing sessions against s.
func (s *Server) Dialer() mpdclient.Dialer {
	return func(addr config.Address) (mpdclient.Client, error) {
		s.Dialed = append(s.Dialed, addr)
		allowed := s.Default
		if addr.Password != "" {
			granted, ok := s.Users[addr.Password]
			if !ok {
				return nil, fmt.Errorf("%w: incorrect password", mpdclient.ErrAuthRejected)
			}
			allowed = granted
		}
		return &Session{server: s, allowed: allowed}, nil
	}
}

// Connect dials a session directly, bypassing the negotiator. Handy for
// loop tests that are not about connection handling.
func (s *Server) Connect() *Session {
	return &Session{server: s, allowed: AllCommands}
}

// Session is a fake client over the server state.
type Session struct {
	server  *Server
	allowed []string
	Closed  bool
}

var _ mpdclient.Client = (*Session)(nil)

func (c *Session) Permissions() ([]string, error) {
	return c.allowed, nil
}

func (c *Session) Queue() (mpdclient.QueueSnapshot, error) {
	s := c.server
	tracks := append([]string(nil), s.Queued...)
	return mpdclient.QueueSnapshot{Tracks: tracks, Position: s.Pos, Playing: s.Playing}, nil
}

func (c *Session) Enqueue(uri string) error {
	c.server.Queued = append(c.server.Queued, uri)
	return nil
}

func (c *Session) PlayAt(pos int) error {
	c.server.PlayAt(pos)
	return nil
}

func (c *Session) AwaitChange(interest mpdclient.Interest) (mpdclient.Interest, error) {
	if c.server.IdleFunc == nil {
		return 0, fmt.Errorf("unscripted AwaitChange(%s)", interest)
	}
	return c.server.IdleFunc() & interest, nil
}

func (c *Session) Library() ([]mpdclient.Track, error) {
	return c.server.DB, nil
}

func (c *Session) Close() error {
	c.Closed = true
	return nil
}
