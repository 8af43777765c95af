package mpdclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/j0hnnybash/ashuffle/internal/config"
)

// session implements Client on top of gompd: one command connection plus a
// watcher connection for idle notifications. Both carry the password.
type session struct {
	addr    config.Address
	cmd     *mpd.Client
	watcher *mpd.Watcher
}

var _ Client = (*session)(nil)

// Dial establishes a session with the MPD server. It satisfies Dialer.
func Dial(addr config.Address) (Client, error) {
	cmd, err := dialCommand(addr)
	if err != nil {
		return nil, err
	}
	watcher, err := mpd.NewWatcher(addr.Network(), addr.Target(), addr.Password)
	if err != nil {
		cmd.Close()
		return nil, wrapAuthErr(fmt.Errorf("starting idle watcher: %w", err))
	}
	return &session{addr: addr, cmd: cmd, watcher: watcher}, nil
}

func dialCommand(addr config.Address) (*mpd.Client, error) {
	if addr.Password != "" {
		c, err := mpd.DialAuthenticated(addr.Network(), addr.Target(), addr.Password)
		return c, wrapAuthErr(err)
	}
	return mpd.Dial(addr.Network(), addr.Target())
}

// wrapAuthErr marks protocol-level password rejections so the negotiator
// can tell them apart from transport failures.
func wrapAuthErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "password") {
		return fmt.Errorf("%w: %v", ErrAuthRejected, err)
	}
	return err
}

// do runs one command against the command connection. MPD reaps idle
// connections after its connection_timeout, which a long AwaitChange will
// routinely exceed, so a failed command is retried once on a fresh
// connection if the old one no longer answers a ping.
func (s *session) do(fn func(*mpd.Client) error) error {
	err := fn(s.cmd)
	if err == nil || s.cmd.Ping() == nil {
		return err
	}
	fresh, dialErr := dialCommand(s.addr)
	if dialErr != nil {
		return err
	}
	s.cmd.Close()
	s.cmd = fresh
	return fn(s.cmd)
}

func (s *session) Permissions() ([]string, error) {
	var granted []string
	err := s.do(func(c *mpd.Client) error {
		cmds, err := c.Command("commands").Strings("command")
		if err != nil {
			return err
		}
		granted = cmds
		return nil
	})
	return granted, err
}

func (s *session) Queue() (QueueSnapshot, error) {
	snap := QueueSnapshot{Position: -1}
	err := s.do(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		snap.Playing = status["state"] == "play"
		snap.Position = -1
		if v, ok := status["song"]; ok {
			if pos, err := strconv.Atoi(v); err == nil {
				snap.Position = pos
			}
		}
		items, err := c.PlaylistInfo(-1, -1)
		if err != nil {
			return err
		}
		snap.Tracks = make([]string, 0, len(items))
		for _, item := range items {
			snap.Tracks = append(snap.Tracks, item["file"])
		}
		return nil
	})
	return snap, err
}

func (s *session) Enqueue(uri string) error {
	return s.do(func(c *mpd.Client) error { return c.Add(uri) })
}

func (s *session) PlayAt(pos int) error {
	return s.do(func(c *mpd.Client) error { return c.Play(pos) })
}

func (s *session) Library() ([]Track, error) {
	var tracks []Track
	err := s.do(func(c *mpd.Client) error {
		items, err := c.ListAllInfo("/")
		if err != nil {
			return err
		}
		tracks = tracks[:0]
		for _, item := range items {
			uri, ok := item["file"]
			if !ok {
				continue // directory or playlist entry
			}
			tracks = append(tracks, Track{URI: uri, Tags: tagsOf(item)})
		}
		return nil
	})
	return tracks, err
}

// tagsOf lower-cases the tag names of a library entry, dropping the
// non-tag attributes MPD reports alongside them.
func tagsOf(item mpd.Attrs) map[string]string {
	tags := make(map[string]string, len(item))
	for k, v := range item {
		switch k {
		case "file", "duration", "Time", "Format", "Last-Modified":
			continue
		}
		tags[strings.ToLower(k)] = v
	}
	return tags
}

func (s *session) AwaitChange(interest Interest) (Interest, error) {
	for {
		select {
		case subsystem, ok := <-s.watcher.Event:
			if !ok {
				return 0, errors.New("mpd idle watcher closed")
			}
			if got := interestOf(subsystem) & interest; got != 0 {
				return got | s.drainEvents(interest), nil
			}
		case err, ok := <-s.watcher.Error:
			if !ok {
				return 0, errors.New("mpd idle watcher closed")
			}
			return 0, fmt.Errorf("mpd idle watcher: %w", err)
		}
	}
}

// drainEvents collects notifications that arrived in the same burst
// without blocking, so one wakeup handles them all.
func (s *session) drainEvents(interest Interest) Interest {
	var got Interest
	for {
		select {
		case subsystem, ok := <-s.watcher.Event:
			if !ok {
				return got
			}
			got |= interestOf(subsystem) & interest
		default:
			return got
		}
	}
}

func (s *session) Close() error {
	werr := s.watcher.Close()
	cerr := s.cmd.Close()
	if cerr != nil {
		return cerr
	}
	return werr
}
