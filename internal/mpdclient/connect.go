package mpdclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/j0hnnybash/ashuffle/internal/config"
)

// Sentinel errors so callers can report which check failed.
var (
	// ErrAuthRejected marks a protocol-level authentication failure.
	ErrAuthRejected = errors.New("mpd rejected the password")

	// ErrPermissionDenied marks a session missing required commands.
	ErrPermissionDenied = errors.New("mpd permissions insufficient")
)

// requiredCommands is the permission set ashuffle needs to operate.
var requiredCommands = []string{"add", "status", "play", "pause", "idle"}

// Connect negotiates an authenticated session with sufficient permissions.
//
// The address is dialed as given; an embedded password that the server
// rejects, or that grants too little, is fatal without prompting. Only a
// session dialed without any password may fall back to the password
// provider, and it is consulted exactly once: if the re-dialed session is
// still insufficient, Connect fails.
func Connect(dial Dialer, opts *config.Options, password PasswordProvider, logger zerolog.Logger) (Client, error) {
	addr := opts.Address

	client, err := dial(addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to mpd at %s: %w", addr, err)
	}

	missing, err := missingPermissions(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not read mpd permissions: %w", err)
	}
	if len(missing) == 0 {
		return client, nil
	}
	if addr.Password != "" {
		client.Close()
		return nil, fmt.Errorf("%w: the supplied password does not allow %s",
			ErrPermissionDenied, strings.Join(missing, ", "))
	}

	logger.Debug().
		Strs("missing", missing).
		Msg("anonymous session lacks permissions, prompting for password")

	client.Close()
	pw, err := password()
	if err != nil {
		return nil, fmt.Errorf("could not read password: %w", err)
	}

	addr.Password = pw
	client, err = dial(addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to mpd at %s: %w", addr, err)
	}
	missing, err = missingPermissions(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not read mpd permissions: %w", err)
	}
	if len(missing) > 0 {
		client.Close()
		return nil, fmt.Errorf("%w: the prompted password does not allow %s",
			ErrPermissionDenied, strings.Join(missing, ", "))
	}
	return client, nil
}

// missingPermissions returns the required commands the session may not
// execute, in required order.
func missingPermissions(c Client) ([]string, error) {
	granted, err := c.Permissions()
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(granted))
	for _, cmd := range granted {
		allowed[cmd] = true
	}
	var missing []string
	for _, cmd := range requiredCommands {
		if !allowed[cmd] {
			missing = append(missing, cmd)
		}
	}
	return missing, nil
}
