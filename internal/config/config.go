package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/j0hnnybash/ashuffle/internal/rules"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// Built-in connection defaults, used when neither flags, environment nor
// config file say otherwise.
const (
	DefaultHost = "localhost"
	DefaultPort = 6600
)

// Address identifies the MPD server: a hostname or an absolute Unix socket
// path, a port, and an optional password embedded via the "password@host"
// form. Constructed once during Load and never mutated afterwards.
type Address struct {
	Host     string
	Port     int
	Password string
}

// Network returns the dial network for the address.
func (a Address) Network() string {
	if strings.HasPrefix(a.Host, "/") {
		return "unix"
	}
	return "tcp"
}

// Target returns the dial target: the socket path, or host:port.
func (a Address) Target() string {
	if a.Network() == "unix" {
		return a.Host
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String renders the address without the password.
func (a Address) String() string {
	return a.Target()
}

// splitPassword extracts an embedded "password@host" credential.
func splitPassword(host string) (password, bare string) {
	if pw, rest, ok := strings.Cut(host, "@"); ok {
		return pw, rest
	}
	return "", host
}

// Options is the immutable per-run configuration consumed by the
// negotiator, the library sources and the loop controller.
type Options struct {
	Address     Address
	QueueBuffer int          // upcoming tracks to keep beyond the playing one
	WindowSize  int          // shuffle chain recency window
	Only        int          // enqueue N tracks and exit, 0 = run the loop
	File        string       // flat URI list, "-" for stdin
	DBPath      string       // SQLite track index
	NoCheck     bool         // skip the MPD library check for file input
	GroupBy     []string     // tags forming shuffle pools
	Excludes    []rules.Rule // exclusion rule set
	Verbose     bool
	Version     bool
}

// fileConfig is the optional YAML config file shape. Values merge below
// environment variables and flags.
type fileConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	QueueBuffer int      `yaml:"queue_buffer"`
	WindowSize  int      `yaml:"window_size"`
	GroupBy     []string `yaml:"group_by"`
	Exclude     []string `yaml:"exclude"`
}

// Load resolves options from defaults, an optional YAML config file,
// MPD_HOST/MPD_PORT environment variables, and command line flags, in
// increasing order of precedence.
func Load(args []string) (*Options, error) {
	fs := flag.NewFlagSet("ashuffle", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to a YAML config file")
	host := fs.String("host", "", "MPD host, socket path, or password@host")
	port := fs.IntP("port", "p", 0, "MPD port")
	queueBuffer := fs.Int("queue-buffer", 0, "upcoming tracks to keep queued beyond the playing one")
	windowSize := fs.Int("window-size", shuffle.DefaultWindowSize, "recent picks excluded from re-selection")
	only := fs.IntP("only", "o", 0, "enqueue N tracks and exit without playing")
	file := fs.StringP("file", "f", "", "read track URIs from a file, - for stdin")
	dbPath := fs.String("from-db", "", "read tracks from a SQLite track index")
	noCheck := fs.Bool("no-check", false, "do not check file URIs against the MPD library")
	groupBy := fs.StringSliceP("group-by", "g", nil, "shuffle pools formed from these tags")
	byAlbum := fs.Bool("by-album", false, "shorthand for --group-by album,date")
	excludes := fs.StringArrayP("exclude", "e", nil, "exclude tracks matching tag=value[,tag=value...]")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	version := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	var fc fileConfig
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", *configPath, err)
		}
	}

	opts := &Options{
		QueueBuffer: fc.QueueBuffer,
		WindowSize:  shuffle.DefaultWindowSize,
		Only:        *only,
		File:        *file,
		DBPath:      *dbPath,
		NoCheck:     *noCheck,
		GroupBy:     fc.GroupBy,
		Verbose:     *verbose,
		Version:     *version,
	}
	if fc.WindowSize != 0 {
		opts.WindowSize = fc.WindowSize
	}
	if fs.Changed("queue-buffer") {
		opts.QueueBuffer = *queueBuffer
	}
	if fs.Changed("window-size") {
		opts.WindowSize = *windowSize
	}
	if *byAlbum {
		opts.GroupBy = []string{"album", "date"}
	}
	if fs.Changed("group-by") {
		opts.GroupBy = *groupBy
	}

	excludeSpecs := append(append([]string(nil), fc.Exclude...), *excludes...)
	parsed, err := rules.ParseAll(excludeSpecs)
	if err != nil {
		return nil, err
	}
	opts.Excludes = parsed

	opts.Address = resolveAddress(fc, *host, *port)

	if err := validate(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// resolveAddress applies the precedence flag > environment > config file >
// default, and splits an embedded password off the winning host.
func resolveAddress(fc fileConfig, flagHost string, flagPort int) Address {
	host := DefaultHost
	port := DefaultPort

	if fc.Host != "" {
		host = fc.Host
	}
	if fc.Port != 0 {
		port = fc.Port
	}
	if v := os.Getenv("MPD_HOST"); v != "" {
		host = v
	}
	if v := os.Getenv("MPD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	if flagHost != "" {
		host = flagHost
	}
	if flagPort != 0 {
		port = flagPort
	}

	password, bare := splitPassword(host)
	return Address{Host: bare, Port: port, Password: password}
}

func validate(o *Options) error {
	if o.QueueBuffer < 0 {
		return fmt.Errorf("queue-buffer must be non-negative, got %d", o.QueueBuffer)
	}
	if o.WindowSize < 1 {
		return fmt.Errorf("window-size must be at least 1, got %d", o.WindowSize)
	}
	if o.Only < 0 {
		return fmt.Errorf("only must be non-negative, got %d", o.Only)
	}
	if o.Address.Port < 1 || o.Address.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", o.Address.Port)
	}
	if o.NoCheck && o.File == "" {
		return fmt.Errorf("no-check requires a file input (-f)")
	}
	if o.NoCheck && len(o.GroupBy) > 0 {
		return fmt.Errorf("group-by not supported with no-check")
	}
	if o.NoCheck && len(o.Excludes) > 0 {
		return fmt.Errorf("exclude rules not supported with no-check")
	}
	if o.File != "" && o.DBPath != "" {
		return fmt.Errorf("-f and --from-db are mutually exclusive")
	}
	return nil
}
