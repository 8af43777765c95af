package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/j0hnnybash/ashuffle/internal/config"
	"github.com/j0hnnybash/ashuffle/internal/library"
	"github.com/j0hnnybash/ashuffle/internal/loop"
	"github.com/j0hnnybash/ashuffle/internal/metrics"
	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if err := run(&logger); err != nil {
		logger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run(logger *zerolog.Logger) error {
	// Optional .env for MPD_HOST/MPD_PORT; absence is fine.
	_ = godotenv.Load()

	opts, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Version {
		fmt.Println("ashuffle", version)
		return nil
	}
	if opts.Verbose {
		*logger = logger.Level(zerolog.DebugLevel)
	}

	client, err := mpdclient.Connect(mpdclient.Dial, opts, promptPassword, *logger)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Debug().Stringer("addr", opts.Address).Msg("connected to mpd")

	chain := shuffle.NewChain(opts.WindowSize)
	if err := buildChain(client, chain, opts); err != nil {
		return err
	}
	if chain.Len() == 0 {
		return errors.New("no tracks to shuffle: the library is empty or every track was excluded")
	}
	logger.Info().Int("tracks", chain.Len()).Msg("loaded shuffle chain")

	if opts.Only > 0 {
		err = loop.Once(client, chain, opts.Only, *logger)
	} else {
		err = loop.Run(client, chain, opts, loop.Delegate{}, *logger)
	}
	logger.Debug().Fields(metrics.Get().Snapshot()).Msg("shutting down")
	return err
}

// buildChain selects the candidate source: flat file, SQLite index, or the
// MPD database.
func buildChain(client mpdclient.Client, chain *shuffle.Chain, opts *config.Options) error {
	switch {
	case opts.File != "":
		r, closeFn, err := openInput(opts.File)
		if err != nil {
			return err
		}
		defer closeFn()
		return library.FromFile(r, client, opts.Excludes, chain, !opts.NoCheck, opts.GroupBy)
	case opts.DBPath != "":
		return library.FromDB(opts.DBPath, opts.Excludes, chain, opts.GroupBy)
	default:
		return library.FromMPD(client, opts.Excludes, chain, opts.GroupBy)
	}
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening track list: %w", err)
	}
	return f, f.Close, nil
}

// promptPassword asks for the MPD password on the terminal. The negotiator
// calls this at most once, and only when no password was supplied.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "mpd password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
