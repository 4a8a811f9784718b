package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/joho/godotenv"
)

const usage = `usage: zwm [-v] [-d display] [-l addr] [-b width] [-c color] [display]

  -d display  X display to manage (default $DISPLAY)
  -l addr     serve read-only status on addr, e.g. 127.0.0.1:8080
  -b width    window border width in pixels (default 1)
  -c color    window border color as #rrggbb (default #ff0000)
  -v          debug logging
  -h          show this help`

var errorHelp = errors.New("help requested")

// Options configures a WM. Zero values are not meaningful; start from
// defaultOptions.
type Options struct {
	Display     string
	ListenAddr  string
	BorderWidth uint32
	BorderColor uint32
	LogLevel    slog.Level
}

// defaultOptions reads the ZWM_* environment, falling back to built-in
// defaults.
func defaultOptions(getenv func(string) string) (Options, error) {
	opts := Options{
		BorderWidth: 1,
		BorderColor: 0xff0000,
		LogLevel:    slog.LevelInfo,
		Display:     getenv("ZWM_DISPLAY"),
		ListenAddr:  getenv("ZWM_LISTEN"),
	}
	if v := getenv("ZWM_BORDER_WIDTH"); v != "" {
		w, err := parseBorderWidth(v)
		if err != nil {
			return opts, fmt.Errorf("ZWM_BORDER_WIDTH: %w", err)
		}
		opts.BorderWidth = w
	}
	if v := getenv("ZWM_BORDER_COLOR"); v != "" {
		c, err := parseColor(v)
		if err != nil {
			return opts, fmt.Errorf("ZWM_BORDER_COLOR: %w", err)
		}
		opts.BorderColor = c
	}
	if v := getenv("ZWM_LOG_LEVEL"); v != "" {
		if err := opts.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return opts, fmt.Errorf("ZWM_LOG_LEVEL: %w", err)
		}
	}
	return opts, nil
}

// parseOptions applies command line flags on top of opts.
func parseOptions(args []string, opts Options) (Options, error) {
	flags, optind, err := getopt.Getopts(args, "d:l:b:c:vh")
	if err != nil {
		return opts, err
	}
	for _, opt := range flags {
		switch opt.Option {
		case 'd':
			opts.Display = opt.Value
		case 'l':
			opts.ListenAddr = opt.Value
		case 'b':
			w, err := parseBorderWidth(opt.Value)
			if err != nil {
				return opts, fmt.Errorf("-b: %w", err)
			}
			opts.BorderWidth = w
		case 'c':
			c, err := parseColor(opt.Value)
			if err != nil {
				return opts, fmt.Errorf("-c: %w", err)
			}
			opts.BorderColor = c
		case 'v':
			opts.LogLevel = slog.LevelDebug
		case 'h':
			return opts, errorHelp
		}
	}
	rest := args[optind:]
	switch len(rest) {
	case 0:
	case 1:
		opts.Display = rest[0]
	default:
		return opts, fmt.Errorf("too many arguments: %s", strings.Join(rest, " "))
	}
	return opts, nil
}

// loadDotEnv adds the variables in the given files (.env by default) to the
// environment. A missing file is not an error.
func loadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func loadOptions(args []string) (Options, error) {
	opts, err := defaultOptions(os.Getenv)
	if err != nil {
		return opts, err
	}
	return parseOptions(args, opts)
}

func parseBorderWidth(s string) (uint32, error) {
	w, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid border width %q", s)
	}
	return uint32(w), nil
}

// parseColor accepts #rrggbb, 0xrrggbb or rrggbb.
func parseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	c, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	return uint32(c), nil
}
