package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is the decoded form of a startup argument vector.
type Options struct {
	Image      string
	BootFile   string
	Quiet      bool
	NoSignals  bool
	NoTTY      bool
	LocalKB    int
	GlobalKB   int
	TrailKB    int
	ArgumentKB int
}

// ParseArgv decodes argv. It rejects empty vectors, unknown options,
// a dangling -x and malformed or non-positive stack sizes.
func ParseArgv(argv []string) (Options, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Options{}, fmt.Errorf("argument vector has no image path")
	}

	opts := Options{Image: argv[0]}
	for i := 1; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-x":
			if i+1 >= len(argv) {
				return Options{}, fmt.Errorf("-x requires a boot file")
			}
			i++
			opts.BootFile = argv[i]
			continue
		case "-q":
			opts.Quiet = true
			continue
		case "-nosignals":
			opts.NoSignals = true
			continue
		case "-tty":
			opts.NoTTY = true
			continue
		}

		if len(arg) < 3 || arg[0] != '-' {
			return Options{}, fmt.Errorf("unknown option %q", arg)
		}
		var dst *int
		switch arg[1] {
		case 'L':
			dst = &opts.LocalKB
		case 'G':
			dst = &opts.GlobalKB
		case 'T':
			dst = &opts.TrailKB
		case 'A':
			dst = &opts.ArgumentKB
		default:
			return Options{}, fmt.Errorf("unknown option %q", arg)
		}
		kb, err := parseSize(arg[2:])
		if err != nil {
			return Options{}, fmt.Errorf("option %q: %w", arg, err)
		}
		*dst = kb
	}
	return opts, nil
}

func parseSize(s string) (int, error) {
	if !strings.HasSuffix(s, "k") {
		return 0, fmt.Errorf("size must be given in kilobytes")
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "k"))
	if err != nil {
		return 0, fmt.Errorf("invalid size: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}
	return n, nil
}
