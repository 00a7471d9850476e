// Package argv assembles the startup argument vector of the embedded engine.
package argv

import "strconv"

// DefaultStackKB is used for any stack whose requested size is zero or negative.
const DefaultStackKB = 16

// Fixed options, always present in this order.
const (
	FlagBoot      = "-x"
	FlagQuiet     = "-q"
	FlagNoSignals = "-nosignals"
	FlagNoTTY     = "-tty"
)

// Options selects the variable parts of the vector.
type Options struct {
	BootFile string
	LocalKB  int
	GlobalKB int
	TrailKB  int
}

// Build returns the complete vector:
//
//	self [-x boot] -q -nosignals -tty -L<N>k -G<N>k -T<N>k
//
// The boot pair is omitted entirely when no boot file is given.
func Build(self string, opts Options) []string {
	args := make([]string, 0, 9)
	args = append(args, self)
	if opts.BootFile != "" {
		args = append(args, FlagBoot, opts.BootFile)
	}
	args = append(args, FlagQuiet, FlagNoSignals, FlagNoTTY)
	args = append(args,
		SizeToken('L', opts.LocalKB),
		SizeToken('G', opts.GlobalKB),
		SizeToken('T', opts.TrailKB),
	)
	return args
}

// SizeToken formats a stack size directive such as -L16k.
func SizeToken(stack byte, kb int) string {
	if kb <= 0 {
		kb = DefaultStackKB
	}
	return "-" + string(stack) + strconv.Itoa(kb) + "k"
}
