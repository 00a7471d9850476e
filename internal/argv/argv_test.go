package argv

import (
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			opts: Options{},
			want: []string{"/lib/libprolog.so", "-q", "-nosignals", "-tty", "-L16k", "-G16k", "-T16k"},
		},
		{
			name: "boot file",
			opts: Options{BootFile: "/srv/rules.prc"},
			want: []string{"/lib/libprolog.so", "-x", "/srv/rules.prc", "-q", "-nosignals", "-tty", "-L16k", "-G16k", "-T16k"},
		},
		{
			name: "scaled sizes",
			opts: Options{LocalKB: 32, GlobalKB: 64, TrailKB: 128},
			want: []string{"/lib/libprolog.so", "-q", "-nosignals", "-tty", "-L32k", "-G64k", "-T128k"},
		},
		{
			name: "negative falls back to default",
			opts: Options{LocalKB: -1, GlobalKB: 32},
			want: []string{"/lib/libprolog.so", "-q", "-nosignals", "-tty", "-L16k", "-G32k", "-T16k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build("/lib/libprolog.so", tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_BootFileAddsExactlyTwoTokens(t *testing.T) {
	sizes := Options{LocalKB: 32, GlobalKB: 0, TrailKB: 8}
	without := Build("self", sizes)

	sizes.BootFile = "boot.prc"
	with := Build("self", sizes)

	if len(with)-len(without) != 2 {
		t.Fatalf("len(with)=%d len(without)=%d, want difference of 2", len(with), len(without))
	}
	if with[1] != FlagBoot || with[2] != "boot.prc" {
		t.Errorf("boot pair not directly after slot 0: %q", with)
	}
	if !reflect.DeepEqual(with[3:], without[1:]) {
		t.Errorf("remaining tokens differ: %q vs %q", with[3:], without[1:])
	}
}

func TestBuild_SelfAlwaysFirst(t *testing.T) {
	for _, boot := range []string{"", "b"} {
		got := Build("/proc-resolved/libprolog.so", Options{BootFile: boot})
		if got[0] != "/proc-resolved/libprolog.so" {
			t.Errorf("slot 0 = %q", got[0])
		}
	}
}

func TestSizeToken(t *testing.T) {
	tests := []struct {
		stack byte
		kb    int
		want  string
	}{
		{'L', 0, "-L16k"},
		{'G', 0, "-G16k"},
		{'T', 0, "-T16k"},
		{'L', 32, "-L32k"},
		{'G', 32, "-G32k"},
		{'T', 32, "-T32k"},
	}
	for _, tt := range tests {
		if got := SizeToken(tt.stack, tt.kb); got != tt.want {
			t.Errorf("SizeToken(%c, %d) = %q, want %q", tt.stack, tt.kb, got, tt.want)
		}
	}
}
