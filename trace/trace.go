package trace

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wippyai/prolog-runtime/errors"
)

// Mode is the trace state of a single predicate.
type Mode int

const (
	ModeOff Mode = iota
	ModeOn
	ModeTransitive
	ModeSuppress
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOn:
		return "on"
	case ModeTransitive:
		return "transitive"
	case ModeSuppress:
		return "suppress"
	}
	return "unknown"
}

// Format is the amount of detail printed at a port.
type Format int

const (
	FormatSuppress Format = iota
	FormatShort
	FormatDetailed
)

func (f Format) String() string {
	switch f {
	case FormatSuppress:
		return "suppress"
	case FormatShort:
		return "short"
	case FormatDetailed:
		return "detailed"
	}
	return "short"
}

// Setting holds the trace mode and per-port formats of one predicate.
type Setting struct {
	Mode   Mode
	Call   Format
	Redo   Format
	Proven Format
	Failed Format
}

// DefaultPredicate names the entry consulted for predicates without
// settings of their own. It cannot be cleared.
const DefaultPredicate = "default"

// MaxCommandLen bounds a single command. Leading blanks are not counted
// and a command must be shorter than the bound.
const MaxCommandLen = 1024

const (
	wildcardAny = "*"
	wildcardAll = "%"
)

func defaultSetting() *Setting {
	return &Setting{
		Mode:   ModeOff,
		Call:   FormatDetailed,
		Redo:   FormatDetailed,
		Proven: FormatShort,
		Failed: FormatShort,
	}
}

// Tracer holds the predicate trace configuration consulted by the engine's
// tracing predicates.
type Tracer struct {
	out        io.Writer
	settings   map[string]*Setting
	mu         sync.Mutex
	enabled    bool
	all        bool
	transitive int
	indent     int
}

// New creates an inactive tracer. Command feedback is written to out.
func New(out io.Writer) *Tracer {
	if out == nil {
		out = io.Discard
	}
	return &Tracer{out: out}
}

// SetOutput redirects command feedback and returns the previous writer.
// A nil out discards feedback.
func (t *Tracer) SetOutput(out io.Writer) io.Writer {
	if out == nil {
		out = io.Discard
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.out
	t.out = out
	return prev
}

// Init activates the tracer with tracing disabled and the default entry
// installed.
func (t *Tracer) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.settings = make(map[string]*Setting)
	t.enabled = false
	t.all = false
	t.transitive = 0
	t.indent = 2
	return t.run(DefaultPredicate + " on, off")
}

// Exit deactivates the tracer and drops all settings.
func (t *Tracer) Exit() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.settings = nil
	t.enabled = false
	t.all = false
	t.transitive = 0
}

// Active reports whether Init has run without a matching Exit.
func (t *Tracer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings != nil
}

// Enabled reports the global enable flag.
func (t *Tracer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Indent returns the indentation per call depth.
func (t *Tracer) Indent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indent
}

// Set executes a ';' separated list of trace commands.
func (t *Tracer) Set(commands string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.settings == nil {
		return errors.NotInitialized(errors.PhaseTrace, "tracer")
	}
	return t.run(commands)
}

func (t *Tracer) run(commands string) error {
	for _, command := range strings.Split(commands, ";") {
		command = strings.TrimLeft(command, " \t")
		if len(command) >= MaxCommandLen {
			return errors.InvalidInput(errors.PhaseTrace, fmt.Sprintf("command of %d bytes, limit is %d", len(command), MaxCommandLen-1))
		}
		command = strings.TrimRight(command, " \t")
		if command == "" {
			continue
		}
		if err := t.exec(command); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracer) exec(command string) error {
	switch {
	case command == "enable":
		t.enabled = true
		fmt.Fprintln(t.out, "rule/predicate tracing enabled")
		return nil
	case command == "disable":
		t.enabled = false
		fmt.Fprintln(t.out, "rule/predicate tracing disabled")
		return nil
	case command == "reset":
		t.reset()
		fmt.Fprintln(t.out, "rule/predicate tracing reset")
		return nil
	case command == "show":
		t.show(t.out, "")
		return nil
	case strings.HasPrefix(command, "show "):
		t.show(t.out, strings.TrimSpace(command[len("show "):]))
		return nil
	case strings.HasPrefix(command, "indent"):
		n, err := strconv.Atoi(strings.TrimSpace(command[len("indent"):]))
		if err != nil || n < 0 || n >= 8 {
			n = 0
		}
		t.indent = n
		return nil
	}

	pred, actions, ok := strings.Cut(command, " ")
	if !ok {
		return errors.InvalidInput(errors.PhaseTrace, fmt.Sprintf("missing action in %q", command))
	}
	for _, action := range strings.Split(actions, ",") {
		action = strings.Trim(action, " \t")
		if strings.Contains(pred, wildcardAll) {
			fmt.Fprintf(t.out, "  %s predicates matching %s\n", action, pred)
			t.setMatching(pred, action)
		} else {
			fmt.Fprintf(t.out, "  %s predicate %s\n", action, pred)
			t.set(pred, action)
		}
	}
	return nil
}

func (t *Tracer) reset() {
	for k := range t.settings {
		delete(t.settings, k)
	}
	t.enabled = false
	t.all = false
	t.transitive = 0
}

func (t *Tracer) setMode(s *Setting, m Mode) {
	if s.Mode == ModeTransitive {
		t.transitive--
	}
	s.Mode = m
	if m == ModeTransitive {
		t.transitive++
	}
}

func (t *Tracer) remove(pred string) {
	if s, ok := t.settings[pred]; ok {
		if s.Mode == ModeTransitive {
			t.transitive--
		}
		delete(t.settings, pred)
	}
}

func (t *Tracer) set(pred, action string) {
	if pred == wildcardAny {
		switch action {
		case "off", "suppress":
			t.all = false
		case "on", "transitive":
			t.all = true
		default:
			fmt.Fprintf(t.out, "Invalid command %q.\n", pred+" "+action)
		}
		return
	}

	if action == "clear" {
		if pred == DefaultPredicate {
			fmt.Fprintln(t.out, "Cannot delete default predicate trace settings.")
			return
		}
		t.remove(pred)
		return
	}

	s, ok := t.settings[pred]
	if !ok {
		s = defaultSetting()
		t.settings[pred] = s
	}

	switch action {
	case "off":
		t.setMode(s, ModeOff)
		return
	case "suppress":
		t.setMode(s, ModeSuppress)
		return
	case "on":
		t.setMode(s, ModeOn)
		return
	case "transitive":
		t.setMode(s, ModeTransitive)
		return
	case "defaults":
		t.setMode(s, ModeOn)
		d := defaultSetting()
		s.Call, s.Redo, s.Proven, s.Failed = d.Call, d.Redo, d.Proven, d.Failed
		return
	}

	port, kind, ok := strings.Cut(action, " ")
	if !ok {
		fmt.Fprintf(t.out, "Invalid command %q.\n", action)
		return
	}
	var f Format
	switch strings.TrimSpace(kind) {
	case "detailed":
		f = FormatDetailed
	case "short":
		f = FormatShort
	case "suppress":
		f = FormatSuppress
	default:
		fmt.Fprintf(t.out, "Invalid command %q.\n", action)
		return
	}

	switch port {
	case "call":
		s.Call = f
	case "redo":
		s.Redo = f
	case "proven", "exit":
		s.Proven = f
	case "failed", "fail":
		s.Failed = f
	case "all":
		s.Call, s.Redo, s.Proven, s.Failed = f, f, f, f
	default:
		fmt.Fprintf(t.out, "Invalid command %q.\n", action)
	}
}

// indicator is a parsed module:name/arity; missing parts are empty.
type indicator struct {
	module, name, arity string
}

func parseKey(key string) indicator {
	var ind indicator
	rest := key
	if m, r, ok := strings.Cut(key, ":"); ok {
		ind.module, rest = m, r
	}
	ind.name, ind.arity, _ = strings.Cut(rest, "/")
	return ind
}

func parsePattern(pattern string) indicator {
	ind := indicator{module: wildcardAll, arity: wildcardAll}
	rest := pattern
	if m, r, ok := strings.Cut(pattern, ":"); ok {
		ind.module, rest = m, r
	}
	name, arity, ok := strings.Cut(rest, "/")
	ind.name = name
	if ok {
		ind.arity = arity
	}
	return ind
}

func (p indicator) match(k indicator) bool {
	part := func(p, v string) bool { return p == wildcardAll || p == v }
	return part(p.module, k.module) && part(p.name, k.name) && part(p.arity, k.arity)
}

func (t *Tracer) setMatching(pattern, action string) {
	p := parsePattern(pattern)
	for _, key := range t.sortedKeys() {
		if !p.match(parseKey(key)) {
			continue
		}
		fmt.Fprintf(t.out, "  %s %s\n", key, action)
		if action == "clear" {
			if key != DefaultPredicate {
				t.remove(key)
			}
			continue
		}
		t.set(key, action)
	}
}

func (t *Tracer) sortedKeys() []string {
	keys := make([]string, 0, len(t.settings))
	for k := range t.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns a copy of the settings recorded for pred.
func (t *Tracer) Lookup(pred string) (Setting, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.settings[pred]
	if !ok {
		return Setting{}, false
	}
	return *s, true
}

// Traced decides whether pred is traced. Explicit on or transitive settings
// trace; suppress never traces; otherwise pred is traced only while all
// predicates or some transitive predicate are traced. The returned mode is
// pred's own setting.
func (t *Tracer) Traced(pred string) (Mode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.settings[pred]
	global := t.all || t.transitive > 0
	if s == nil && !global {
		return ModeOff, false
	}

	mode := ModeOff
	if s != nil {
		mode = s.Mode
	}
	switch mode {
	case ModeSuppress:
		return mode, false
	case ModeOn, ModeTransitive:
		return mode, true
	case ModeOff:
		return mode, global
	}
	return mode, false
}

// PortFormat returns the format of port for pred, falling back to the
// default entry and then to short. Ports are call, redo, proven and failed.
func (t *Tracer) PortFormat(pred, port string) (Format, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.settings[pred]
	if !ok {
		s, ok = t.settings[DefaultPredicate]
	}
	if !ok {
		return FormatShort, true
	}

	switch port {
	case "call":
		return s.Call, true
	case "redo":
		return s.Redo, true
	case "proven":
		return s.Proven, true
	case "failed":
		return s.Failed, true
	}
	return FormatShort, false
}

// Show writes the trace configuration to w. An empty pred or "%" lists
// every entry; otherwise the full settings of pred are written.
func (t *Tracer) Show(w io.Writer, pred string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.show(w, pred)
}

func (t *Tracer) show(w io.Writer, pred string) {
	if t.settings == nil {
		return
	}

	if pred == "" || pred == wildcardAll {
		fmt.Fprintln(w, "Rule/predicate trace settings:")
		fmt.Fprintf(w, "  tracing %s\n", onOff(t.enabled, "enabled", "disabled"))
		fmt.Fprintf(w, "  forced tracing of all predicates %s\n", onOff(t.all, "on", "off"))
		fmt.Fprintf(w, "  trace indentation %d / level\n", t.indent)
		for _, key := range t.sortedKeys() {
			showSetting(w, key, t.settings[key], false)
		}
		return
	}

	s, ok := t.settings[pred]
	if !ok {
		fmt.Fprintf(w, "  predicate %s: no trace settings\n", pred)
		return
	}
	showSetting(w, pred, s, true)
}

func showSetting(w io.Writer, pred string, s *Setting, detailed bool) {
	on := false
	fmt.Fprintf(w, "  predicate %s: ", pred)
	switch s.Mode {
	case ModeOff:
		fmt.Fprintln(w, "off")
	case ModeOn:
		fmt.Fprintln(w, "on")
		on = true
	case ModeTransitive:
		fmt.Fprintln(w, "on (transitive)")
		on = true
	case ModeSuppress:
		fmt.Fprintln(w, "suppressed")
	default:
		fmt.Fprintf(w, "unknown (%d)\n", s.Mode)
	}

	if !on && !detailed {
		return
	}
	fmt.Fprintf(w, "      predicate call: %s\n", s.Call)
	fmt.Fprintf(w, "      predicate redo: %s\n", s.Redo)
	fmt.Fprintf(w, "    predicate proven: %s\n", s.Proven)
	fmt.Fprintf(w, "    predicate failed: %s\n", s.Failed)
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}
