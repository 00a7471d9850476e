package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/prolog-runtime/errors"
	"github.com/wippyai/prolog-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const consoleHelp = `commands:
  show [pred]     print trace settings
  load <file>     consult a source file
  ?- <goal>       prove a goal
  quit            leave the console
anything else is run as trace commands, e.g. "enable; lists:% on"`

// historyLimit bounds the entries kept by the interactive console.
const historyLimit = 200

func newTraceCommand(opts *rootOptions) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Start the engine and open the trace console",
		Long: `Start the engine and read trace commands interactively.

On a terminal the console is a full-screen prompt with history; otherwise
(or with --plain) commands are read line by line from standard input.

` + consoleHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, eng, err := opts.start(cmd)
			if err != nil {
				return err
			}
			defer rt.Exit(cmd.Context())

			c := &console{ctx: cmd.Context(), rt: rt}
			c.runner, _ = eng.(goalRunner)

			if !plain && isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
				p := tea.NewProgram(newConsoleModel(c),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()))
				_, err := p.Run()
				return err
			}
			return c.runLines(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "read commands line by line even on a terminal")
	return cmd
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// console executes trace console lines against a running runtime.
type console struct {
	ctx    context.Context
	rt     *runtime.Runtime
	runner goalRunner
}

// execute runs one line and returns what it printed. quit is set by the
// quit command.
func (c *console) execute(line string) (out string, quit bool, err error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var buf bytes.Buffer
	switch {
	case line == "":
	case line == "quit" || line == "exit" || line == "halt":
		return "", true, nil
	case line == "help":
		buf.WriteString(consoleHelp)
		buf.WriteByte('\n')
	case verb == "load":
		if rest == "" {
			return "", false, errors.InvalidInput(errors.PhaseLoad, "load needs a file")
		}
		if err := c.rt.Load(c.ctx, rest); err != nil {
			return "", false, err
		}
		fmt.Fprintf(&buf, "loaded %s\n", rest)
	case strings.HasPrefix(line, "?-"):
		if c.runner == nil {
			return "", false, errors.Unsupported(errors.PhaseEngine, "goals on this backend")
		}
		goal := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "?-")), ".")
		ok, err := c.runner.Succeeds(goal)
		if err != nil {
			return "", false, err
		}
		buf.WriteString(yesNo(ok))
		buf.WriteByte('\n')
	default:
		prev := c.rt.Tracer().SetOutput(&buf)
		err = c.rt.Trace(line)
		c.rt.Tracer().SetOutput(prev)
	}
	return buf.String(), false, err
}

// runLines reads commands from in until quit or end of input. Command
// errors are reported and do not stop the console.
func (c *console) runLines(in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		text, quit, err := c.execute(sc.Text())
		fmt.Fprint(out, text)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

type entry struct {
	err  error
	line string
	out  string
}

type consoleModel struct {
	console *console
	input   textinput.Model
	history []entry
}

func newConsoleModel(c *console) *consoleModel {
	ti := textinput.New()
	ti.Prompt = "trace> "
	ti.Placeholder = "enable; lists:% on"
	ti.Width = 60
	ti.Focus()
	return &consoleModel{console: c, input: ti}
}

func (m *consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.SetValue("")
			out, quit, err := m.console.execute(line)
			if quit {
				return m, tea.Quit
			}
			if strings.TrimSpace(line) != "" {
				m.history = append(m.history, entry{line: line, out: out, err: err})
				if len(m.history) > historyLimit {
					m.history = m.history[len(m.history)-historyLimit:]
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Prolog Trace Console"))
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(promptStyle.Render("trace> " + e.line))
		b.WriteString("\n")
		if e.out != "" {
			b.WriteString(resultStyle.Render(strings.TrimRight(e.out, "\n")))
			b.WriteString("\n")
		}
		if e.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • help commands • esc quit"))
	return b.String()
}
