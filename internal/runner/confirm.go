package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// confirmer asks the user a yes/no question. The default answer is no.
type confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

var newConfirmer = func(in io.Reader, out io.Writer) confirmer {
	line := newLinePrompter(in, out)
	if isTerminal(in) && isTerminal(out) {
		return &bubbleTeaConfirmer{in: in, out: out, theme: newConfirmTheme(supportsColor(out)), fallback: line}
	}
	return line
}

type bubbleTeaConfirmer struct {
	in       io.Reader
	out      io.Writer
	theme    confirmTheme
	fallback confirmer
}

func (c *bubbleTeaConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	model := newConfirmModel(question, c.theme)
	prog := tea.NewProgram(model, tea.WithInput(c.in), tea.WithOutput(c.out), tea.WithContext(ctx))

	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return c.fallback.Confirm(ctx, question)
	}
	m, ok := final.(*confirmModel)
	if !ok {
		return c.fallback.Confirm(ctx, question)
	}
	return m.answer, nil
}

type confirmTheme struct {
	question lipgloss.Style
	active   lipgloss.Style
	inactive lipgloss.Style
	help     lipgloss.Style
}

func newConfirmTheme(color bool) confirmTheme {
	if !color {
		return confirmTheme{
			question: lipgloss.NewStyle().Bold(true),
			active:   lipgloss.NewStyle().Bold(true).Underline(true),
			inactive: lipgloss.NewStyle(),
			help:     lipgloss.NewStyle().Faint(true),
		}
	}
	accent := lipgloss.Color("#58d4ff")
	return confirmTheme{
		question: lipgloss.NewStyle().Bold(true),
		active:   lipgloss.NewStyle().Foreground(lipgloss.Color("#0b1215")).Background(accent).Bold(true).Padding(0, 1),
		inactive: lipgloss.NewStyle().Faint(true).Padding(0, 1),
		help:     lipgloss.NewStyle().Faint(true),
	}
}

// confirmModel is a two-button yes/no prompt with "No" selected.
type confirmModel struct {
	question string
	theme    confirmTheme
	cursorNo bool
	answer   bool
	done     bool
}

func newConfirmModel(question string, theme confirmTheme) *confirmModel {
	return &confirmModel{question: question, theme: theme, cursorNo: true}
}

func (m *confirmModel) Init() tea.Cmd {
	return nil
}

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "left", "right", "h", "l", "tab", "shift+tab":
		m.cursorNo = !m.cursorNo
	case "y":
		return m.finish(true)
	case "n", "esc", "ctrl+c", "q":
		return m.finish(false)
	case "enter":
		return m.finish(!m.cursorNo)
	}
	return m, nil
}

func (m *confirmModel) finish(answer bool) (tea.Model, tea.Cmd) {
	m.answer = answer
	m.done = true
	return m, tea.Quit
}

func (m *confirmModel) View() string {
	if m.done {
		return ""
	}
	yes, no := m.theme.inactive, m.theme.active
	if !m.cursorNo {
		yes, no = m.theme.active, m.theme.inactive
	}
	return fmt.Sprintf("\n%s\n\n  %s  %s\n\n%s\n",
		m.theme.question.Render(m.question),
		yes.Render("Yes"),
		no.Render("No"),
		m.theme.help.Render("←/→ to choose, enter to confirm, y/n to answer directly"),
	)
}

// linePrompter reads a y/n answer from a plain line-oriented stream.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		if _, err := fmt.Fprintf(p.out, "%s [y/N] ", question); err != nil {
			return false, err
		}
		line, err := p.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return false, nil
			}
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			if _, err := fmt.Fprintln(p.out, "Please answer y or n."); err != nil {
				return false, err
			}
		}
	}
}

func isTerminal(v any) bool {
	type fd interface {
		Fd() uintptr
	}
	f, ok := v.(fd)
	return ok && term.IsTerminal(int(f.Fd()))
}

func supportsColor(w io.Writer) bool {
	return os.Getenv("NO_COLOR") == "" && isTerminal(w)
}
