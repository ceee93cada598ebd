// Package termlog writes cajon's own diagnostics to stderr, each line marked
// with a "#" so it stands apart from the container's output.
package termlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const marker = "#"

var (
	markerColor = lipgloss.Color("12")
	errorColor  = lipgloss.Color("9")
	warnColor   = lipgloss.Color("11")
)

// Logger is a leveled wrapper over *log.Logger. The zero value is unusable;
// use New.
type Logger struct {
	logger  *log.Logger
	verbose bool
	color   bool

	marker lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	debug  lipgloss.Style
}

// New returns a Logger writing to w. Colors are used only when w is a
// terminal and NO_COLOR is unset.
func New(w io.Writer, verbose bool) *Logger {
	l := &Logger{
		logger:  log.New(w, "", 0),
		verbose: verbose,
		color:   supportsColor(w),
	}
	if l.color {
		r := lipgloss.NewRenderer(w)
		l.marker = r.NewStyle().Foreground(markerColor).Bold(true)
		l.err = r.NewStyle().Foreground(errorColor)
		l.warn = r.NewStyle().Foreground(warnColor)
		l.debug = r.NewStyle().Faint(true)
	}
	return l
}

// Verbose reports whether Debugf output is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// SetVerbose toggles Debugf output.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

func (l *Logger) Infof(format string, args ...any) {
	l.print(nil, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.print(&l.warn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.print(&l.err, format, args...)
}

// Debugf logs only in verbose mode.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.print(&l.debug, format, args...)
}

// print writes one marked line per line of the message. style is ignored
// without color support.
func (l *Logger) print(style *lipgloss.Style, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	prefix := marker
	if l.color {
		prefix = l.marker.Render(marker)
	}
	for _, line := range strings.Split(msg, "\n") {
		if l.color && style != nil {
			line = style.Render(line)
		}
		l.logger.Print(prefix + " " + line)
	}
}

func supportsColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	type fd interface {
		Fd() uintptr
	}
	f, ok := w.(fd)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
