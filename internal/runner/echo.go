package runner

import (
	"context"
	"strings"

	"github.com/strongdm/cajon/internal/subprocess"
	"github.com/strongdm/cajon/internal/termlog"
)

// echoBridge logs every runtime invocation as a copy-pasteable shell line
// before running it.
type echoBridge struct {
	next subprocess.Bridge
	log  *termlog.Logger
}

func (b echoBridge) Run(ctx context.Context, bin string, args ...string) (int, error) {
	b.echo(bin, args)
	return b.next.Run(ctx, bin, args...)
}

func (b echoBridge) Capture(ctx context.Context, bin string, args ...string) (subprocess.Result, error) {
	b.echo(bin, args)
	return b.next.Capture(ctx, bin, args...)
}

func (b echoBridge) Exec(ctx context.Context, bin string, args ...string) (int, error) {
	b.echo(bin, args)
	return b.next.Exec(ctx, bin, args...)
}

func (b echoBridge) echo(bin string, args []string) {
	if !b.log.Verbose() {
		return
	}
	b.log.Debugf("%s", shellQuote(append([]string{bin}, args...)))
}

func shellQuote(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quoteShellArg(p)
	}
	return strings.Join(quoted, " ")
}

func quoteShellArg(s string) string {
	if s == "" {
		return "''"
	}
	if isSafeShellWord(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

func isSafeShellWord(s string) bool {
	for _, r := range s {
		if !isSafeShellRune(r) {
			return false
		}
	}
	return true
}

func isSafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '@', '%', '_', '+', '=', ':', ',', '.', '/', '-':
		return true
	}
	return false
}
