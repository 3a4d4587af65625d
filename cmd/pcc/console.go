package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pcc/internal/api"
	"pcc/internal/deploy"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isInteractive(reader io.Reader) bool {
	file, ok := reader.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stateLabel renders a deployment state for humans, e.g. "Timed Out".
func stateLabel(state deploy.State) string {
	return titleCaser.String(strings.ReplaceAll(state.String(), "_", " "))
}

func stateKind(state deploy.State) statusKind {
	switch state {
	case deploy.StateReady:
		return statusOK
	case deploy.StateTimedOut, deploy.StateCancelled, deploy.StateInterrupted:
		return statusWarn
	case deploy.StateFailed:
		return statusError
	default:
		return statusInfo
	}
}

// consolePresenter prints classified API failures to the operator.
type consolePresenter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newConsolePresenter(out io.Writer) *consolePresenter {
	return &consolePresenter{out: out, colorize: shouldColorize(out)}
}

func (p *consolePresenter) PresentError(err *api.Error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	headline := "Error: " + err.Explain()
	if p.colorize {
		headline = ansiRed + headline + ansiReset
	}
	fmt.Fprintln(p.out, headline)

	var details []string
	if err.Code != "" {
		details = append(details, "code "+err.Code)
	}
	if err.Status != 0 {
		details = append(details, fmt.Sprintf("http %d", err.Status))
	}
	if err.Method != "" {
		details = append(details, err.Method+" "+err.Path)
	}
	if len(details) == 0 {
		return
	}
	line := statusIndent + strings.Join(details, ", ")
	if p.colorize {
		line = ansiDim + line + ansiReset
	}
	fmt.Fprintln(p.out, line)
}
