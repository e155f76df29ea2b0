package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter is the confirmation-prompt seam the CLI's destructive commands
// (captures delete, templates delete, templates clean) depend on instead of
// calling huh directly, so tests can substitute a scripted answer.
type Prompter interface {
	Confirm(prompt string, in io.Reader, out io.Writer) (bool, error)
}

// HuhPrompter renders an interactive huh.Confirm form on a real terminal and
// falls back to a plain "[y/N]" read loop everywhere else (pipes, dumb
// terminals, CI).
type HuhPrompter struct{}

var DefaultPrompter Prompter = HuhPrompter{}

func Confirm(prompt string) (bool, error) {
	return ConfirmWithIO(prompt, os.Stdin, os.Stdout)
}

func ConfirmWithIO(prompt string, in io.Reader, out io.Writer) (bool, error) {
	return DefaultPrompter.Confirm(prompt, in, out)
}

func (HuhPrompter) Confirm(prompt string, in io.Reader, out io.Writer) (bool, error) {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	if !ttyConfirmSupported(in, out) {
		return readPlainConfirm(prompt, in, out)
	}

	var confirmed bool
	field := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(field)).WithInput(in).WithOutput(out).Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// ttyConfirmSupported reports whether both in and out are real terminal
// files (stdin paired with stdout/stderr) with a terminal capable of
// rendering huh's form, ruling out piped input, redirected output, and
// TERM=dumb.
func ttyConfirmSupported(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok || inFile != os.Stdin {
		return false
	}
	outFile, ok := out.(*os.File)
	if !ok || !isSupportedPromptOutput(outFile) {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(inFile.Fd()) && isatty.IsTerminal(outFile.Fd())
}

// isSupportedPromptOutput restricts interactive rendering to the two
// streams a terminal user actually watches.
func isSupportedPromptOutput(out *os.File) bool {
	return out == os.Stdout || out == os.Stderr
}

// readPlainConfirm implements the non-interactive fallback: print the
// prompt, scan one line at a time, and re-prompt on anything that isn't a
// recognised yes/no answer. EOF before an answer is given counts as "no".
func readPlainConfirm(prompt string, in io.Reader, out io.Writer) (bool, error) {
	scanner := bufio.NewScanner(in)

	for {
		if _, err := fmt.Fprintf(out, "%s [y/N]: ", prompt); err != nil {
			return false, err
		}

		if !scanner.Scan() {
			return false, scanner.Err()
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}

		if _, err := fmt.Fprintln(out, FormatWarning("Please answer yes or no.")); err != nil {
			return false, err
		}
	}
}
