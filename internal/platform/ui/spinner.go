package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

type SpinnerOption func(*spinnerConfig)

type spinnerConfig struct {
	printCompletion bool
	renderPredicate func(io.Writer) bool
}

func defaultSpinnerConfig() spinnerConfig {
	return spinnerConfig{
		printCompletion: true,
		renderPredicate: shouldRenderSpinner,
	}
}

// WithoutSpinnerCompletion sets printCompletion to false.
// The cleanup sequence ("\r\033[2K") leaves the cursor at column 0 without a
// trailing newline, so callers opting into WithoutSpinnerCompletion must print
// the next newline before additional output.
func WithoutSpinnerCompletion() SpinnerOption {
	return func(config *spinnerConfig) {
		config.printCompletion = false
	}
}

func withSpinnerRenderPredicate(predicate func(io.Writer) bool) SpinnerOption {
	return func(config *spinnerConfig) {
		config.renderPredicate = predicate
	}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// WithSpinner runs action in the background while rendering a spinning
// indicator next to title, provided out looks like an interactive terminal;
// otherwise it just runs action synchronously with no output. A context
// cancellation wins over action completion and is reported as a failure.
func WithSpinner(ctx context.Context, title string, out io.Writer, action func(ctx context.Context) error, options ...SpinnerOption) error {
	if action == nil {
		return errors.New("action is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = os.Stdout
	}

	config := defaultSpinnerConfig()
	for _, option := range options {
		if option != nil {
			option(&config)
		}
	}
	if config.renderPredicate == nil {
		config.renderPredicate = shouldRenderSpinner
	}
	if !config.renderPredicate(out) {
		return action(ctx)
	}

	done := make(chan error, 1)
	go func() { done <- action(ctx) }()

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	frame := 0

	// announce always reports action failures (the user needs to know the
	// command failed even when the caller opted out of a success line via
	// WithoutSpinnerCompletion), but only reports success when printCompletion
	// is set.
	announce := func(err error, force bool) error {
		fmt.Fprint(out, "\r\033[2K")
		if !force && !config.printCompletion {
			return err
		}
		icon := SuccessIcon
		if err != nil {
			icon = ErrorIcon
		}
		fmt.Fprintf(out, "\r%s %s\n", icon, title)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return announce(ctx.Err(), false)
		case err := <-done:
			return announce(err, err != nil)
		case <-ticker.C:
			fmt.Fprintf(out, "\r%s %s", Info.Render(spinnerFrames[frame%len(spinnerFrames)]), title)
			frame++
		}
	}
}

func shouldRenderSpinner(out io.Writer) bool {
	outFile, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := outFile.Fd()
	return (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
}
