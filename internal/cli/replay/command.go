package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appreplay "github.com/endalk200/better-webhook-sub002/internal/app/replay"
	domain "github.com/endalk200/better-webhook-sub002/internal/domain/capture"
	"github.com/endalk200/better-webhook-sub002/internal/platform/runtime"
	"github.com/endalk200/better-webhook-sub002/internal/platform/ui"
	"github.com/spf13/cobra"
)

// ServiceFactory builds the replay service against the resolved captures
// directory; cmd/better-webhook/main.go supplies the real implementation so
// this package never constructs a concrete store/dispatcher itself.
type ServiceFactory func(capturesDir string) (*appreplay.Service, error)

type Dependencies struct {
	ServiceFactory ServiceFactory
}

func NewCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture-id> [target-url]",
		Short: "Replay a captured webhook to a target URL",
		Args:  validateReplayCommandArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, deps)
		},
	}

	cmd.Flags().String("captures-dir", "", "Directory where captures are stored")
	cmd.Flags().String("base-url", runtime.DefaultReplayBaseURL, "Base URL used with the captured request URI when target-url is omitted")
	cmd.Flags().String("method", "", "Override HTTP method")
	cmd.Flags().StringArrayP("header", "H", nil, "Add or override header (format: key:value)")
	cmd.Flags().Duration("timeout", runtime.DefaultReplayTimeout, "HTTP request timeout")
	cmd.Flags().BoolP("verbose", "v", false, "Show detailed request/response information")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string, deps Dependencies) error {
	if deps.ServiceFactory == nil {
		return errors.New("replay service factory cannot be nil")
	}

	replayArgs, err := runtime.ResolveReplayArgs(cmd, args)
	if err != nil {
		return err
	}

	replayService, err := deps.ServiceFactory(replayArgs.CapturesDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := replayService.Replay(ctx, appreplay.ReplayRequest{
		Selector:        replayArgs.Selector,
		TargetURL:       replayArgs.TargetURL,
		BaseURL:         replayArgs.BaseURL,
		MethodOverride:  replayArgs.Method,
		HeaderOverrides: toDomainHeaderOverrides(replayArgs.HeaderOverrides),
		Timeout:         replayArgs.Timeout,
	})
	if err != nil {
		return mapReplayCommandError(err, replayArgs.Selector)
	}

	printReplaySummary(cmd, result)
	if replayArgs.Verbose {
		ui.PrintReplayVerboseOutput(cmd.OutOrStdout(), result)
	}
	return nil
}

func toDomainHeaderOverrides(overrides []runtime.ReplayHeaderOverride) []domain.HeaderEntry {
	entries := make([]domain.HeaderEntry, 0, len(overrides))
	for _, override := range overrides {
		entries = append(entries, domain.HeaderEntry{Key: override.Key, Value: override.Value})
	}
	return entries
}

func printReplaySummary(cmd *cobra.Command, result appreplay.ReplayResult) {
	out := cmd.OutOrStdout()

	provider := result.Capture.Capture.Provider
	if provider == "" {
		provider = domain.ProviderUnknown
	}

	fmt.Fprintf(out, "Replayed capture %s [%s] %s %s -> %s\n",
		shortCaptureID(result.Capture.Capture.ID),
		provider,
		result.Method,
		result.Capture.Capture.Path,
		result.TargetURL,
	)
	fmt.Fprintf(out, "Status: %d %s\n", result.Response.StatusCode, result.Response.StatusText)
	fmt.Fprintf(out, "Duration: %s\n", ui.FormatDuration(result.Response.Duration))
}

func shortCaptureID(id string) string {
	const prefixLen = 8
	if len(id) <= prefixLen {
		return id
	}
	return id[:prefixLen]
}

// replayErrorMappings translates a sentinel from the replay service into a
// user-facing message. Entries whose message needs the selector are handled
// separately in mapReplayCommandError.
var replayErrorMappings = []struct {
	sentinel error
	message  string
}{
	{domain.ErrInvalidSelector, "capture selector cannot be empty"},
	{appreplay.ErrInvalidTargetURL, "target URL is invalid"},
	{appreplay.ErrInvalidBaseURL, "base URL is invalid"},
	{appreplay.ErrInvalidMethod, "method contains invalid characters"},
	{appreplay.ErrInvalidBody, "captured payload is invalid and cannot be replayed"},
}

func mapReplayCommandError(err error, selector string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrCaptureNotFound) {
		return selectorError("capture not found", selector)
	}
	if errors.Is(err, domain.ErrAmbiguousSelector) {
		return selectorError("capture selector is ambiguous", selector)
	}
	for _, mapping := range replayErrorMappings {
		if errors.Is(err, mapping.sentinel) {
			return errors.New(mapping.message)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.New("operation cancelled")
	}
	return err
}

func selectorError(message, selector string) error {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return errors.New(message)
	}
	return fmt.Errorf("%s: %s", message, selector)
}

func validateReplayCommandArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("capture selector is required. List captures with `better-webhook captures list` and pass a capture ID")
	}
	if len(args) > 2 {
		return fmt.Errorf("too many arguments: expected <capture-id> [target-url], received %d", len(args))
	}
	if strings.TrimSpace(args[0]) == "" {
		return errors.New("capture selector cannot be empty")
	}
	if len(args) == 2 && strings.TrimSpace(args[1]) == "" {
		return errors.New("target URL cannot be empty when provided")
	}
	return nil
}
