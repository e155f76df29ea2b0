package captures

import (
	"context"
	"errors"
	"fmt"
	"time"

	appcaptures "github.com/endalk200/better-webhook-sub002/internal/app/captures"
	domain "github.com/endalk200/better-webhook-sub002/internal/domain/capture"
	"github.com/endalk200/better-webhook-sub002/internal/platform/runtime"
	"github.com/spf13/cobra"
)

func newListCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List captured webhooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, deps)
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of captures to show")
	cmd.Flags().String("provider", "", "Filter captures by provider")
	cmd.Flags().String("captures-dir", "", "Directory where captures are stored")

	return cmd
}

func runList(cmd *cobra.Command, deps Dependencies) error {
	listArgs, err := runtime.ResolveCapturesListArgs(cmd)
	if err != nil {
		return err
	}

	capturesService, err := deps.ServiceFactory(listArgs.CapturesDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	items, err := capturesService.List(ctx, appcaptures.ListRequest{
		Limit:    listArgs.Limit,
		Provider: listArgs.Provider,
	})
	if err != nil {
		return mapCaptureCommandError(err, "")
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No captures found.")
		fmt.Fprintf(out, "Storage: %s\n", listArgs.CapturesDir)
		return nil
	}

	fmt.Fprintln(out, "Captured webhooks:")
	for _, item := range items {
		fmt.Fprintln(out, describeCaptureListing(item))
	}
	fmt.Fprintf(out, "Showing %d capture(s) from %s\n", len(items), listArgs.CapturesDir)
	return nil
}

func describeCaptureListing(item domain.CaptureFile) string {
	provider := item.Capture.Provider
	if provider == "" {
		provider = domain.ProviderUnknown
	}

	return fmt.Sprintf(
		"- %s [%s] %s %s (%d bytes) %s",
		truncateCaptureID(item.Capture.ID),
		provider,
		item.Capture.Method,
		item.Capture.Path,
		item.Capture.ContentLength,
		localDisplayTime(item.Capture.Timestamp),
	)
}

// localDisplayTime renders the capture's RFC3339Nano UTC timestamp in the
// operator's local timezone, falling back to the raw stored value if it
// somehow fails to parse.
func localDisplayTime(stored string) string {
	parsed, err := time.Parse(time.RFC3339Nano, stored)
	if err != nil {
		return stored
	}
	return parsed.Local().Format(time.RFC3339)
}

// captureErrorMappings translates selector-independent capture service
// sentinels into user-facing messages.
var captureErrorMappings = []struct {
	sentinel error
	message  string
}{
	{domain.ErrInvalidSelector, "capture selector cannot be empty"},
	{domain.ErrInvalidLimit, "limit must be a positive integer"},
}

func selectorError(message, selector string) error {
	if selector == "" {
		return errors.New(message)
	}
	return fmt.Errorf("%s: %s", message, selector)
}

func mapCaptureCommandError(err error, selector string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrCaptureNotFound) {
		return selectorError("capture not found", selector)
	}
	if errors.Is(err, domain.ErrAmbiguousSelector) {
		return selectorError("capture selector is ambiguous", selector)
	}
	for _, mapping := range captureErrorMappings {
		if errors.Is(err, mapping.sentinel) {
			return errors.New(mapping.message)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.New("operation cancelled")
	}
	return err
}
