package captures

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/endalk200/better-webhook-sub002/internal/platform/runtime"
	"github.com/endalk200/better-webhook-sub002/internal/platform/ui"
)

const captureIDPrefixLen = 8

func newDeleteCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <capture-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a captured webhook",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], deps)
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	cmd.Flags().String("captures-dir", "", "Directory where captures are stored")
	return cmd
}

func runDelete(cmd *cobra.Command, selectorArg string, deps Dependencies) error {
	deleteArgs, err := runtime.ResolveCapturesDeleteArgs(cmd, selectorArg)
	if err != nil {
		return err
	}

	capturesService, err := deps.ServiceFactory(deleteArgs.CapturesDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := capturesService.Resolve(ctx, deleteArgs.Selector)
	if err != nil {
		return mapCaptureCommandError(err, deleteArgs.Selector)
	}

	if !deleteArgs.Force {
		confirmed, confirmErr := promptConfirm(cmd, fmt.Sprintf(
			"Delete capture %s (%s %s)?",
			truncateCaptureID(target.Capture.ID),
			target.Capture.Method,
			target.Capture.Path,
		))
		if confirmErr != nil {
			return confirmErr
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatCancelled())
			return nil
		}
	}

	deleted, err := capturesService.DeleteResolved(ctx, target)
	if err != nil {
		return mapCaptureCommandError(err, target.Capture.ID)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted capture %s (%s)\n", truncateCaptureID(deleted.Capture.ID), deleted.File)
	return nil
}

// promptConfirm routes through the shared ui.Prompter so destructive capture
// commands get the same interactive-terminal/plain-pipe fallback behaviour
// as templates delete/clean.
func promptConfirm(cmd *cobra.Command, prompt string) (bool, error) {
	return ui.ConfirmWithIO(prompt, cmd.InOrStdin(), cmd.OutOrStdout())
}

func truncateCaptureID(id string) string {
	if len(id) <= captureIDPrefixLen {
		return id
	}
	return id[:captureIDPrefixLen]
}
