package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/transfer"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all data as AppData JSON",
		Long: `Write types, subjects and time entries as pretty-printed AppData JSON.

The output is the same document import accepts. Without -o it goes to
stdout, whatever --format says.`,
		Args: cobra.NoArgs,
		RunE: sessionRunE(rootOpts, func(cmd *cobra.Command, s *session, args []string) error {
			data, err := s.eng.Export()
			if err != nil {
				return s.out.Fail("export failed", err)
			}
			if opts.Output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
				_ = s.out.Error(ErrCodeStorage, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to write export", err)
			}
			view := map[string]any{"path": opts.Output, "bytes": len(data) + 1}
			return s.out.Render(view, "Exported to "+opts.Output)
		}),
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace all data from an AppData JSON file",
		Long: `Replace all data with the contents of an AppData JSON document.

A document that is not valid JSON, or lacks types, subjects or timeEntries,
is rejected and nothing changes. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			payload, err := readInput(cmd, args[0])
			if err != nil {
				_ = s.out.Error(ErrCodeStorage, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to read import", err)
			}

			fixes, err := s.eng.Import(cmd.Context(), payload)
			result := transfer.ResultOf(err, fixes)
			if err != nil {
				if s.out.Format == "json" {
					_ = s.out.Success(result)
				} else {
					_ = s.out.Error(ErrCodeImport, result.Error, nil)
				}
				return WrapExitError(ExitFailure, "import rejected", err)
			}

			d := s.eng.Snapshot()
			text := fmt.Sprintf("Imported %d type(s), %d subject(s), %d time entries",
				len(d.Types), len(d.Subjects), len(d.TimeEntries))
			for _, fix := range fixes {
				text += "\n  fixed: " + fix
			}
			return s.out.Render(result, text)
		}),
	}
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all data and start over with the defaults",
		Args:  cobra.NoArgs,
		RunE: sessionRunE(rootOpts, func(cmd *cobra.Command, s *session, args []string) error {
			if !opts.Yes {
				_ = s.out.Error(ErrCodeInvalid, "clear deletes every entry; pass --yes to confirm", nil)
				return NewExitError(ExitCommandError, "clear not confirmed")
			}
			if err := s.eng.Clear(cmd.Context()); err != nil {
				_ = s.out.Error(ErrCodeStorage, err.Error(), nil)
				return WrapExitError(ExitCommandError, "clear failed", err)
			}
			return s.out.Render(map[string]bool{"cleared": true}, "All data cleared")
		}),
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deleting all data")

	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the stored data is consistent",
		Args:  cobra.NoArgs,
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			violations := s.eng.Check()
			if len(violations) == 0 {
				return s.out.Render(violations, "OK")
			}
			lines := make([]string, len(violations))
			for i, v := range violations {
				lines[i] = v.String()
			}
			_ = s.out.Error(ErrCodeInvariants, fmt.Sprintf("%d violation(s)", len(violations)), violations)
			if s.out.Format != "json" {
				fmt.Fprintln(s.out.GetErrWriter(), strings.Join(lines, "\n"))
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s)", len(violations)))
		}),
	}
}

// NewStorageCommand creates the storage command.
func NewStorageCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show storage usage against the quota",
		Args:  cobra.NoArgs,
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			u, err := s.backend.Usage(cmd.Context())
			if err != nil {
				_ = s.out.Error(ErrCodeStorage, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to read storage usage", err)
			}
			text := fmt.Sprintf("%s %s\n%d of %d bytes used (%.1f%%)", u.Backend, u.Path, u.Used, u.Quota, u.Percent)
			return s.out.Render(u, text)
		}),
	}
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
