package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Frame string
}

// subjectReport is the JSON shape of a single-subject report.
type subjectReport struct {
	Subject   model.Subject    `json:"subject"`
	Breakdown report.Breakdown `json:"breakdown"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [subject]",
		Short: "Show time totals",
		Long: `Show time totals per type and subject for a time frame.

With a subject, shows that subject's daily, weekly, monthly and all-time
totals. A running session is included in the totals.

Example:
  tally report --frame weekly
  tally report "Client Project"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			if len(args) == 1 {
				subject, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
				if err != nil {
					return s.out.Fail("report failed", err)
				}
				b := s.eng.LiveBreakdown(subject.ID)
				return s.out.Render(subjectReport{Subject: subject, Breakdown: b}, formatBreakdown(subject, b))
			}

			tf, err := report.ParseTimeFrame(opts.Frame)
			if err != nil {
				return s.out.Fail("report failed", err)
			}
			sum := s.eng.Summary(tf)
			return s.out.Render(sum, formatSummary(sum))
		},
	}

	cmd.Flags().StringVar(&opts.Frame, "frame", string(report.Daily), "time frame (daily|weekly|monthly|allTime)")

	return cmd
}

// NewLogCommand creates the log command.
func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log <subject> <minutes>",
		Short: "Record untracked time",
		Long: `Record minutes spent on a subject without tracking them live.

The entry ends now. Minutes must be a positive whole number.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			minutes, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return s.out.Fail("log failed", fmt.Errorf("%w: %q is not a whole number of minutes", model.ErrInvalidDuration, args[1]))
			}
			subject, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
			if err != nil {
				return s.out.Fail("log failed", err)
			}
			entry, err := s.eng.AddManualEntry(cmd.Context(), subject.ID, minutes)
			if err != nil {
				return s.out.Fail("log failed", err)
			}
			return s.out.Render(entry, fmt.Sprintf("Logged %s on %s", report.FormatDuration(entry.Duration), subject.Name))
		},
	}
}

func formatSummary(sum report.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s report", frameTitle(sum.Frame))
	for _, t := range sum.Types {
		fmt.Fprintf(&b, "\n%-24s %10s", t.Name, report.FormatDuration(t.Seconds))
		for _, s := range t.Subjects {
			marker := " "
			if s.Tracking {
				marker = "*"
			}
			fmt.Fprintf(&b, "\n %s %-22s %10s", marker, s.Name, report.FormatDuration(s.Seconds))
		}
	}
	return b.String()
}

func formatBreakdown(s model.Subject, bd report.Breakdown) string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, tf := range report.TimeFrames {
		fmt.Fprintf(&b, "\n  %-10s %10s", frameTitle(tf), report.FormatDuration(bd.Get(tf)))
	}
	return b.String()
}

func frameTitle(tf report.TimeFrame) string {
	switch tf {
	case report.Daily:
		return "Daily"
	case report.Weekly:
		return "Weekly"
	case report.Monthly:
		return "Monthly"
	default:
		return "All time"
	}
}
