package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/report"
)

// NewToggleCommand creates the toggle command.
func NewToggleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <subject>",
		Short: "Start a subject, or stop it if it is tracking",
		Long: `Start tracking a subject, or stop it if it is the one tracking.

Starting a subject stops whichever other subject is tracking first.
Subjects are referenced by id or by name (case-insensitive).

Example:
  tally toggle "React Course"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			subject, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
			if err != nil {
				return s.out.Fail("toggle failed", err)
			}
			tr, err := s.eng.Toggle(cmd.Context(), subject.ID)
			if err != nil {
				return s.out.Fail("toggle failed", err)
			}
			return s.out.Render(tr, describeTransition(s.eng.Snapshot(), tr))
		},
	}
}

// NewStartCommand creates the start command.
func NewStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <subject>",
		Short: "Start tracking a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			subject, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
			if err != nil {
				return s.out.Fail("start failed", err)
			}
			if subject.Tracking() {
				d := s.eng.Snapshot()
				return s.out.Render(engine.Transition{}, "Already tracking "+subjectLabel(d, subject))
			}
			stopped, err := s.eng.Start(cmd.Context(), subject.ID)
			if err != nil {
				return s.out.Fail("start failed", err)
			}
			tr := engine.Transition{Started: subject.ID, Stopped: stopped}
			return s.out.Render(tr, describeTransition(s.eng.Snapshot(), tr))
		},
	}
}

// NewStopCommand creates the stop command.
func NewStopCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [subject]",
		Short: "Stop tracking",
		Long: `Stop the tracking subject and record its session.

With no argument, stops whichever subject is tracking. Stopping a subject
that is not tracking does nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			var entry *model.TimeEntry
			if len(args) == 0 {
				entry, err = s.eng.StopActive(cmd.Context())
			} else {
				subject, rerr := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
				if rerr != nil {
					return s.out.Fail("stop failed", rerr)
				}
				entry, err = s.eng.Stop(cmd.Context(), subject.ID)
			}
			if err != nil {
				return s.out.Fail("stop failed", err)
			}
			tr := engine.Transition{Stopped: entry}
			return s.out.Render(tr, describeTransition(s.eng.Snapshot(), tr))
		},
	}
}

// statusView is the JSON shape of status.
type statusView struct {
	Tracking bool              `json:"tracking"`
	Session  *engine.Session   `json:"session,omitempty"`
	Live     *report.Breakdown `json:"live,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the tracking subject and its running time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.finish(&err)

			sess, ok := s.eng.Session()
			if !ok {
				return s.out.Render(statusView{}, "Not tracking")
			}
			live := s.eng.LiveBreakdown(sess.Subject.ID)
			view := statusView{Tracking: true, Session: &sess, Live: &live}

			text := fmt.Sprintf("Tracking %s for %s (today %s)",
				subjectLabel(s.eng.Snapshot(), sess.Subject), report.FormatDuration(sess.Elapsed),
				report.FormatDuration(live.Daily))
			return s.out.Render(view, text)
		},
	}
}

func describeTransition(d model.Dataset, tr engine.Transition) string {
	var lines []string
	if tr.Stopped != nil {
		name := tr.Stopped.SubjectID
		if sub, ok := d.FindSubject(tr.Stopped.SubjectID); ok {
			name = sub.Name
		}
		lines = append(lines, fmt.Sprintf("Stopped %s after %s", name, report.FormatDuration(tr.Stopped.Duration)))
	}
	if tr.Started != "" {
		if sub, ok := d.FindSubject(tr.Started); ok {
			lines = append(lines, "Tracking "+subjectLabel(d, sub))
		}
	}
	if len(lines) == 0 {
		return "Nothing to stop"
	}
	return strings.Join(lines, "\n")
}

func subjectLabel(d model.Dataset, s model.Subject) string {
	if t, ok := d.FindType(s.TypeID); ok {
		return fmt.Sprintf("%s (%s)", s.Name, t.Name)
	}
	return s.Name
}
