package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/model"
)

// sessionRunE wraps a command body with session setup and teardown.
func sessionRunE(opts *RootOptions, body func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.finish(&err)
		return body(cmd, s, args)
	}
}

// NewTypeCommand creates the type command group.
func NewTypeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage types (subject categories)",
	}

	var icon string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a type",
		Args:  cobra.MaximumNArgs(1),
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			t, err := s.eng.CreateType(cmd.Context(), firstArg(args), icon)
			if err != nil {
				return s.out.Fail("add type failed", err)
			}
			return s.out.Render(t, fmt.Sprintf("Added type %s (%s)", t.Name, t.ID))
		}),
	}
	add.Flags().StringVar(&icon, "icon", "", "icon key (default "+model.DefaultTypeIcon+")")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List types in display order",
			Args:  cobra.NoArgs,
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				d := s.eng.Snapshot()
				var b strings.Builder
				for i, t := range d.Types {
					if i > 0 {
						b.WriteString("\n")
					}
					fmt.Fprintf(&b, "%-38s %-20s %-14s %d subject(s)", t.ID, t.Name, t.Icon, len(d.SubjectsOfType(t.ID)))
				}
				return s.out.Render(d.Types, b.String())
			}),
		},
		add,
		&cobra.Command{
			Use:   "rename <type> <name>",
			Short: "Rename a type",
			Args:  cobra.ExactArgs(2),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				t, err := dataset.ResolveType(s.eng.Snapshot(), args[0])
				if err == nil {
					err = s.eng.RenameType(cmd.Context(), t.ID, args[1])
				}
				if err != nil {
					return s.out.Fail("rename type failed", err)
				}
				updated, _ := s.eng.Snapshot().FindType(t.ID)
				return s.out.Render(updated, fmt.Sprintf("Renamed %s to %s", t.Name, updated.Name))
			}),
		},
		&cobra.Command{
			Use:   "icon <type> <icon>",
			Short: "Change a type's icon",
			Args:  cobra.ExactArgs(2),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				t, err := dataset.ResolveType(s.eng.Snapshot(), args[0])
				if err == nil {
					err = s.eng.SetTypeIcon(cmd.Context(), t.ID, args[1])
				}
				if err != nil {
					return s.out.Fail("set type icon failed", err)
				}
				updated, _ := s.eng.Snapshot().FindType(t.ID)
				return s.out.Render(updated, fmt.Sprintf("%s icon set to %s", updated.Name, updated.Icon))
			}),
		},
		&cobra.Command{
			Use:   "delete <type>",
			Short: "Delete a type, moving its subjects to the first remaining type",
			Args:  cobra.ExactArgs(1),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				t, err := dataset.ResolveType(s.eng.Snapshot(), args[0])
				if err != nil {
					return s.out.Fail("delete type failed", err)
				}
				moved, err := s.eng.DeleteType(cmd.Context(), t.ID)
				if err != nil {
					return s.out.Fail("delete type failed", err)
				}
				view := map[string]any{"deleted": t, "moved": moved}
				return s.out.Render(view, fmt.Sprintf("Deleted type %s, moved %d subject(s)", t.Name, moved))
			}),
		},
	)
	return cmd
}

// NewSubjectCommand creates the subject command group.
func NewSubjectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage subjects (trackable items)",
	}

	var typeRef, icon, listType string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a subject",
		Args:  cobra.MaximumNArgs(1),
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			var typeID string
			if typeRef != "" {
				t, err := dataset.ResolveType(s.eng.Snapshot(), typeRef)
				if err != nil {
					return s.out.Fail("add subject failed", err)
				}
				typeID = t.ID
			}
			sub, err := s.eng.CreateSubject(cmd.Context(), firstArg(args), typeID, icon)
			if err != nil {
				return s.out.Fail("add subject failed", err)
			}
			return s.out.Render(sub, fmt.Sprintf("Added subject %s (%s)", subjectLabel(s.eng.Snapshot(), sub), sub.ID))
		}),
	}
	add.Flags().StringVar(&typeRef, "type", "", "type id or name (default: first type)")
	add.Flags().StringVar(&icon, "icon", "", "icon key (default "+model.DefaultSubjectIcon+")")

	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects in display order",
		Args:  cobra.NoArgs,
		RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
			d := s.eng.Snapshot()
			subjects := d.Subjects
			if listType != "" {
				t, err := dataset.ResolveType(d, listType)
				if err != nil {
					return s.out.Fail("list subjects failed", err)
				}
				subjects = d.SubjectsOfType(t.ID)
			}
			var b strings.Builder
			for i, sub := range subjects {
				if i > 0 {
					b.WriteString("\n")
				}
				marker := " "
				if sub.Tracking() {
					marker = "*"
				}
				typeName := sub.TypeID
				if t, ok := d.FindType(sub.TypeID); ok {
					typeName = t.Name
				}
				fmt.Fprintf(&b, "%s %-38s %-24s %-16s", marker, sub.ID, sub.Name, typeName)
			}
			return s.out.Render(subjects, b.String())
		}),
	}
	list.Flags().StringVar(&listType, "type", "", "only subjects of this type")

	cmd.AddCommand(
		list,
		add,
		&cobra.Command{
			Use:   "rename <subject> <name>",
			Short: "Rename a subject",
			Args:  cobra.ExactArgs(2),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				sub, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
				if err == nil {
					err = s.eng.RenameSubject(cmd.Context(), sub.ID, args[1])
				}
				if err != nil {
					return s.out.Fail("rename subject failed", err)
				}
				updated, _ := s.eng.Snapshot().FindSubject(sub.ID)
				return s.out.Render(updated, fmt.Sprintf("Renamed %s to %s", sub.Name, updated.Name))
			}),
		},
		&cobra.Command{
			Use:   "icon <subject> <icon>",
			Short: "Change a subject's icon",
			Args:  cobra.ExactArgs(2),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				sub, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
				if err == nil {
					err = s.eng.SetSubjectIcon(cmd.Context(), sub.ID, args[1])
				}
				if err != nil {
					return s.out.Fail("set subject icon failed", err)
				}
				updated, _ := s.eng.Snapshot().FindSubject(sub.ID)
				return s.out.Render(updated, fmt.Sprintf("%s icon set to %s", updated.Name, updated.Icon))
			}),
		},
		&cobra.Command{
			Use:   "move <subject> <type>",
			Short: "Move a subject to another type",
			Args:  cobra.ExactArgs(2),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				d := s.eng.Snapshot()
				sub, err := dataset.ResolveSubject(d, args[0])
				if err != nil {
					return s.out.Fail("move subject failed", err)
				}
				t, err := dataset.ResolveType(d, args[1])
				if err != nil {
					return s.out.Fail("move subject failed", err)
				}
				if err := s.eng.MoveSubject(cmd.Context(), sub.ID, t.ID); err != nil {
					return s.out.Fail("move subject failed", err)
				}
				updated, _ := s.eng.Snapshot().FindSubject(sub.ID)
				return s.out.Render(updated, fmt.Sprintf("Moved %s to %s", sub.Name, t.Name))
			}),
		},
		&cobra.Command{
			Use:   "delete <subject>",
			Short: "Delete a subject, keeping its past entries",
			Long: `Delete a subject. Its past time entries are kept.

If the subject is tracking, the running session is discarded without
recording an entry.`,
			Args: cobra.ExactArgs(1),
			RunE: sessionRunE(opts, func(cmd *cobra.Command, s *session, args []string) error {
				sub, err := dataset.ResolveSubject(s.eng.Snapshot(), args[0])
				if err != nil {
					return s.out.Fail("delete subject failed", err)
				}
				removed, err := s.eng.DeleteSubject(cmd.Context(), sub.ID)
				if err != nil {
					return s.out.Fail("delete subject failed", err)
				}
				text := "Deleted subject " + removed.Name
				if removed.Tracking() {
					text += " (running session discarded)"
				}
				return s.out.Render(removed, text)
			}),
		},
	)
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
