// Package dataset implements the structural edit rules for types and
// subjects.
//
// Every rule is copy-on-write: it takes a dataset by value and returns a new
// one. On error the input is returned untouched, so a rejected edit is a
// no-op. Time entries are never modified or removed by these rules.
package dataset

import (
	"fmt"

	"github.com/roach88/tally/internal/model"
)

// CreateType appends a type. A blank name becomes "New Type N" and a blank
// icon the default folder icon.
func CreateType(d model.Dataset, id, name, icon string) (model.Dataset, model.Type, error) {
	if d.TypeIndex(id) >= 0 {
		return d, model.Type{}, newRuleError(ErrCodeDuplicateID, id, "type id already in use")
	}
	name = model.NormalizeName(name)
	if name == "" {
		name = fmt.Sprintf("New Type %d", len(d.Types)+1)
	}
	if icon == "" {
		icon = model.DefaultTypeIcon
	}

	t := model.Type{ID: id, Name: name, Icon: icon}
	out := d.Clone()
	out.Types = append(out.Types, t)
	return out, t, nil
}

// CreateSubject appends an idle subject. A blank typeID selects the first
// type; a blank name becomes "New Subject N".
func CreateSubject(d model.Dataset, id, name, typeID, icon string) (model.Dataset, model.Subject, error) {
	if d.SubjectIndex(id) >= 0 {
		return d, model.Subject{}, newRuleError(ErrCodeDuplicateID, id, "subject id already in use")
	}
	if typeID == "" {
		if len(d.Types) == 0 {
			return d, model.Subject{}, newRuleError(ErrCodeUnknownType, id, "no type to place the subject in")
		}
		typeID = d.Types[0].ID
	}
	if d.TypeIndex(typeID) < 0 {
		return d, model.Subject{}, newRuleError(ErrCodeUnknownType, typeID, "type does not exist")
	}
	name = model.NormalizeName(name)
	if name == "" {
		name = fmt.Sprintf("New Subject %d", len(d.Subjects)+1)
	}
	if icon == "" {
		icon = model.DefaultSubjectIcon
	}

	s := model.Subject{ID: id, Name: name, TypeID: typeID, Icon: icon}
	out := d.Clone()
	out.Subjects = append(out.Subjects, s)
	return out, s, nil
}

// RenameType updates a type's name in place.
func RenameType(d model.Dataset, id, name string) (model.Dataset, error) {
	return updateType(d, id, func(t *model.Type) error {
		n := model.NormalizeName(name)
		if n == "" {
			return newRuleError(ErrCodeEmptyName, id, "name must not be blank")
		}
		t.Name = n
		return nil
	})
}

// SetTypeIcon updates a type's icon key.
func SetTypeIcon(d model.Dataset, id, icon string) (model.Dataset, error) {
	return updateType(d, id, func(t *model.Type) error {
		t.Icon = icon
		return nil
	})
}

// RenameSubject updates a subject's name in place.
func RenameSubject(d model.Dataset, id, name string) (model.Dataset, error) {
	return updateSubject(d, id, func(s *model.Subject) error {
		n := model.NormalizeName(name)
		if n == "" {
			return newRuleError(ErrCodeEmptyName, id, "name must not be blank")
		}
		s.Name = n
		return nil
	})
}

// SetSubjectIcon updates a subject's icon key.
func SetSubjectIcon(d model.Dataset, id, icon string) (model.Dataset, error) {
	return updateSubject(d, id, func(s *model.Subject) error {
		s.Icon = icon
		return nil
	})
}

// Recategorize points a subject at another existing type. Tracking state and
// historical entries are unaffected.
func Recategorize(d model.Dataset, subjectID, typeID string) (model.Dataset, error) {
	if d.TypeIndex(typeID) < 0 {
		return d, newRuleError(ErrCodeUnknownType, typeID, "type does not exist")
	}
	return updateSubject(d, subjectID, func(s *model.Subject) error {
		s.TypeID = typeID
		return nil
	})
}

// MoveSubject drops a subject into another type's column. It is the same
// edit as Recategorize.
func MoveSubject(d model.Dataset, subjectID, typeID string) (model.Dataset, error) {
	return Recategorize(d, subjectID, typeID)
}

// DeleteSubject removes a subject and returns it. If it held the tracking
// slot the slot is simply vacated: the running session is discarded and no
// entry is written. Past entries for the subject are kept.
func DeleteSubject(d model.Dataset, id string) (model.Dataset, model.Subject, error) {
	i := d.SubjectIndex(id)
	if i < 0 {
		return d, model.Subject{}, newRuleError(ErrCodeNotFound, id, "subject does not exist")
	}
	removed := d.Subjects[i]

	out := d.Clone()
	out.Subjects = append(out.Subjects[:i], out.Subjects[i+1:]...)
	return out, removed, nil
}

// DeleteType removes a type, first moving its subjects to the first
// surviving type in display order. Both happen in the returned dataset, so
// no snapshot ever holds a dangling reference. Deleting the only type is
// rejected with LAST_TYPE. It returns how many subjects were moved.
func DeleteType(d model.Dataset, id string) (model.Dataset, int, error) {
	i := d.TypeIndex(id)
	if i < 0 {
		return d, 0, newRuleError(ErrCodeNotFound, id, "type does not exist")
	}
	if len(d.Types) == 1 {
		return d, 0, newRuleError(ErrCodeLastType, id, "cannot delete the only remaining type")
	}

	out := d.Clone()
	out.Types = append(out.Types[:i], out.Types[i+1:]...)
	target := out.Types[0].ID

	moved := 0
	for j := range out.Subjects {
		if out.Subjects[j].TypeID == id {
			out.Subjects[j].TypeID = target
			moved++
		}
	}
	return out, moved, nil
}

func updateType(d model.Dataset, id string, fn func(*model.Type) error) (model.Dataset, error) {
	i := d.TypeIndex(id)
	if i < 0 {
		return d, newRuleError(ErrCodeNotFound, id, "type does not exist")
	}
	out := d.Clone()
	if err := fn(&out.Types[i]); err != nil {
		return d, err
	}
	return out, nil
}

func updateSubject(d model.Dataset, id string, fn func(*model.Subject) error) (model.Dataset, error) {
	i := d.SubjectIndex(id)
	if i < 0 {
		return d, newRuleError(ErrCodeNotFound, id, "subject does not exist")
	}
	out := d.Clone()
	if err := fn(&out.Subjects[i]); err != nil {
		return d, err
	}
	return out, nil
}
