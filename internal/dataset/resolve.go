package dataset

import "github.com/roach88/tally/internal/model"

// ResolveType finds a type by id, or else by name ignoring case.
func ResolveType(d model.Dataset, ref string) (model.Type, error) {
	if t, ok := d.FindType(ref); ok {
		return t, nil
	}
	var hits []model.Type
	for _, t := range d.Types {
		if model.SameName(t.Name, ref) {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 0:
		return model.Type{}, newRuleError(ErrCodeNotFound, ref, "no type with this id or name")
	case 1:
		return hits[0], nil
	default:
		return model.Type{}, newRuleError(ErrCodeAmbiguous, ref, "%d types share this name, use the id", len(hits))
	}
}

// ResolveSubject finds a subject by id, or else by name ignoring case.
func ResolveSubject(d model.Dataset, ref string) (model.Subject, error) {
	if s, ok := d.FindSubject(ref); ok {
		return s, nil
	}
	var hits []model.Subject
	for _, s := range d.Subjects {
		if model.SameName(s.Name, ref) {
			hits = append(hits, s)
		}
	}
	switch len(hits) {
	case 0:
		return model.Subject{}, newRuleError(ErrCodeNotFound, ref, "no subject with this id or name")
	case 1:
		return hits[0], nil
	default:
		return model.Subject{}, newRuleError(ErrCodeAmbiguous, ref, "%d subjects share this name, use the id", len(hits))
	}
}
