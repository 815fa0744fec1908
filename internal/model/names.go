package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Default icon keys, opaque to the core.
const (
	DefaultTypeIcon    = "FolderOpen"
	DefaultSubjectIcon = "BookOpen"
)

// NormalizeName trims surrounding whitespace and applies Unicode NFC so that
// names typed on different platforms compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SameName compares two display names after normalization, ignoring case.
func SameName(a, b string) bool {
	return strings.EqualFold(NormalizeName(a), NormalizeName(b))
}
