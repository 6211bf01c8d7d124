package enums

import (
	"fmt"
	"slices"
	"strings"
)

// MediaKind defines which part of the menu an uploaded image belongs to.
// It doubles as the object key prefix in storage.
type MediaKind string

const (
	MediaKindCast    MediaKind = "cast"
	MediaKindDrink   MediaKind = "drink"
	MediaKindBadge   MediaKind = "badge"
	MediaKindGeneral MediaKind = "general"
)

var validMediaKinds = []MediaKind{
	MediaKindCast,
	MediaKindDrink,
	MediaKindBadge,
	MediaKindGeneral,
}

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}

// IsValid reports whether the kind is known.
func (m MediaKind) IsValid() bool {
	return slices.Contains(validMediaKinds, m)
}

// ParseMediaKind is case-insensitive. Empty input means general.
func ParseMediaKind(value string) (MediaKind, error) {
	kind := MediaKind(strings.ToLower(strings.TrimSpace(value)))
	switch {
	case kind == "":
		return MediaKindGeneral, nil
	case kind.IsValid():
		return kind, nil
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
