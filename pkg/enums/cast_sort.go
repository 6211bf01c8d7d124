package enums

import "fmt"

// CastSortField names the columns the cast listing can be ordered by.
type CastSortField string

const (
	CastSortName      CastSortField = "name"
	CastSortAge       CastSortField = "age"
	CastSortHeight    CastSortField = "height"
	CastSortCreatedAt CastSortField = "created_at"
)

var validCastSortFields = []CastSortField{
	CastSortName,
	CastSortAge,
	CastSortHeight,
	CastSortCreatedAt,
}

// String implements fmt.Stringer.
func (f CastSortField) String() string {
	return string(f)
}

// IsValid reports whether the value is a known CastSortField.
func (f CastSortField) IsValid() bool {
	for _, candidate := range validCastSortFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseCastSortField converts raw input into a CastSortField.
func ParseCastSortField(value string) (CastSortField, error) {
	for _, candidate := range validCastSortFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort_by %q", value)
}

// SortOrder is the direction of an ORDER BY clause.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid reports whether the value is asc or desc.
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// SQL returns the keyword used in ORDER BY.
func (o SortOrder) SQL() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}

// ParseSortOrder converts raw input into a SortOrder.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(value) {
	case SortAsc, SortDesc:
		return SortOrder(value), nil
	}
	return "", fmt.Errorf("invalid sort_order %q", value)
}
