package validators

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/castmenu-backend/internal/casts"
	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/pagination"
)

const (
	maxSearchLen   = 100
	maxBadgeFilter = 20
	maxBadgeName   = 50
	maxBound       = 1000
	maxPage        = 100000
)

// ParseCastSearch validates the cast listing query string. Every rejection
// happens here so the query composer only ever sees well formed input.
// Inverted ranges are passed through and simply match nothing.
func ParseCastSearch(r *http.Request) (casts.SearchParams, error) {
	var params casts.SearchParams
	var err error

	params.Search = SanitizeString(r.URL.Query().Get("search"), maxSearchLen)

	if params.Page, err = ParseQueryInt(r, "page", pagination.DefaultPage, 1, maxPage); err != nil {
		return params, err
	}
	if params.Limit, err = ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}

	bounds := []struct {
		key  string
		dest **int
	}{
		{"age_min", &params.AgeMin},
		{"age_max", &params.AgeMax},
		{"height_min", &params.HeightMin},
		{"height_max", &params.HeightMax},
	}
	for _, b := range bounds {
		if *b.dest, err = ParseOptionalInt(r, b.key, 0, maxBound); err != nil {
			return params, err
		}
	}

	if params.Badges, err = ParseQueryList(r, "badges", maxBadgeFilter, maxBadgeName); err != nil {
		return params, err
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("sort_by")); raw != "" {
		if params.SortBy, err = enums.ParseCastSortField(raw); err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort_by").OnField("sort_by")
		}
	} else {
		params.SortBy = enums.CastSortCreatedAt
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("sort_order")); raw != "" {
		if params.SortOrder, err = enums.ParseSortOrder(raw); err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort_order").OnField("sort_order")
		}
	} else {
		params.SortOrder = enums.SortDesc
	}

	return params, nil
}
