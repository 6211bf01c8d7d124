package casts

import (
	"fmt"

	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	"github.com/angelmondragon/castmenu-backend/pkg/pagination"
	"github.com/angelmondragon/castmenu-backend/pkg/sqlbuild"
	"gorm.io/gorm"
)

const castColumns = "c.id, c.name, c.age, c.height, c.hobby, c.description, c.avatar_url, c.is_active, c.created_at, c.updated_at"

const badgeJoin = "INNER JOIN cast_badges cb ON cb.cast_id = c.id INNER JOIN badges b ON b.id = cb.badge_id"

var sortColumns = map[enums.CastSortField]string{
	enums.CastSortName:      "c.name",
	enums.CastSortAge:       "c.age",
	enums.CastSortHeight:    "c.height",
	enums.CastSortCreatedAt: "c.created_at",
}

// listQuery pairs a listing with its count. Both are cloned from one
// filtered chain so their FROM and WHERE cannot drift apart.
type listQuery struct {
	list  *gorm.DB
	count *gorm.DB
}

func (p SearchParams) withDefaults() SearchParams {
	page := pagination.Params{Page: p.Page, Limit: p.Limit}.Normalize()
	p.Page, p.Limit = page.Page, page.Limit
	if p.SortBy == "" {
		p.SortBy = enums.CastSortCreatedAt
	}
	if p.SortOrder == "" {
		p.SortOrder = enums.SortDesc
	}
	return p
}

func (p SearchParams) predicates() []sqlbuild.Predicate {
	preds := []sqlbuild.Predicate{{Column: "c.is_active", Op: sqlbuild.Eq, Value: true}}
	if p.Search != "" {
		preds = append(preds, sqlbuild.Predicate{Column: "c.name", Op: sqlbuild.Like, Value: sqlbuild.Contains(p.Search)})
	}
	bounds := []struct {
		column string
		op     sqlbuild.Op
		value  *int
	}{
		{"c.age", sqlbuild.Gte, p.AgeMin},
		{"c.age", sqlbuild.Lte, p.AgeMax},
		{"c.height", sqlbuild.Gte, p.HeightMin},
		{"c.height", sqlbuild.Lte, p.HeightMax},
	}
	for _, b := range bounds {
		if b.value != nil {
			preds = append(preds, sqlbuild.Predicate{Column: b.column, Op: b.op, Value: *b.value})
		}
	}
	if len(p.Badges) > 0 {
		preds = append(preds, sqlbuild.Predicate{Column: "b.name", Op: sqlbuild.In, Value: p.Badges})
	}
	return preds
}

// composeListQuery chains validated search parameters onto db.
func composeListQuery(db *gorm.DB, params SearchParams) (listQuery, error) {
	p := params.withDefaults()

	column, ok := sortColumns[p.SortBy]
	if !ok {
		return listQuery{}, fmt.Errorf("unmapped sort field %q", p.SortBy)
	}
	if !p.SortOrder.IsValid() {
		return listQuery{}, fmt.Errorf("invalid sort order %q", p.SortOrder)
	}

	base := db.Table("casts c")
	joined := len(p.Badges) > 0
	if joined {
		base = base.Joins(badgeJoin)
	}
	base, err := sqlbuild.Where(base, p.predicates()...)
	if err != nil {
		return listQuery{}, err
	}

	list := base.Session(&gorm.Session{})
	if joined {
		list = list.Distinct(castColumns)
	} else {
		list = list.Select(castColumns)
	}
	dir := p.SortOrder.SQL()
	list = list.
		Order(column + " " + dir).
		Order("c.id " + dir).
		Limit(p.Limit).
		Offset(pagination.Params{Page: p.Page, Limit: p.Limit}.Offset())

	return listQuery{
		list:  list,
		count: base.Session(&gorm.Session{}).Distinct("c.id"),
	}, nil
}
