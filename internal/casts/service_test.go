package casts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/dbtest"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc  *service
	conn *gorm.DB
	ctx  context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), client)
	require.NoError(t, err)
	return &fixture{svc: svc.(*service), conn: conn, ctx: context.Background()}
}

func (f *fixture) badge(t *testing.T, name string, order int) uuid.UUID {
	t.Helper()
	b := &models.Badge{ID: uuid.New(), Name: name, Color: "#ff0088", DisplayOrder: order}
	require.NoError(t, f.conn.Create(b).Error)
	return b.ID
}

func (f *fixture) cast(t *testing.T, name string, age, height int, badges ...uuid.UUID) *CastDTO {
	t.Helper()
	dto, err := f.svc.Create(f.ctx, nil, CreateCastInput{
		Name:     name,
		Age:      age,
		Height:   height,
		Photos:   []string{"https://cdn.example.com/" + name + ".jpg"},
		BadgeIDs: badges,
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) stats(t *testing.T, castID uuid.UUID) models.CastStats {
	t.Helper()
	var stats models.CastStats
	require.NoError(t, f.conn.First(&stats, "cast_id = ?", castID).Error)
	return stats
}

func (f *fixture) photos(t *testing.T, castID uuid.UUID) []models.CastPhoto {
	t.Helper()
	var photos []models.CastPhoto
	require.NoError(t, f.conn.Where("cast_id = ?", castID).Order("order_index").Find(&photos).Error)
	return photos
}

func (f *fixture) assignedBadges(t *testing.T, castID uuid.UUID) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	require.NoError(t, f.conn.Model(&models.CastBadge{}).Where("cast_id = ?", castID).Pluck("badge_id", &ids).Error)
	return ids
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func strPtr(v string) *string { return &v }

func TestListPagesAgreeWithCount(t *testing.T) {
	f := newFixture(t)
	newBadge := f.badge(t, "new", 1)
	pick := f.badge(t, "pick", 2)

	for i := 0; i < 7; i++ {
		var badges []uuid.UUID
		switch i % 3 {
		case 0:
			badges = []uuid.UUID{newBadge, pick}
		case 1:
			badges = []uuid.UUID{pick}
		}
		f.cast(t, fmt.Sprintf("cast-%d", i), 20+i, 150+i, badges...)
	}

	for _, filter := range [][]string{nil, {"new", "pick"}} {
		seen := map[uuid.UUID]bool{}
		var total, pages int
		for page := 1; ; page++ {
			res, err := f.svc.List(f.ctx, SearchParams{Badges: filter, Page: page, Limit: 2, SortBy: enums.CastSortName, SortOrder: enums.SortAsc})
			require.NoError(t, err)
			total, pages = res.Total, res.TotalPages
			if len(res.Items) == 0 {
				break
			}
			for _, item := range res.Items {
				assert.False(t, seen[item.ID], "cast %s on two pages", item.Name)
				seen[item.ID] = true
			}
		}
		assert.Equal(t, total, len(seen), "filter %v", filter)
		assert.Equal(t, (total+1)/2, pages)
	}

	res, err := f.svc.List(f.ctx, SearchParams{Badges: []string{"new", "pick"}})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total, "casts with both badges are counted once")
	assert.Len(t, res.Items, 5)
}

func TestListBadgeInclusionScenario(t *testing.T) {
	f := newFixture(t)
	rookie := f.badge(t, "新人", 1)
	f.badge(t, "オススメ", 2)

	tagged := f.cast(t, "Aoi", 21, 158, rookie)
	f.cast(t, "Rin", 23, 162)

	res, err := f.svc.List(f.ctx, SearchParams{Badges: []string{"新人", "オススメ"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, tagged.ID, res.Items[0].ID)
	assert.Equal(t, 1, res.Total)
}

func TestListFiltersAndSorting(t *testing.T) {
	f := newFixture(t)
	f.cast(t, "Mika", 20, 150)
	f.cast(t, "Mio", 24, 165)
	f.cast(t, "Sora", 28, 172)

	res, err := f.svc.List(f.ctx, SearchParams{Search: "Mi", SortBy: enums.CastSortHeight, SortOrder: enums.SortDesc})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Mio", res.Items[0].Name)
	assert.Equal(t, "Mika", res.Items[1].Name)

	res, err = f.svc.List(f.ctx, SearchParams{AgeMin: intPtr(21), HeightMax: intPtr(172), SortBy: enums.CastSortAge, SortOrder: enums.SortAsc})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Mio", res.Items[0].Name)
	assert.Equal(t, "Sora", res.Items[1].Name)

	res, err = f.svc.List(f.ctx, SearchParams{AgeMin: intPtr(30), AgeMax: intPtr(20)})
	require.NoError(t, err)
	assert.Empty(t, res.Items, "inverted range yields nothing")
	assert.Zero(t, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.Limit)
}

func TestListHydratesEveryRow(t *testing.T) {
	f := newFixture(t)
	first := f.badge(t, "first", 1)
	second := f.badge(t, "second", 2)

	created, err := f.svc.Create(f.ctx, nil, CreateCastInput{
		Name:     "Yui",
		Age:      22,
		Height:   160,
		Photos:   []string{"a.jpg", "b.jpg"},
		BadgeIDs: []uuid.UUID{second, first},
		Stats:    &StatsInput{Looks: intPtr(90), CustomStatName: strPtr("karaoke"), CustomStatValue: intPtr(77)},
	})
	require.NoError(t, err)

	bare := &models.Cast{ID: uuid.New(), Name: "Bare", Age: 30, Height: 170, IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, f.conn.Create(bare).Error)

	res, err := f.svc.List(f.ctx, SearchParams{SortBy: enums.CastSortName, SortOrder: enums.SortAsc})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	assert.Equal(t, "Bare", res.Items[0].Name)
	assert.Equal(t, StatsDTO{}, res.Items[0].Stats, "missing stats are zero filled")
	assert.Empty(t, res.Items[0].Photos)
	assert.Empty(t, res.Items[0].Badges)

	yui := res.Items[1]
	assert.Equal(t, created.ID, yui.ID)
	require.Len(t, yui.Photos, 2)
	assert.Equal(t, "a.jpg", yui.Photos[0].PhotoURL)
	assert.True(t, yui.Photos[0].IsMain)
	require.Len(t, yui.Badges, 2)
	assert.Equal(t, "first", yui.Badges[0].Name)
	assert.Equal(t, "second", yui.Badges[1].Name)
	assert.Equal(t, 90, yui.Stats.Looks)
	assert.Equal(t, defaultStatValue, yui.Stats.Talk)
	assert.Equal(t, 77, *yui.Stats.CustomStatValue)
}

func TestListExcludesInactive(t *testing.T) {
	f := newFixture(t)
	gone := f.cast(t, "Gone", 25, 160)
	f.cast(t, "Here", 25, 160)
	require.NoError(t, f.svc.Delete(f.ctx, gone.ID))

	res, err := f.svc.List(f.ctx, SearchParams{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Here", res.Items[0].Name)
	assert.Equal(t, 1, res.Total)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	created := f.cast(t, "Nana", 26, 163)

	got, err := f.svc.Get(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nana", got.Name)
	assert.Len(t, got.Photos, 1)

	_, err = f.svc.Get(f.ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateRejectsOutOfRangeAge(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, nil, CreateCastInput{Name: "Kid", Age: 12, Height: 150})
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, f.conn.Model(&models.Cast{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRollsBackOnUnknownBadge(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, nil, CreateCastInput{Name: "Ema", Age: 22, Height: 155, BadgeIDs: []uuid.UUID{uuid.New()}})
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, f.conn.Model(&models.Cast{}).Count(&count).Error)
	assert.Zero(t, count, "cast insert rolled back with the badge step")
}

func TestUpdateReplacesPhotos(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Hana", 22, 158)

	urls := []string{"one.jpg", "two.jpg", "three.jpg"}
	for round := 0; round < 2; round++ {
		_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Photos: &urls})
		require.NoError(t, err)

		photos := f.photos(t, c.ID)
		require.Len(t, photos, 3)
		for i, p := range photos {
			assert.Equal(t, urls[i], p.PhotoURL)
			assert.Equal(t, i, p.OrderIndex)
			assert.Equal(t, i == 0, p.IsMain)
		}
	}

	empty := []string{}
	dto, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Photos: &empty})
	require.NoError(t, err)
	assert.Empty(t, dto.Photos)
	assert.Empty(t, f.photos(t, c.ID))
}

func TestUpdateReplacesBadges(t *testing.T) {
	f := newFixture(t)
	a := f.badge(t, "a", 1)
	b := f.badge(t, "b", 2)
	c := f.badge(t, "c", 3)
	cast := f.cast(t, "Saki", 24, 161, a, b)

	next := []uuid.UUID{c, b, c}
	for round := 0; round < 2; round++ {
		_, err := f.svc.Update(f.ctx, nil, cast.ID, UpdateCastInput{BadgeIDs: &next})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{b, c}, f.assignedBadges(t, cast.ID))
	}

	none := []uuid.UUID{}
	_, err := f.svc.Update(f.ctx, nil, cast.ID, UpdateCastInput{BadgeIDs: &none})
	require.NoError(t, err)
	assert.Empty(t, f.assignedBadges(t, cast.ID))
}

func TestUpdateSparsePatch(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.ctx, nil, CreateCastInput{
		Name:        "Mei",
		Age:         23,
		Height:      157,
		Hobby:       strPtr("tennis"),
		Description: strPtr("likes sparkling wine"),
		AvatarURL:   strPtr("mei.jpg"),
	})
	require.NoError(t, err)

	later := created.UpdatedAt.Add(time.Hour)
	f.svc.now = func() time.Time { return later }

	updated, err := f.svc.Update(f.ctx, nil, created.ID, UpdateCastInput{Entity: &EntityPatch{Name: strPtr("X")}})
	require.NoError(t, err)

	assert.Equal(t, "X", updated.Name)
	assert.Equal(t, created.Age, updated.Age)
	assert.Equal(t, created.Height, updated.Height)
	assert.Equal(t, created.Hobby, updated.Hobby)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.AvatarURL, updated.AvatarURL)
	assert.True(t, updated.UpdatedAt.Equal(later), "updated_at is stamped")
	assert.Equal(t, created.Photos, updated.Photos)
}

func TestUpdateStatsPatchIsSparse(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Riko", 25, 166)

	_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Stats: &StatsPatch{Talk: intPtr(88)}})
	require.NoError(t, err)

	stats := f.stats(t, c.ID)
	assert.Equal(t, 88, stats.Talk)
	assert.Equal(t, defaultStatValue, stats.Looks)
	assert.Equal(t, defaultStatValue, stats.Energy)
}

func TestUpdateClearsCustomStat(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Sora", 23, 161)
	_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Stats: &StatsPatch{CustomStatName: strPtr("darts"), CustomStatValue: intPtr(70)}})
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Stats: &StatsPatch{ClearCustomStat: true, CustomStatValue: intPtr(10)}})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, 70, *f.stats(t, c.ID).CustomStatValue)

	dto, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Stats: &StatsPatch{ClearCustomStat: true, Talk: intPtr(60)}})
	require.NoError(t, err)
	assert.Nil(t, dto.Stats.CustomStatName)
	assert.Nil(t, dto.Stats.CustomStatValue)
	assert.Equal(t, 60, dto.Stats.Talk)

	stats := f.stats(t, c.ID)
	assert.Nil(t, stats.CustomStatName)
	assert.Nil(t, stats.CustomStatValue)
}

func TestUpdateStatsCreatesMissingRow(t *testing.T) {
	f := newFixture(t)
	bare := &models.Cast{ID: uuid.New(), Name: "Old", Age: 30, Height: 170, IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, f.conn.Create(bare).Error)

	dto, err := f.svc.Update(f.ctx, nil, bare.ID, UpdateCastInput{Stats: &StatsPatch{Energy: intPtr(99)}})
	require.NoError(t, err)
	assert.Equal(t, 99, dto.Stats.Energy)
	assert.Equal(t, defaultStatValue, dto.Stats.Looks)
}

func TestUpdateOutOfRangeStatRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Kana", 22, 159)
	before := f.stats(t, c.ID)
	photosBefore := f.photos(t, c.ID)

	_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Stats: &StatsPatch{Looks: intPtr(999)}})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, before.Looks, f.stats(t, c.ID).Looks)

	newPhotos := []string{"replaced.jpg"}
	_, err = f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{
		Entity: &EntityPatch{Name: strPtr("Changed")},
		Stats:  &StatsPatch{Looks: intPtr(999), Talk: intPtr(10)},
		Photos: &newPhotos,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	after, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kana", after.Name, "entity step rolled back")
	assert.True(t, after.UpdatedAt.Equal(c.UpdatedAt))
	assert.Equal(t, before.Talk, after.Stats.Talk)
	assert.Equal(t, photosBefore[0].PhotoURL, after.Photos[0].PhotoURL, "photos never replaced")
}

func TestUpdateUnknownBadgeRollsBackEarlierSteps(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Nao", 27, 168)

	urls := []string{"new.jpg"}
	badges := []uuid.UUID{uuid.New()}
	_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Photos: &urls, BadgeIDs: &badges})
	requireCode(t, err, pkgerrors.CodeValidation)

	photos := f.photos(t, c.ID)
	require.Len(t, photos, 1)
	assert.Equal(t, c.Photos[0].PhotoURL, photos[0].PhotoURL)
}

func TestUpdateMissingOrDeletedCastIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(f.ctx, nil, uuid.New(), UpdateCastInput{Entity: &EntityPatch{Name: strPtr("X")}})
	requireCode(t, err, pkgerrors.CodeNotFound)

	c := f.cast(t, "Deleted", 22, 160)
	require.NoError(t, f.svc.Delete(f.ctx, c.ID))
	_, err = f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Entity: &EntityPatch{Name: strPtr("X")}})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateExpectedUpdatedAt(t *testing.T) {
	f := newFixture(t)
	c := f.cast(t, "Aya", 22, 160)

	stale := c.UpdatedAt.Add(-time.Minute)
	_, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Entity: &EntityPatch{Name: strPtr("Lost")}, ExpectedUpdatedAt: &stale})
	requireCode(t, err, pkgerrors.CodeConflict)

	current := c.UpdatedAt
	updated, err := f.svc.Update(f.ctx, nil, c.ID, UpdateCastInput{Entity: &EntityPatch{Name: strPtr("Won")}, ExpectedUpdatedAt: &current})
	require.NoError(t, err)
	assert.Equal(t, "Won", updated.Name)
}

func TestDeleteIsSoftAndDropsBadges(t *testing.T) {
	f := newFixture(t)
	b := f.badge(t, "No.1", 1)
	c := f.cast(t, "Rei", 24, 164, b)

	require.NoError(t, f.svc.Delete(f.ctx, c.ID))

	var row models.Cast
	require.NoError(t, f.conn.First(&row, "id = ?", c.ID).Error)
	assert.False(t, row.IsActive)
	assert.Empty(t, f.assignedBadges(t, c.ID))
	assert.Len(t, f.photos(t, c.ID), 1, "photos are kept")
	assert.Equal(t, defaultStatValue, f.stats(t, c.ID).Looks, "stats are kept")

	requireCode(t, f.svc.Delete(f.ctx, c.ID), pkgerrors.CodeNotFound)
	_, err := f.svc.Get(f.ctx, c.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAssignBadge(t *testing.T) {
	f := newFixture(t)
	b := f.badge(t, "VIP", 1)
	c := f.cast(t, "Miu", 21, 155)
	actor := uuid.New()

	require.NoError(t, f.svc.AssignBadge(f.ctx, &actor, c.ID, b))

	err := f.svc.AssignBadge(f.ctx, &actor, c.ID, b)
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Len(t, f.assignedBadges(t, c.ID), 1, "no duplicate row")

	var row models.CastBadge
	require.NoError(t, f.conn.First(&row, "cast_id = ? AND badge_id = ?", c.ID, b).Error)
	require.NotNil(t, row.AssignedBy)
	assert.Equal(t, actor, *row.AssignedBy)

	requireCode(t, f.svc.AssignBadge(f.ctx, nil, c.ID, uuid.New()), pkgerrors.CodeNotFound)
	requireCode(t, f.svc.AssignBadge(f.ctx, nil, uuid.New(), b), pkgerrors.CodeNotFound)
}

func TestRemoveBadge(t *testing.T) {
	f := newFixture(t)
	b := f.badge(t, "Pick", 1)
	c := f.cast(t, "Yuna", 23, 162, b)

	require.NoError(t, f.svc.RemoveBadge(f.ctx, c.ID, b))
	assert.Empty(t, f.assignedBadges(t, c.ID))

	requireCode(t, f.svc.RemoveBadge(f.ctx, c.ID, b), pkgerrors.CodeNotFound)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}
