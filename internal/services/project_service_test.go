package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/models"
)

func TestProjectServiceListPaginatesNewestFirst(t *testing.T) {
	db, qc := openServiceTestDB(t)
	svc, err := NewProjectService(db, qc, testTTLs)
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		project := &models.Project{UserID: user.ID, Name: name, Status: models.ProjectStatusActive}
		project.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.Create(project).Error)
	}
	seedProject(t, db, other.ID, "foreign")

	page, err := svc.List(ctx, user.ID, PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "third", page.Items[0].Name)
	require.Equal(t, "second", page.Items[1].Name)

	page, err = svc.List(ctx, user.ID, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "first", page.Items[0].Name)

	page, err = svc.List(ctx, user.ID, PageRequest{Page: 0, Limit: 500})
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 100, page.Limit)
}

func TestProjectServiceListClampsHugePage(t *testing.T) {
	db, qc := openServiceTestDB(t)
	svc, err := NewProjectService(db, qc, testTTLs)
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "owner@example.com")
	seedProject(t, db, user.ID, "only")

	page, err := svc.List(ctx, user.ID, PageRequest{Page: math.MaxInt, Limit: 100})
	require.NoError(t, err)
	require.Equal(t, maxPage, page.Page)
	require.EqualValues(t, 1, page.Total)
	require.Empty(t, page.Items)
}

func TestPageRequestOffsetNeverNegative(t *testing.T) {
	for _, p := range []int{math.MinInt, 0, 1, 7, maxPage, math.MaxInt / 2, math.MaxInt} {
		req := PageRequest{Page: p, Limit: math.MaxInt}.normalise()
		require.GreaterOrEqual(t, req.offset(), 0, "page %d", p)
		require.LessOrEqual(t, req.offset(), math.MaxInt32, "page %d", p)
	}
}

func TestProjectServiceWritesInvalidateListing(t *testing.T) {
	db, qc := openServiceTestDB(t)
	svc, err := NewProjectService(db, qc, testTTLs)
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "owner@example.com")

	page, err := svc.List(ctx, user.ID, PageRequest{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	_, ok := qc.Get(cache.ProjectListKey(user.ID, 1, 50))
	require.True(t, ok)

	created, err := svc.Create(ctx, user.ID, CreateProjectInput{Name: "  Survey  ", Description: "drone"})
	require.NoError(t, err)
	require.Equal(t, "Survey", created.Name)
	require.Equal(t, models.ProjectStatusActive, created.Status)

	_, ok = qc.Get(cache.ProjectListKey(user.ID, 1, 50))
	require.False(t, ok)

	page, err = svc.List(ctx, user.ID, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestProjectServiceUpdateAndOwnership(t *testing.T) {
	db, qc := openServiceTestDB(t)
	svc, err := NewProjectService(db, qc, testTTLs)
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "owner@example.com")
	intruder := seedUser(t, db, "intruder@example.com")
	project := seedProject(t, db, user.ID, "Site")

	_, err = svc.Get(ctx, intruder.ID, project.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.Update(ctx, intruder.ID, project.ID, UpdateProjectInput{Name: stringPtr("stolen")})
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.Update(ctx, user.ID, project.ID, UpdateProjectInput{Status: stringPtr("deleted")})
	require.Error(t, err)

	updated, err := svc.Update(ctx, user.ID, project.ID, UpdateProjectInput{
		Name:   stringPtr("Renamed"),
		Status: stringPtr("ARCHIVED"),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, models.ProjectStatusArchived, updated.Status)

	exists, err := svc.Exists(ctx, user.ID, project.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestProjectServiceDeleteDetachesModels(t *testing.T) {
	db, qc := openServiceTestDB(t)
	svc, err := NewProjectService(db, qc, testTTLs)
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "owner@example.com")
	project := seedProject(t, db, user.ID, "Site")
	model := seedModel(t, db, user.ID, project.ID)

	qc.Set(cache.ModelListKey(user.ID, 1, 50), "stale", time.Minute)

	require.ErrorIs(t, svc.Delete(ctx, "someone-else", project.ID), ErrProjectNotFound)
	require.NoError(t, svc.Delete(ctx, user.ID, project.ID))
	require.ErrorIs(t, svc.Delete(ctx, user.ID, project.ID), ErrProjectNotFound)

	var reloaded models.Model
	require.NoError(t, db.First(&reloaded, "id = ?", model.ID).Error)
	require.Nil(t, reloaded.ProjectID)

	_, ok := qc.Get(cache.ModelListKey(user.ID, 1, 50))
	require.False(t, ok)
}
