package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/database/testutil"
	"github.com/charlesng35/web3drender/internal/models"
)

var testTTLs = cache.TTLs{List: 2 * time.Minute, Annotation: 3 * time.Minute}

func openServiceTestDB(t *testing.T) (*gorm.DB, *cache.QueryCache) {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()), cache.NewQueryCache()
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, userID, name string) *models.Project {
	t.Helper()
	project := &models.Project{UserID: userID, Name: name, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedModel(t *testing.T, db *gorm.DB, userID, projectID string, mutate ...func(*models.Model)) *models.Model {
	t.Helper()
	model := &models.Model{
		UserID:    userID,
		ProjectID: &projectID,
		Name:      "Bridge",
		FilePath:  "model-1-abc.glb",
		FileSize:  1024,
		FileType:  ".glb",
		ModelType: models.ModelTypeStatic,
	}
	for _, fn := range mutate {
		fn(model)
	}
	require.NoError(t, db.Create(model).Error)
	return model
}

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }
