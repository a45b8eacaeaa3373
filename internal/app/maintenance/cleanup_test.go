package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	testutil "github.com/charlesng35/web3drender/internal/database/testutil"
	"github.com/charlesng35/web3drender/internal/models"
	"github.com/charlesng35/web3drender/internal/uploads"
)

func TestRemoveOrphanUploads(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	storage, err := uploads.NewStorage(t.TempDir(), 0)
	require.NoError(t, err)

	now := time.Now()
	old := now.Add(-48 * time.Hour)

	orphan := writeUpload(t, storage, "model-1-orphan.obj", old)
	kept := writeUpload(t, storage, "model-2-kept.obj", old)
	fresh := writeUpload(t, storage, "model-3-fresh.obj", now)
	unrelated := writeUpload(t, storage, "notes.txt", old)

	seedModel(t, db, kept)

	removed, err := RemoveOrphanUploads(context.Background(), db, storage, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.NoFileExists(t, filepath.Join(storage.Dir(), orphan))
	require.FileExists(t, filepath.Join(storage.Dir(), kept))
	require.FileExists(t, filepath.Join(storage.Dir(), fresh))
	require.FileExists(t, filepath.Join(storage.Dir(), unrelated))
}

func TestRemoveOrphanUploadsRequiresDependencies(t *testing.T) {
	_, err := RemoveOrphanUploads(context.Background(), nil, nil, time.Now())
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	storage, err := uploads.NewStorage(t.TempDir(), 0)
	require.NoError(t, err)

	clock := fixedClock{current: time.Now().Add(time.Hour)}
	orphan := writeUpload(t, storage, "model-9-orphan.glb", time.Now().Add(-2*time.Hour))

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "ratelimit:api:10.0.0.1",
		Value:     []byte("3"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "ratelimit:api:10.0.0.2",
		Value:     []byte("1"),
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	c := NewCleaner(db, storage,
		WithCounterStore(cache.NewDatabaseStore(db)),
		WithNow(clock.Now),
		WithOrphanMinAge(time.Hour),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var entries []models.CacheEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, "ratelimit:api:10.0.0.2", entries[0].Key)

	require.NoFileExists(t, filepath.Join(storage.Dir(), orphan))
}

func TestCleanerStartWithoutJobsIsNoop(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	c := NewCleaner(db, nil,
		WithCounterStore(cache.NewDatabaseStore(db)),
		WithCounterSchedule("not a schedule"),
	)
	require.Error(t, c.Start())
}

func writeUpload(t *testing.T, storage *uploads.Storage, name string, modTime time.Time) string {
	t.Helper()

	path := filepath.Join(storage.Dir(), name)
	require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\n"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return name
}

func seedModel(t *testing.T, db *gorm.DB, fileName string) {
	t.Helper()

	user := &models.User{Name: "Cleaner", Email: "cleaner@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Model{
		UserID:   user.ID,
		Name:     fileName,
		FilePath: fileName,
		FileType: ".obj",
	}).Error)
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
