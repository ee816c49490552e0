package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatree/mediatree-server/internal/backup"
	"github.com/mediatree/mediatree-server/internal/domain"
	domainerrors "github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/media/images"
	"github.com/mediatree/mediatree-server/internal/store"
	"github.com/mediatree/mediatree-server/internal/tabular"
	"github.com/mediatree/mediatree-server/internal/watcher"
)

type recorder struct {
	mu    sync.Mutex
	kinds []store.ChangeKind
}

func (r *recorder) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := event.(store.Change); ok {
		r.kinds = append(r.kinds, c.Kind)
	}
}

func (r *recorder) seen(kind store.ChangeKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc      *CampaignService
	store    *store.Store
	events   *recorder
	dataDir  string
	metaPath string
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	logger := testLogger()
	events := &recorder{}

	media, err := files.New(files.Config{
		MediaDir: filepath.Join(dataDir, "media"),
		ThumbDir: filepath.Join(dataDir, "thumbnails"),
		Deriver:  images.NewThumbnailer(200, 150, logger),
	}, logger)
	require.NoError(t, err)

	metaPath := filepath.Join(dataDir, "meta.json")
	s, err := store.New(store.Config{Path: metaPath, Media: media, Emitter: events}, logger)
	require.NoError(t, err)

	backups := backup.NewBackupService(s, filepath.Join(dataDir, "backups"), media.MediaDir(), logger)

	svc, err := NewCampaignService(context.Background(), Config{
		Store:   s,
		Media:   media,
		Backups: backups,
		Emitter: events,
	}, logger)
	require.NoError(t, err)

	return &testEnv{svc: svc, store: s, events: events, dataDir: dataDir, metaPath: metaPath}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func mediaFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewCampaignService_InitializesDocument(t *testing.T) {
	env := setupTestService(t)

	assert.FileExists(t, env.metaPath)
	doc, err := env.svc.Document()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCampaignName, doc.Campaign.Name)
	assert.Equal(t, 3, doc.AdCount())
}

func TestCampaignService_DocumentIsACopy(t *testing.T) {
	env := setupTestService(t)

	doc, err := env.svc.Document()
	require.NoError(t, err)
	doc.ClearAdSets()

	again, err := env.svc.Document()
	require.NoError(t, err)
	assert.Equal(t, 2, again.AdSets.Len())
}

func TestCampaignService_Campaign(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	created := env.svc.Campaign().CreatedAt

	c, err := env.svc.SaveCampaign(ctx, "Spring Launch", "Awareness")
	require.NoError(t, err)
	assert.Equal(t, "Spring Launch", c.Name)
	assert.Equal(t, created, c.CreatedAt)

	c, err = env.svc.ResetCampaign(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCampaignName, c.Name)
	assert.Equal(t, created, c.CreatedAt)
}

func TestCampaignService_AdLifecycle(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.CreateAdSet(ctx, "Video", "clips")
	require.NoError(t, err)

	ad, err := env.svc.CreateAd(ctx, "Video", domain.AdFields{Name: "Teaser", Tags: []string{"spring", "spring"}})
	require.NoError(t, err)
	assert.Len(t, ad.ID, 8)
	assert.Equal(t, []string{"spring"}, ad.Tags)

	updated, ok, err := env.svc.UpdateAd(ctx, "Video", ad.ID, domain.AdUpdate{Description: domain.Some("15s cut")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "15s cut", updated.Description)

	_, ok, err = env.svc.UpdateAd(ctx, "Video", "missing", domain.AdUpdate{Name: domain.Some("x")})
	require.NoError(t, err)
	assert.False(t, ok)

	results := env.svc.Search("15S", "")
	require.Len(t, results, 1)
	assert.Equal(t, ad.ID, results[0].AdID)

	require.NoError(t, env.svc.MoveAd(ctx, "Video", "Google Ads", ad.ID))
	assert.Equal(t, 0, env.svc.Statistics().BySet["Video"])

	n, err := env.svc.BulkAddTags(ctx, "Google Ads", []string{"q2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, env.svc.DeleteAdSet(ctx, "Video"))
	err = env.svc.DeleteAdSet(ctx, "Google Ads")
	assert.ErrorIs(t, err, domainerrors.ErrNotEmpty)

	require.NoError(t, env.svc.DeleteAd(ctx, "Google Ads", ad.ID, false))

	persisted := env.store.Load(ctx)
	assert.False(t, persisted.HasAd(ad.ID))
	assert.True(t, env.events.seen(store.ChangeAdMoved))
}

func TestCampaignService_Upload(t *testing.T) {
	t.Run("creates ad with media", func(t *testing.T) {
		env := setupTestService(t)
		ctx := context.Background()

		ad, err := env.svc.Upload(ctx, "Social Media Ads", "banner.png", pngBytes(t, 64, 48), []string{"hero"})
		require.NoError(t, err)

		assert.Equal(t, "banner.png", ad.Name)
		assert.Equal(t, "Uploaded from banner.png", ad.Description)
		assert.Equal(t, "image/png", ad.MimeType)
		assert.Equal(t, []string{"hero"}, ad.Tags)
		assert.NotEmpty(t, ad.BlurHash)
		assert.FileExists(t, ad.FilePath)
		assert.Len(t, mediaFiles(t, filepath.Join(env.dataDir, "thumbnails")), 1)

		require.NoError(t, env.svc.DeleteAd(ctx, "Social Media Ads", ad.ID, true))
		assert.NoFileExists(t, ad.FilePath)
		assert.Empty(t, mediaFiles(t, filepath.Join(env.dataDir, "thumbnails")))
	})

	t.Run("unknown ad set stores nothing", func(t *testing.T) {
		env := setupTestService(t)

		_, err := env.svc.Upload(context.Background(), "Nope", "banner.png", pngBytes(t, 4, 4), nil)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
		assert.Empty(t, mediaFiles(t, filepath.Join(env.dataDir, "media")))
	})

	t.Run("disallowed extension", func(t *testing.T) {
		env := setupTestService(t)

		_, err := env.svc.Upload(context.Background(), "Google Ads", "notes.txt", []byte("hi"), nil)
		assert.ErrorIs(t, err, domainerrors.ErrUnsupportedType)
		assert.Equal(t, 1, env.svc.Statistics().BySet["Google Ads"])
	})

	t.Run("strips directories from filename", func(t *testing.T) {
		env := setupTestService(t)

		ad, err := env.svc.Upload(context.Background(), "Google Ads", "../../clip.mp4", []byte("not really a video"), nil)
		require.NoError(t, err)
		assert.Equal(t, "clip.mp4", ad.Name)
		assert.Equal(t, "video/mp4", ad.MimeType)
		assert.Empty(t, ad.BlurHash)
	})
}

// blockSaves makes every document save fail until the returned func runs.
func blockSaves(t *testing.T, env *testEnv) func() {
	t.Helper()
	tmp := env.metaPath + ".tmp"
	require.NoError(t, os.MkdirAll(tmp, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "keep"), nil, 0o644))
	return func() { require.NoError(t, os.RemoveAll(tmp)) }
}

func TestCampaignService_FailedSaveLeavesDocumentUnchanged(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	kept, err := env.svc.Upload(ctx, "Social Media Ads", "kept.png", pngBytes(t, 8, 8), nil)
	require.NoError(t, err)
	before := env.svc.Statistics()

	unblock := blockSaves(t, env)

	_, err = env.svc.Upload(ctx, "Social Media Ads", "pic.png", pngBytes(t, 8, 8), nil)
	require.Error(t, err)
	assert.Equal(t, []string{filepath.Base(kept.FilePath)}, mediaFiles(t, filepath.Join(env.dataDir, "media")))

	_, err = env.svc.CreateAdSet(ctx, "Display", "")
	require.Error(t, err)

	_, err = env.svc.SaveCampaign(ctx, "Unsaved", "")
	require.Error(t, err)

	err = env.svc.DeleteAd(ctx, "Social Media Ads", kept.ID, true)
	require.Error(t, err)
	assert.FileExists(t, kept.FilePath)

	_, err = env.svc.BulkAddTags(ctx, "Social Media Ads", []string{"lost"})
	require.Error(t, err)

	doc, err := env.svc.Document()
	require.NoError(t, err)
	assert.Equal(t, before, env.svc.Statistics())
	assert.True(t, doc.HasAd(kept.ID))
	assert.NotEqual(t, "Unsaved", doc.Campaign.Name)
	_, ok := doc.AdSet("Display")
	assert.False(t, ok)
	ad, _ := doc.Ad("Social Media Ads", kept.ID)
	assert.NotContains(t, ad.Tags, "lost")

	unblock()

	_, err = env.svc.CreateAdSet(ctx, "T", "")
	require.NoError(t, err)

	persisted := env.store.Load(ctx)
	assert.Equal(t, before.BySet["Social Media Ads"], env.store.Statistics(persisted).BySet["Social Media Ads"])
	assert.NotEqual(t, "Unsaved", persisted.Campaign.Name)
}

func TestCampaignService_ImportTable(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.ImportTable(ctx, strings.NewReader("campaign_name,ad_name\nX,Y\n"), tabular.ModeReplace)
	assert.ErrorIs(t, err, domainerrors.ErrSchema)
	assert.Equal(t, 3, env.svc.Statistics().TotalAds, "failed import must not touch the document")

	csv := "campaign_name,ad_set_name,ad_name,ad_tags\nImported,Print,Poster,a|b\n"
	result, err := env.svc.ImportTable(ctx, strings.NewReader(csv), tabular.ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AdsCreated)

	stats := env.svc.Statistics()
	assert.Equal(t, 1, stats.TotalAdSets)
	assert.Equal(t, "Imported", env.svc.Campaign().Name)
}

func TestCampaignService_ImportDocument(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.ImportDocument(ctx, []byte(`{"ad_sets": {}}`))
	assert.ErrorIs(t, err, domainerrors.ErrSchema)

	doc, err := env.svc.ImportDocument(ctx, []byte(`{"campaign": {"name": "C", "objective": "O", "created_at": "2024-01-01T00:00:00"}, "ad_sets": {}}`))
	require.NoError(t, err)
	assert.Equal(t, "C", doc.Campaign.Name)
	assert.Equal(t, 0, env.svc.Statistics().TotalAdSets)
}

func TestCampaignService_Exports(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.Upload(ctx, "Google Ads", "banner.png", pngBytes(t, 4, 4), nil)
	require.NoError(t, err)

	var summary bytes.Buffer
	require.NoError(t, env.svc.ExportSummary(&summary))
	assert.True(t, strings.HasPrefix(summary.String(), strings.Join(tabular.SummaryColumns, ",")))

	records, err := csv.NewReader(&summary).ReadAll()
	require.NoError(t, err)
	stats := env.svc.Statistics()
	require.Len(t, records, 1+stats.TotalAdSets)
	for _, rec := range records[1:] {
		assert.Equal(t, strconv.Itoa(stats.BySet[rec[0]]), rec[3], rec[0])
		assert.Equal(t, strconv.Itoa(stats.BySetCategory[rec[0]]["images"]), rec[4], rec[0])
	}
	assert.Equal(t, []string{"2", "1", "0", "0", "0"}, records[2][3:])

	var table bytes.Buffer
	require.NoError(t, env.svc.ExportTable(&table))
	assert.Equal(t, 5, strings.Count(table.String(), "\n"), "header plus one row per ad")

	var archive bytes.Buffer
	counts, err := env.svc.ExportArchive(ctx, &archive)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Ads)
	assert.Equal(t, 1, counts.Media)
}

func TestCampaignService_BackupRestore(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	created, err := env.svc.CreateBackup(ctx)
	require.NoError(t, err)

	_, err = env.svc.CreateAdSet(ctx, "Later", "")
	require.NoError(t, err)
	assert.Equal(t, 3, env.svc.Statistics().TotalAdSets)

	list, err := env.svc.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	result, err := env.svc.RestoreBackup(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AdSets)
	assert.Equal(t, 2, env.svc.Statistics().TotalAdSets)
	assert.Equal(t, 2, env.store.Load(ctx).AdSets.Len())

	require.NoError(t, env.svc.DeleteBackup(ctx, created.ID))
	_, err = env.svc.RestoreBackup(ctx, created.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCampaignService_Reload(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	changed, err := env.svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own writes reload to the same document")

	other, err := store.New(store.Config{Path: env.metaPath}, testLogger())
	require.NoError(t, err)
	doc := other.Load(ctx)
	_, err = other.CreateAdSet(ctx, doc, "From elsewhere", "")
	require.NoError(t, err)

	changed, err = env.svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, env.svc.Statistics().TotalAdSets)
	assert.True(t, env.events.seen(store.ChangeDocumentReloaded))

	require.NoError(t, os.WriteFile(env.metaPath, []byte("{broken"), 0o644))
	_, err = env.svc.Reload(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrCorrupt)
	assert.Equal(t, 3, env.svc.Statistics().TotalAdSets, "corrupt file keeps the current document")
}

func TestCampaignService_Follow(t *testing.T) {
	env := setupTestService(t)

	w, err := watcher.New(testLogger(), watcher.Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Watch(env.metaPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx) //nolint:errcheck // returns nil on cancel
	go env.svc.Follow(ctx, w)
	t.Cleanup(func() { _ = w.Stop() })

	other, err := store.New(store.Config{Path: env.metaPath}, testLogger())
	require.NoError(t, err)
	doc := other.Load(ctx)
	_, err = other.CreateAdSet(ctx, doc, "External", "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return env.svc.Statistics().TotalAdSets == 3
	}, 3*time.Second, 20*time.Millisecond)
}
