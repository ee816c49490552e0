package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/tabular"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type recordingEmitter struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := event.(Change); ok {
		r.changes = append(r.changes, c)
	}
}

func (r *recordingEmitter) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeKind, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

type fakeMedia struct {
	deleted []string
	err     error
}

func (f *fakeMedia) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return f.err
}

type testEnv struct {
	store   *Store
	media   *fakeMedia
	emitter *recordingEmitter
	path    string
}

func setupTestStore(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "media_tree_data", "meta.json")
	media := &fakeMedia{}
	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	s, err := New(Config{
		Path:    path,
		Media:   media,
		Emitter: emitter,
		Now:     func() time.Time { return fixedNow },
	}, logger)
	require.NoError(t, err)

	return &testEnv{store: s, media: media, emitter: emitter, path: path}
}

func emptyDocument() *domain.Document {
	return &domain.Document{Campaign: domain.Campaign{
		Name:      "Test",
		Objective: "Testing",
		CreatedAt: domain.NewTimestamp(fixedNow),
	}}
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()

	doc := env.store.Load(ctx)

	assert.Equal(t, domain.DefaultCampaignName, doc.Campaign.Name)
	assert.Equal(t, []string{"Social Media Ads", "Google Ads"}, doc.AdSets.Keys())
	assert.Equal(t, 3, doc.AdCount())

	_, err := os.Stat(env.path)
	assert.True(t, os.IsNotExist(err), "Load must not create the document")
}

func TestLoad_CorruptFileFallsBackToDefaults(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(env.path, []byte("{not json"), 0o644))

	doc := env.store.Load(ctx)
	assert.Equal(t, domain.DefaultCampaignName, doc.Campaign.Name)

	_, err := env.store.LoadStrict(ctx)
	assert.ErrorIs(t, err, errors.ErrCorrupt)
}

func TestLoadStrict_MissingKeysIsCorrupt(t *testing.T) {
	env := setupTestStore(t)
	require.NoError(t, os.WriteFile(env.path, []byte(`{"campaign": {}}`), 0o644))

	_, err := env.store.LoadStrict(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCorrupt)
	assert.Contains(t, err.Error(), "ad_sets")
}

func TestInitialize(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()

	doc, err := env.store.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.AdCount())
	assert.FileExists(t, env.path)

	// A second call keeps what is on disk.
	require.NoError(t, env.store.SaveCampaign(ctx, doc, "Changed", "Objective"))
	again, err := env.store.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", again.Campaign.Name)
}

func TestSave_RoundTrip(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()

	doc := domain.DefaultDocument(fixedNow)
	date := "2024-06-30"
	doc.UpdateAd("Social Media Ads", "demo002", domain.AdUpdate{
		ScheduleDate: domain.Some(&date),
		Description:  domain.Some("Überraschung <b>&</b>"),
	})
	_, err := doc.AddAdSet("Empty set", "", fixedNow)
	require.NoError(t, err)

	require.NoError(t, env.store.Save(ctx, doc))
	loaded, err := env.store.LoadStrict(ctx)
	require.NoError(t, err)

	want, err := json.Marshal(doc)
	require.NoError(t, err)
	got, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, doc.AdSets.Keys(), loaded.AdSets.Keys())

	raw, err := os.ReadFile(env.path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Überraschung <b>&</b>")

	_, err = os.Stat(env.path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must not remain")
}

func TestSave_LastWriteWins(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()

	first := env.store.Load(ctx)
	second := env.store.Load(ctx)

	_, err := env.store.CreateAdSet(ctx, first, "From first", "")
	require.NoError(t, err)
	_, err = env.store.CreateAdSet(ctx, second, "From second", "")
	require.NoError(t, err)

	onDisk := env.store.Load(ctx)
	assert.True(t, onDisk.AdSets.Has("From second"))
	assert.False(t, onDisk.AdSets.Has("From first"))
}

func TestSave_CanceledContext(t *testing.T) {
	env := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- env.store.Save(ctx, emptyDocument())
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Save did not return")
	}

	_, err := os.Stat(env.path)
	assert.True(t, os.IsNotExist(err))
}

// Scenario: create "Launch", add a Banner ad, search "BAN" finds exactly it.
func TestScenario_CreateAndSearch(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()

	_, err := env.store.CreateAdSet(ctx, doc, "Launch", "x")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "Launch", domain.AdFields{Name: "Banner", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, adID, 8)

	results := env.store.Search(doc, "BAN")
	require.Len(t, results, 1)
	assert.Equal(t, "Launch", results[0].AdSetName)
	assert.Equal(t, adID, results[0].AdID)
	assert.Equal(t, "Banner", results[0].Ad.Name)

	persisted := env.store.Load(ctx)
	assert.Len(t, Search(persisted, "ban"), 1)
}

// Scenario: an ad moved from S1 to S2 leaves S1 and arrives unchanged.
func TestScenario_MoveAd(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()

	_, err := env.store.CreateAdSet(ctx, doc, "S1", "")
	require.NoError(t, err)
	_, err = env.store.CreateAdSet(ctx, doc, "S2", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "S1", domain.AdFields{Name: "Mover", Tags: []string{"t"}, URL: "https://example.com"})
	require.NoError(t, err)
	original, _ := doc.Ad("S1", adID)
	snapshot := *original

	require.NoError(t, env.store.MoveAd(ctx, doc, "S1", "S2", adID))

	persisted := env.store.Load(ctx)
	s1, _ := persisted.AdSet("S1")
	assert.False(t, s1.Ads.Has(adID))
	moved, ok := persisted.Ad("S2", adID)
	require.True(t, ok)
	assert.Equal(t, snapshot.Name, moved.Name)
	assert.Equal(t, snapshot.Tags, moved.Tags)
	assert.Equal(t, snapshot.URL, moved.URL)
	assert.True(t, snapshot.CreatedAt.Equal(moved.CreatedAt.Time))
}

func TestMoveAd_SameSetIsNoop(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()
	_, err := env.store.CreateAdSet(ctx, doc, "S", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{Name: "A"})
	require.NoError(t, err)
	before := len(env.emitter.kinds())

	require.NoError(t, env.store.MoveAd(ctx, doc, "S", "S", adID))
	assert.Len(t, env.emitter.kinds(), before, "no-op move must not save")

	_, ok := doc.Ad("S", adID)
	assert.True(t, ok)
}

func TestMoveAd_NotFound(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	err := env.store.MoveAd(ctx, doc, "Social Media Ads", "Nope", "demo001")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	err = env.store.MoveAd(ctx, doc, "Google Ads", "Social Media Ads", "demo001")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = os.Stat(env.path)
	assert.True(t, os.IsNotExist(err), "failed move must not persist")
}

// Scenario: a non-empty ad set cannot be deleted until its ad is removed.
func TestScenario_DeleteNonEmptyAdSet(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()

	_, err := env.store.CreateAdSet(ctx, doc, "S", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{Name: "Only"})
	require.NoError(t, err)

	err = env.store.DeleteAdSet(ctx, doc, "S")
	assert.ErrorIs(t, err, errors.ErrNotEmpty)
	assert.True(t, env.store.Load(ctx).AdSets.Has("S"))

	require.NoError(t, env.store.DeleteAd(ctx, doc, "S", adID, false))
	require.NoError(t, env.store.DeleteAdSet(ctx, doc, "S"))
	assert.False(t, env.store.Load(ctx).AdSets.Has("S"))
}

func TestDeleteAdSet_Invariant(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	for _, name := range doc.AdSets.Keys() {
		err := env.store.DeleteAdSet(ctx, doc, name)
		assert.ErrorIs(t, err, errors.ErrNotEmpty, name)
	}
	assert.Equal(t, 2, doc.AdSets.Len())

	assert.ErrorIs(t, env.store.DeleteAdSet(ctx, doc, "missing"), errors.ErrNotFound)
}

func TestCreateAdSet_Validation(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	_, err := env.store.CreateAdSet(ctx, doc, "  ", "")
	assert.ErrorIs(t, err, errors.ErrValidation)
	_, err = env.store.CreateAdSet(ctx, doc, "Google Ads", "")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = os.Stat(env.path)
	assert.True(t, os.IsNotExist(err), "rejected create must not persist")
}

func TestCreateAd_UnknownSet(t *testing.T) {
	env := setupTestStore(t)
	_, err := env.store.CreateAd(context.Background(), emptyDocument(), "missing", domain.AdFields{Name: "x"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreateAd_IDsUniqueAcrossDocument(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()
	for _, name := range []string{"A", "B", "C"} {
		_, err := env.store.CreateAdSet(ctx, doc, name, "")
		require.NoError(t, err)
	}

	for i := range 60 {
		set := []string{"A", "B", "C"}[i%3]
		adID, err := env.store.CreateAd(ctx, doc, set, domain.AdFields{Name: fmt.Sprintf("ad %d", i)})
		require.NoError(t, err)
		if i%4 == 0 {
			require.NoError(t, env.store.MoveAd(ctx, doc, set, "A", adID))
		}
	}

	seen := map[string]bool{}
	for set := range doc.AdSets.Values() {
		for _, k := range set.Ads.Keys() {
			require.False(t, seen[k], "duplicate ad id %s", k)
			seen[k] = true
		}
	}
	assert.Len(t, seen, 60)
}

func TestUpdateAd(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	err := env.store.UpdateAd(ctx, doc, "Google Ads", "demo003", domain.AdUpdate{
		Name: domain.Some("Renamed"),
		Tags: domain.Some([]string{"google", "new"}),
	})
	require.NoError(t, err)

	ad, _ := env.store.Load(ctx).Ad("Google Ads", "demo003")
	assert.Equal(t, "Renamed", ad.Name)
	assert.Equal(t, []string{"google", "new"}, ad.Tags)
	assert.Equal(t, "Text and image combination for Google search results", ad.Description)
	assert.Equal(t, "https://example.com/landing", ad.URL)
}

func TestUpdateAndDelete_AbsentAreNoops(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	assert.NoError(t, env.store.UpdateAd(ctx, doc, "Google Ads", "missing", domain.AdUpdate{Name: domain.Some("x")}))
	assert.NoError(t, env.store.UpdateAd(ctx, doc, "Missing", "demo003", domain.AdUpdate{Name: domain.Some("x")}))
	assert.NoError(t, env.store.DeleteAd(ctx, doc, "Google Ads", "missing", true))
	assert.NoError(t, env.store.DeleteAd(ctx, doc, "Missing", "demo003", true))

	assert.Equal(t, 3, doc.AdCount())
	assert.Empty(t, env.emitter.kinds())
	assert.Empty(t, env.media.deleted)
}

func TestDeleteAd_Cascade(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()
	_, err := env.store.CreateAdSet(ctx, doc, "S", "")
	require.NoError(t, err)

	withFile, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{Name: "f", FilePath: "/data/media/abc.png"})
	require.NoError(t, err)
	noFile, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{Name: "placeholder"})
	require.NoError(t, err)
	kept, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{Name: "k", FilePath: "/data/media/keep.png"})
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteAd(ctx, doc, "S", withFile, true))
	require.NoError(t, env.store.DeleteAd(ctx, doc, "S", noFile, true))
	require.NoError(t, env.store.DeleteAd(ctx, doc, "S", kept, false))

	assert.Equal(t, []string{"/data/media/abc.png"}, env.media.deleted)
	set, _ := doc.AdSet("S")
	assert.Equal(t, 0, set.Ads.Len())
}

func TestDeleteAd_FileFailureDoesNotAbort(t *testing.T) {
	env := setupTestStore(t)
	env.media.err = os.ErrPermission
	ctx := context.Background()
	doc := emptyDocument()
	_, err := env.store.CreateAdSet(ctx, doc, "S", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{FilePath: "/x.png"})
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteAd(ctx, doc, "S", adID, true))

	_, ok := env.store.Load(ctx).Ad("S", adID)
	assert.False(t, ok)
}

func TestDeleteAd_KeepsFileWhenSaveFails(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()
	_, err := env.store.CreateAdSet(ctx, doc, "S", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "S", domain.AdFields{FilePath: "/data/media/abc.png"})
	require.NoError(t, err)

	tmp := env.path + ".tmp"
	require.NoError(t, os.MkdirAll(tmp, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "keep"), nil, 0o644))

	err = env.store.DeleteAd(ctx, doc, "S", adID, true)
	require.Error(t, err)
	assert.Empty(t, env.media.deleted)
}

func TestBulkAddTags(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	changed, err := env.store.BulkAddTags(ctx, doc, "Social Media Ads", []string{" summer ", "q3", "q3"})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	ad, _ := env.store.Load(ctx).Ad("Social Media Ads", "demo001")
	assert.Equal(t, []string{"instagram", "story", "template", "summer", "q3"}, ad.Tags)

	_, err = env.store.BulkAddTags(ctx, doc, "Missing", []string{"x"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = env.store.BulkAddTags(ctx, doc, "Google Ads", []string{" ", ""})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestSaveAndResetCampaign(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	require.NoError(t, env.store.SaveCampaign(ctx, doc, "Winter", "Clear stock"))
	loaded := env.store.Load(ctx)
	assert.Equal(t, "Winter", loaded.Campaign.Name)
	assert.Equal(t, "Clear stock", loaded.Campaign.Objective)

	require.NoError(t, env.store.ResetCampaign(ctx, loaded))
	reset := env.store.Load(ctx)
	assert.Equal(t, domain.DefaultCampaignName, reset.Campaign.Name)
	assert.Equal(t, 2, reset.AdSets.Len())
}

func TestImportDocument(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()

	_, err := env.store.ImportDocument(ctx, []byte(`{"ad_sets": {}}`))
	assert.ErrorIs(t, err, errors.ErrSchema)
	_, err = env.store.ImportDocument(ctx, []byte(`[]`))
	assert.ErrorIs(t, err, errors.ErrSchema)

	raw := `{"campaign": {"name": "Imported", "objective": "o", "created_at": "2023-03-04T05:06:07"},
		"ad_sets": {"Only": {"name": "Only", "description": "", "created_at": "2023-03-04T05:06:07", "ads": {}}}}`
	doc, err := env.store.ImportDocument(ctx, []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Imported", doc.Campaign.Name)

	loaded := env.store.Load(ctx)
	assert.Equal(t, []string{"Only"}, loaded.AdSets.Keys())
	assert.Equal(t, []ChangeKind{ChangeDocumentReplaced}, env.emitter.kinds())
}

func TestImportTable(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := domain.DefaultDocument(fixedNow)

	_, err := env.store.ImportTable(ctx, doc, strings.NewReader("ad_name\nx\n"), tabular.ModeReplace)
	assert.ErrorIs(t, err, errors.ErrSchema)
	assert.Equal(t, 2, doc.AdSets.Len())

	input := "campaign_name,ad_set_name,ad_name,ad_tags\nNew,Fresh,One,a|b\n"
	res, err := env.store.ImportTable(ctx, doc, strings.NewReader(input), tabular.ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AdsCreated)

	loaded := env.store.Load(ctx)
	assert.Equal(t, "New", loaded.Campaign.Name)
	assert.Equal(t, []string{"Fresh"}, loaded.AdSets.Keys())
}

func TestEmitsChangesAfterSave(t *testing.T) {
	env := setupTestStore(t)
	ctx := context.Background()
	doc := emptyDocument()

	_, err := env.store.CreateAdSet(ctx, doc, "A", "")
	require.NoError(t, err)
	_, err = env.store.CreateAdSet(ctx, doc, "B", "")
	require.NoError(t, err)
	adID, err := env.store.CreateAd(ctx, doc, "A", domain.AdFields{Name: "x"})
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateAd(ctx, doc, "A", adID, domain.AdUpdate{URL: domain.Some("u")}))
	require.NoError(t, env.store.MoveAd(ctx, doc, "A", "B", adID))
	require.NoError(t, env.store.DeleteAd(ctx, doc, "B", adID, false))

	assert.Equal(t, []ChangeKind{
		ChangeAdSetCreated,
		ChangeAdSetCreated,
		ChangeAdCreated,
		ChangeAdUpdated,
		ChangeAdMoved,
		ChangeAdDeleted,
	}, env.emitter.kinds())
}
