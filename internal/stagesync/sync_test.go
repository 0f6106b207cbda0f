package stagesync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

// countingStore records Update calls and can fail them.
type countingStore struct {
	*store.Memory
	updates   int
	failGet   error
	beforeUpd func()
}

func (c *countingStore) Get(ctx context.Context, entryID string, stage models.Stage) (*models.StageRecord, error) {
	if c.failGet != nil {
		return nil, c.failGet
	}
	return c.Memory.Get(ctx, entryID, stage)
}

func (c *countingStore) Update(ctx context.Context, entryID string, stage models.Stage, patch models.Patch, expected int64) error {
	c.updates++
	if c.beforeUpd != nil {
		c.beforeUpd()
	}
	return c.Memory.Update(ctx, entryID, stage, patch, expected)
}

func ptr(b bool) *bool { return &b }

func semifinals() *models.SemifinalsInfo {
	s := &models.SemifinalsInfo{
		Music: models.MusicInfo{MusicTitle: "Bolero", Artist: "Ravel", JASRACCode: "0-000-000-0"},
		Sound: models.SoundInfo{SoundStartTiming: "音先", FadeOutStartTime: "3:40"},
		Lighting: models.LightingInfo{
			DanceStartTiming: "板付き",
			ChaserExit:       models.LightingScene{Time: "4:00", Trigger: "音", ColorType: "白"},
		},
		Choreographer: models.ChoreographerInfo{
			Choreographer1Name: "山田", Choreographer1Furigana: "やまだ",
			Choreographer2Name: "佐藤", Choreographer2Furigana: "さとう",
		},
	}
	for i := range s.Lighting.Scenes {
		s.Lighting.Scenes[i] = models.LightingScene{Time: "0:1" + string(rune('0'+i)), Trigger: "音", ColorType: "青"}
	}
	return s
}

func setup(t *testing.T, finals *models.FinalsInfo) (*countingStore, string) {
	t.Helper()
	ctx := context.Background()
	s := &countingStore{Memory: store.NewMemory()}
	id := "0b5b7a3e-8f0f-4c1e-9b8e-3f4a0d3c2b11"
	require.NoError(t, s.CreateEntry(ctx, models.Entry{ID: id}))
	if finals != nil {
		raw, err := json.Marshal(finals)
		require.NoError(t, err)
		_, err = s.Upsert(ctx, id, models.StageFinals, raw)
		require.NoError(t, err)
	}
	return s, id
}

func loadFinals(t *testing.T, s *countingStore, id string) *models.FinalsInfo {
	t.Helper()
	raw, err := s.Memory.Get(context.Background(), id, models.StageFinals)
	require.NoError(t, err)
	require.NotNil(t, raw)
	rec, err := raw.Decode()
	require.NoError(t, err)
	return rec.(*models.FinalsInfo)
}

func TestSync_LightingUnchangedMusicChanged(t *testing.T) {
	finalsMusic := models.MusicInfo{MusicTitle: "New piece", Artist: "Someone"}
	s, id := setup(t, &models.FinalsInfo{
		MusicChange:    ptr(true),
		LightingChange: ptr(false),
		Music:          finalsMusic,
		PropsUsage:     "なし",
	})
	semis := semifinals()

	res, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semis)
	require.NoError(t, err)
	assert.Equal(t, Result{Sections: []string{SectionLighting}, Written: true}, res)
	assert.Equal(t, 1, s.updates)

	got := loadFinals(t, s, id)
	if diff := cmp.Diff(semis.Lighting, got.Lighting); diff != "" {
		t.Errorf("lighting mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, finalsMusic, got.Music)
	assert.Equal(t, "なし", got.PropsUsage)
	assert.Equal(t, ptr(false), got.LightingChange)
}

func TestSync_AllSectionsInOneUpdate(t *testing.T) {
	s, id := setup(t, &models.FinalsInfo{
		MusicChange: ptr(false), SoundChange: ptr(false),
		LightingChange: ptr(false), ChoreographerChange: ptr(false),
	})
	semis := semifinals()

	res, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semis)
	require.NoError(t, err)
	assert.Equal(t, []string{SectionMusic, SectionSound, SectionLighting, SectionChoreographer}, res.Sections)
	assert.Equal(t, 1, s.updates)

	got := loadFinals(t, s, id)
	want := &models.FinalsInfo{
		MusicChange: ptr(false), SoundChange: ptr(false),
		LightingChange: ptr(false), ChoreographerChange: ptr(false),
		Music: semis.Music, Sound: semis.Sound, Lighting: semis.Lighting, Choreographer: semis.Choreographer,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("finals mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_NoFinalsRecord(t *testing.T) {
	s, id := setup(t, nil)
	res, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semifinals())
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Zero(t, s.updates)

	rec, err := s.Memory.Get(context.Background(), id, models.StageFinals)
	require.NoError(t, err)
	assert.Nil(t, rec, "no finals record is created")
}

func TestSync_UnsetSwitchCopiesNothing(t *testing.T) {
	s, id := setup(t, &models.FinalsInfo{MusicChange: ptr(true)})
	res, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semifinals())
	require.NoError(t, err)
	assert.Empty(t, res.Sections)
	assert.Zero(t, s.updates)
	assert.Equal(t, models.LightingInfo{}, loadFinals(t, s, id).Lighting)
}

func TestSync_ReadFailure(t *testing.T) {
	s, id := setup(t, &models.FinalsInfo{LightingChange: ptr(false)})
	s.failGet = errors.New("timeout")
	_, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semifinals())
	assert.ErrorIs(t, err, store.ErrRead)
	assert.Zero(t, s.updates)
}

func TestSync_ConcurrentFinalsSaveWins(t *testing.T) {
	s, id := setup(t, &models.FinalsInfo{LightingChange: ptr(false)})
	s.beforeUpd = func() {
		// the participant saves finals between our read and write
		_, err := s.Memory.Upsert(context.Background(), id, models.StageFinals, []byte(`{"lighting_change_from_semifinals":true}`))
		require.NoError(t, err)
	}

	res, err := NewSynchronizer(s, zap.NewNop()).SyncFinalsFromSemifinals(context.Background(), id, semifinals())
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.False(t, res.Written)

	got := loadFinals(t, s, id)
	assert.Equal(t, ptr(true), got.LightingChange)
	assert.Equal(t, models.LightingInfo{}, got.Lighting)
}
