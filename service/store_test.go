package service

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

func storeSession(numShots int) *ProjectSession {
	session := NewSession("测试项目", testPlan(numShots))
	for i := 0; i < numShots; i++ {
		session.Results[i] = models.GenerationResult{
			Ordinal: i,
			Status:  models.ResultStatusSuccess,
			Image:   []byte{0x89, 0x50, byte(i)},
			Score:   0.9,
		}
	}
	return session
}

func TestStoreRoundTrip(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	session := storeSession(3)
	require.NoError(t, store.SaveProject("p1", session))

	loaded, err := store.LoadProject("p1")
	require.NoError(t, err)
	assert.Equal(t, "测试项目", loaded.Name)
	assert.Equal(t, session.Plan.ProjectID, loaded.Plan.ProjectID)
	require.Len(t, loaded.Results, 3)
	for i := 0; i < 3; i++ {
		// 图片字节逐字节还原
		assert.Equal(t, session.Results[i].Image, loaded.Results[i].Image)
		assert.Equal(t, fmt.Sprintf("shot_%03d.png", i), loaded.Results[i].ImagePath)
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	require.NoError(t, store.SaveProject("p1", storeSession(4)))

	// 第二次保存只剩 2 个分镜，旧的 shot_002 / shot_003 必须被清理
	require.NoError(t, store.SaveProject("p1", storeSession(2)))

	loaded, err := store.LoadProject("p1")
	require.NoError(t, err)
	assert.Len(t, loaded.Results, 2)

	files, err := filepath.Glob(filepath.Join(store.Root, "p1", "shot_*.png"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestStoreLoadMissing(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	_, err := store.LoadProject("nope")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	dir := filepath.Join(store.Root, "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), []byte("{not json"), 0o644))

	_, err := store.LoadProject("bad")
	assert.ErrorIs(t, err, ErrCorruptProject)
}

func TestStoreListSkipsCorrupt(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	require.NoError(t, store.SaveProject("good", storeSession(2)))

	dir := filepath.Join(store.Root, "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), []byte("{not json"), 0o644))

	summaries, err := store.ListProjects()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "good", summaries[0].ProjectID)
	assert.Equal(t, 2, summaries[0].ShotCount)
}

func TestStoreListEmptyRoot(t *testing.T) {
	store := &Store{Root: filepath.Join(t.TempDir(), "does-not-exist")}
	summaries, err := store.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestStoreDelete(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	require.NoError(t, store.SaveProject("p1", storeSession(1)))
	require.NoError(t, store.DeleteProject("p1"))

	_, err := store.LoadProject("p1")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, store.DeleteProject("p1"), ErrProjectNotFound)
}

func TestRestoreSessionReference(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	session := storeSession(2)
	require.NoError(t, store.SaveProject("p1", session))

	restored, err := store.RestoreSession("p1")
	require.NoError(t, err)
	assert.Equal(t, session.Results[0].Image, restored.Reference)

	// shot 0 失败的项目还原后没有参考图
	failed := storeSession(2)
	failed.Results[0] = models.GenerationResult{Ordinal: 0, Status: models.ResultStatusFailed}
	require.NoError(t, store.SaveProject("p2", failed))
	restored, err = store.RestoreSession("p2")
	require.NoError(t, err)
	assert.Nil(t, restored.Reference)
}
