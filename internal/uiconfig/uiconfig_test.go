package uiconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"botName": "Nova", "theme": {"primary": "#123456"}}`)

	s, err := Load(path, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"botName": "Nova", "theme": {"primary": "#123456"}}`, string(s.Get()))

	writeFile(t, path, `{"botName": "Nova 2"}`)
	require.NoError(t, s.Reload())
	assert.JSONEq(t, `{"botName": "Nova 2"}`, string(s.Get()))
}

func TestReloadFailureKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"botName": "Nova"}`)
	s, err := Load(path, nil)
	require.NoError(t, err)

	writeFile(t, path, `{not json`)
	assert.Error(t, s.Reload())
	assert.JSONEq(t, `{"botName": "Nova"}`, string(s.Get()))

	require.NoError(t, os.Remove(path))
	assert.Error(t, s.Reload())
	assert.JSONEq(t, `{"botName": "Nova"}`, string(s.Get()))
}

func TestLoadRejectsNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `["a", "b"]`)
	_, err := Load(path, nil)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"v": 1}`)
	s, err := Load(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	writeFile(t, path, `{"v": 2}`)
	assert.Eventually(t, func() bool {
		return string(s.Get()) == `{"v": 2}`
	}, 2*time.Second, 20*time.Millisecond)
}
