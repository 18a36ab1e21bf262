package audiostore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "audio"), "/audio/")
	require.NoError(t, err)

	loc, err := s.Save(context.Background(), "tts/abc.wav", strings.NewReader("RIFF"), "audio/wav")
	require.NoError(t, err)
	require.Equal(t, "/audio/tts/abc.wav", loc)

	b, err := os.ReadFile(filepath.Join(dir, "audio", "tts", "abc.wav"))
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(b))

	entries, err := os.ReadDir(filepath.Join(dir, "audio", "tts"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, s.Delete(context.Background(), "tts/abc.wav"))
	_, err = os.Stat(filepath.Join(dir, "audio", "tts", "abc.wav"))
	require.True(t, os.IsNotExist(err))
	require.NoError(t, s.Delete(context.Background(), "tts/abc.wav"), "missing object is not an error")
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/audio")
	require.NoError(t, err)
	for _, k := range []string{"", "/etc/passwd", "../x.wav", "a/../../x.wav", ".."} {
		_, err := s.Save(context.Background(), k, strings.NewReader("x"), "")
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", k)
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/audio")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "a.wav", strings.NewReader("x"), "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanKey(t *testing.T) {
	k, err := cleanKey(`tts\\x.wav`)
	require.NoError(t, err)
	require.Equal(t, "tts/x.wav", k)
	k, err = cleanKey("a/./b//c.mp3")
	require.NoError(t, err)
	require.Equal(t, "a/b/c.mp3", k)
}
