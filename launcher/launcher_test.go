package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder writes a script that stores its arguments in a file.
func recorder(t *testing.T) (cmd, out string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	out = filepath.Join(dir, "out")
	cmd = filepath.Join(dir, "rec")
	script := "#!/bin/sh\nprintf '%s\\n' \"$*\" > " + out + ".tmp && mv " + out + ".tmp " + out + "\n"
	require.NoError(t, os.WriteFile(cmd, []byte(script), 0o755))
	return cmd, out
}

func readEventually(t *testing.T, path string) string {
	t.Helper()
	var data []byte
	require.Eventually(t, func() bool {
		var err error
		data, err = os.ReadFile(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	return string(data)
}

func TestOpenPath(t *testing.T) {
	cmd, out := recorder(t)
	project := t.TempDir()

	require.NoError(t, New().OpenPath(context.Background(), cmd+" -n", project))
	assert.Equal(t, "-n "+project+"\n", readEventually(t, out))
}

func TestOpenPathMissing(t *testing.T) {
	err := New().OpenPath(context.Background(), "code", filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestOpenURL(t *testing.T) {
	cmd, out := recorder(t)

	require.NoError(t, New(WithOpener(cmd)).OpenURL(context.Background(), "https://github.com/octo/app"))
	assert.Equal(t, "https://github.com/octo/app\n", readEventually(t, out))

	assert.ErrorIs(t, New(WithOpener(cmd)).OpenURL(context.Background(), ""), ErrEmptyCommand)
}

func TestStartUnknownProgram(t *testing.T) {
	err := New(WithOpener("no-such-opener-binary")).OpenURL(context.Background(), "https://github.com")
	assert.Error(t, err)
}
