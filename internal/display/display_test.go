package display

import (
	"context"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowWithoutDisplay(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("display is always available on this platform")
	}
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")

	assert.False(t, Available())
	err := Show(context.Background(), []byte("<html></html>"), Options{})
	assert.ErrorIs(t, err, ErrNoDisplay)
}

func TestAvailableWithDisplay(t *testing.T) {
	t.Setenv("DISPLAY", ":0")
	assert.True(t, Available())
}

func TestWritePage(t *testing.T) {
	path, cleanup, err := writePage([]byte("<p>chart</p>"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<p>chart</p>", string(data))

	cleanup()
	assert.NoFileExists(t, path)
}

func TestFileURL(t *testing.T) {
	u := fileURL("chart.html")
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/chart.html"))
}
