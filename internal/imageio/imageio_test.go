package imageio

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"declump/internal/models"
	"declump/internal/synth"
)

func TestSaveAndLoadMask(t *testing.T) {
	m := synth.DiskMask(40, 30, 20, 15, 9)
	for _, name := range []string{"mask.png", "mask.tif", "nested/mask.TIFF"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveMask(path, m), name)

		img, err := LoadImage(path)
		require.NoError(t, err, name)
		gray, ok := img.(*image.Gray)
		require.True(t, ok, "%s decoded as %T", name, img)
		assert.Equal(t, image.Rect(0, 0, 40, 30), gray.Bounds())
		assert.Equal(t, uint8(255), gray.GrayAt(20, 15).Y)
		assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	}
}

func TestSaveMaskRejectsUnknownFormat(t *testing.T) {
	err := SaveMask(filepath.Join(t.TempDir(), "mask.gif"), models.NewMask(4, 4))
	assert.Error(t, err)
}

func TestLoadBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, synth.FlatGray(8, 6, 90)))
	require.NoError(t, f.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
}

func TestLoadImageErrors(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))
	_, err = LoadImage(path)
	assert.Error(t, err)
}
