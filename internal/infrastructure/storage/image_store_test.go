package storage

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"coil-vision/internal/domain/entity"
)

func testFrame(t *testing.T) entity.Frame {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 6, 4))
	img.Pix[0] = 77
	f, err := entity.NewFrame(img, 8)
	require.NoError(t, err)
	return f
}

func TestFileImageStore_SaveListClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "defects")
	store, err := NewFileImageStore(dir)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

	ctx := context.Background()
	first, err := store.Save(ctx, testFrame(t))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2024_03_05_14_07_09_1.png"), first)

	second, err := store.Save(ctx, testFrame(t).CropColumns(1, 4))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2024_03_05_14_07_09_2.png"), second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0o644))

	paths, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, paths)

	img, err := imaging.Open(first)
	require.NoError(t, err)
	require.Equal(t, 6, img.Bounds().Dx())
	r, _, _, _ := img.At(0, 0).RGBA()
	require.Equal(t, uint32(77), r>>8)

	cropped, err := imaging.Open(second)
	require.NoError(t, err)
	require.Equal(t, 3, cropped.Bounds().Dx())

	require.NoError(t, store.Clear(ctx))
	paths, err = store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, paths)

	_, err = os.Stat(filepath.Join(dir, "readme.txt"))
	require.NoError(t, err)
}
