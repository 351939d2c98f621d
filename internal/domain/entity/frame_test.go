package entity

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFrame_RejectsColorImage(t *testing.T) {
	_, err := NewFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)), 8)
	require.ErrorIs(t, err, ErrMalformedFrame)

	_, err = NewFrame(image.NewGray(image.Rect(0, 0, 2, 2)), 12)
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestFrame_CropColumnsClampsAndSharesPixels(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 4))
	for x := 0; x < 10; x++ {
		img.SetGray(x, 1, color.Gray{Y: uint8(x)})
	}
	f, err := NewFrame(img, 8)
	require.NoError(t, err)

	c := f.CropColumns(3, 7)
	require.Equal(t, 4, c.Width())
	require.Equal(t, 4, c.Height())
	require.Equal(t, []byte{3, 4, 5, 6}, c.Gray8Bytes()[4:8])

	c = f.CropColumns(-5, 50)
	require.Equal(t, 10, c.Width())

	c = f.CropColumns(8, 2)
	require.Equal(t, 0, c.Width())

	nested := f.CropColumns(2, 9).CropColumns(1, 3)
	require.Equal(t, []byte{3, 4}, nested.Gray8Bytes()[2:4])
}

func TestFrame_Gray8BytesFrom12Bit(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 4095})
	img.SetGray16(1, 0, color.Gray16{Y: 16})
	f, err := NewFrame(img, 12)
	require.NoError(t, err)

	require.Equal(t, []byte{255, 1}, f.Gray8Bytes())
}
