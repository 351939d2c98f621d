package entity

import "github.com/pkg/errors"

// EdgeRaster бинарная карта границ: ненулевой байт — пиксель границы.
type EdgeRaster struct {
	Width  int
	Height int
	Pix    []uint8 // построчно, len = Width*Height
}

// NewEdgeRaster создаёт пустую карту заданного размера.
func NewEdgeRaster(width, height int) *EdgeRaster {
	return &EdgeRaster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Validate проверяет, что геометрия совпадает с данными.
func (r *EdgeRaster) Validate() error {
	if r == nil {
		return errors.New("edge raster is nil")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Errorf("edge raster has non-positive shape %dx%d", r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height {
		return errors.Errorf("edge raster shape %dx%d does not match %d pixels", r.Width, r.Height, len(r.Pix))
	}
	return nil
}

// Row возвращает строку y без копирования.
func (r *EdgeRaster) Row(y int) []uint8 {
	return r.Pix[y*r.Width : (y+1)*r.Width]
}
