// Package measure находит края рулона на карте границ, переводит пиксели в миллиметры
// и стабилизирует окно обрезки между кадрами.
package measure

import "github.com/pkg/errors"

var (
	// ErrInsufficientEdgePoints для регрессии нужно минимум две точки края.
	ErrInsufficientEdgePoints = errors.New("insufficient edge points")
	// ErrMalformedRaster карта границ не соответствует своей геометрии.
	ErrMalformedRaster = errors.New("malformed edge raster")
	// ErrInvalidParameter параметр вне допустимого диапазона.
	ErrInvalidParameter = errors.New("invalid parameter")
)
