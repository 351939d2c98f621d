//go:build gocv
// +build gocv

package vision

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"coil-vision/internal/domain/entity"
)

// frameToMat копирует кадр в 8-битную одноканальную матрицу.
func frameToMat(frame entity.Frame) (gocv.Mat, error) {
	if frame.Width() == 0 || frame.Height() == 0 {
		return gocv.NewMat(), errors.New("empty frame")
	}
	mat, err := gocv.NewMatFromBytes(frame.Height(), frame.Width(), gocv.MatTypeCV8U, frame.Gray8Bytes())
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "frame to mat")
	}
	return mat, nil
}
