package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DirectorySource отдаёт изображения из каталога по порядку имён как кадры Mono8.
// Используется для прогона записанных смен без камеры.
type DirectorySource struct {
	lineID string

	mu    sync.Mutex
	files []string
	next  int
}

// NewDirectorySource читает список изображений каталога.
func NewDirectorySource(lineID, dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame directory %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	return &DirectorySource{lineID: lineID, files: files}, nil
}

// Len число кадров в каталоге
func (s *DirectorySource) Len() int { return len(s.files) }

// Next возвращает следующий кадр или io.EOF.
func (s *DirectorySource) Next(ctx context.Context) (entity.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return entity.RawFrame{}, err
	}

	s.mu.Lock()
	if s.next >= len(s.files) {
		s.mu.Unlock()
		return entity.RawFrame{}, io.EOF
	}
	path := s.files[s.next]
	s.next++
	frameID := int64(s.next)
	s.mu.Unlock()

	raw, err := ReadImageFile(path)
	if err != nil {
		return entity.RawFrame{}, err
	}
	raw.LineID = s.lineID
	raw.FrameID = frameID
	return raw, nil
}

// ReadImageFile открывает изображение и переводит его в сырой кадр Mono8.
func ReadImageFile(path string) (entity.RawFrame, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return entity.RawFrame{}, errors.Wrapf(err, "open image %s", path)
	}

	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// после Grayscale каналы R, G и B равны
			data[y*w+x] = gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}

	raw := entity.RawFrame{
		Width:       w,
		Height:      h,
		PixelFormat: entity.PixelFormatMono8,
		Data:        data,
	}
	if info, err := os.Stat(path); err == nil {
		raw.Timestamp = info.ModTime()
	}
	return raw, nil
}

var _ port.FrameSource = (*DirectorySource)(nil)
