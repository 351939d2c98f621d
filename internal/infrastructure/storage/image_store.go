package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

const imageTimeLayout = "2006_01_02_15_04_05"

// FileImageStore складывает кадры с дефектами в каталог в PNG
type FileImageStore struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq int
}

// NewFileImageStore создаёт каталог, если его нет
func NewFileImageStore(dir string) (*FileImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create image dir %s", dir)
	}
	return &FileImageStore{dir: dir, now: time.Now}, nil
}

// Save пишет кадр как <YYYY_MM_DD_HH_MM_SS>_<n>.png и возвращает путь
func (s *FileImageStore) Save(ctx context.Context, frame entity.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("%s_%d.png", s.now().Format(imageTimeLayout), s.seq)
	s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := imaging.Save(frame.Image, path); err != nil {
		return "", errors.Wrapf(err, "save image %s", name)
	}
	return path, nil
}

// List пути сохранённых PNG по возрастанию имени
func (s *FileImageStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read image dir %s", s.dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Clear удаляет все сохранённые PNG
func (s *FileImageStore) Clear(ctx context.Context) error {
	paths, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", p)
		}
	}
	return nil
}

var _ port.ImageStore = (*FileImageStore)(nil)
