package demstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aresmaps/mars_relief/internal/dem"
)

type FilesystemStore struct {
	dir string
}

var _ Store = (*FilesystemStore)(nil)

func NewFilesystemStore(dir string) *FilesystemStore {
	return &FilesystemStore{dir: dir}
}

func (s *FilesystemStore) Fetch(_ context.Context, key dem.Key) ([]byte, bool, error) {
	content, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return content, true, nil
}

func (s *FilesystemStore) Put(_ context.Context, key dem.Key, data []byte) error {
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *FilesystemStore) Close() error {
	return nil
}

func (s *FilesystemStore) pathFor(k dem.Key) string {
	// "v1/10.0000,...@1.0000" -> dir/v1/10.0000,...@1.0000.dem
	name := strings.ReplaceAll(k.String(), "/", string(filepath.Separator))
	return filepath.Join(s.dir, name+".dem")
}
