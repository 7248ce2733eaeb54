package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore keeps files on disk below root and serves them under urlPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Root is the directory files are stored in.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, kind, name, srcPath, contentType string) (string, error) {
	dir := filepath.Join(s.root, filepath.Base(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", kind, err)
	}
	dst := filepath.Join(dir, filepath.Base(name))

	if err := os.Rename(srcPath, dst); err != nil {
		// rename fails across filesystems
		if err := copyFile(srcPath, dst); err != nil {
			return "", err
		}
		_ = os.Remove(srcPath)
	}
	return path.Join(s.urlPrefix, filepath.Base(kind), filepath.Base(name)), nil
}

func (s *LocalStore) Remove(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok {
		return ErrForeignURL
	}
	target := filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + rel)))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create stored file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy upload: %w", err)
	}
	return out.Close()
}
