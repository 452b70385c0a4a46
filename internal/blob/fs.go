package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStore maps keys to relative file paths under a root
// directory. A sidecar (filename + ".meta") stores the content type.
// Not concurrent-writer safe beyond per-file creation.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore returns a filesystem-backed blob store rooted at
// path, creating it if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &FilesystemStore{root: root}, nil
}

// Driver reports DriverFilesystem.
func (s *FilesystemStore) Driver() Driver { return DriverFilesystem }

type sidecar struct {
	ContentType string `json:"content_type,omitempty"`
}

// sanitizeKey forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key traversal")
	}
	return clean, nil
}

func (s *FilesystemStore) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

// Put streams the payload into the file behind key, replacing any prior
// payload.
func (s *FilesystemStore) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Info{}, err
	}
	f, err := os.Create(path) // #nosec G304 -- path is sanitized against traversal above
	if err != nil {
		return Info{}, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Info{}, err
	}
	meta, err := json.Marshal(sidecar{ContentType: opts.ContentType})
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(path+".meta", meta, 0o600); err != nil {
		return Info{}, err
	}
	return s.infoFor(key, size, opts.ContentType), nil
}

// Get opens the payload behind key.
func (s *FilesystemStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(path) // #nosec G304 -- path is sanitized against traversal above
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, ErrNotExist
	}
	if err != nil {
		return Info{}, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Info{}, nil, err
	}
	var meta sidecar
	if raw, err := os.ReadFile(path + ".meta"); err == nil { // #nosec G304 -- derived from sanitized path
		_ = json.Unmarshal(raw, &meta)
	}
	return s.infoFor(key, stat.Size(), meta.ContentType), f, nil
}

// Delete removes the payload and sidecar behind key.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	_ = os.Remove(path + ".meta")
	return nil
}

// List walks the root and returns info for every payload whose key
// starts with prefix, sorted by key.
func (s *FilesystemStore) List(_ context.Context, prefix string) ([]Info, error) {
	var out []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, ".meta") {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		stat, err := d.Info()
		if err != nil {
			return err
		}
		var meta sidecar
		if raw, err := os.ReadFile(path + ".meta"); err == nil { // #nosec G304 -- path comes from the walk
			_ = json.Unmarshal(raw, &meta)
		}
		out = append(out, s.infoFor(key, stat.Size(), meta.ContentType))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FilesystemStore) infoFor(key string, size int64, contentType string) Info {
	abs, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(s.root, filepath.FromSlash(key))
	}
	return Info{Key: key, Size: size, ContentType: contentType, URI: "file://" + filepath.ToSlash(abs)}
}
