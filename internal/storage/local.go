package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"scoreflow/internal/failure"
)

// ErrInvalidKey reports a key that escapes the storage root or is empty.
var ErrInvalidKey = errors.New("invalid storage key")

// ErrNotFound reports a missing object.
var ErrNotFound = errors.New("storage object not found")

// Deleter removes objects. Commit cleanup only needs this much.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Object describes a stored blob.
type Object struct {
	Key    string
	Size   int64
	SHA256 string
}

// Local is a filesystem-backed blob store.
type Local struct {
	root string
}

// NewLocal returns a store rooted at dir, creating it when missing.
func NewLocal(dir string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: dir}, nil
}

// Root returns the storage directory.
func (l *Local) Root() string { return l.root }

// Path resolves key to a filesystem path inside the root.
func (l *Local) Path(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

// Put streams r into key, replacing any existing object, and returns its
// size and SHA-256 digest.
func (l *Local) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	dst, err := l.Path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, writeFailed(key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, writeFailed(key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, writeFailed(key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, writeFailed(key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, writeFailed(key, err)
	}
	clean, _ := cleanKey(key)
	return Object{Key: clean, Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// PutFile copies the file at src into key.
func (l *Local) PutFile(ctx context.Context, key, src string) (Object, error) {
	in, err := os.Open(src)
	if err != nil {
		return Object{}, failure.Wrap(failure.CodeStorageReadFailed, failure.StageStorage, "open source file", err)
	}
	defer in.Close()
	return l.Put(ctx, key, in)
}

// Open returns a reader for key. The caller closes it.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, failure.Wrap(failure.CodeStorageReadFailed, failure.StageStorage, "open "+key, err)
	}
	return f, nil
}

// Delete removes key. Missing objects are not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failure.Wrap(failure.CodeStorageError, failure.StageStorage, "delete "+key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (l *Local) Exists(key string) bool {
	p, err := l.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

func writeFailed(key string, err error) error {
	return failure.Wrap(failure.CodeStorageWriteFailed, failure.StageStorage, "write "+key, err)
}
