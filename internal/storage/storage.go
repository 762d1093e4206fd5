package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidFilename = errors.New("invalid_filename")
	ErrInvalidPath     = errors.New("invalid_path")
	ErrFileNotFound    = errors.New("file_not_found")
)

var Module = fx.Module("storage",
	fx.Provide(NewFromConfig),
)

// Store keeps uploaded files under paths derived from entity attributes. Writing the same
// path again overwrites it.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

type aferoStore struct {
	fs  afero.Fs
	log *zap.Logger
}

// NewFromConfig roots the store at UPLOAD_DIR on the OS filesystem.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Store, error) {
	root := strings.TrimSpace(cfg.Uploads.Dir)
	if root == "" {
		root = "./uploads"
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return New(afero.NewBasePathFs(osFs, root), log), nil
}

func New(fs afero.Fs, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &aferoStore{fs: fs, log: log.Named("storage")}
}

func (s *aferoStore) Save(ctx context.Context, name string, r io.Reader) error {
	clean, err := cleanPath(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return err
	}

	tmp := clean + ".part"
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, clean); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}

	s.log.Info("file stored", zap.String("path", clean), zap.Int64("bytes", written))
	return nil
}

func (s *aferoStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(clean)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *aferoStore) Remove(ctx context.Context, name string) error {
	clean, err := cleanPath(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *aferoStore) Exists(ctx context.Context, name string) (bool, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, clean)
}

// SanitizeFilename keeps the base name of an uploaded file and rejects traversal attempts.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidFilename
	}
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.Contains(base, "..") {
		return "", ErrInvalidFilename
	}
	if strings.ContainsAny(base, "/\\\x00") {
		return "", ErrInvalidFilename
	}
	return base, nil
}

// Join builds a store path from sanitized segments.
func Join(parts ...string) (string, error) {
	return cleanPath(path.Join(parts...))
}

func cleanPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "\x00") {
		return "", ErrInvalidPath
	}
	slashed := strings.ReplaceAll(name, "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := path.Clean("/" + slashed)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		return "", ErrInvalidPath
	}
	return clean, nil
}
