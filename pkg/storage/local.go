package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Local stores files on the local filesystem under a single uploads
// directory. Stored names carry a timestamp and a random suffix so
// resubmissions never collide.
type Local struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewLocal creates the uploads directory if needed and returns the store.
func NewLocal(dir string, logger zerolog.Logger) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory must not be empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Local{
		dir:    dir,
		logger: logger.With().Str("component", "local_storage").Logger(),
		now:    time.Now,
	}, nil
}

// Save writes the reader to a fresh file and returns its path.
func (l *Local) Save(_ context.Context, name string, reader io.Reader) (string, error) {
	stored := fmt.Sprintf("%s_%s%s",
		l.now().UTC().Format("20060102_150405"),
		strings.Split(uuid.NewString(), "-")[0],
		sanitizeName(name),
	)
	path := filepath.Join(l.dir, stored)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create stored file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write stored file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close stored file: %w", err)
	}

	l.logger.Debug().Str("path", path).Msg("file stored")
	return path, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (l *Local) Remove(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the stored file is still present.
func (l *Local) Exists(_ context.Context, path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func sanitizeName(name string) string {
	base := filepath.Base(name)
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)

	mapped = strings.Trim(mapped, "-")
	if mapped == "" || mapped == "." {
		return "upload"
	}
	return "_" + mapped
}
