// AngelaMos | 2026
// avatars.go

package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/carterperez-dev/usergate/internal/core"
)

const (
	FieldName      = "avatar"
	DefaultMaxSize = 5 * 1024 * 1024
	sniffLen       = 3072
)

var (
	ErrFileTooLarge = core.ValidationError(
		"File size too large. Maximum size is 5MB.",
	)
	ErrTooManyFiles = core.ValidationError(
		"Too many files. Only one file is allowed.",
	)
	ErrUnexpectedField = core.ValidationError(
		`Unexpected field name. Use "avatar" as the field name.`,
	)
	ErrUnsupportedType = core.ValidationError(
		"Invalid file type. Only JPEG, PNG, GIF, and WebP images are allowed.",
	)
)

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Storage holds uploaded objects under slash-separated relative paths.
type Storage interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

type Avatars struct {
	storage Storage
	dir     string
	maxSize int64
	logger  *slog.Logger
	now     func() time.Time
}

func NewAvatars(
	storage Storage,
	dir string,
	maxSize int64,
	logger *slog.Logger,
) *Avatars {
	if maxSize <= 0 || maxSize > DefaultMaxSize {
		maxSize = DefaultMaxSize
	}

	return &Avatars{
		storage: storage,
		dir:     dir,
		maxSize: maxSize,
		logger:  logger,
		now:     time.Now,
	}
}

func (a *Avatars) MaxSize() int64 {
	return a.maxSize
}

// Save sniffs the content type from the head of r, streams the file into
// storage under a server-generated name and returns its relative path.
// Nothing is left behind in storage when Save fails.
func (a *Avatars) Save(ctx context.Context, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	head = head[:n]

	if int64(n) > a.maxSize {
		return "", ErrFileTooLarge
	}

	mtype := mimetype.Detect(head)
	if !isAllowed(mtype) {
		return "", ErrUnsupportedType
	}

	name := a.objectName(mtype.Extension())
	body := &maxReader{
		r:         io.MultiReader(bytes.NewReader(head), r),
		remaining: a.maxSize,
	}

	if err := a.storage.Put(ctx, name, mtype.String(), body); err != nil {
		a.remove(ctx, name)
		if errors.Is(err, ErrFileTooLarge) || body.exceeded {
			return "", ErrFileTooLarge
		}
		return "", fmt.Errorf("store avatar: %w", err)
	}

	return name, nil
}

func (a *Avatars) Exists(ctx context.Context, name string) (bool, error) {
	return a.storage.Exists(ctx, name)
}

// Remove deletes a stored avatar. Failures are logged rather than returned
// because callers only remove files while already handling another error.
func (a *Avatars) Remove(ctx context.Context, name string) {
	a.remove(ctx, name)
}

func (a *Avatars) remove(ctx context.Context, name string) {
	if err := a.storage.Delete(ctx, name); err != nil {
		a.logger.Warn("failed to delete avatar", "path", name, "error", err)
	}
}

func (a *Avatars) objectName(ext string) string {
	//nolint:gosec // G404: file name uniqueness, not a secret
	suffix := rand.IntN(1_000_000_000)
	file := fmt.Sprintf("avatar-%d-%d%s", a.now().UnixMilli(), suffix, ext)
	return path.Join(a.dir, file)
}

func isAllowed(mtype *mimetype.MIME) bool {
	for _, allowed := range allowedTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}

// maxReader fails once more than remaining bytes have been read.
type maxReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (m *maxReader) Read(p []byte) (int, error) {
	if m.exceeded {
		return 0, ErrFileTooLarge
	}

	if int64(len(p)) > m.remaining+1 {
		p = p[:m.remaining+1]
	}

	n, err := m.r.Read(p)
	m.remaining -= int64(n)
	if m.remaining < 0 {
		m.exceeded = true
		return n, ErrFileTooLarge
	}

	return n, err
}
