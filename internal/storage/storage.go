// Package storage keeps uploaded and generated files on local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

var (
	ErrTooManyFiles       = errors.New("too many files")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// RejectedTypeError names the MIME type that failed validation.
type RejectedTypeError struct {
	Filename string
	MimeType string
}

func (e *RejectedTypeError) Error() string {
	return fmt.Sprintf("Tipo no permitido. Solo PDF/JPG/PNG. Recibido: %s", e.MimeType)
}

func (e *RejectedTypeError) Unwrap() error { return ErrInvalidContentType }

// Area is a directory under the upload root, one per kind of owner.
type Area string

const (
	AreaDiagnostics   Area = "patients/diagnostics"
	AreaDocuments     Area = "patients/documents"
	AreaPrescriptions Area = "patients/prescriptions"
)

var (
	allowedTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
	}
	allowedExtension = regexp.MustCompile(`(?i)\.(pdf|jpe?g|png)$`)
	unsafeOwnerChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// sniffLimit is how many leading bytes are inspected for content detection.
const sniffLimit = 3072

// Limits bounds a single upload request.
type Limits struct {
	MaxFileSize int64
	MaxFiles    int
}

// Store writes files beneath a root directory.
type Store struct {
	root   string
	limits Limits
	logger zerolog.Logger
	now    func() time.Time
}

func NewStore(root string, limits Limits, logger zerolog.Logger) *Store {
	return &Store{
		root:   root,
		limits: limits,
		logger: logger.With().Str("component", "storage").Logger(),
		now:    time.Now,
	}
}

func (s *Store) Limits() Limits { return s.limits }

// Dir is the absolute-or-relative directory backing area.
func (s *Store) Dir(area Area) string {
	return filepath.Join(s.root, filepath.FromSlash(string(area)))
}

// EnsureDirs creates every area directory.
func (s *Store) EnsureDirs() error {
	for _, area := range []Area{AreaDiagnostics, AreaDocuments, AreaPrescriptions} {
		if err := os.MkdirAll(s.Dir(area), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", area, err)
		}
	}
	return nil
}

// Validate checks count, size, declared type and extension. Nothing is
// written to disk.
func (s *Store) Validate(files []*multipart.FileHeader) error {
	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, len(files), s.limits.MaxFiles)
	}
	for _, fh := range files {
		if s.limits.MaxFileSize > 0 && fh.Size > s.limits.MaxFileSize {
			return fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
		}
		declared := normalizeMime(fh.Header.Get("Content-Type"))
		if !allowedTypes[declared] || !allowedExtension.MatchString(fh.Filename) {
			return &RejectedTypeError{Filename: fh.Filename, MimeType: declared}
		}
	}
	return nil
}

func normalizeMime(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = raw
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mediaType
}

// StagedFile is an upload written to disk but not yet owned by a row.
type StagedFile struct {
	OriginalName string
	StoredName   string
	Path         string
	MimeType     string
	Extension    string
	Size         int64
}

// Stage validates files and writes them into area. The returned Batch must
// be committed or released by the caller.
func (s *Store) Stage(area Area, ownerID string, files []*multipart.FileHeader) (*Batch, error) {
	if err := s.Validate(files); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.Dir(area), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", area, err)
	}

	batch := &Batch{store: s}
	for _, fh := range files {
		staged, err := s.stageOne(area, ownerID, fh)
		if err != nil {
			batch.Release()
			return nil, err
		}
		batch.files = append(batch.files, staged)
	}
	return batch, nil
}

func (s *Store) stageOne(area Area, ownerID string, fh *multipart.FileHeader) (StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return StagedFile{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	contentType := ""
	for allowed := range allowedTypes {
		if detected.Is(allowed) {
			contentType = allowed
			break
		}
	}
	if contentType == "" {
		return StagedFile{}, &RejectedTypeError{Filename: fh.Filename, MimeType: detected.String()}
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := s.storedName(ownerID, ext)
	path := filepath.Join(s.Dir(area), name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create %s: %w", name, err)
	}
	size, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), src))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return StagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}

	return StagedFile{
		OriginalName: fh.Filename,
		StoredName:   name,
		Path:         path,
		MimeType:     contentType,
		Extension:    strings.TrimPrefix(ext, "."),
		Size:         size,
	}, nil
}

// storedName is document-{owner}-{unix millis}-{random}{ext}.
func (s *Store) storedName(ownerID, ext string) string {
	owner := unsafeOwnerChars.ReplaceAllString(ownerID, "")
	if owner == "" {
		owner = "unknown"
	}
	return fmt.Sprintf("document-%s-%d-%d%s", owner, s.now().UnixMilli(), rand.Int63n(1_000_000_000), ext)
}

// Save writes generated content under area, replacing any previous file.
func (s *Store) Save(area Area, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir(area), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", area, err)
	}
	path := filepath.Join(s.Dir(area), filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Remove deletes a stored file, logging rather than failing.
func (s *Store) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("could not remove stored file")
	}
}
