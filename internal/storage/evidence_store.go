// Package storage keeps uploaded evidence files on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// URLPrefix is where stored files are served from.
const URLPrefix = "/uploads/"

// EvidenceStore persists evidence uploads.
type EvidenceStore interface {
	Save(ctx context.Context, files []*multipart.FileHeader, uploader *primitive.ObjectID) ([]domain.Evidence, error)
	Remove(items ...domain.Evidence) error
	MaxFiles() int
}

// DiskStore writes files under a single directory.
type DiskStore struct {
	dir      string
	maxBytes int64
	maxFiles int
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// NewDiskStore prepares the upload directory.
func NewDiskStore(cfg config.UploadConfig, logger *zap.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &DiskStore{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxFileBytes(),
		maxFiles: cfg.MaxFiles,
		allowed:  allowed,
		logger:   logger,
	}, nil
}

// Dir returns the directory served under URLPrefix.
func (s *DiskStore) Dir() string { return s.dir }

// MaxFiles is the per-request file limit.
func (s *DiskStore) MaxFiles() int { return s.maxFiles }

// Save checks every file before writing any of them. A failed write removes the files already written.
func (s *DiskStore) Save(ctx context.Context, files []*multipart.FileHeader, uploader *primitive.ObjectID) ([]domain.Evidence, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > s.maxFiles {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("at most %d files may be uploaded at once", s.maxFiles),
			map[string]any{"evidence": len(files)},
		)
	}

	types := make([]string, len(files))
	for i, fh := range files {
		if fh.Size > s.maxBytes {
			return nil, apperrors.NewPayloadTooLarge(fmt.Sprintf("%s exceeds the %d byte limit", fh.Filename, s.maxBytes))
		}
		mimeType, err := detectType(fh)
		if err != nil {
			return nil, err
		}
		if _, ok := s.allowed[mimeType]; !ok {
			return nil, apperrors.NewValidationError("file type not allowed", map[string]any{
				"file": fh.Filename,
				"type": mimeType,
			})
		}
		types[i] = mimeType
	}

	saved := make([]domain.Evidence, 0, len(files))
	for i, fh := range files {
		if err := ctx.Err(); err != nil {
			_ = s.Remove(saved...)
			return nil, err
		}
		item, err := s.write(fh, types[i], uploader)
		if err != nil {
			_ = s.Remove(saved...)
			return nil, apperrors.NewInternalError(err)
		}
		saved = append(saved, item)
	}
	return saved, nil
}

func (s *DiskStore) write(fh *multipart.FileHeader, mimeType string, uploader *primitive.ObjectID) (domain.Evidence, error) {
	id := uuid.NewString()
	name := id + extFor(mimeType)

	src, err := fh.Open()
	if err != nil {
		return domain.Evidence{}, err
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return domain.Evidence{}, err
	}
	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = errors.New("file grew past the size limit while copying")
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return domain.Evidence{}, err
	}

	return domain.Evidence{
		ID:           id,
		FileName:     name,
		OriginalName: filepath.Base(fh.Filename),
		MimeType:     mimeType,
		Size:         written,
		URL:          URLPrefix + name,
		UploadedBy:   uploader,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

// Remove deletes stored files; missing files are ignored.
func (s *DiskStore) Remove(items ...domain.Evidence) error {
	var errs []error
	for _, item := range items {
		name := filepath.Base(item.FileName)
		if name == "." || name == string(filepath.Separator) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove evidence file", zap.String("file", name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// containerTypes lists declared types whose content sniffs only as a generic container.
var containerTypes = map[string]string{
	"application/msword": "application/octet-stream",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "application/zip",
}

var sniffAliases = map[string]string{
	"audio/wave": "audio/wav",
}

// detectType sniffs the content. The declared type is used only to name a
// container format the sniffer cannot tell apart from its envelope.
func detectType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperrors.NewInternalError(err)
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	sniffed = strings.ToLower(sniffed)
	if alias, ok := sniffAliases[sniffed]; ok {
		sniffed = alias
	}

	if declared, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type")); err == nil {
		declared = strings.ToLower(declared)
		if container, ok := containerTypes[declared]; ok && container == sniffed {
			return declared, nil
		}
	}
	return sniffed, nil
}

var knownExts = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"application/pdf":    ".pdf",
	"video/mp4":          ".mp4",
	"audio/mpeg":         ".mp3",
	"audio/wav":          ".wav",
	"text/plain":         ".txt",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// extFor names the stored file after its detected type, never the client's filename.
func extFor(mimeType string) string {
	if ext, ok := knownExts[mimeType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	sort.Strings(exts)
	return exts[0]
}
