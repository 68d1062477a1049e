package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	mkdirAllFn  = os.MkdirAll
	writeFileFn = os.WriteFile
	removeFn    = os.Remove
)

// Service keeps message attachments on local disk and records them in
// storage_objects.
type Service struct {
	db        db.Querier
	dir       string
	publicURL string
}

func NewService(db db.Querier, dir, publicURL string) *Service {
	return &Service{db: db, dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

// Store validates size and sniffed content type, writes the file and
// returns its public URL.
func (s *Service) Store(ctx context.Context, userID string, kind Kind, data []byte) (Object, error) {
	if !kind.Valid() {
		return Object{}, apperr.Validation("type must be one of [photo voice]")
	}
	if len(data) == 0 {
		return Object{}, apperr.Validation("file is required")
	}
	if len(data) > kind.maxBytes() {
		return Object{}, apperr.Validation("file size exceeds maximum limit")
	}

	mt := mimetype.Detect(data)
	if !allowed(kind, mt) {
		if kind == KindPhoto {
			return Object{}, apperr.Validation("The file must be a valid image file.")
		}
		return Object{}, apperr.Validation("The file must be a valid audio file.")
	}

	obj := Object{ID: uuid.NewString(), Kind: kind, MIMEType: mt.String(), Size: len(data)}
	rel := filepath.ToSlash(filepath.Join(subdirs[kind], userID+"_"+obj.ID+mt.Extension()))
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := mkdirAllFn(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	if err := writeFileFn(full, data, 0o644); err != nil {
		return Object{}, err
	}
	obj.URL = s.publicURL + "/" + rel

	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind, mime_type, size_bytes, path)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, obj.ID, userID, obj.URL, string(kind), obj.MIMEType, obj.Size, rel)
	if err != nil {
		_ = removeFn(full)
		return Object{}, err
	}
	return obj, nil
}

// Delete removes a stored file by its public URL. Missing files are not an
// error.
func (s *Service) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || strings.Contains(rel, "..") {
		return apperr.Validation("file is not managed by this server")
	}
	if err := removeFn(filepath.Join(s.dir, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM storage_objects WHERE url = $1`, url)
	return err
}

func allowed(kind Kind, mt *mimetype.MIME) bool {
	for _, t := range allowedTypes[kind] {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
