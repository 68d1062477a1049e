package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"backend-optikick/internal/apperr"

	"github.com/pashagolub/pgxmock/v3"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)
	errSave  = errors.New("save error")
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestStorePhoto(t *testing.T) {
	mock := newMock(t)
	dir := t.TempDir()
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "photo", "image/png", len(pngBytes), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock, dir, "/storage/")
	obj, err := svc.Store(context.Background(), "user-1", KindPhoto, pngBytes)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.HasPrefix(obj.URL, "/storage/messages/photos/user-1_") || !strings.HasSuffix(obj.URL, ".png") {
		t.Fatalf("unexpected url %s", obj.URL)
	}

	rel := strings.TrimPrefix(obj.URL, "/storage/")
	written, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil || !bytes.Equal(written, pngBytes) {
		t.Fatalf("file not written: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreVoice(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "voice", pgxmock.AnyArg(), len(wavBytes), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	obj, err := NewService(mock, t.TempDir(), "/storage").Store(context.Background(), "user-1", KindVoice, wavBytes)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.Contains(obj.URL, "/messages/voice/") {
		t.Fatalf("unexpected url %s", obj.URL)
	}
}

func TestStoreRejects(t *testing.T) {
	svc := NewService(nil, t.TempDir(), "/storage")
	cases := []struct {
		name string
		kind Kind
		data []byte
	}{
		{"unknown kind", Kind("video"), pngBytes},
		{"empty", KindPhoto, nil},
		{"text as photo", KindPhoto, []byte("just some plain text, not an image")},
		{"image as voice", KindVoice, pngBytes},
		{"oversized photo", KindPhoto, append(append([]byte{}, pngBytes...), make([]byte, maxPhotoBytes)...)},
		{"oversized voice", KindVoice, append(append([]byte{}, wavBytes...), make([]byte, maxVoiceBytes)...)},
	}
	for _, tc := range cases {
		if _, err := svc.Store(context.Background(), "user-1", tc.kind, tc.data); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestStoreDBErrorRemovesFile(t *testing.T) {
	mock := newMock(t)
	dir := t.TempDir()
	mock.ExpectExec(`INSERT INTO storage_objects`).WillReturnError(errSave)

	_, err := NewService(mock, dir, "/storage").Store(context.Background(), "user-1", KindPhoto, pngBytes)
	if !errors.Is(err, errSave) {
		t.Fatalf("expected save error, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "messages", "photos"))
	if len(entries) != 0 {
		t.Fatalf("expected file cleanup, found %d files", len(entries))
	}
}

func TestStoreWriteError(t *testing.T) {
	old := writeFileFn
	writeFileFn = func(string, []byte, os.FileMode) error { return errSave }
	defer func() { writeFileFn = old }()

	_, err := NewService(nil, t.TempDir(), "/storage").Store(context.Background(), "user-1", KindPhoto, pngBytes)
	if !errors.Is(err, errSave) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	mock := newMock(t)
	dir := t.TempDir()
	mock.ExpectExec(`INSERT INTO storage_objects`).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock, dir, "/storage")
	obj, err := svc.Store(context.Background(), "user-1", KindPhoto, pngBytes)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	mock.ExpectExec(`DELETE FROM storage_objects`).
		WithArgs(obj.URL).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := svc.Delete(context.Background(), obj.URL); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(obj.URL, "/storage/"))); !os.IsNotExist(err) {
		t.Fatalf("expected file removed")
	}

	if err := svc.Delete(context.Background(), "https://elsewhere/x.png"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for foreign url, got %v", err)
	}
	if err := svc.Delete(context.Background(), "/storage/../etc/passwd"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for traversal, got %v", err)
	}
}
