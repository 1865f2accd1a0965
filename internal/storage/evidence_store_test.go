package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/integrity-watch/report-service/internal/config"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

type part struct {
	name        string
	contentType string
	body        []byte
}

func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="evidence"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["evidence"]
}

func newStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(config.UploadConfig{
		Dir:          t.TempDir(),
		MaxFileMB:    1,
		MaxFiles:     2,
		AllowedTypes: []string{"image/png", "application/pdf", "text/plain"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func TestSaveWritesFilesAndRemoveDeletesThem(t *testing.T) {
	store := newStore(t)
	uploader := primitive.NewObjectID()

	items, err := store.Save(context.Background(), fileHeaders(t,
		part{name: "receipt.pdf", contentType: "application/pdf", body: []byte("%PDF-1.4 receipt")},
		part{name: "notes.TXT", body: []byte("plain words")},
	), &uploader)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "receipt.pdf", items[0].OriginalName)
	assert.Equal(t, "application/pdf", items[0].MimeType)
	assert.True(t, strings.HasPrefix(items[0].URL, URLPrefix))
	assert.True(t, strings.HasSuffix(items[0].FileName, ".pdf"))
	assert.Equal(t, &uploader, items[0].UploadedBy)
	assert.Equal(t, "text/plain", items[1].MimeType)
	assert.Equal(t, int64(len("plain words")), items[1].Size)

	for _, item := range items {
		_, err := os.Stat(filepath.Join(store.Dir(), item.FileName))
		require.NoError(t, err)
	}

	require.NoError(t, store.Remove(items...))
	for _, item := range items {
		_, err := os.Stat(filepath.Join(store.Dir(), item.FileName))
		assert.True(t, os.IsNotExist(err))
	}
	assert.NoError(t, store.Remove(items...))
}

func TestSaveRejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name   string
		parts  []part
		status int
	}{
		{
			name: "too many files",
			parts: []part{
				{name: "a.txt", body: []byte("a")},
				{name: "b.txt", body: []byte("b")},
				{name: "c.txt", body: []byte("c")},
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "disallowed type",
			parts:  []part{{name: "run.bin", contentType: "application/pdf", body: []byte("\x7fELF\x02\x01\x01")}},
			status: http.StatusBadRequest,
		},
		{
			name:   "too large",
			parts:  []part{{name: "big.txt", body: bytes.Repeat([]byte("x"), (1<<20)+1)}},
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			_, err := store.Save(context.Background(), fileHeaders(t, tt.parts...), nil)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperrors.ToDomainError(err).HTTPStatus)

			entries, err := os.ReadDir(store.Dir())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSaveIgnoresDeclaredTypeAndFilename(t *testing.T) {
	store := newStore(t)

	_, err := store.Save(context.Background(), fileHeaders(t,
		part{name: "evil.html", contentType: "image/png", body: []byte("<html><script>alert(1)</script></html>")},
	), nil)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, "text/html", domainErr.Details["type"])

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	items, err := store.Save(context.Background(), fileHeaders(t,
		part{name: "scan.html", contentType: "text/html", body: []byte("%PDF-1.7 scanned statement")},
	), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "application/pdf", items[0].MimeType)
	assert.Equal(t, ".pdf", filepath.Ext(items[0].FileName))
	assert.Equal(t, "scan.html", items[0].OriginalName)
}

func TestDetectTypeAcceptsDeclaredContainerOnlyWhenContentMatches(t *testing.T) {
	const docx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	zipBody := []byte("PK\x03\x04\x14\x00\x06\x00word/document.xml")

	tests := []struct {
		name string
		part part
		want string
	}{
		{name: "docx container", part: part{name: "a.docx", contentType: docx, body: zipBody}, want: docx},
		{name: "docx claim on text", part: part{name: "a.docx", contentType: docx, body: []byte("hello")}, want: "text/plain"},
		{name: "wave alias", part: part{name: "a.wav", body: []byte("RIFF\x24\x00\x00\x00WAVEfmt ")}, want: "audio/wav"},
		{name: "declared type ignored", part: part{name: "a.png", contentType: "image/png", body: []byte("plain words")}, want: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectType(fileHeaders(t, tt.part)[0])
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtFor(t *testing.T) {
	assert.Equal(t, ".png", extFor("image/png"))
	assert.Equal(t, ".jpg", extFor("image/jpeg"))
	assert.Equal(t, ".docx", extFor("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.Equal(t, "", extFor("application/x-unknown-evidence"))
}
