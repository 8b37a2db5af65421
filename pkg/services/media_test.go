package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/logger"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
	"site-cms/pkg/store/memory"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newMediaService(t *testing.T) (*services.MediaService, *memory.Store, string, *int) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := services.NewFSBlobs(dir)
	require.NoError(t, err)
	st := memory.New()
	calls := 0
	svc := services.NewMediaService(st.Media(), blobs, logger.NewNop(), func(context.Context) { calls++ })
	return svc, st, dir, &calls
}

func TestMediaFilename(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, "my_photo_1700000000.png", services.MediaFilename("my photo.png", now))
	assert.Equal(t, "notes_1700000000", services.MediaFilename("/tmp/notes", now))
}

func TestMediaService_UploadImage(t *testing.T) {
	ctx := context.Background()
	svc, st, dir, calls := newMediaService(t)

	doc, err := svc.Upload(ctx, "hero shot.png", bytes.NewReader(pngBytes(t, 300, 100)), "Hero")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.Filename, "hero_shot_"))
	assert.Equal(t, "image/png", doc.MimeType)
	assert.Equal(t, 300, doc.Width)
	assert.Equal(t, 100, doc.Height)
	assert.Equal(t, services.MediaURLPrefix+doc.Filename, doc.URL)

	og, ok := doc.Sizes["og"]
	require.True(t, ok)
	assert.Equal(t, 1200, og.Width)
	assert.Equal(t, 630, og.Height)
	assert.FileExists(t, filepath.Join(dir, doc.Filename))
	assert.FileExists(t, filepath.Join(dir, og.Filename))
	assert.Equal(t, 1, *calls)

	stored, err := st.Media().FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, og.URL, stored.Sizes["og"].URL)

	rc, ct, err := svc.Open(ctx, doc.Filename)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", ct)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), doc.Filesize)
}

func TestMediaService_UploadPlainFile(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newMediaService(t)

	doc, err := svc.Upload(ctx, "notes.txt", strings.NewReader("hello"), "")
	require.NoError(t, err)
	assert.Empty(t, doc.Sizes)
	assert.Zero(t, doc.Width)

	_, err = svc.Upload(ctx, "empty.txt", strings.NewReader(""), "")
	assert.ErrorIs(t, err, services.ErrInvalidMedia)
}

func TestMediaService_UploadSameNameSameSecond(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newMediaService(t)
	svc.SetNow(func() time.Time { return time.Unix(1700000000, 0) })

	first, err := svc.Upload(ctx, "doc.txt", strings.NewReader("first"), "")
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "doc.txt", strings.NewReader("second"), "")
	require.NoError(t, err)

	assert.Equal(t, "doc_1700000000.txt", first.Filename)
	assert.Equal(t, "doc_1700000000-1.txt", second.Filename)
	n, err := st.Media().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for doc, want := range map[string]string{first.Filename: "first", second.Filename: "second"} {
		rc, _, err := svc.Open(ctx, doc)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestMediaService_RejectsOversizedCanvas(t *testing.T) {
	ctx := context.Background()
	svc, st, dir, _ := newMediaService(t)

	// A GIF header declaring a 65535x65535 screen and no image data.
	header := []byte("GIF89a\xff\xff\xff\xff\x00\x00\x00")
	_, err := svc.Upload(ctx, "huge.gif", bytes.NewReader(header), "")
	assert.ErrorIs(t, err, services.ErrInvalidMedia)

	n, err := st.Media().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMediaService_ImportReplaces(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newMediaService(t)

	first, err := svc.Import(ctx, "logo.png", pngBytes(t, 10, 10), "Logo")
	require.NoError(t, err)
	second, err := svc.Import(ctx, "logo.png", pngBytes(t, 20, 20), "Logo v2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	n, err := st.Media().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 20, second.Width)
}

func TestMediaService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, st, dir, _ := newMediaService(t)

	doc, err := svc.Upload(ctx, "a.png", bytes.NewReader(pngBytes(t, 40, 40)), "")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, doc.ID)
	require.NoError(t, err)

	_, err = st.Media().FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, statErr := os.Stat(filepath.Join(dir, doc.Filename))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, doc.Sizes["og"].Filename))
	assert.True(t, os.IsNotExist(statErr))

	_, _, err = svc.Open(ctx, doc.Filename)
	assert.ErrorIs(t, err, services.ErrBlobNotFound)
}

func TestMediaService_OpenRejectsTraversal(t *testing.T) {
	svc, _, _, _ := newMediaService(t)
	_, _, err := svc.Open(context.Background(), "../secret")
	assert.ErrorIs(t, err, services.ErrBlobNotFound)
}

func TestCoverCrop(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	out := services.CoverCrop(src, 1200, 630)
	assert.Equal(t, image.Rect(0, 0, 1200, 630), out.Bounds())
}
