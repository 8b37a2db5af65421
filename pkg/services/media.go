package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

const (
	// MediaURLPrefix is where uploaded files are served from.
	MediaURLPrefix = "/api/media/file/"
	// MaxUploadSize bounds a single upload.
	MaxUploadSize = 10 << 20

	// MaxImagePixels bounds the canvas an uploaded image may declare.
	MaxImagePixels = 50_000_000

	ogWidth  = 1200
	ogHeight = 630
)

// MediaFilename derives the stored name of an upload: spaces become
// underscores and the upload time is appended, e.g. "my_photo_1700000000.png".
func MediaFilename(original string, now time.Time) string {
	filename := filepath.Base(original)
	filename = strings.ReplaceAll(filename, " ", "_")

	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%d%s", name, now.Unix(), ext)
}

func contentType(name string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

// MediaService stores uploads in a BlobStore and records them in the media
// collection.
type MediaService struct {
	mu         sync.Mutex
	media      store.Collection[models.Media]
	blobs      BlobStore
	log        logger.Logger
	now        func() time.Time
	revalidate func(ctx context.Context)
}

func NewMediaService(media store.Collection[models.Media], blobs BlobStore, log logger.Logger, onChange func(ctx context.Context)) *MediaService {
	if log == nil {
		log = logger.NewNop()
	}
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &MediaService{media: media, blobs: blobs, log: log, now: time.Now, revalidate: onChange}
}

// Upload stores a new file under a fresh name.
func (m *MediaService) Upload(ctx context.Context, original string, r io.Reader, alt string) (*models.Media, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes: %w", MaxUploadSize, ErrInvalidMedia)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	name, err := m.freeName(ctx, MediaFilename(original, m.now()))
	if err != nil {
		return nil, err
	}
	return m.save(ctx, nil, name, data, alt)
}

// freeName returns name, or name with a "-N" suffix before the extension
// when a media document already uses it.
func (m *MediaService) freeName(ctx context.Context, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		_, err := m.media.FindOne(ctx, store.Where{"filename": candidate})
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

// Import stores a file under its own name, replacing the media document that
// already uses that name.
func (m *MediaService) Import(ctx context.Context, name string, data []byte, alt string) (*models.Media, error) {
	name = strings.ReplaceAll(filepath.Base(name), " ", "_")

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, err := m.media.FindOne(ctx, store.Where{"filename": name})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return m.save(ctx, existing, name, data, alt)
}

func (m *MediaService) save(ctx context.Context, existing *models.Media, name string, data []byte, alt string) (*models.Media, error) {
	if len(data) == 0 || name == "" || SafeJoin("/", "", name) == "" {
		return nil, ErrInvalidMedia
	}

	doc := &models.Media{}
	if existing != nil {
		doc = existing
	}
	doc.Alt = alt
	doc.Filename = name
	doc.MimeType = contentType(name, data)
	doc.Filesize = int64(len(data))
	doc.URL = MediaURLPrefix + name
	doc.Width, doc.Height = 0, 0
	doc.Sizes = nil

	if strings.HasPrefix(doc.MimeType, "image/") {
		if err := checkImageSize(data); err != nil {
			return nil, err
		}
	}

	if err := m.blobs.Put(ctx, name, data, doc.MimeType); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}

	if strings.HasPrefix(doc.MimeType, "image/") {
		m.addImageSizes(ctx, doc, data)
	}

	var err error
	if existing != nil {
		err = m.media.Update(ctx, doc)
	} else {
		err = m.media.Create(ctx, doc)
	}
	if err != nil {
		// A replaced document still points at name, so only fresh files go.
		if existing == nil {
			_ = m.removeFiles(ctx, doc)
		}
		return nil, err
	}
	m.revalidate(ctx)
	return doc, nil
}

// checkImageSize reads only the image header. Data that is not a known
// image format passes and is stored as a plain file.
func checkImageSize(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return fmt.Errorf("image is %dx%d: %w", cfg.Width, cfg.Height, ErrInvalidMedia)
	}
	return nil
}

// addImageSizes records dimensions and renders the og crop. Images that fail
// to decode are stored as plain files.
func (m *MediaService) addImageSizes(ctx context.Context, doc *models.Media, data []byte) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		m.log.Debug("media is not a decodable image", logger.String("filename", doc.Filename), logger.Error(err))
		return
	}
	bounds := src.Bounds()
	doc.Width, doc.Height = bounds.Dx(), bounds.Dy()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, CoverCrop(src, ogWidth, ogHeight), &jpeg.Options{Quality: 85}); err != nil {
		m.log.Warn("encode og image failed", logger.String("filename", doc.Filename), logger.Error(err))
		return
	}
	ext := filepath.Ext(doc.Filename)
	ogName := fmt.Sprintf("%s-%dx%d.jpg", strings.TrimSuffix(doc.Filename, ext), ogWidth, ogHeight)
	if err := m.blobs.Put(ctx, ogName, buf.Bytes(), "image/jpeg"); err != nil {
		m.log.Warn("store og image failed", logger.String("filename", ogName), logger.Error(err))
		return
	}
	doc.Sizes = map[string]models.MediaSize{
		"og": {
			URL:      MediaURLPrefix + ogName,
			Width:    ogWidth,
			Height:   ogHeight,
			MimeType: "image/jpeg",
			Filesize: int64(buf.Len()),
			Filename: ogName,
		},
	}
}

// CoverCrop scales src to cover w x h and crops the overflow evenly.
func CoverCrop(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	var crop image.Rectangle
	if sw*h > sh*w {
		cw := sh * w / h
		x0 := b.Min.X + (sw-cw)/2
		crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	} else {
		ch := sw * h / w
		y0 := b.Min.Y + (sh-ch)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// Open streams a stored file. The content type is derived from its name.
func (m *MediaService) Open(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	if SafeJoin("/", "", filename) == "" {
		return nil, "", ErrBlobNotFound
	}
	rc, err := m.blobs.Open(ctx, filename)
	if err != nil {
		return nil, "", err
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return rc, ct, nil
}

// Delete removes the media document and its files.
func (m *MediaService) Delete(ctx context.Context, id string) (*models.Media, error) {
	doc, err := m.media.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.media.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := m.removeFiles(ctx, doc); err != nil {
		m.log.Warn("remove media files failed", logger.String("id", id), logger.Error(err))
	}
	m.revalidate(ctx)
	return doc, nil
}

func (m *MediaService) removeFiles(ctx context.Context, doc *models.Media) error {
	var errs []error
	if err := m.blobs.Delete(ctx, doc.Filename); err != nil && !errors.Is(err, ErrBlobNotFound) {
		errs = append(errs, err)
	}
	for _, size := range doc.Sizes {
		if err := m.blobs.Delete(ctx, size.Filename); err != nil && !errors.Is(err, ErrBlobNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
