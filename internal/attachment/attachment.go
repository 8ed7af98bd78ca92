// Package attachment validates selected files and resolves content
// references back to the original bytes for download and preview.
package attachment

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/metrics"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/logger"
)

// BlobStorage holds the raw bytes behind content references.
type BlobStorage interface {
	Save(data io.Reader, originalFilename string) (domain.ContentRef, int64, error)
	Read(ref domain.ContentRef) (io.ReadCloser, error)
	Delete(ref domain.ContentRef) error
}

// File is a file selected by the user. Size is the declared length, or a
// negative value when unknown.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Data     io.Reader
}

// DefaultMaxDecodedSize bounds the RGBA buffer a preview may decode into,
// about 5000x5000 pixels.
const DefaultMaxDecodedSize int64 = 100 << 20

type Handler struct {
	blobs          BlobStorage
	maxSize        uint64
	previewMaxPx   int
	maxDecodedSize int64
	log            *slog.Logger
}

type Option func(*Handler)

// WithMaxDecodedSize sets the limit of width*height*4 bytes above which an
// image is not decoded for preview. Non-positive values keep the default.
func WithMaxDecodedSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxDecodedSize = n
		}
	}
}

func New(blobs BlobStorage, maxSize uint64, previewMaxPx int, opts ...Option) *Handler {
	if maxSize == 0 || maxSize > domain.MaxAttachmentSize {
		maxSize = domain.MaxAttachmentSize
	}
	h := &Handler{
		blobs:          blobs,
		maxSize:        maxSize,
		previewMaxPx:   previewMaxPx,
		maxDecodedSize: DefaultMaxDecodedSize,
		log:            logger.Component("attachment"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) MaxSize() uint64 {
	return h.maxSize
}

func (h *Handler) tooLarge(name string, size uint64) error {
	metrics.AttachmentsRejected.Inc()
	h.log.Info("attachment rejected", "name", name, "size", size, "limit", h.maxSize)
	return fmt.Errorf("%w: %s is %s, the limit is %s",
		internal_errors.ErrAttachmentTooLarge, name, FormatSize(size), FormatSize(h.maxSize))
}

// Prepare checks the size limit and stores the file's bytes unchanged. No
// attachment is created for a file above the limit, whether the declared
// size or the actual stream length exceeds it.
func (h *Handler) Prepare(f File) (*domain.Attachment, error) {
	if f.Size > 0 && uint64(f.Size) > h.maxSize {
		return nil, h.tooLarge(f.Name, uint64(f.Size))
	}
	if f.Data == nil {
		return nil, fmt.Errorf("attachment %s has no content", f.Name)
	}

	br := bufio.NewReaderSize(f.Data, 512)
	head, _ := br.Peek(512)
	mimeType := DetectMimeType(f.Name, f.MimeType, head)

	// Read one byte past the limit to tell "exactly at the limit" from "over".
	limited := io.LimitReader(br, int64(h.maxSize)+1)
	ref, n, err := h.blobs.Save(limited, f.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	if uint64(n) > h.maxSize {
		if err := h.blobs.Delete(ref); err != nil {
			h.log.Error("failed to drop oversized attachment", "ref", ref, "error", err)
		}
		return nil, h.tooLarge(f.Name, uint64(n))
	}

	name := filepath.Base(f.Name)
	if name == "." || name == string(filepath.Separator) {
		name = "file-" + uuid.NewString()[:8]
	}
	return &domain.Attachment{
		Name:      name,
		SizeBytes: uint64(n),
		MimeType:  mimeType,
		Ref:       ref,
	}, nil
}

// Discard removes the bytes of an attachment that will not be sent.
func (h *Handler) Discard(a *domain.Attachment) error {
	if a == nil {
		return nil
	}
	return h.blobs.Delete(a.Ref)
}

// DetectMimeType trusts a specific declared type, then the extension, then
// content sniffing.
func DetectMimeType(filename, declared string, head []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	if len(head) > 0 {
		return http.DetectContentType(head)
	}
	return "application/octet-stream"
}

// Download is the original content of an attachment under its original name.
type Download struct {
	Name     string
	MimeType string
	Size     uint64
	Body     io.ReadCloser
}

// ContentDisposition is the header value that makes browsers save the
// download under the original filename.
func (d *Download) ContentDisposition() string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": d.Name})
}

// Open returns the attachment's original bytes. The caller closes Body.
func (h *Handler) Open(a *domain.Attachment) (*Download, error) {
	body, err := h.blobs.Read(a.Ref)
	if err != nil {
		return nil, err
	}
	return &Download{Name: a.Name, MimeType: a.MimeType, Size: a.SizeBytes, Body: body}, nil
}

// Preview is an inline PNG rendition of an image attachment.
type Preview struct {
	Width  int // original
	Height int // original
	PNG    []byte
}

// Preview decodes an image attachment and scales it to fit the configured
// bounding box. Smaller images are re-encoded at their own size.
func (h *Handler) Preview(a *domain.Attachment) (*Preview, error) {
	if !a.IsImage() {
		return nil, fmt.Errorf("%w: %s", internal_errors.ErrNotImage, a.MimeType)
	}
	body, err := h.blobs.Read(a.Ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, int64(h.maxSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	// The header can claim any size; check it before Decode allocates.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read dimensions of %s: %v", internal_errors.ErrNotImage, a.Name, err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > h.maxDecodedSize {
		h.log.Warn("preview refused", "name", a.Name, "width", cfg.Width, "height", cfg.Height)
		return nil, fmt.Errorf("%w: %dx%d pixels would decode past %s",
			internal_errors.ErrImageTooLarge, cfg.Width, cfg.Height, FormatSize(uint64(h.maxDecodedSize)))
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode %s: %v", internal_errors.ErrNotImage, a.Name, err)
	}
	b := src.Bounds()
	w, hgt := fit(b.Dx(), b.Dy(), h.previewMaxPx)

	var out image.Image = src
	if w != b.Dx() || hgt != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, hgt))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return &Preview{Width: b.Dx(), Height: b.Dy(), PNG: buf.Bytes()}, nil
}

// fit scales w x h down into a bound x bound box, keeping the aspect ratio.
func fit(w, h, bound int) (int, int) {
	if bound <= 0 || (w <= bound && h <= bound) {
		return w, h
	}
	if w >= h {
		return bound, int(math.Max(1, math.Round(float64(h)*float64(bound)/float64(w))))
	}
	return int(math.Max(1, math.Round(float64(w)*float64(bound)/float64(h)))), bound
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with base-1024 units and at most two
// decimals, e.g. "1.5 KB".
func FormatSize(n uint64) string {
	if n == 0 {
		return "0 Bytes"
	}
	i := 0
	for unit := uint64(1024); n >= unit && i < len(sizeUnits)-1; unit *= 1024 {
		i++
	}
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
