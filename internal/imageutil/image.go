package imageutil

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"scantocookbook/internal/fileutil"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/services"
)

const (
	// DefaultQuality is the JPEG quality used for every re-encode.
	DefaultQuality = 85
	// DefaultMaxDimension bounds both width and height after a resize.
	DefaultMaxDimension = 2048
)

// SupportedExtensions lists the file extensions accepted as images.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// lowerQualities are tried in order when a resize at the configured quality
// comes out larger than its source.
var lowerQualities = []int{70, 55, 40}

var errNoEncoder = errors.New("no encoder for image format")

// Option customizes a Validator.
type Option func(*Validator)

// WithQuality overrides the JPEG quality.
func WithQuality(q int) Option {
	return func(v *Validator) {
		if q > 0 && q <= 100 {
			v.quality = q
		}
	}
}

// WithMaxDimension overrides the bounding box edge length.
func WithMaxDimension(px int) Option {
	return func(v *Validator) {
		if px > 0 {
			v.maxDimension = px
		}
	}
}

// Validator checks and normalizes image files on local disk.
type Validator struct {
	logger       *slog.Logger
	quality      int
	maxDimension int

	// rewrite replaces path with a resized copy of itself.
	rewrite func(path string) error
}

// NewValidator builds a Validator with default quality and bounding box.
func NewValidator(logger *slog.Logger, opts ...Option) *Validator {
	v := &Validator{
		logger:       logging.NewComponentLogger(logger, "imageutil"),
		quality:      DefaultQuality,
		maxDimension: DefaultMaxDimension,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.rewrite = v.rewriteInPlace
	return v
}

// HasSupportedExtension reports whether name carries an accepted image extension.
func HasSupportedExtension(name string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}

// IsValidImage reports whether path exists, has a supported extension, and
// decodes cleanly. Decode failures are logged and reported as invalid.
func (v *Validator) IsValidImage(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if !HasSupportedExtension(path) {
		return false
	}
	if err := decodeCheck(path); err != nil {
		v.logger.Error("invalid image file",
			logging.String(logging.FieldImage, path),
			logging.String(logging.FieldEventType, "image_invalid"),
			logging.Error(err),
		)
		return false
	}
	return true
}

func decodeCheck(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, _, err := image.Decode(f); err != nil {
		return fmt.Errorf("decode pixels: %w", err)
	}
	return nil
}

// FileSize returns the size of path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Dimensions returns the pixel width and height of the image at path.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ResizeIfNeeded returns path unchanged when the file is at most maxBytes.
// Larger files are scaled into the bounding box and written next to the
// original as <base>_resized<ext>; the new path is returned. The new file is
// never larger than the original: when no re-encode shrinks it, the original
// bytes are copied instead.
func (v *Validator) ResizeIfNeeded(path string, maxBytes int64) (string, error) {
	size, err := FileSize(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "resize", "stat", path, err)
	}
	if size <= maxBytes {
		return path, nil
	}

	v.logger.Info("resizing image",
		logging.String(logging.FieldImage, path),
		logging.Int64("size_bytes", size),
		logging.Int64("max_bytes", maxBytes),
	)

	img, err := decodeFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "resize", "decode", path, err)
	}
	srcExt := filepath.Ext(path)
	ext := strings.ToLower(srcExt)
	fitted := v.fit(img)
	if ext == ".webp" {
		ext = ".jpg"
		fitted = flattenOnWhite(fitted)
	}
	base := strings.TrimSuffix(path, srcExt) + "_resized"
	out := base + ext
	newSize, err := v.encodeNoLarger(out, ext, fitted, size)
	if err != nil {
		_ = os.Remove(out)
		return "", services.Wrap(services.ErrValidation, "resize", "encode", out, err)
	}
	if newSize > size {
		// Re-encoding cannot beat the source; ship its bytes unchanged.
		_ = os.Remove(out)
		out = base + srcExt
		if err := fileutil.CopyFile(path, out); err != nil {
			_ = os.Remove(out)
			return "", services.Wrap(services.ErrValidation, "resize", "copy original", out, err)
		}
		v.logger.Info("re-encode did not shrink image, kept original bytes",
			logging.String(logging.FieldImage, out),
			logging.Int64("size_bytes", size),
		)
		return out, nil
	}

	v.logger.Info("resized image saved",
		logging.String(logging.FieldImage, out),
		logging.Int64("size_bytes", newSize),
	)
	return out, nil
}

// encodeNoLarger writes img to out and returns the resulting size. JPEG
// output steps down through lowerQualities until it is at most limit bytes.
func (v *Validator) encodeNoLarger(out, ext string, img image.Image, limit int64) (int64, error) {
	qualities := []int{v.quality}
	if ext == ".jpg" || ext == ".jpeg" {
		for _, q := range lowerQualities {
			if q < v.quality {
				qualities = append(qualities, q)
			}
		}
	}
	var size int64
	for _, q := range qualities {
		if err := v.encodeFile(out, ext, img, q); err != nil {
			return 0, err
		}
		n, err := FileSize(out)
		if err != nil {
			return 0, err
		}
		size = n
		if size <= limit {
			break
		}
	}
	return size, nil
}

// ResizeInPlace scales path into the bounding box and overwrites it. A backup
// is taken first; on any failure the original bytes are restored. No backup
// file remains afterwards.
func (v *Validator) ResizeInPlace(path string) error {
	backup, err := fileutil.Backup(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "resize", "backup", path, err)
	}
	if err := v.rewrite(path); err != nil {
		if restoreErr := fileutil.Restore(backup, path); restoreErr != nil {
			v.logger.Error("failed to restore image from backup",
				logging.String(logging.FieldImage, path),
				logging.String("backup", backup),
				logging.String(logging.FieldEventType, "image_restore_failed"),
				logging.Error(restoreErr),
			)
			return errors.Join(
				services.Wrap(services.ErrValidation, "resize", "in place", path, err),
				restoreErr,
			)
		}
		return services.Wrap(services.ErrValidation, "resize", "in place", path, err)
	}
	if _, err := fileutil.RemoveIfExists(backup); err != nil {
		v.logger.Warn("failed to remove image backup",
			logging.String("backup", backup),
			logging.Error(err),
		)
	}
	v.logger.Info("image resized in place", logging.String(logging.FieldImage, path))
	return nil
}

func (v *Validator) rewriteInPlace(path string) error {
	img, err := decodeFile(path)
	if err != nil {
		return err
	}
	return v.encodeFile(path, strings.ToLower(filepath.Ext(path)), v.fit(img), v.quality)
}

// flattenOnWhite composites img over an opaque white background. JPEG has no
// alpha channel, so transparent regions would otherwise turn black.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

// fit scales img down to the bounding box, preserving aspect ratio.
func (v *Validator) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= v.maxDimension && h <= v.maxDimension {
		return img
	}
	ratio := math.Min(float64(v.maxDimension)/float64(w), float64(v.maxDimension)/float64(h))
	nw := max(1, int(math.Round(float64(w)*ratio)))
	nh := max(1, int(math.Round(float64(h)*ratio)))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// encodeFile writes img to path through a temp sibling so a failed encode
// never truncates an existing file.
func (v *Validator) encodeFile(path, ext string, img image.Image, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, ext, img, quality); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func encode(w io.Writer, ext string, img image.Image, quality int) error {
	switch ext {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %s", errNoEncoder, ext)
	}
}
