// Package image loads source images and writes extracted textures.
package image

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// JPEGQuality is used when saving .jpg/.jpeg files.
const JPEGQuality = 95

var (
	// ErrLoad wraps failures to open or decode an image.
	ErrLoad = errors.New("cannot load image")

	// ErrSave wraps failures to encode or write an image.
	ErrSave = errors.New("cannot save image")
)

// Source is a decoded image ready for extraction.
type Source struct {
	Path   string      // File path
	Format string      // Decoder name: png, jpeg, tiff or bmp
	Image  *image.RGBA // 8-bit RGBA pixels anchored at the origin
	DPI    float64     // From TIFF resolution tags, 0 if unknown
}

// Width returns the image width in pixels.
func (s *Source) Width() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (s *Source) Height() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Name returns the file's base name.
func (s *Source) Name() string {
	return filepath.Base(s.Path)
}

// Load decodes the image at path into RGBA.
func Load(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer file.Close()

	img, format, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrLoad, filepath.Base(path), err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrLoad, filepath.Base(path))
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	src := &Source{Path: path, Format: format, Image: rgba}
	if format == "tiff" {
		if dpi, err := tiffDPI(path); err == nil {
			src.DPI = dpi
		}
	}
	return src, nil
}

// Save encodes img with the codec implied by path's extension.
func Save(path string, img image.Image) (err error) {
	if img == nil {
		return fmt.Errorf("%w: nothing to save", ErrSave)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupportedFormat(path) {
		return fmt.Errorf("%w: unsupported extension %q", ErrSave, ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrSave, cerr)
		}
	}()

	w := bufio.NewWriter(file)
	switch ext {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case ".bmp":
		err = bmp.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrSave, filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

// SupportedFormats returns the extensions Load and Save understand.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// tiffDPI reads the XResolution/YResolution tags of the first IFD.
func tiffDPI(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(file, header); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a TIFF file")
	}

	if _, err := file.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}
	var count uint16
	if err := binary.Read(file, order, &count); err != nil {
		return 0, err
	}

	entries := make([]byte, 12*int(count))
	if _, err := io.ReadFull(file, entries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(2) // inches
	for i := 0; i < int(count); i++ {
		e := entries[i*12 : i*12+12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		switch {
		case tag == 282 && typ == 5:
			xRes = rational(file, int64(order.Uint32(e[8:12])), order)
		case tag == 283 && typ == 5:
			yRes = rational(file, int64(order.Uint32(e[8:12])), order)
		case tag == 296 && typ == 3:
			unit = order.Uint16(e[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags")
	}
	if unit == 3 {
		dpi *= 2.54
	}
	return dpi, nil
}

func rational(r io.ReaderAt, offset int64, order binary.ByteOrder) float64 {
	buf := make([]byte, 8)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0
	}
	num, den := order.Uint32(buf[0:4]), order.Uint32(buf[4:8])
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
