// Package imaging normalises uploaded photos and renders their thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the stored original.
	MaxDimension = 1600
	JPEGQuality  = 85
	// MaxUploadBytes caps a single upload before decoding.
	MaxUploadBytes = 10 << 20
)

// Variant names a resized copy and its bounding box.
type Variant struct {
	Name   string
	MaxDim int
}

// Variants are rendered for every upload, smallest first.
var Variants = []Variant{
	{Name: "thumb", MaxDim: 200},
	{Name: "medium", MaxDim: 600},
}

var ErrUnsupported = errors.New("unsupported image format")

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Encoded is one JPEG rendition.
type Encoded struct {
	Data   []byte
	Width  int
	Height int
}

type Result struct {
	// SourceMIME is the sniffed type of the upload.
	SourceMIME string
	Original   Encoded
	Variants   map[string]Encoded
}

// DetectMIME sniffs the content type from the leading bytes.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// Process validates data by sniffing, downscales it to MaxDimension and renders
// each Variant. Every output is JPEG.
func Process(data []byte) (*Result, error) {
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)
	}
	detected := DetectMIME(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, err := decode(detected, data)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	res := &Result{SourceMIME: detected, Variants: make(map[string]Encoded, len(Variants))}
	if res.Original, err = encode(downscale(img, MaxDimension)); err != nil {
		return nil, err
	}
	for _, v := range Variants {
		enc, err := encode(downscale(img, v.MaxDim))
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", v.Name, err)
		}
		res.Variants[v.Name] = enc
	}
	return res, nil
}

func decode(mime string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mime {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	}
	return nil, ErrUnsupported
}

func encode(img image.Image) (Encoded, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Encoded{}, fmt.Errorf("encoding JPEG: %w", err)
	}
	b := img.Bounds()
	return Encoded{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// downscale keeps the aspect ratio; images already within maxDim come back untouched.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
