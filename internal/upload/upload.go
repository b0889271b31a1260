// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package upload validates and stores article featured images.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/newsdesk/internal/service"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize = 5 << 20

// URLPrefix is the public path uploads are served under.
const URLPrefix = "/uploads/"

// Thumbnail bounds. Images smaller than this are not enlarged.
const (
	ThumbWidth  = 400
	ThumbHeight = 300
)

const field = "featured_image"

var (
	allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

	allowedMIMEs = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}

	validFilename = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Store writes uploads into a directory served at URLPrefix.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates dir if needed and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// Save validates an image and stores it along with a thumbnail. It returns
// the public path of the stored original.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	if !validFilename.MatchString(filename) {
		return "", service.Validation(field, "Invalid filename: use letters, digits, dots, dashes and underscores only")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return "", service.Validation(field, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", service.Internal("reading upload", err)
	}
	if len(data) > MaxSize {
		return "", service.Validation(field, "Image must be 5 MB or smaller")
	}
	if !allowedMIMEs[http.DetectContentType(data)] {
		return "", service.Validation(field, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", service.Validation(field, "File is not a valid image")
	}

	if ext == ".jpeg" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("article-%d-%s%s", s.now().Unix(), uuid.NewString(), ext)

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", service.Internal("writing upload", err)
	}
	if err := s.writeThumbnail(name, data); err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}
	return URLPrefix + name, nil
}

func (s *Store) writeThumbnail(name string, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return service.Validation(field, "File is not a valid image")
	}
	thumb := imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(s.dir, thumbName(name)), imaging.JPEGQuality(85)); err != nil {
		return service.Internal("writing thumbnail", err)
	}
	return nil
}

// thumbName returns the thumbnail file name for a stored original. WebP has
// no encoder, so thumbnails are always JPEG.
func thumbName(name string) string {
	return "thumb_" + strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// ThumbnailURL returns the public thumbnail path for a stored upload path.
func ThumbnailURL(publicPath string) string {
	if !strings.HasPrefix(publicPath, URLPrefix) {
		return publicPath
	}
	return URLPrefix + thumbName(strings.TrimPrefix(publicPath, URLPrefix))
}

// Remove deletes a stored upload and its thumbnail. Paths outside URLPrefix
// are ignored. Missing files are not an error.
func (s *Store) Remove(publicPath string) error {
	name := strings.TrimPrefix(publicPath, URLPrefix)
	if name == publicPath || name == "" || name != filepath.Base(name) {
		return nil
	}
	var errs []error
	for _, n := range []string{name, thumbName(name)} {
		if err := os.Remove(filepath.Join(s.dir, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
