package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxPhotoSize int64 = 2 << 20

var (
	ErrFileTooLarge     = errors.New("file size exceeds 2MB")
	ErrUnsupportedImage = errors.New("only jpeg and png images are allowed")
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// LocalDisk stores uploaded photos under Root and serves them from
// BaseURL + "/storage/". Stored paths are relative to Root.
type LocalDisk struct {
	Root    string
	BaseURL string
}

// SavePhoto validates and writes an image into dir, returning its relative path.
func (d LocalDisk) SavePhoto(r io.Reader, dir string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxPhotoSize {
		return "", ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	ext := ""
	for mime, e := range photoExtensions {
		if mt.Is(mime) {
			ext = e
			break
		}
	}
	if ext == "" {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, mt.String())
	}

	dir = strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
	if err := os.MkdirAll(filepath.Join(d.Root, dir), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	rel := path.Join(dir, uuid.NewString()+ext)
	if err := os.WriteFile(filepath.Join(d.Root, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return rel, nil
}

// Delete removes a stored file. Missing files are not an error.
func (d LocalDisk) Delete(rel string) error {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("refusing to delete %q outside storage root", rel)
	}
	if err := os.Remove(filepath.Join(d.Root, clean)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d LocalDisk) URL(rel string) string {
	if strings.TrimSpace(rel) == "" {
		return ""
	}
	return strings.TrimRight(d.BaseURL, "/") + "/storage/" + rel
}
