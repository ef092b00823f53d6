package recognition

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const maxConcurrentReads = 4

// Image is one uploaded page.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// NewImage builds an Image, sniffing the MIME type when mimeType is blank.
func NewImage(name string, data []byte, mimeType string) Image {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return Image{Name: name, MIMEType: mimeType, Data: data}
}

// ReadImage loads a single image from disk. The file's base name becomes the
// image name sent to the model.
func ReadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("recognition: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("recognition: %s is empty", path)
	}
	return NewImage(filepath.Base(path), data, ""), nil
}

// LoadImages reads paths concurrently and returns the images in argument
// order. The first failure cancels the remaining reads.
func LoadImages(ctx context.Context, paths []string) ([]Image, error) {
	images := make([]Image, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := ReadImage(path)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
