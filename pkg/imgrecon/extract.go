package imgrecon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// skippedTexture is the name of the shared UI sprite atlas contained in
// many bundles
const skippedTexture = "UISprite"

// Extractor writes the textures of asset bundles as PNG files, restoring
// painting textures from their meshes
type Extractor struct {
	loader Loader
	target string
	logger logging.Logger
}

// NewExtractor creates an extractor writing below target
func NewExtractor(loader Loader, target string, logger logging.Logger) *Extractor {
	return &Extractor{
		loader: loader,
		target: target,
		logger: logging.OrNull(logger),
	}
}

// Extract writes the textures of bundle. A single texture is written next
// to where the bundle would be, as <name>.png; several textures go into a
// directory named after the bundle. It returns the written file or
// directory, or "" when the bundle has no textures.
func (x *Extractor) Extract(ctx context.Context, bundle string) (string, error) {
	textures, err := x.loader.Textures(bundle)
	if err != nil {
		return "", err
	}

	isPainting := strings.SplitN(bundle, "/", 2)[0] == "painting"
	var kept []Texture
	for _, t := range textures {
		if t.Name == skippedTexture {
			continue
		}
		if isPainting {
			restored, err := Restore(x.loader, t.Image, bundle, t.Name)
			if err != nil {
				return "", fmt.Errorf("failed to restore %s: %w", t.Name, err)
			}
			t.Image = restored
		}
		kept = append(kept, t)
	}

	parent := filepath.Join(x.target, filepath.FromSlash(path.Dir(bundle)))
	switch len(kept) {
	case 0:
		return "", nil
	case 1:
		written, err := x.save(ctx, kept[0].Image, filepath.Join(parent, kept[0].Name+".png"))
		if err != nil {
			return "", err
		}
		return written, nil
	}

	dir := filepath.Join(parent, path.Base(bundle))
	for _, t := range kept {
		if _, err := x.save(ctx, t.Image, filepath.Join(dir, t.Name+".png")); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// AfterDownload extracts freshly downloaded painting bundles
func (x *Extractor) AfterDownload(ctx context.Context, category models.Category, bundle string) error {
	if category != models.CategoryPainting {
		return nil
	}
	written, err := x.Extract(ctx, bundle)
	if err != nil {
		return err
	}
	x.logger.Debug(ctx, "Extracted painting", logging.Fields{"bundle": bundle, "target": written})
	return nil
}

// save encodes img to target. An existing file is never overwritten: the
// stem gets an underscore appended until the name is free.
func (x *Extractor) save(ctx context.Context, img image.Image, target string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	for {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			x.logger.Warn(ctx, "Extract target already exists", logging.Fields{"path": target})
			ext := filepath.Ext(target)
			target = strings.TrimSuffix(target, ext) + "_" + ext
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}

		if err := png.Encode(f, img); err != nil {
			f.Close()
			os.Remove(target)
			return "", fmt.Errorf("failed to encode %s: %w", filepath.Base(target), err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close image file: %w", err)
		}
		return target, nil
	}
}
