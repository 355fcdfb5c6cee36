package imgrecon

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBundleNotExported is returned when an asset bundle has no export
// directory
var ErrBundleNotExported = errors.New("asset bundle not exported")

const meshSuffix = "-mesh"

// Texture is a named image of an asset bundle
type Texture struct {
	Name  string
	Image image.Image
}

// Loader reads the textures and meshes contained in asset bundles.
// Bundles are addressed by their slash-separated asset path.
type Loader interface {
	// Textures returns every texture of a bundle
	Textures(bundle string) ([]Texture, error)

	// Mesh returns the mesh export lines of a texture, or ErrMeshNotFound
	Mesh(bundle, name string) ([]string, error)
}

// ExportLoader reads bundles exported by an external Unity asset tool:
// each bundle is a directory holding <name>.png textures and
// <name>-mesh.obj meshes.
type ExportLoader struct {
	Root string
}

// NewExportLoader creates a loader reading exports below root
func NewExportLoader(root string) *ExportLoader {
	return &ExportLoader{Root: root}
}

func (l *ExportLoader) bundleDir(bundle string) string {
	return filepath.Join(l.Root, filepath.FromSlash(bundle))
}

// Textures decodes every PNG of the bundle directory, sorted by name
func (l *ExportLoader) Textures(bundle string) ([]Texture, error) {
	dir := l.bundleDir(bundle)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", bundle, ErrBundleNotExported)
		}
		return nil, fmt.Errorf("failed to read bundle directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	textures := make([]Texture, 0, len(names))
	for _, n := range names {
		img, err := decodePNG(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		textures = append(textures, Texture{Name: strings.TrimSuffix(n, filepath.Ext(n)), Image: img})
	}
	return textures, nil
}

// Mesh reads <bundle>/<name>-mesh.obj
func (l *ExportLoader) Mesh(bundle, name string) ([]string, error) {
	f, err := os.Open(filepath.Join(l.bundleDir(bundle), name+meshSuffix+".obj"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMeshNotFound
		}
		return nil, fmt.Errorf("failed to open mesh: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mesh: %w", err)
	}
	return lines, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
