package imgrecon

import (
	"errors"
	"image"
	"path"
	"strings"
)

const texSuffix = "_tex"

// Restore reconstructs a painting texture from its mesh. The mesh is
// looked up in bundle first and then once in the sibling bundle that
// differs by the "_tex" suffix. Without a mesh img is returned unchanged.
func Restore(loader Loader, img image.Image, bundle, name string) (image.Image, error) {
	current := bundle
	retried := false
	for {
		lines, err := loader.Mesh(current, name)
		if err == nil {
			mesh, err := ParseMesh(lines)
			if err != nil {
				return nil, err
			}
			return Reconstruct(img, mesh), nil
		}
		if !errors.Is(err, ErrMeshNotFound) && !errors.Is(err, ErrBundleNotExported) {
			return nil, err
		}
		if retried {
			return img, nil
		}
		current = siblingBundle(current)
		retried = true
	}
}

// siblingBundle toggles the "_tex" suffix of the bundle's base name
func siblingBundle(bundle string) string {
	dir, base := path.Split(bundle)
	if strings.HasSuffix(base, texSuffix) {
		return dir + strings.TrimSuffix(base, texSuffix)
	}
	return dir + base + texSuffix
}
