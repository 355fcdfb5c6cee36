// Package archive imports asset bundles shipped inside game packages
// (.obb expansion files, .apk and .xapk bundles).
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Kind identifies the container format of a package file
type Kind string

const (
	// KindOBB is an Android expansion file
	KindOBB Kind = "obb"
	// KindAPK is an application package with embedded assets
	KindAPK Kind = "apk"
	// KindXAPK bundles an apk with one or more expansion files
	KindXAPK Kind = "xapk"
)

// ErrUnknownClient is returned when the client of a package cannot be
// determined
var ErrUnknownClient = errors.New("could not determine client")

// Archive is one zip holding an assets/ tree. Expansion files nested in
// an xapk are only read into memory by Open.
type Archive struct {
	Name string

	open func() (*zip.Reader, error)
}

// Open returns a reader for the archive. A nested expansion is buffered
// again on every call; it is released once the reader is dropped.
func (a Archive) Open() (*zip.Reader, error) {
	return a.open()
}

func openedArchive(name string, zr *zip.Reader) Archive {
	return Archive{Name: name, open: func() (*zip.Reader, error) { return zr, nil }}
}

// Package is an opened package file and the asset archives inside it
type Package struct {
	Path     string
	Kind     Kind
	Client   models.Client
	Archives []Archive

	closer io.Closer
}

// Close releases the package file
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Open opens a package file and determines its client. fallback is used
// for obb files whose name carries no known package name and for apk
// files, which default to the CN client.
func Open(path string, fallback models.Client) (*Package, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}

	kind := Kind(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	switch kind {
	case KindOBB, KindAPK, KindXAPK:
	default:
		return nil, fmt.Errorf("unknown file extension %q", filepath.Ext(path))
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package: %w", err)
	}
	pkg := &Package{Path: path, Kind: kind, closer: rc}

	switch kind {
	case KindOBB:
		err = pkg.detectOBB(fallback, &rc.Reader)
	case KindAPK:
		pkg.Client = fallback
		if pkg.Client == "" {
			pkg.Client = models.ClientCN
		}
		pkg.Archives = []Archive{openedArchive(filepath.Base(path), &rc.Reader)}
	case KindXAPK:
		err = pkg.openXAPK(&rc.Reader)
	}
	if err != nil {
		rc.Close()
		return nil, err
	}
	return pkg, nil
}

func (p *Package) detectOBB(fallback models.Client, zr *zip.Reader) error {
	name := filepath.Base(p.Path)
	p.Archives = []Archive{openedArchive(name, zr)}
	for _, c := range models.AllClients {
		if pn := c.PackageName(); pn != "" && strings.Contains(name, pn+".obb") {
			p.Client = c
			return nil
		}
	}
	if fallback != "" {
		p.Client = fallback
		return nil
	}
	return fmt.Errorf("%w from file name %q", ErrUnknownClient, name)
}

// xapkManifest is the manifest.json of an xapk bundle
type xapkManifest struct {
	PackageName string `json:"package_name"`
	Expansions  []struct {
		File            string `json:"file"`
		InstallLocation string `json:"install_location"`
	} `json:"expansions"`
}

func (p *Package) openXAPK(zr *zip.Reader) error {
	data, err := readEntry(zr, "manifest.json")
	if err != nil {
		return err
	}
	var manifest xapkManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest.json: %w", err)
	}

	client, ok := models.ClientFromPackageName(manifest.PackageName)
	if !ok {
		return fmt.Errorf("%w from package name %q", ErrUnknownClient, manifest.PackageName)
	}
	p.Client = client

	for _, exp := range manifest.Expansions {
		if _, err := fs.Stat(zr, exp.File); err != nil {
			return fmt.Errorf("failed to open %s: %w", exp.File, err)
		}
		p.Archives = append(p.Archives, Archive{Name: exp.File, open: expansionOpener(zr, exp.File)})
	}
	return nil
}

// expansionOpener buffers a nested obb. zip.NewReader needs random
// access, which a compressed entry does not offer.
func expansionOpener(zr *zip.Reader, name string) func() (*zip.Reader, error) {
	return func() (*zip.Reader, error) {
		obb, err := readEntry(zr, name)
		if err != nil {
			return nil, err
		}
		inner, err := zip.NewReader(bytes.NewReader(obb), int64(len(obb)))
		if err != nil {
			return nil, fmt.Errorf("failed to read expansion %s: %w", name, err)
		}
		return inner, nil
	}
}

// readEntry returns the content of a zip entry
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
