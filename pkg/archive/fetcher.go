package archive

import (
	"archive/zip"
	"context"
	"path"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

const bundlePrefix = "assets/AssetBundles/"

// ZipFetcher serves asset content from the AssetBundles directory of an
// archive. Safe for concurrent use.
type ZipFetcher struct {
	zr *zip.Reader
}

// NewZipFetcher creates a fetcher reading from zr
func NewZipFetcher(zr *zip.Reader) *ZipFetcher {
	return &ZipFetcher{zr: zr}
}

// EntryName maps an asset path to its archive entry. Bundles without an
// extension are stored with a ".ys" suffix.
func EntryName(assetPath string) string {
	if strings.Contains(path.Base(assetPath), ".") {
		return bundlePrefix + assetPath
	}
	return bundlePrefix + assetPath + ".ys"
}

// Fetch reads the archive entry of row.Path
func (f *ZipFetcher) Fetch(ctx context.Context, row models.HashRow) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readEntry(f.zr, EntryName(row.Path))
}
