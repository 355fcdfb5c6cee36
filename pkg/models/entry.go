package models

import "sort"

// HashRow is one line of a hash manifest
type HashRow struct {
	// Path is the POSIX path relative to the AssetBundles directory
	Path string

	// Size is the expected byte length
	Size uint64

	// Hash is the hex MD5 digest, also used as the CDN resource key
	Hash string
}

// Equal reports whether two rows describe identical content
func (r HashRow) Equal(o HashRow) bool {
	return r.Size == o.Size && r.Hash == o.Hash
}

// Manifest maps asset paths to their rows for one category at one version
type Manifest map[string]HashRow

// NewManifest builds a manifest from rows. A later row replaces an
// earlier one with the same path.
func NewManifest(rows []HashRow) Manifest {
	m := make(Manifest, len(rows))
	for _, r := range rows {
		m[r.Path] = r
	}
	return m
}

// Rows returns the manifest rows sorted by path
func (m Manifest) Rows() []HashRow {
	rows := make([]HashRow, 0, len(m))
	for _, r := range m {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}

// TotalSize sums the sizes of all rows
func (m Manifest) TotalSize() uint64 {
	var total uint64
	for _, r := range m {
		total += r.Size
	}
	return total
}
