package sync

import (
	"fmt"
	"strings"
)

// FilterMode selects how a folder list is applied
type FilterMode string

const (
	// FilterBlacklist excludes the listed folders
	FilterBlacklist FilterMode = "blacklist"
	// FilterWhitelist includes only the listed folders
	FilterWhitelist FilterMode = "whitelist"
)

// FolderFilter matches asset paths by their top-level folder
type FolderFilter struct {
	Mode    FilterMode
	Folders []string
}

// NewFolderFilter validates mode and returns a filter
func NewFolderFilter(mode string, folders []string) (*FolderFilter, error) {
	switch FilterMode(mode) {
	case FilterBlacklist, FilterWhitelist:
	case "":
		mode = string(FilterBlacklist)
	default:
		return nil, fmt.Errorf("unknown filter mode %q", mode)
	}
	return &FolderFilter{Mode: FilterMode(mode), Folders: folders}, nil
}

// Allow reports whether path passes the filter. A nil filter allows
// everything.
func (f *FolderFilter) Allow(path string) bool {
	if f == nil {
		return true
	}

	top := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		top = path[:i]
	}

	listed := false
	for _, folder := range f.Folders {
		if strings.Trim(folder, "/") == top {
			listed = true
			break
		}
	}

	if f.Mode == FilterWhitelist {
		return listed
	}
	return !listed
}
