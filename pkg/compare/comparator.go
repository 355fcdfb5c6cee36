package compare

import (
	"sort"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Hashes compares an old manifest against a new one. Every path of either
// manifest appears exactly once in the result. Rows are compared by size
// and hash only.
func Hashes(old, new models.Manifest) map[string]models.CompareResult {
	results := make(map[string]models.CompareResult, len(new)+len(old))

	for path, row := range new {
		row := row
		results[path] = models.CompareResult{New: &row, Type: models.CompareNew}
	}

	for path, row := range old {
		row := row
		res, ok := results[path]
		switch {
		case !ok:
			results[path] = models.CompareResult{Current: &row, Type: models.CompareDeleted}
		case res.New.Equal(row):
			res.Current = &row
			res.Type = models.CompareUnchanged
			results[path] = res
		default:
			res.Current = &row
			res.Type = models.CompareChanged
			results[path] = res
		}
	}

	return results
}

// SortedPaths returns the keys of a comparison in lexical order
func SortedPaths(results map[string]models.CompareResult) []string {
	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Summary counts a comparison by classification
type Summary struct {
	New       int
	Changed   int
	Unchanged int
	Deleted   int
}

// Pending is the number of entries that require work
func (s Summary) Pending() int {
	return s.New + s.Changed + s.Deleted
}

// Summarize counts the entries of a comparison per classification
func Summarize(results map[string]models.CompareResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Type {
		case models.CompareNew:
			s.New++
		case models.CompareChanged:
			s.Changed++
		case models.CompareUnchanged:
			s.Unchanged++
		case models.CompareDeleted:
			s.Deleted++
		}
	}
	return s
}
