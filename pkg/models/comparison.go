package models

// CompareType is the diff verdict for one path
type CompareType string

const (
	// CompareNew indicates the path exists only in the new manifest
	CompareNew CompareType = "new"
	// CompareChanged indicates size or hash differ between manifests
	CompareChanged CompareType = "changed"
	// CompareUnchanged indicates identical size and hash
	CompareUnchanged CompareType = "unchanged"
	// CompareDeleted indicates the path exists only in the old manifest
	CompareDeleted CompareType = "deleted"
)

// CompareResult is the outcome of comparing one path between two manifests.
// New-only results carry only New; Deleted results carry only Current.
type CompareResult struct {
	Current *HashRow
	New     *HashRow
	Type    CompareType
}

// Path returns the asset path of whichever row is present
func (r CompareResult) Path() string {
	if r.New != nil {
		return r.New.Path
	}
	if r.Current != nil {
		return r.Current.Path
	}
	return ""
}
