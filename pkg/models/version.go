package models

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionRecord is a parsed server version string for one category
type VersionRecord struct {
	Category Category
	// Version is dotted for the main category and opaque for others
	Version string
	// Hash keys the hash listing on the CDN
	Hash string
	// Raw is the unparsed server string
	Raw string
}

// UnknownCategoryError is returned for version strings whose identifier
// does not map to a category
type UnknownCategoryError struct {
	Identifier string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown version identifier %q", e.Identifier)
}

// ParseVersionString parses a raw server version string of the form
// $<id>$<field>...$<hash>.
func ParseVersionString(raw string) (VersionRecord, error) {
	parts := strings.Split(raw, "$")
	if len(parts) < 2 || parts[0] != "" {
		return VersionRecord{}, fmt.Errorf("malformed version string %q", raw)
	}
	parts = parts[1:]

	category, ok := CategoryFromHashID(parts[0])
	if !ok {
		return VersionRecord{}, &UnknownCategoryError{Identifier: parts[0]}
	}

	if category == CategoryAZL {
		if len(parts) < 3 {
			return VersionRecord{}, fmt.Errorf("malformed version string %q", raw)
		}
		return VersionRecord{
			Category: category,
			Version:  strings.Join(parts[1:len(parts)-1], "."),
			Hash:     parts[len(parts)-1],
			Raw:      raw,
		}, nil
	}

	if len(parts) < 3 {
		return VersionRecord{}, fmt.Errorf("malformed version string %q", raw)
	}
	return VersionRecord{
		Category: category,
		Version:  parts[1],
		Hash:     parts[2],
		Raw:      raw,
	}, nil
}

// CompareVersions compares two dotted version strings component-wise.
// Numeric components compare numerically, others lexically; a version
// that is a prefix of the other is older. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareComponent(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

func compareComponent(a, b string) int {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// ParseVersionStrings parses every raw string that starts with "$".
// Strings that fail to parse are returned as errors and do not stop the
// others.
func ParseVersionStrings(raws []string) ([]VersionRecord, []error) {
	var records []VersionRecord
	var errs []error
	for _, raw := range raws {
		if !strings.HasPrefix(raw, "$") {
			continue
		}
		rec, err := ParseVersionString(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}
