package models

import (
	"fmt"
	"strings"
)

// Category is an independently versioned stream of asset bundles
type Category string

const (
	// CategoryAZL holds the main asset bundles
	CategoryAZL Category = "azl"
	// CategoryCV holds voice lines and cinematics
	CategoryCV Category = "cv"
	// CategoryL2D holds Live2D models
	CategoryL2D Category = "l2d"
	// CategoryPIC holds pictures
	CategoryPIC Category = "pic"
	// CategoryBGM holds background music
	CategoryBGM Category = "bgm"
	// CategoryCipher holds encrypted resources
	CategoryCipher Category = "cipher"
	// CategoryManga holds manga pages
	CategoryManga Category = "manga"
	// CategoryPainting holds painting textures and meshes
	CategoryPainting Category = "painting"
)

type categoryInfo struct {
	hashID string
	suffix string
}

// categoryTable is the static lookup table for every category.
var categoryTable = map[Category]categoryInfo{
	CategoryAZL:      {hashID: "azhash", suffix: ""},
	CategoryCV:       {hashID: "cvhash", suffix: "-cv"},
	CategoryL2D:      {hashID: "l2dhash", suffix: "-live2d"},
	CategoryPIC:      {hashID: "pichash", suffix: "-pic"},
	CategoryBGM:      {hashID: "bgmhash", suffix: "-bgm"},
	CategoryCipher:   {hashID: "cipherhash", suffix: "-cipher"},
	CategoryManga:    {hashID: "mangahash", suffix: "-manga"},
	CategoryPainting: {hashID: "paintinghash", suffix: "-painting"},
}

// AllCategories lists categories in processing order
var AllCategories = []Category{
	CategoryAZL,
	CategoryCV,
	CategoryL2D,
	CategoryPIC,
	CategoryBGM,
	CategoryCipher,
	CategoryManga,
	CategoryPainting,
}

// HashID returns the identifier used in raw server version strings
func (c Category) HashID() string {
	return categoryTable[c].hashID
}

// Suffix returns the filename suffix of the category's version and hash files
func (c Category) Suffix() string {
	return categoryTable[c].suffix
}

// VersionFilename returns e.g. "version-cv.txt"
func (c Category) VersionFilename() string {
	return "version" + c.Suffix() + ".txt"
}

// HashesFilename returns e.g. "hashes-cv.csv"
func (c Category) HashesFilename() string {
	return "hashes" + c.Suffix() + ".csv"
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// ParseCategory parses a category name case-insensitively
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// CategoryFromHashID maps a version string identifier to its category
func CategoryFromHashID(id string) (Category, bool) {
	for c, info := range categoryTable {
		if info.hashID == id {
			return c, true
		}
	}
	return "", false
}
