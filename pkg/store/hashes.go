package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// ParseError reports a malformed hash manifest line
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errFieldCount = errors.New("expected 3 comma separated fields")

// ParseHashes reads hash manifest lines of the form path,size,md5.
// Empty lines are skipped; rows keep their file order.
func ParseHashes(r io.Reader) ([]models.HashRow, error) {
	var rows []models.HashRow

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, &ParseError{Line: lineNo, Text: line, Err: errFieldCount}
		}

		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}

		rows = append(rows, models.HashRow{Path: fields[0], Size: size, Hash: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hashes: %w", err)
	}

	return rows, nil
}

// FormatHashes renders rows as manifest lines, each terminated by a newline
func FormatHashes(rows []models.HashRow) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		buf.WriteString(row.Path)
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatUint(row.Size, 10))
		buf.WriteByte(',')
		buf.WriteString(row.Hash)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// LoadHashes returns the stored manifest rows of a category in file
// order. A missing file yields no rows.
func (s *Store) LoadHashes(category models.Category) ([]models.HashRow, error) {
	f, err := os.Open(filepath.Join(s.dir, category.HashesFilename()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open hash file: %w", err)
	}
	defer f.Close()

	rows, err := ParseHashes(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", category.HashesFilename(), err)
	}
	return rows, nil
}

// LoadManifest returns the stored manifest of a category
func (s *Store) LoadManifest(category models.Category) (models.Manifest, error) {
	rows, err := s.LoadHashes(category)
	if err != nil {
		return nil, err
	}
	return models.NewManifest(rows), nil
}

// SaveHashes replaces the stored manifest of a category
func (s *Store) SaveHashes(category models.Category, rows []models.HashRow) error {
	if err := writeFileAtomic(filepath.Join(s.dir, category.HashesFilename()), FormatHashes(rows)); err != nil {
		return fmt.Errorf("failed to write hash file: %w", err)
	}
	return nil
}
