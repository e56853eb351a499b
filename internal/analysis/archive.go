package analysis

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrInvalidArchive indicates the downloaded blob could not be opened
	// as a ZIP archive.
	ErrInvalidArchive = errors.New("downloaded report is not a valid zip archive")

	// ErrNoCSVInArchive indicates the archive opened fine but held no CSV
	// entry.
	ErrNoCSVInArchive = errors.New("no csv file found in the report archive")
)

// ExtractCSV opens a compressed report blob and returns the text of the
// first entry whose name ends in ".csv" (case-insensitive). Reports are
// expected to contain exactly one tabular file; additional entries are
// ignored.
func ExtractCSV(blob []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	for _, entry := range reader.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
		}

		return string(content), nil
	}

	return "", ErrNoCSVInArchive
}
