// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: semantic-scholar-api-key, openalex-email, crossref-mailto.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secrets holds the credentials the metadata providers accept.
type Secrets struct {
	SemanticScholarAPIKey string
	OpenAlexEmail         string
	CrossrefMailto        string
}

// Load reads all files in dir and returns the typed secrets. A missing
// directory or missing files are not errors; Load returns zero values.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (Secrets, error) {
	values, err := loadDir(dir)
	if err != nil {
		return Secrets{}, err
	}
	return Secrets{
		SemanticScholarAPIKey: values["semantic-scholar-api-key"],
		OpenAlexEmail:         values["openalex-email"],
		CrossrefMailto:        values["crossref-mailto"],
	}, nil
}

func loadDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	values := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			values[name] = value
		}
	}

	return values, nil
}
