package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Pattern matches: {version}_{description}.sql with a numeric version.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSSource reads the migration set from a filesystem, typically the embedded
// migrations directory or an on-disk override.
type FSSource struct {
	fsys fs.FS
	root string
}

// NewFSSource creates a Source over fsys rooted at root ("." for the whole
// filesystem).
func NewFSSource(fsys fs.FS, root string) *FSSource {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	return &FSSource{fsys: fsys, root: root}
}

// NewDirSource creates a Source over a directory on disk.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir), ".")
}

// Migrations returns all migration files sorted by ascending version.
func (s *FSSource) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, s.root)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string) // version -> filename for duplicate detection

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		m, err := s.parseFile(entry.Name())
		if err != nil {
			return nil, err
		}

		if existing, ok := seen[m.Version]; ok {
			return nil, NewMigrationError(m.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %d found in both %s and %s",
					ErrDuplicateVersion, m.Version, existing, entry.Name()))
		}
		seen[m.Version] = entry.Name()

		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseFile validates the file name, reads the content and builds the
// Migration value.
func (s *FSSource) parseFile(name string) (Migration, error) {
	matches := migrationFilePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return Migration{}, NewMigrationError(0, name, "validate filename",
			fmt.Errorf("%w: filename %q does not match '{version}_{description}.sql'",
				ErrInvalidMigrationFile, name))
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil || version <= 0 {
		return Migration{}, NewMigrationError(0, name, "validate filename",
			fmt.Errorf("%w: version %q is not a positive number", ErrInvalidVersion, matches[1]))
	}

	path := name
	if s.root != "." {
		path = s.root + "/" + name
	}
	content, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return Migration{}, NewMigrationError(version, name, "read file", err)
	}

	sqlContent := string(content)
	if strings.TrimSpace(sqlContent) == "" {
		return Migration{}, NewMigrationError(version, name, "validate content",
			fmt.Errorf("%w: migration file is empty", ErrInvalidMigrationFile))
	}

	description := descriptionFromContent(sqlContent)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Name:        name,
		Description: description,
		SQL:         sqlContent,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}, nil
}

// descriptionFromContent extracts a "-- Description: ..." line from the
// leading comment block, if present.
func descriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
	}
	return ""
}
