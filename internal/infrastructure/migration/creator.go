package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"
	"time"
)

var stubTemplate = template.Must(template.New("stub").Parse(`-- {{.Name}}{{if .Rollback}} (rollback){{end}}
-- Version: {{.Version}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

-- {{if .Rollback}}Undo {{.Version}} here; keep it the exact inverse of the up file{{else}}Forward SQL for {{.Version}}{{end}}
`))

// MigrationFile describes a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair named <UTC timestamp>_<name> into dir
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, errors.New("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	version := time.Now().UTC().Format("20060102150405")
	base := filepath.Join(dir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeStub(mf.UpPath, mf, false); err != nil {
		return nil, err
	}
	if err := writeStub(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeStub(path string, mf *MigrationFile, rollback bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return stubTemplate.Execute(f, struct {
		*MigrationFile
		Rollback bool
	}{mf, rollback})
}

var (
	separatorRun = regexp.MustCompile(`[\s_-]+`)
	notSlugChar  = regexp.MustCompile(`[^a-z0-9_]`)
)

// sanitizeName lowercases name and joins its words with single underscores
func sanitizeName(name string) string {
	s := separatorRun.ReplaceAllString(strings.ToLower(name), "_")
	s = notSlugChar.ReplaceAllString(s, "")
	return strings.Trim(s, "_")
}

// ListMigrations returns the base names of the up migrations in fsys in version order.
// A missing directory yields an empty list.
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && !e.IsDir() {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}

// MissingRollbacks returns the up migrations in fsys without a .down.sql partner
func MissingRollbacks(fsys fs.FS) ([]string, error) {
	ups, err := ListMigrations(fsys)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, base := range ups {
		_, err := fs.Stat(fsys, base+".down.sql")
		switch {
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, base)
		case err != nil:
			return nil, err
		}
	}
	return missing, nil
}
