package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotUp        = "-- +goose Up"
	annotDown      = "-- +goose Down"
	annotStmtBegin = "-- +goose StatementBegin"
	annotStmtEnd   = "-- +goose StatementEnd"
)

// ValidateDir lints every .sql file in dir and reports all problems at once:
// YYYYMMDDHHMMSS_name.sql filenames, unique versions, a single Up section
// followed by a single Down section, and properly nested statement blocks.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", name, err))
			continue
		}
		if err := lintAnnotations(body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("migration %q: %w", name, err))
		}
	}
	return errs
}

func lintAnnotations(body []byte) error {
	var (
		errs     error
		ups      int
		downs    int
		inBlock  bool
		upLine   int
		downLine int
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for n := 1; scanner.Scan(); n++ {
		switch strings.TrimSpace(scanner.Text()) {
		case annotUp:
			ups++
			upLine = n
		case annotDown:
			downs++
			downLine = n
			if inBlock {
				errs = multierr.Append(errs, fmt.Errorf("line %d: Down inside an open StatementBegin", n))
			}
		case annotStmtBegin:
			if inBlock {
				errs = multierr.Append(errs, fmt.Errorf("line %d: nested StatementBegin", n))
			}
			inBlock = true
		case annotStmtEnd:
			if !inBlock {
				errs = multierr.Append(errs, fmt.Errorf("line %d: StatementEnd without StatementBegin", n))
			}
			inBlock = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	switch {
	case ups != 1:
		errs = multierr.Append(errs, fmt.Errorf("expected one %q, found %d", annotUp, ups))
	case downs != 1:
		errs = multierr.Append(errs, fmt.Errorf("expected one %q, found %d", annotDown, downs))
	case downLine < upLine:
		errs = multierr.Append(errs, fmt.Errorf("%q must come before %q", annotUp, annotDown))
	}
	if inBlock {
		errs = multierr.Append(errs, fmt.Errorf("unterminated StatementBegin"))
	}
	return errs
}
