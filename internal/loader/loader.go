// Package loader reads user and course datasets from local file paths
// (populated by internal/storage.Download into a temp file) using an
// embedded DuckDB connection: Parquet first, falling back to DuckDB's CSV
// reader when the Parquet read fails, then validating required columns and
// coercing list-valued columns (tags, purchased/created course IDs) from
// DuckDB's native list type into Go slices.
package loader

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/lxp-recflow/engine/internal/recommend"
)

// requiredUserColumns and requiredCourseColumns are validated against the
// columns DuckDB reports for the loaded file before any row is read.
var (
	requiredUserColumns   = []string{"user_id", "interest_tags", "level"}
	requiredCourseColumns = []string{"course_id", "tags", "level"}
)

// minLevel and maxLevel bound the valid level range; anything outside it
// is a malformed-input error rather than a silently-accepted value.
const (
	minLevel = 0
	maxLevel = 3
)

func validateLevel(entity string, id string, level int) error {
	if level < minLevel || level > maxLevel {
		return recommend.InputError(fmt.Sprintf(
			"%s %q has level %d outside valid range [%d,%d]", entity, id, level, minLevel, maxLevel))
	}
	return nil
}

// Loader reads datasets through a single, short-lived in-memory DuckDB
// connection per call.
type Loader struct{}

func New() *Loader { return &Loader{} }

// LoadUsers reads the user dataset at path (Parquet, or CSV on fallback)
// into recommend.User values.
func (l *Loader) LoadUsers(ctx context.Context, path string) ([]recommend.User, error) {
	db, err := openDuckDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	view, err := createView(ctx, db, path)
	if err != nil {
		return nil, err
	}
	if err := validateColumns(ctx, db, view, requiredUserColumns); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT user_id, interest_tags, level,
		        coalesce(purchased_course_ids, []), coalesce(created_course_ids, [])
		 FROM %s`, view))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []recommend.User
	for rows.Next() {
		var u recommend.User
		var tags, purchased, created []any
		if err := rows.Scan(&u.ID, &tags, &u.Level, &purchased, &created); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		if err := validateLevel("user", u.ID, u.Level); err != nil {
			return nil, err
		}
		u.InterestTags = toIntSlice(tags)
		u.PurchasedCourseIDs = toStringSlice(purchased)
		u.CreatedCourseIDs = toStringSlice(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

// LoadCourses reads the course catalog at path (Parquet, or CSV on
// fallback) into recommend.Course values.
func (l *Loader) LoadCourses(ctx context.Context, path string) ([]recommend.Course, error) {
	db, err := openDuckDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	view, err := createView(ctx, db, path)
	if err != nil {
		return nil, err
	}
	if err := validateColumns(ctx, db, view, requiredCourseColumns); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT course_id, tags, level FROM %s`, view))
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []recommend.Course
	for rows.Next() {
		var c recommend.Course
		var tags []any
		if err := rows.Scan(&c.ID, &tags, &c.Level); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		if err := validateLevel("course", c.ID, c.Level); err != nil {
			return nil, err
		}
		c.Tags = toIntSlice(tags)
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func openDuckDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

// createView registers path as a view named "dataset", trying Parquet
// first and falling back to the CSV reader on failure.
func createView(ctx context.Context, db *sql.DB, path string) (string, error) {
	const view = "dataset"
	_, parquetErr := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIEW %s AS SELECT * FROM read_parquet(?)`, view), path)
	if parquetErr == nil {
		return view, nil
	}

	_, csvErr := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIEW %s AS SELECT * FROM read_csv(?, AUTO_DETECT=true)`, view), path)
	if csvErr != nil {
		return "", recommend.InputError(fmt.Sprintf(
			"could not read %s as Parquet (%v) or CSV (%v)", path, parquetErr, csvErr))
	}
	return view, nil
}

func validateColumns(ctx context.Context, db *sql.DB, view string, required []string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("DESCRIBE %s", view))
	if err != nil {
		return fmt.Errorf("describe %s: %w", view, err)
	}
	defer rows.Close()

	present := make(map[string]struct{})
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan describe row: %w", err)
		}
		if name, ok := (*dest[0].(*any)).(string); ok {
			present[name] = struct{}{}
		}
	}

	for _, col := range required {
		if _, ok := present[col]; !ok {
			return recommend.InputError(fmt.Sprintf("missing required column %q", col))
		}
	}
	return nil
}

func toIntSlice(vals []any) []int {
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		switch n := v.(type) {
		case int32:
			out = append(out, int(n))
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		}
	}
	return out
}

func toStringSlice(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
