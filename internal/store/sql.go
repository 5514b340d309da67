package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name       string
	dollarArgs bool // $1, $2 instead of ?
}

var (
	sqliteDialect   = dialect{name: DriverSQLite}
	postgresDialect = dialect{name: DriverPostgres, dollarArgs: true}
)

// rebind rewrites ? placeholders for dialects that use numbered arguments.
func (d dialect) rebind(q string) string {
	if !d.dollarArgs {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS problems (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	question TEXT NOT NULL,
	mode TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS cells (
	id TEXT PRIMARY KEY,
	problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
	row_no INTEGER NOT NULL,
	col_no INTEGER NOT NULL,
	mode TEXT NOT NULL,
	cause TEXT NOT NULL DEFAULT '',
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	is_root BOOLEAN NOT NULL DEFAULT FALSE,
	feedback TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	UNIQUE (problem_id, row_no, col_no)
);
CREATE INDEX IF NOT EXISTS idx_cells_problem_col ON cells(problem_id, col_no, row_no);
`

// SQL is a Store over database/sql.
type SQL struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

var _ Store = (*SQL)(nil)

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if path == "" {
		path = "data/maams.db"
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps SQLite writes serialized
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return newSQL(ctx, db, sqliteDialect)
}

// OpenPostgres connects through pgx's database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	if dsn == "" {
		dsn = "postgres://localhost/maams?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQL(ctx, db, postgresDialect)
}

func newSQL(ctx context.Context, db *sql.DB, d dialect) (*SQL, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logging.Store("opened %s store", d.name)
	return &SQL{db: db, dialect: d, now: time.Now}, nil
}

func (s *SQL) exec(ctx context.Context, q string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(q), args...)
}

func (s *SQL) query(ctx context.Context, q string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
}

func (s *SQL) queryRow(ctx context.Context, q string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(q), args...)
}

// =============================================================================
// PROBLEMS
// =============================================================================

const problemColumns = `id, title, question, mode, tags, created_at`

func (s *SQL) CreateProblem(ctx context.Context, p types.Problem) (types.Problem, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Mode == "" {
		p.Mode = types.ModePribadi
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return types.Problem{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO problems (id, title, question, mode, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Question, string(p.Mode), string(tags), p.CreatedAt.UnixMicro())
	if err != nil {
		return types.Problem{}, fmt.Errorf("insert problem: %w", err)
	}
	return p, nil
}

func (s *SQL) GetProblem(ctx context.Context, id string) (types.Problem, error) {
	row := s.queryRow(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = ?`, id)
	p, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Problem{}, types.ErrNotFound{Entity: "problem", ID: id}
	}
	if err != nil {
		return types.Problem{}, fmt.Errorf("get problem: %w", err)
	}
	return p, nil
}

func (s *SQL) ListProblems(ctx context.Context) ([]types.Problem, error) {
	rows, err := s.query(ctx, `SELECT `+problemColumns+` FROM problems ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var out []types.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQL) DeleteProblem(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM cells WHERE problem_id = ?`), id); err != nil {
		return fmt.Errorf("delete cells: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM problems WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete problem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound{Entity: "problem", ID: id}
	}
	return tx.Commit()
}

// =============================================================================
// CELLS
// =============================================================================

const cellColumns = `id, problem_id, row_no, col_no, mode, cause, validated, is_root, feedback, created_at`

func (s *SQL) ListCells(ctx context.Context, problemID string) ([]types.Cell, error) {
	return s.cells(ctx, `SELECT `+cellColumns+` FROM cells WHERE problem_id = ? ORDER BY col_no, row_no`, problemID)
}

func (s *SQL) GetCell(ctx context.Context, problemID string, row, column int) (types.Cell, bool, error) {
	c, err := scanCell(s.queryRow(ctx,
		`SELECT `+cellColumns+` FROM cells WHERE problem_id = ? AND row_no = ? AND col_no = ?`,
		problemID, row, column))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Cell{}, false, nil
	}
	if err != nil {
		return types.Cell{}, false, fmt.Errorf("get cell: %w", err)
	}
	return c, true, nil
}

func (s *SQL) GetCellByID(ctx context.Context, problemID, id string) (types.Cell, error) {
	c, err := scanCell(s.queryRow(ctx,
		`SELECT `+cellColumns+` FROM cells WHERE problem_id = ? AND id = ?`, problemID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Cell{}, types.ErrNotFound{Entity: "cause", ID: id}
	}
	if err != nil {
		return types.Cell{}, fmt.Errorf("get cell: %w", err)
	}
	return c, nil
}

func (s *SQL) CreateCell(ctx context.Context, c types.Cell) (types.Cell, error) {
	if err := validateCell(c); err != nil {
		return types.Cell{}, err
	}
	if _, err := s.GetProblem(ctx, c.ProblemID); err != nil {
		return types.Cell{}, err
	}
	if _, found, err := s.GetCell(ctx, c.ProblemID, c.Row, c.Column); err != nil {
		return types.Cell{}, err
	} else if found {
		return types.Cell{}, types.ErrDuplicateCell{ProblemID: c.ProblemID, Row: c.Row, Column: c.Column}
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO cells (`+cellColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProblemID, c.Row, c.Column, string(c.Mode), c.Cause, c.Validated, c.IsRoot, c.Feedback, c.CreatedAt.UnixMicro())
	if err != nil {
		return types.Cell{}, fmt.Errorf("insert cell: %w", err)
	}
	logging.StoreDebug("created cell %s for problem %s", c.Label(), c.ProblemID)
	return c, nil
}

func (s *SQL) SaveCell(ctx context.Context, c types.Cell) error {
	res, err := s.exec(ctx,
		`UPDATE cells SET mode = ?, cause = ?, validated = ?, is_root = ?, feedback = ? WHERE id = ? AND problem_id = ?`,
		string(c.Mode), c.Cause, c.Validated, c.IsRoot, c.Feedback, c.ID, c.ProblemID)
	if err != nil {
		return fmt.Errorf("save cell: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound{Entity: "cause", ID: c.ID}
	}
	return nil
}

func (s *SQL) ColumnCells(ctx context.Context, problemID string, column int, f Filter) ([]types.Cell, error) {
	q := `SELECT ` + cellColumns + ` FROM cells WHERE problem_id = ? AND col_no = ?`
	args := []interface{}{problemID, column}
	if f.Validated {
		q += ` AND validated = ?`
		args = append(args, true)
	}
	if f.Root {
		q += ` AND is_root = ?`
		args = append(args, true)
	}
	if f.NonEmpty {
		q += ` AND TRIM(cause) <> ''`
	}
	q += ` ORDER BY row_no`
	return s.cells(ctx, q, args...)
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) cells(ctx context.Context, q string, args ...interface{}) ([]types.Cell, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var out []types.Cell
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProblem(sc scanner) (types.Problem, error) {
	var (
		p       types.Problem
		mode    string
		tags    string
		created int64
	)
	if err := sc.Scan(&p.ID, &p.Title, &p.Question, &mode, &tags, &created); err != nil {
		return types.Problem{}, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return types.Problem{}, fmt.Errorf("decode tags of %s: %w", p.ID, err)
	}
	p.Mode = types.Mode(mode)
	p.CreatedAt = time.UnixMicro(created).UTC()
	return p, nil
}

func scanCell(sc scanner) (types.Cell, error) {
	var (
		c       types.Cell
		mode    string
		created int64
	)
	if err := sc.Scan(&c.ID, &c.ProblemID, &c.Row, &c.Column, &mode, &c.Cause, &c.Validated, &c.IsRoot, &c.Feedback, &created); err != nil {
		return types.Cell{}, err
	}
	c.Mode = types.Mode(mode)
	c.CreatedAt = time.UnixMicro(created).UTC()
	return c, nil
}
