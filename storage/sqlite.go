package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/param"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path to the database file, or ":memory:" for tests.
	Path string

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, ...).
	JournalMode string

	// Synchronous sets the synchronous flag (OFF, NORMAL, FULL).
	Synchronous string

	// BusyTimeout is the timeout for acquiring locks in milliseconds.
	BusyTimeout int

	// CacheSize is the SQLite page cache size in KiB.
	CacheSize int
}

// DefaultSQLiteConfig returns the defaults used by uimf.Open.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:        path,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		BusyTimeout: 5000,
		CacheSize:   8192,
	}
}

// SQLite implements Store over database/sql with the modernc pure Go driver.
//
// The connection pool is pinned to a single connection: the file model is
// single-writer with reads on the same handle, and one connection sidesteps
// SQLite cross-connection locking entirely. Additional read-only handles can
// be opened against the same path where the journal mode permits.
type SQLite struct {
	db *sql.DB

	selectScan *sql.Stmt
	insertScan *sql.Stmt
	selectBin  *sql.Stmt
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) a SQLite-backed store.
func OpenSQLite(config SQLiteConfig) (*SQLite, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	if config.JournalMode == "" {
		config.JournalMode = "WAL"
	}
	if config.Synchronous == "" {
		config.Synchronous = "NORMAL"
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5000
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 8192
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(%s)&_pragma=synchronous(%s)&_pragma=busy_timeout(%d)&_pragma=cache_size(-%d)",
		config.Path, config.JournalMode, config.Synchronous, config.BusyTimeout, config.CacheSize)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: prepare statements: %w", err)
	}

	return s, nil
}

// Close releases prepared statements and the underlying connection.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.selectScan, s.insertScan, s.selectBin} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS Global_Params (
			ParamID INTEGER PRIMARY KEY,
			ParamName TEXT NOT NULL,
			ParamValue TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS Frame_Param_Keys (
			ParamID INTEGER PRIMARY KEY,
			ParamName TEXT NOT NULL,
			ParamDataType TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS Frame_Params (
			FrameNum INTEGER NOT NULL,
			ParamID INTEGER NOT NULL,
			ParamValue TEXT NOT NULL,
			PRIMARY KEY (FrameNum, ParamID)
		);

		CREATE TABLE IF NOT EXISTS Frame_Scans (
			FrameNum INTEGER NOT NULL,
			ScanNum INTEGER NOT NULL,
			NonZeroCount INTEGER NOT NULL,
			BPI NUMERIC NOT NULL,
			BPI_MZ DOUBLE NOT NULL,
			TIC NUMERIC NOT NULL,
			Intensities BLOB,
			PRIMARY KEY (FrameNum, ScanNum)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Seed the ParamID-to-name resolution table for the keys this build
	// understands; rows written by newer builds are left alone.
	for _, key := range param.FrameKeys() {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO Frame_Param_Keys (ParamID, ParamName, ParamDataType) VALUES (?, ?, ?)`,
			int(key), key.Name(), key.Kind().String())
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLite) prepareStatements() error {
	var err error

	s.selectScan, err = s.db.Prepare(`
		SELECT NonZeroCount, BPI, BPI_MZ, TIC, Intensities
		FROM Frame_Scans WHERE FrameNum = ? AND ScanNum = ?`)
	if err != nil {
		return err
	}

	s.insertScan, err = s.db.Prepare(`
		INSERT OR REPLACE INTO Frame_Scans
		(FrameNum, ScanNum, NonZeroCount, BPI, BPI_MZ, TIC, Intensities)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	s.selectBin, err = s.db.Prepare(`SELECT INTENSITIES FROM Bin_Intensities WHERE MZ_BIN = ?`)
	// The bin-centric table only exists after an index build; prepare lazily
	// in that case.
	if err != nil {
		s.selectBin = nil
	}

	return nil
}

// Scan reads one scan row.
func (s *SQLite) Scan(ctx context.Context, frameNum, scanNum int) (*ScanRecord, error) {
	rec := &ScanRecord{FrameNum: frameNum, ScanNum: scanNum}
	err := s.selectScan.QueryRowContext(ctx, frameNum, scanNum).
		Scan(&rec.NonZeroCount, &rec.BPI, &rec.BPIMz, &rec.TIC, &rec.Intensities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read scan (%d, %d): %w", frameNum, scanNum, err)
	}

	return rec, nil
}

// ScansInRange streams scan rows in (frame, scan) order, invoking fn for
// each. An error from fn aborts the iteration and is returned unchanged.
func (s *SQLite) ScansInRange(ctx context.Context, startFrame, endFrame, startScan, endScan int, fn func(*ScanRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT FrameNum, ScanNum, NonZeroCount, BPI, BPI_MZ, TIC, Intensities
		FROM Frame_Scans
		WHERE FrameNum BETWEEN ? AND ? AND ScanNum BETWEEN ? AND ?
		ORDER BY FrameNum, ScanNum`,
		startFrame, endFrame, startScan, endScan)
	if err != nil {
		return fmt.Errorf("sqlite: range query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := &ScanRecord{}
		if err := rows.Scan(&rec.FrameNum, &rec.ScanNum, &rec.NonZeroCount, &rec.BPI, &rec.BPIMz, &rec.TIC, &rec.Intensities); err != nil {
			return fmt.Errorf("sqlite: scan row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	return rows.Err()
}

// FrameAggregates aggregates the precomputed TIC and BPI columns per frame
// over a scan range, without touching any blob.
func (s *SQLite) FrameAggregates(ctx context.Context, startFrame, endFrame, startScan, endScan int) ([]FrameAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT FrameNum, SUM(TIC), MAX(BPI)
		FROM Frame_Scans
		WHERE FrameNum BETWEEN ? AND ? AND ScanNum BETWEEN ? AND ?
		GROUP BY FrameNum ORDER BY FrameNum`,
		startFrame, endFrame, startScan, endScan)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregate query: %w", err)
	}
	defer rows.Close()

	var aggs []FrameAggregate
	for rows.Next() {
		var a FrameAggregate
		if err := rows.Scan(&a.FrameNum, &a.TIC, &a.BPI); err != nil {
			return nil, fmt.Errorf("sqlite: aggregate row: %w", err)
		}
		aggs = append(aggs, a)
	}

	return aggs, rows.Err()
}

// WriteScan persists one scan row, replacing any previous row for the same
// (frame, scan).
func (s *SQLite) WriteScan(ctx context.Context, rec *ScanRecord) error {
	_, err := s.insertScan.ExecContext(ctx,
		rec.FrameNum, rec.ScanNum, rec.NonZeroCount, rec.BPI, rec.BPIMz, rec.TIC, rec.Intensities)
	if err != nil {
		return fmt.Errorf("sqlite: write scan (%d, %d): %w", rec.FrameNum, rec.ScanNum, err)
	}

	return nil
}

// LoadFrameParams loads and decodes one frame's parameter record.
func (s *SQLite) LoadFrameParams(ctx context.Context, frameNum int) (*param.FrameParams, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ParamID, ParamValue FROM Frame_Params WHERE FrameNum = ?`, frameNum)
	if err != nil {
		return nil, fmt.Errorf("sqlite: frame params query: %w", err)
	}
	defer rows.Close()

	values := make(map[param.FrameKey]param.Value)
	for rows.Next() {
		var id int
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("sqlite: frame param row: %w", err)
		}
		key := param.FrameKey(id)
		if !key.Known() {
			continue
		}
		v, err := param.Parse(key.Kind(), text)
		if err != nil {
			return nil, fmt.Errorf("sqlite: frame %d param %s: %w", frameNum, key.Name(), err)
		}
		values[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.ErrFrameNotFound
	}

	return param.FrameParamsFromValues(values)
}

// LoadAllFrameParams bulk-loads every frame's parameter record in one query.
func (s *SQLite) LoadAllFrameParams(ctx context.Context) (map[int]*param.FrameParams, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT FrameNum, ParamID, ParamValue FROM Frame_Params ORDER BY FrameNum`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all frame params query: %w", err)
	}
	defer rows.Close()

	raw := make(map[int]map[param.FrameKey]param.Value)
	for rows.Next() {
		var frameNum, id int
		var text string
		if err := rows.Scan(&frameNum, &id, &text); err != nil {
			return nil, fmt.Errorf("sqlite: frame param row: %w", err)
		}
		key := param.FrameKey(id)
		if !key.Known() {
			continue
		}
		v, err := param.Parse(key.Kind(), text)
		if err != nil {
			return nil, fmt.Errorf("sqlite: frame %d param %s: %w", frameNum, key.Name(), err)
		}
		if raw[frameNum] == nil {
			raw[frameNum] = make(map[param.FrameKey]param.Value)
		}
		raw[frameNum][key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all := make(map[int]*param.FrameParams, len(raw))
	for frameNum, values := range raw {
		p, err := param.FrameParamsFromValues(values)
		if err != nil {
			return nil, fmt.Errorf("sqlite: frame %d: %w", frameNum, err)
		}
		all[frameNum] = p
	}

	return all, nil
}

// WriteFrameParams persists one frame's parameter record and replaces any
// previous values for the same keys.
func (s *SQLite) WriteFrameParams(ctx context.Context, frameNum int, p *param.FrameParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin frame params: %w", err)
	}

	for key, v := range p.Values() {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO Frame_Params (FrameNum, ParamID, ParamValue) VALUES (?, ?, ?)`,
			frameNum, int(key), v.Text())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: write frame %d param %s: %w", frameNum, key.Name(), err)
		}
	}

	return tx.Commit()
}

// LoadGlobalParams loads and decodes the file-level parameter record.
func (s *SQLite) LoadGlobalParams(ctx context.Context) (*param.GlobalParams, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ParamID, ParamValue FROM Global_Params`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: global params query: %w", err)
	}
	defer rows.Close()

	values := make(map[param.GlobalKey]param.Value)
	for rows.Next() {
		var id int
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("sqlite: global param row: %w", err)
		}
		key := param.GlobalKey(id)
		if !key.Known() {
			continue
		}
		v, err := param.Parse(key.Kind(), text)
		if err != nil {
			return nil, fmt.Errorf("sqlite: global param %s: %w", key.Name(), err)
		}
		values[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return param.GlobalParamsFromValues(values)
}

// WriteGlobalParams persists the file-level parameter record.
func (s *SQLite) WriteGlobalParams(ctx context.Context, g *param.GlobalParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin global params: %w", err)
	}

	for key, v := range g.Values() {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO Global_Params (ParamID, ParamName, ParamValue) VALUES (?, ?, ?)`,
			int(key), key.Name(), v.Text())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: write global param %s: %w", key.Name(), err)
		}
	}

	return tx.Commit()
}

// ResetBinCentric drops and recreates the derived bin-centric table.
func (s *SQLite) ResetBinCentric(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS Bin_Intensities`); err != nil {
		return fmt.Errorf("sqlite: drop bin-centric table: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE Bin_Intensities (
			MZ_BIN INTEGER PRIMARY KEY,
			INTENSITIES BLOB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("sqlite: create bin-centric table: %w", err)
	}

	if s.selectBin != nil {
		s.selectBin.Close()
	}
	s.selectBin, err = s.db.Prepare(`SELECT INTENSITIES FROM Bin_Intensities WHERE MZ_BIN = ?`)

	return err
}

// WriteAllBinCentric runs fn inside one transaction with a bulk insert
// function. Any error from fn or an insert rolls the whole build back.
func (s *SQLite) WriteAllBinCentric(ctx context.Context, fn func(insert func(bin int, blob []byte) error) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin bin-centric write: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO Bin_Intensities (MZ_BIN, INTENSITIES) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: prepare bin-centric insert: %w", err)
	}
	defer stmt.Close()

	insert := func(bin int, blob []byte) error {
		_, err := stmt.ExecContext(ctx, bin, blob)
		return err
	}

	if err := fn(insert); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// BinCentric reads one bin's derived record.
func (s *SQLite) BinCentric(ctx context.Context, bin int) ([]byte, error) {
	if s.selectBin == nil {
		var err error
		s.selectBin, err = s.db.Prepare(`SELECT INTENSITIES FROM Bin_Intensities WHERE MZ_BIN = ?`)
		if err != nil {
			return nil, errs.ErrBinNotFound
		}
	}

	var blob []byte
	err := s.selectBin.QueryRowContext(ctx, bin).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrBinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read bin %d: %w", bin, err)
	}

	return blob, nil
}

// HasBinCentric reports whether the derived index has been built.
func (s *SQLite) HasBinCentric(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'Bin_Intensities'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: check bin-centric table: %w", err)
	}

	return true, nil
}
