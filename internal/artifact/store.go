package artifact

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS builds (
	build_id     TEXT PRIMARY KEY,
	parent_id    TEXT,
	source       TEXT NOT NULL,
	encoder      TEXT,
	dimension    INTEGER NOT NULL DEFAULT 0,
	chunk_count  INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES builds(build_id)
);

CREATE TABLE IF NOT EXISTS chunks (
	build_id     TEXT NOT NULL,
	position     INTEGER NOT NULL,
	text         TEXT NOT NULL,
	vector       BLOB,
	PRIMARY KEY (build_id, position),
	FOREIGN KEY (build_id) REFERENCES builds(build_id)
);

CREATE TABLE IF NOT EXISTS active_build (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	build_id     TEXT NOT NULL,
	FOREIGN KEY (build_id) REFERENCES builds(build_id)
);

CREATE TABLE IF NOT EXISTS verdict_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id   TEXT NOT NULL,
	build_id     TEXT,
	question     TEXT NOT NULL,
	intent       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	chunk_id     INTEGER,
	confidence   REAL NOT NULL,
	confident    INTEGER NOT NULL,
	mode         TEXT,
	cached       INTEGER NOT NULL,
	latency_ms   REAL,
	created_at   TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store manages versioned index builds in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens or creates a SQLite database and runs migrations.
// Every pooled connection waits up to 5s on a locked database, so
// concurrent verdict writes queue instead of failing with SQLITE_BUSY.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenExisting opens an artifact that must already exist. A missing path
// returns ErrNotFound without creating anything.
func OpenExisting(dbPath string) (*Store, error) {
	info, err := os.Stat(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, dbPath)
	}
	return NewStore(dbPath)
}

// Load opens dbPath, reads the active build and closes the database.
func Load(dbPath string) (Build, error) {
	s, err := OpenExisting(dbPath)
	if err != nil {
		return Build{}, err
	}
	defer s.Close()
	return s.GetActive()
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region save-build
// SaveBuild inserts a new build with its chunks. When activate is set the
// active pointer moves to it in the same transaction.
func (s *Store) SaveBuild(b Build, activate bool) (Build, error) {
	if len(b.Vectors) > 0 && len(b.Vectors) != len(b.Chunks) {
		return Build{}, fmt.Errorf("vector rows %d != chunks %d", len(b.Vectors), len(b.Chunks))
	}
	if b.BuildID == "" {
		b.BuildID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Build{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if b.ParentID == "" {
		var parent string
		err := tx.QueryRow(`SELECT build_id FROM active_build WHERE id = 1`).Scan(&parent)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Build{}, fmt.Errorf("read parent: %w", err)
		}
		b.ParentID = parent
	}

	_, err = tx.Exec(
		`INSERT INTO builds (build_id, parent_id, source, encoder, dimension, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.BuildID, nullIfEmpty(b.ParentID), b.Source, nullIfEmpty(b.Encoder), b.Dimension,
		len(b.Chunks), b.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Build{}, fmt.Errorf("insert build: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO chunks (build_id, position, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Build{}, fmt.Errorf("prepare chunks: %w", err)
	}
	defer stmt.Close()
	for i, text := range b.Chunks {
		var blob interface{}
		if len(b.Vectors) > 0 {
			blob = encodeVector(b.Vectors[i])
		}
		if _, err := stmt.Exec(b.BuildID, i, text, blob); err != nil {
			return Build{}, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if activate {
		_, err = tx.Exec(
			`INSERT INTO active_build (id, build_id) VALUES (1, ?)
			 ON CONFLICT(id) DO UPDATE SET build_id = excluded.build_id`,
			b.BuildID,
		)
		if err != nil {
			return Build{}, fmt.Errorf("set active: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

// #endregion save-build

// #region get-active
// ActiveID returns the id of the active build.
func (s *Store) ActiveID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT build_id FROM active_build WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoActiveBuild
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}

// GetActive reads the active build with all chunks and vectors.
func (s *Store) GetActive() (Build, error) {
	id, err := s.ActiveID()
	if err != nil {
		return Build{}, err
	}
	return s.GetBuild(id)
}

// #endregion get-active

// #region get-build
// GetBuild retrieves a specific build by ID.
func (s *Store) GetBuild(id string) (Build, error) {
	var b Build
	var parentID, encoder sql.NullString
	var createdStr string
	var count int

	err := s.db.QueryRow(
		`SELECT build_id, parent_id, source, encoder, dimension, chunk_count, created_at
		 FROM builds WHERE build_id = ?`, id,
	).Scan(&b.BuildID, &parentID, &b.Source, &encoder, &b.Dimension, &count, &createdStr)
	if err != nil {
		return Build{}, fmt.Errorf("get build %s: %w", id, err)
	}
	b.ParentID = parentID.String
	b.Encoder = encoder.String
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	rows, err := s.db.Query(
		`SELECT position, text, vector FROM chunks WHERE build_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return Build{}, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	b.Chunks = make([]string, 0, count)
	withVectors := 0
	var vectors [][]float32
	for rows.Next() {
		var pos int
		var text string
		var blob []byte
		if err := rows.Scan(&pos, &text, &blob); err != nil {
			return Build{}, fmt.Errorf("scan chunk: %w", err)
		}
		if pos != len(b.Chunks) {
			return Build{}, fmt.Errorf("chunk positions not contiguous at %d", pos)
		}
		b.Chunks = append(b.Chunks, text)
		var vec []float32
		if blob != nil {
			if vec, err = decodeVector(blob); err != nil {
				return Build{}, fmt.Errorf("chunk %d: %w", pos, err)
			}
			withVectors++
		}
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return Build{}, fmt.Errorf("iterate chunks: %w", err)
	}
	if len(b.Chunks) != count {
		return Build{}, fmt.Errorf("build %s: expected %d chunks, found %d", id, count, len(b.Chunks))
	}
	if withVectors > 0 {
		b.Vectors = vectors
	}
	return b, nil
}

// #endregion get-build

// #region activate
// Activate moves the active pointer to an existing build.
func (s *Store) Activate(buildID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM builds WHERE build_id = ?`, buildID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check build: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("build %s not found", buildID)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_build (id, build_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET build_id = excluded.build_id`,
		buildID,
	)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// #endregion activate

// #region list-builds
// ListBuilds returns the most recent builds, newest first.
func (s *Store) ListBuilds(limit int) ([]BuildInfo, error) {
	active, err := s.ActiveID()
	if err != nil && !errors.Is(err, ErrNoActiveBuild) {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT build_id, parent_id, source, encoder, dimension, chunk_count, created_at
		 FROM builds ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var infos []BuildInfo
	for rows.Next() {
		var info BuildInfo
		var parentID, encoder sql.NullString
		var createdStr string
		if err := rows.Scan(&info.BuildID, &parentID, &info.Source, &encoder,
			&info.Dimension, &info.ChunkCount, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		info.ParentID = parentID.String
		info.Encoder = encoder.String
		info.Active = info.BuildID == active
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// #endregion list-builds

// #region vector-encoding
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion vector-encoding
