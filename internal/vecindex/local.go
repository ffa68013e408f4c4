package vecindex

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Local is a brute-force cosine-similarity index backed by SQLite
// (modernc.org/sqlite, pure Go). Vectors are normalized on insert and
// held in memory, so dot product equals cosine similarity and queries
// are exact. Fine for the few thousand documents a help corpus has.
type Local struct {
	db *sql.DB

	mu      sync.RWMutex
	vectors map[string][]float32
	meta    map[string]Metadata
}

// OpenLocal opens (or creates) the index database at dbPath and loads
// all vectors into memory.
func OpenLocal(dbPath string) (*Local, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection serializes writes through the pool, avoiding
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	l := &Local{
		db:      db,
		vectors: make(map[string][]float32),
		meta:    make(map[string]Metadata),
	}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate index schema: %w", err)
	}
	if err := l.loadAll(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}
	return l, nil
}

func (l *Local) migrate() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		embedding  BLOB NOT NULL,
		dimensions INTEGER NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		source     TEXT NOT NULL
	)`)
	return err
}

func (l *Local) loadAll() error {
	rows, err := l.db.Query("SELECT id, embedding, dimensions, title, body, source FROM documents")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, title, body, source string
		var blob []byte
		var dims int
		if err := rows.Scan(&id, &blob, &dims, &title, &body, &source); err != nil {
			return err
		}
		l.vectors[id] = blobToFloat32(blob, dims)
		l.meta[id] = Metadata{Title: title, Text: body, Source: source}
	}
	return rows.Err()
}

// Upsert stores a document vector with its metadata. The vector is
// normalized on the way in.
func (l *Local) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	normalized := normalize(vector)
	blob := float32ToBlob(normalized)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `INSERT INTO documents (id, embedding, dimensions, title, body, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding=excluded.embedding, dimensions=excluded.dimensions,
			title=excluded.title, body=excluded.body, source=excluded.source`,
		id, blob, len(normalized), meta.Title, meta.Text, meta.Source)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", id, err)
	}

	l.vectors[id] = normalized
	l.meta[id] = meta
	return nil
}

// Query implements Index using a min-heap to track the top K matches.
func (l *Local) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	query := normalize(vector)

	l.mu.RLock()
	h := &matchHeap{}
	heap.Init(h)
	for id, vec := range l.vectors {
		if len(vec) != len(query) {
			continue
		}
		score := dotProduct(query, vec)
		if h.Len() < topK {
			heap.Push(h, Match{ID: id, Score: score, Metadata: l.meta[id]})
		} else if h.Len() > 0 && score > (*h)[0].Score {
			(*h)[0] = Match{ID: id, Score: score, Metadata: l.meta[id]}
			heap.Fix(h, 0)
		}
	}
	l.mu.RUnlock()

	// Pop ascending, fill backwards for descending score order.
	matches := make([]Match, h.Len())
	for i := len(matches) - 1; i >= 0; i-- {
		matches[i] = heap.Pop(h).(Match)
	}
	return matches, nil
}

// Count returns the number of indexed documents.
func (l *Local) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.vectors)
}

// Close closes the underlying database.
func (l *Local) Close() error {
	return l.db.Close()
}

type matchHeap []Match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x any)        { *h = append(*h, x.(Match)) }
func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	v := make([]float32, dims)
	for i := 0; i < dims && i*4+4 <= len(b); i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
