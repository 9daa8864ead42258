package repository

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"remote-jobs/internal/database"
)

type call struct {
	query string
	args  []any
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan dest mismatch: %d != %d", len(dest), len(r.vals))
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i]).Elem()
		if r.vals[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		v := reflect.ValueOf(r.vals[i])
		switch {
		case v.Type().AssignableTo(dv.Type()):
			dv.Set(v)
		case v.Type().ConvertibleTo(dv.Type()):
			dv.Set(v.Convert(dv.Type()))
		case dv.Kind() == reflect.Pointer && v.Type().AssignableTo(dv.Type().Elem()):
			p := reflect.New(dv.Type().Elem())
			p.Elem().Set(v)
			dv.Set(p)
		default:
			return fmt.Errorf("scan type mismatch at %d: %s into %s", i, v.Type(), dv.Type())
		}
	}
	return nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return r.rows[r.pos-1].Scan(dest...)
}

// fakeDB answers each statement kind from a queue keyed by the first words
// of the query.
type fakeDB struct {
	mu    sync.Mutex
	calls []call

	rows    map[string][]fakeRow
	results map[string][][]fakeRow
	execN   map[string]int64
	execErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    map[string][]fakeRow{},
		results: map[string][][]fakeRow{},
		execN:   map[string]int64{},
	}
}

func (db *fakeDB) Ping(context.Context) error { return nil }
func (db *fakeDB) Close() error               { return nil }
func (db *fakeDB) SQLDB() *sql.DB             { return nil }

func (db *fakeDB) Begin(context.Context) (database.Tx, error) {
	return nil, fmt.Errorf("not implemented")
}

func (db *fakeDB) record(query string, args []any) string {
	db.calls = append(db.calls, call{query: query, args: args})
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func (db *fakeDB) Exec(_ context.Context, query string, args ...any) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := db.record(query, args)
	if db.execErr != nil {
		return 0, db.execErr
	}
	for prefix, n := range db.execN {
		if strings.HasPrefix(q, prefix) {
			return n, nil
		}
	}
	return 1, nil
}

func (db *fakeDB) Query(_ context.Context, query string, args ...any) (database.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := db.record(query, args)
	for prefix, sets := range db.results {
		if strings.HasPrefix(q, prefix) && len(sets) > 0 {
			db.results[prefix] = sets[1:]
			return &fakeRows{rows: sets[0]}, nil
		}
	}
	return &fakeRows{}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, query string, args ...any) database.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := db.record(query, args)
	for prefix, queue := range db.rows {
		if strings.HasPrefix(q, prefix) && len(queue) > 0 {
			db.rows[prefix] = queue[1:]
			return queue[0]
		}
	}
	return fakeRow{err: fmt.Errorf("unsupported queryrow: %s", q)}
}

func (db *fakeDB) last() call {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calls[len(db.calls)-1]
}
