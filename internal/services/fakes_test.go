package services

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/models"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// rowFromValues builds a Row whose Scan copies the given values into the
// destinations positionally.
func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error {
	return r.err
}

func assignValues(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan expected %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("cannot assign %T to %s", v, target.Type())
		}
		target.Set(val)
	}
	return nil
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 {
	return t.rowsAffected
}

type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if db.QueryRowFunc == nil {
		panic("fakeDB: unexpected QueryRow")
	}
	return db.QueryRowFunc(ctx, sql, args...)
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if db.QueryFunc == nil {
		panic("fakeDB: unexpected Query")
	}
	return db.QueryFunc(ctx, sql, args...)
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if db.ExecFunc == nil {
		panic("fakeDB: unexpected Exec")
	}
	return db.ExecFunc(ctx, sql, args...)
}

func (db *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if db.BeginFunc != nil {
		return db.BeginFunc(ctx)
	}
	return &fakeTx{fakeDB: db}, nil
}

// fakeTx routes statements back through the owning fakeDB and records
// commit/rollback calls.
type fakeTx struct {
	*fakeDB
	commits   int
	rollbacks int
	commitErr error
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.commits++
	return tx.commitErr
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rollbacks++
	return nil
}

// fakeFriendGraph answers authorization reads. Unset funcs fall back to the
// permissive defaults most tests want: friends, sharing on, no location.
type fakeFriendGraph struct {
	IsAcceptedFriendFunc func(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
	SharingEnabledFunc   func(ctx context.Context, userID uuid.UUID) (bool, error)
	CurrentLocationFunc  func(ctx context.Context, userID uuid.UUID) (*models.Location, error)
}

func (g *fakeFriendGraph) IsAcceptedFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	if g.IsAcceptedFriendFunc != nil {
		return g.IsAcceptedFriendFunc(ctx, userID, otherUserID)
	}
	return true, nil
}

func (g *fakeFriendGraph) SharingEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	if g.SharingEnabledFunc != nil {
		return g.SharingEnabledFunc(ctx, userID)
	}
	return true, nil
}

func (g *fakeFriendGraph) CurrentLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	if g.CurrentLocationFunc != nil {
		return g.CurrentLocationFunc(ctx, userID)
	}
	return nil, nil
}

type fakeDispatcher struct {
	events []models.NotificationEvent
}

func (d *fakeDispatcher) Emit(ctx context.Context, event models.NotificationEvent) {
	d.events = append(d.events, event)
}
