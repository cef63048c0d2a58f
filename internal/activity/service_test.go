package activity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	execs [][]any
	err   error
}

func (f *fakeDB) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, args)
	return nil, f.err
}

func (f *fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type fakePublisher struct {
	logs []*Log
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, l *Log) error {
	f.logs = append(f.logs, l)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func TestRecord(t *testing.T) {
	db := &fakeDB{}
	pub := &fakePublisher{}
	svc := &Service{store: NewStore(db), pub: pub}

	borrowID := int64(42)
	svc.Record(context.Background(), Entry{
		Type:        TypeBorrowApproved,
		ActorID:     "admin-1",
		ActorName:   "Kim Santos",
		Description: "approved borrow 42",
		BorrowID:    &borrowID,
		Metadata:    map[string]any{"quantity": 3},
	})

	require.Len(t, db.execs, 1)
	args := db.execs[0]
	// log_id, type, actor_id, actor_name, description, borrow_id, verification_id, return_id, item_id, metadata
	require.Len(t, args, 10)
	assert.NotEmpty(t, args[0])
	assert.Equal(t, TypeBorrowApproved, args[1])
	assert.Equal(t, "admin-1", args[2])
	assert.Equal(t, sql.NullString{String: "Kim Santos", Valid: true}, args[3])
	assert.Equal(t, sql.NullInt64{Int64: 42, Valid: true}, args[5])
	assert.Equal(t, sql.NullInt64{}, args[6])

	require.Len(t, pub.logs, 1)
	assert.Equal(t, TypeBorrowApproved, pub.logs[0].Type)
	assert.Contains(t, pub.logs[0].Metadata.String, `"quantity":3`)
}

func TestRecordSurvivesFailures(t *testing.T) {
	db := &fakeDB{err: errors.New("table locked")}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := &Service{store: NewStore(db), pub: pub}

	// must not panic or surface either failure
	svc.Record(context.Background(), Entry{
		Type:        TypeOverdueSwept,
		ActorID:     "system",
		Description: "2 transaction(s) marked overdue",
	})

	assert.Len(t, db.execs, 1)
	assert.Len(t, pub.logs, 1)
}

func TestRecordWithoutPublisher(t *testing.T) {
	db := &fakeDB{}
	svc := &Service{store: NewStore(db)}

	svc.Record(context.Background(), Entry{
		Type:        TypeItemCreated,
		ActorID:     "admin-1",
		Description: "created item",
	})
	assert.Len(t, db.execs, 1)
}

func TestLogToDTO(t *testing.T) {
	l := &Log{
		LogID:       "b3c55a2e-0000-0000-0000-000000000000",
		Type:        TypeReturnInspected,
		ActorID:     "admin-2",
		Description: "inspected return",
		BorrowID:    sql.NullInt64{Int64: 7, Valid: true},
		Metadata:    sql.NullString{String: `{"fee":150}`, Valid: true},
	}

	dto := l.toDTO()
	assert.Equal(t, TypeReturnInspected, dto.Type)
	require.NotNil(t, dto.BorrowID)
	assert.Equal(t, int64(7), *dto.BorrowID)
	assert.Nil(t, dto.ItemID)
	require.NotNil(t, dto.Metadata)
	assert.Equal(t, float64(150), dto.Metadata["fee"])
}
