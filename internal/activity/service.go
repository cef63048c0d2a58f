package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Publisher fans recorded entries out to an event stream. Optional.
type Publisher interface {
	Publish(ctx context.Context, l *Log) error
	Close() error
}

type Service struct {
	store *Store
	pub   Publisher // nil when fanout is not configured
}

func NewService(db *sql.DB, pub Publisher) *Service {
	return &Service{store: NewStore(db), pub: pub}
}

// Record appends one audit row. Best-effort by contract: the caller's
// transition has already committed, so a failure here is logged and
// swallowed, never propagated.
func (s *Service) Record(ctx context.Context, e Entry) {
	l := &Log{
		LogID:       uuid.NewString(),
		Type:        e.Type,
		ActorID:     e.ActorID,
		Description: e.Description,
	}
	if e.ActorName != "" {
		l.ActorName = sql.NullString{String: e.ActorName, Valid: true}
	}
	l.BorrowID = nullInt64(e.BorrowID)
	l.VerificationID = nullInt64(e.VerificationID)
	l.ReturnID = nullInt64(e.ReturnID)
	l.ItemID = nullInt64(e.ItemID)
	if len(e.Metadata) > 0 {
		if buf, err := json.Marshal(e.Metadata); err == nil {
			l.Metadata = sql.NullString{String: string(buf), Valid: true}
		}
	}
	l.CreatedAt = time.Now().UTC()

	if err := s.store.Insert(ctx, l); err != nil {
		log.Printf("[WARN] activity: failed to append %s: %v", e.Type, err)
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, l); err != nil {
			log.Printf("[WARN] activity: failed to publish %s: %v", e.Type, err)
		}
	}
}

func (s *Service) List(ctx context.Context, f Filter, p Page) ([]LogResponse, int64, error) {
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LogResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

func (l *Log) toDTO() LogResponse {
	resp := LogResponse{
		LogID:       l.LogID,
		Type:        l.Type,
		ActorID:     l.ActorID,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
	}
	if l.ActorName.Valid {
		v := l.ActorName.String
		resp.ActorName = &v
	}
	if l.BorrowID.Valid {
		v := l.BorrowID.Int64
		resp.BorrowID = &v
	}
	if l.VerificationID.Valid {
		v := l.VerificationID.Int64
		resp.VerificationID = &v
	}
	if l.ReturnID.Valid {
		v := l.ReturnID.Int64
		resp.ReturnID = &v
	}
	if l.ItemID.Valid {
		v := l.ItemID.Int64
		resp.ItemID = &v
	}
	if l.Metadata.Valid {
		var m map[string]any
		if err := json.Unmarshal([]byte(l.Metadata.String), &m); err == nil {
			resp.Metadata = m
		}
	}
	return resp
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
