package game

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestInsertResultClassifiesDuplicates(t *testing.T) {
	connErr := errors.New("connection reset")
	tests := []struct {
		name    string
		id      sql.NullInt64
		err     error
		wantID  int64
		wantErr error
	}{
		{"inserted", sql.NullInt64{Int64: 42, Valid: true}, nil, 42, nil},
		{"conflict returns no row", sql.NullInt64{}, sql.ErrNoRows, 0, ErrDuplicateGame},
		{"wrapped no row", sql.NullInt64{}, fmt.Errorf("scan: %w", sql.ErrNoRows), 0, ErrDuplicateGame},
		{"null id", sql.NullInt64{}, nil, 0, ErrDuplicateGame},
		{"unique violation", sql.NullInt64{}, &pq.Error{Code: "23505"}, 0, ErrDuplicateGame},
		{"other constraint", sql.NullInt64{}, &pq.Error{Code: "23502"}, 0, nil},
		{"driver failure", sql.NullInt64{}, connErr, 0, connErr},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := insertResult(tc.id, tc.err)
			if id != tc.wantID {
				t.Fatalf("id = %d, want %d", id, tc.wantID)
			}
			switch {
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			case tc.err != nil:
				if err == nil || errors.Is(err, ErrDuplicateGame) {
					t.Fatalf("err = %v, want a non-duplicate failure", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected err %v", err)
				}
			}
		})
	}
}
