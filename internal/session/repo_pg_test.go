package session

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"upscale-bot/internal/tier"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoSetTierUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("42", "premium").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetTier(context.Background(), "42", tier.Premium); err != nil {
		t.Fatalf("SetTier: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetTierRejectsUnset(t *testing.T) {
	repo, mock := newMockRepo(t)
	if err := repo.SetTier(context.Background(), "42", tier.Unset); err != ErrInvalidTier {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestPGRepoGetTier(t *testing.T) {
	tests := []struct {
		name   string
		rows   *sqlmock.Rows
		err    error
		want   tier.Tier
		wantOK bool
	}{
		{name: "missing row", err: sql.ErrNoRows},
		{name: "null tier", rows: sqlmock.NewRows([]string{"selected_tier"}).AddRow(nil)},
		{name: "stored", rows: sqlmock.NewRows([]string{"selected_tier"}).AddRow("pro"), want: tier.Pro, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectQuery("SELECT selected_tier").WithArgs("7")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			got, ok, err := repo.GetTier(context.Background(), "7")
			if err != nil {
				t.Fatalf("GetTier: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPGRepoMarkDisclosureSeen(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkDisclosureSeen(context.Background(), "42")
	if err != nil || !first {
		t.Fatalf("expected first call true, got %v, %v", first, err)
	}
	second, err := repo.MarkDisclosureSeen(context.Background(), "42")
	if err != nil || second {
		t.Fatalf("expected second call false, got %v, %v", second, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
