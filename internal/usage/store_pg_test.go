package usage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreInsertsEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	at := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO usage_events").
		WithArgs("evt-1", "42", "start", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO usage_events").
		WithArgs("evt-2", "42", "upscale_success", "elite", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Store(context.Background(), Event{ID: "evt-1", UserID: "42", Kind: KindStart, At: at}); err != nil {
		t.Fatalf("Store start: %v", err)
	}
	if err := store.Store(context.Background(), Event{ID: "evt-2", UserID: "42", Kind: KindUpscaleSuccess, Tier: "elite", At: at}); err != nil {
		t.Fatalf("Store success: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSummarize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery("SELECT kind, COUNT").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "count"}).
			AddRow("start", 5).
			AddRow("upscale_success", 3))
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT user_id\\)").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery("SELECT tier, COUNT").
		WithArgs(from, to, "upscale_success").
		WillReturnRows(sqlmock.NewRows([]string{"tier", "count"}).AddRow("pro", 2).AddRow("basic", 1))

	sum, err := store.Summarize(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Totals[KindStart] != 5 || sum.Totals[KindUpscaleSuccess] != 3 || sum.Totals[KindUpscaleFailure] != 0 {
		t.Fatalf("unexpected totals: %v", sum.Totals)
	}
	if sum.UniqueUsers != 4 {
		t.Fatalf("expected 4 users, got %d", sum.UniqueUsers)
	}
	if sum.SuccessesByTier["pro"] != 2 || sum.SuccessesByTier["basic"] != 1 {
		t.Fatalf("unexpected tiers: %v", sum.SuccessesByTier)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
