package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "trading.db")
	s, err := New(Config{DBPath: path})
	if err != nil {
		t.Fatalf("missing parent directories should be created: %v", err)
	}
	s.Close()
}

func TestNew_ParentDirectoryFailure(t *testing.T) {
	// A regular file where a directory is needed makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{DBPath: filepath.Join(blocker, "sub", "trading.db")})
	if err == nil || !strings.Contains(err.Error(), "create db directory") {
		t.Errorf("want a directory-creation error naming the path, got %v", err)
	}
}

func testService() *model.Service {
	return &model.Service{
		UserID:            1,
		Name:              "aapl swing",
		StockSymbol:       "aapl",
		State:             model.StateActive,
		Mode:              model.ModeBuy,
		IsActive:          true,
		InitialBalance:    decimal.NewFromInt(1000),
		CurrentBalance:    decimal.NewFromInt(1000),
		MinimumBalance:    decimal.NewFromInt(100),
		AllocationPercent: 50,
		BuyThreshold:      3,
		SellThreshold:     2,
	}
}

func TestServiceRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	svc := testService()
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.ID == 0 {
		t.Fatal("ID should be set after insert")
	}

	got, err := s.GetService(ctx, svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StockSymbol != "AAPL" {
		t.Errorf("symbol should be normalized uppercase, got %q", got.StockSymbol)
	}
	if got.State != model.StateActive || got.Mode != model.ModeBuy {
		t.Errorf("state/mode: got %s/%s", got.State, got.Mode)
	}
	if !got.CurrentBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance: got %s", got.CurrentBalance)
	}
}

func TestCreateService_Validation(t *testing.T) {
	s := testStore(t)
	svc := testService()
	svc.StockSymbol = "  "
	if err := s.CreateService(context.Background(), svc); err == nil {
		t.Error("blank symbol should be rejected")
	}

	svc = testService()
	svc.AllocationPercent = 150
	if err := s.CreateService(context.Background(), svc); err == nil {
		t.Error("allocation above 100 should be rejected")
	}
}

func TestGetService_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetService(context.Background(), 99)
	if !errors.Is(err, model.ErrServiceNotFound) {
		t.Errorf("want ErrServiceNotFound, got %v", err)
	}
}

func TestListActiveServices_FiltersState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	active := testService()
	paused := testService()
	paused.State = model.StatePaused
	disabled := testService()
	disabled.IsActive = false
	for _, svc := range []*model.Service{active, paused, disabled} {
		if err := s.CreateService(ctx, svc); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListActiveServices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("want only the active service, got %d rows", len(got))
	}
}

func TestWithTx_CommitsTogether(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	svc := testService()
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	err := s.WithTx(ctx, func(tx model.StoreTx) error {
		txn := &model.Transaction{
			ServiceID:     svc.ID,
			StockSymbol:   svc.StockSymbol,
			Shares:        10,
			State:         model.TxnOpen,
			PurchasePrice: decimal.NewFromInt(10),
			PurchaseDate:  now,
		}
		if err := tx.InsertTransaction(txn); err != nil {
			return err
		}
		svc.CurrentBalance = svc.CurrentBalance.Sub(decimal.NewFromInt(100))
		svc.CurrentShares += 10
		svc.BuyCount++
		svc.UpdatedAt = now
		return tx.UpdateService(svc)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	got, _ := s.GetService(ctx, svc.ID)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(900)) || got.CurrentShares != 10 {
		t.Errorf("committed state: balance=%s shares=%d", got.CurrentBalance, got.CurrentShares)
	}
	txns, err := s.ListTransactions(ctx, svc.ID)
	if err != nil || len(txns) != 1 {
		t.Fatalf("want 1 transaction, got %d (%v)", len(txns), err)
	}
	if txns[0].State != model.TxnOpen || txns[0].Shares != 10 {
		t.Errorf("stored transaction: %+v", txns[0])
	}
}

func TestWithTx_RollsBackTogether(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	svc := testService()
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx model.StoreTx) error {
		txn := &model.Transaction{
			ServiceID:     svc.ID,
			StockSymbol:   svc.StockSymbol,
			Shares:        10,
			State:         model.TxnOpen,
			PurchasePrice: decimal.NewFromInt(10),
			PurchaseDate:  time.Now().UTC(),
		}
		if err := tx.InsertTransaction(txn); err != nil {
			return err
		}
		svc.CurrentBalance = decimal.Zero
		if err := tx.UpdateService(svc); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	got, _ := s.GetService(ctx, svc.ID)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance should be rolled back, got %s", got.CurrentBalance)
	}
	txns, _ := s.ListTransactions(ctx, svc.ID)
	if len(txns) != 0 {
		t.Errorf("insert should be rolled back, got %d rows", len(txns))
	}
}

func TestOpenTransactions_OrderAndFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	svc := testService()
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	err := s.WithTx(ctx, func(tx model.StoreTx) error {
		for i, state := range []model.TransactionState{model.TxnOpen, model.TxnClosed, model.TxnOpen} {
			txn := &model.Transaction{
				ServiceID:     svc.ID,
				StockSymbol:   svc.StockSymbol,
				Shares:        int64(i + 1),
				State:         state,
				PurchasePrice: decimal.NewFromInt(10),
				PurchaseDate:  base.AddDate(0, 0, i),
			}
			if err := tx.InsertTransaction(txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.WithTx(ctx, func(tx model.StoreTx) error {
		open, err := tx.OpenTransactions(svc.ID)
		if err != nil {
			return err
		}
		if len(open) != 2 {
			t.Fatalf("want 2 open transactions, got %d", len(open))
		}
		if !open[0].PurchaseDate.Before(open[1].PurchaseDate) {
			t.Error("open transactions should come oldest first")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDailyPrices_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var bars []model.DailyPrice
	for i := 0; i < 10; i++ {
		bars = append(bars, model.DailyPrice{
			Symbol: "AAPL",
			Date:   base.AddDate(0, 0, i),
			Close:  100 + float64(i),
			Volume: 1000,
		})
	}
	if err := s.UpsertDailyPrices(ctx, bars); err != nil {
		t.Fatal(err)
	}

	closes, err := s.RecentCloses(ctx, "AAPL", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(closes) != 5 {
		t.Fatalf("want 5 closes, got %d", len(closes))
	}
	// Oldest to newest: 105..109.
	if closes[0] != 105 || closes[4] != 109 {
		t.Errorf("closes order: got %v", closes)
	}

	last, err := s.LastPriceDate(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !last.Equal(base.AddDate(0, 0, 9)) {
		t.Errorf("last price date: got %v", last)
	}
}

func TestRecentCloses_UnknownSymbol(t *testing.T) {
	s := testStore(t)
	_, err := s.RecentCloses(context.Background(), "NOPE", 90)
	if !errors.Is(err, model.ErrSymbolNotFound) {
		t.Errorf("want ErrSymbolNotFound, got %v", err)
	}
}

func TestUpsertDailyPrices_ReplacesSameDay(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpsertDailyPrices(ctx, []model.DailyPrice{{Symbol: "AAPL", Date: day, Close: 100}}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDailyPrices(ctx, []model.DailyPrice{{Symbol: "AAPL", Date: day, Close: 101}}); err != nil {
		t.Fatal(err)
	}

	closes, err := s.RecentCloses(ctx, "AAPL", 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(closes) != 1 || closes[0] != 101 {
		t.Errorf("same-day bar should be replaced, got %v", closes)
	}
}
