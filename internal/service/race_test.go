package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"checkout-service/internal/service"
	"checkout-service/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 10 покупателей одновременно берут последнюю единицу из пяти
func runInventoryRace(t *testing.T, db *gorm.DB) {
	t.Helper()
	e := newEnv(t, db)
	e.seed(t, "limited", true, testutil.Int32(5))

	const buyers = 10
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
		other        []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.CreateOrderAtomic(context.Background(), draft(line("limited", 1)), "")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, service.ErrInsufficientInventory):
				insufficient++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if success != 5 || insufficient != 5 {
		t.Fatalf("expected 5 successes and 5 rejections, got %d/%d", success, insufficient)
	}
	if got := *e.inventory(t, "limited"); got != 0 {
		t.Fatalf("expected inventory 0, got %d", got)
	}
	if n := e.orderCount(t); n != 5 {
		t.Fatalf("expected 5 orders, got %d", n)
	}

	committed, err := e.repo.OrderItems.SumCommitted(context.Background(), "limited")
	if err != nil {
		t.Fatalf("SumCommitted: %v", err)
	}
	if committed != 5 {
		t.Fatalf("committed units must equal allotment, got %d", committed)
	}
}

func TestInventoryRace_SQLite(t *testing.T) {
	runInventoryRace(t, testutil.MigratedSQLite(t))
}

func TestInventoryRace_Postgres(t *testing.T) {
	runInventoryRace(t, testutil.MigratedPostgres(t))
}

// Параллельные повторы с одним ключом: владелец коммитит, остальные
// ждут его claim и получают тот же заказ.
func runSameKeyRace(t *testing.T, db *gorm.DB) {
	t.Helper()
	e := newEnv(t, db)
	e.seed(t, "pizza", true, testutil.Int32(10))
	key := uuid.NewString()

	const n = 6
	ids := make([]string, n)
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ord, err := e.svc.CreateOrderAtomic(context.Background(), draft(line("pizza", 1)), key)
			errs[i] = err
			if ord != nil {
				ids[i] = ord.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d: %v", i, errs[i])
		}
		if ids[i] == "" || ids[i] != ids[0] {
			t.Fatalf("attempt %d returned %q, want %q", i, ids[i], ids[0])
		}
	}
	if c := e.orderCount(t); c != 1 {
		t.Fatalf("expected one order, got %d", c)
	}
	if got := *e.inventory(t, "pizza"); got != 9 {
		t.Fatalf("inventory must be decremented once, got %d", got)
	}
	if got := e.obs.Count(service.OutcomeCommitted); got != 1 {
		t.Fatalf("expected one committed outcome, got %d", got)
	}
	if got := e.obs.Count(service.OutcomeReplayed); got != n-1 {
		t.Fatalf("expected %d replays, got %d", n-1, got)
	}
}

func TestSameKeyRace_SQLite(t *testing.T) {
	runSameKeyRace(t, testutil.MigratedSQLite(t))
}

func TestSameKeyRace_Postgres(t *testing.T) {
	runSameKeyRace(t, testutil.MigratedPostgres(t))
}
