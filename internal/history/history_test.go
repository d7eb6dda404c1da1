package history

import (
	"context"
	"fmt"
	"testing"
)

// openTestStore opens an in-memory Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "erp", "how do I raise a PO?", "Open Purchasing and..."); err != nil {
		t.Fatalf("append: %v", err)
	}

	exchanges, err := s.Recent(ctx, "erp", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("want 1 exchange, got %d", len(exchanges))
	}
	e := exchanges[0]
	if e.Category != "erp" || e.Question != "how do I raise a PO?" || e.Answer != "Open Purchasing and..." {
		t.Errorf("exchange round-trip mismatch: %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Errorf("exchange missing timestamp: %+v", e)
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 6 {
		if err := s.Append(ctx, "erp", fmt.Sprintf("q%d", i), "a"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	exchanges, err := s.Recent(ctx, "erp", 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 4 {
		t.Errorf("want 4 exchanges, got %d", len(exchanges))
	}
}

func Test_Store_CategoryIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "erp", "from erp", "a"); err != nil {
		t.Fatalf("append erp: %v", err)
	}
	if err := s.Append(ctx, "hrms", "from hrms", "a"); err != nil {
		t.Fatalf("append hrms: %v", err)
	}

	erp, err := s.Recent(ctx, "erp", 10)
	if err != nil {
		t.Fatalf("recent erp: %v", err)
	}
	hrms, err := s.Recent(ctx, "hrms", 10)
	if err != nil {
		t.Fatalf("recent hrms: %v", err)
	}

	if len(erp) != 1 || erp[0].Question != "from erp" {
		t.Errorf("erp isolation failed: got %v", erp)
	}
	if len(hrms) != 1 || hrms[0].Question != "from hrms" {
		t.Errorf("hrms isolation failed: got %v", hrms)
	}
}

func Test_Store_EmptyCategoryReturnsAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "erp", "q1", "a1"); err != nil {
		t.Fatalf("append erp: %v", err)
	}
	if err := s.Append(ctx, "hrms", "q2", "a2"); err != nil {
		t.Fatalf("append hrms: %v", err)
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("want 2 exchanges across categories, got %d", len(all))
	}
}

func Test_Store_UnknownCategoryReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	exchanges, err := s.Recent(ctx, "crm", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 0 {
		t.Errorf("want 0 exchanges, got %d", len(exchanges))
	}
}

func Test_Store_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	questions := []string{"first", "second", "third"}
	for _, q := range questions {
		if err := s.Append(ctx, "erp", q, "a"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	exchanges, err := s.Recent(ctx, "erp", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != len(questions) {
		t.Fatalf("want %d exchanges, got %d", len(questions), len(exchanges))
	}
	for i, want := range questions {
		if exchanges[i].Question != want {
			t.Errorf("exchange[%d]: want %q, got %q", i, want, exchanges[i].Question)
		}
	}
}
