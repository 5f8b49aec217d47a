package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domusage "github.com/kailas-cloud/sentinel/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit   int64
	monthlyLimit int64
	dailyUsed    int64
	monthlyUsed  int64
}

func (m *mockBudgetReader) DailyLimit() int64   { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64 { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsed() int64    { return m.dailyUsed }
func (m *mockBudgetReader) MonthlyUsed() int64  { return m.monthlyUsed }

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newService(br BudgetReader) *Service {
	svc := New(br)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	br := &mockBudgetReader{dailyLimit: 10000, dailyUsed: 3000, monthlyLimit: 100000, monthlyUsed: 50000}
	r, err := newService(br).GetReport(context.Background(), "day")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}

	if r.Period() != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period())
	}

	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != dayStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", dayStart.UnixMilli(), r.PeriodStart())
	}
	if r.PeriodEnd() != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd())
	}

	if r.Limit() != 10000 || r.Used() != 3000 || r.Remaining() != 7000 {
		t.Errorf("limit = %d, used = %d, remaining = %d", r.Limit(), r.Used(), r.Remaining())
	}
	if r.Exhausted() {
		t.Error("budget should not be exhausted")
	}
}

func TestGetReport_DefaultsToDay(t *testing.T) {
	r, err := newService(&mockBudgetReader{}).GetReport(context.Background(), "")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if r.Period() != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period())
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	br := &mockBudgetReader{monthlyLimit: 100000, monthlyUsed: 80000}
	r, err := newService(br).GetReport(context.Background(), "month")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}

	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != monthStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", monthStart.UnixMilli(), r.PeriodStart())
	}
	if r.PeriodEnd() != time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd())
	}
	if r.Limit() != 100000 || r.Remaining() != 20000 {
		t.Errorf("limit = %d, remaining = %d", r.Limit(), r.Remaining())
	}
}

func TestGetReport_InvalidPeriod(t *testing.T) {
	_, err := newService(nil).GetReport(context.Background(), "total")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetReport_NilBudgetReader(t *testing.T) {
	r, err := newService(nil).GetReport(context.Background(), "day")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}

	if !r.Unlimited() || r.Remaining() != -1 {
		t.Errorf("unlimited = %v, remaining = %d", r.Unlimited(), r.Remaining())
	}
	if r.Exhausted() {
		t.Error("nil budget reader should not be exhausted")
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	br := &mockBudgetReader{dailyLimit: 5000, dailyUsed: 5000}
	r, err := newService(br).GetReport(context.Background(), "day")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}

	if !r.Exhausted() {
		t.Error("budget should be exhausted when used reaches the limit")
	}
}
