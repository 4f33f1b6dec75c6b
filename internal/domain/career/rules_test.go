package career

import (
	"math/rand/v2"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransferWindow(t *testing.T) {
	summer := TransferWindow{Name: "summer", OpenMonth: time.July, OpenDay: 1, CloseMonth: time.September, CloseDay: 1}

	tests := []struct {
		date       time.Time
		open       bool
		closeMonth bool
	}{
		{date: day(2025, time.June, 30), open: false},
		{date: day(2025, time.July, 1), open: true},
		{date: day(2025, time.August, 31), open: true},
		{date: day(2025, time.September, 1), open: false, closeMonth: true},
		{date: day(2025, time.September, 20), open: false, closeMonth: true},
		{date: day(2025, time.October, 2), open: false},
	}
	for _, tc := range tests {
		if got := summer.IsOpen(tc.date); got != tc.open {
			t.Fatalf("unexpected open state on %s: got=%t want=%t", tc.date.Format(time.DateOnly), got, tc.open)
		}
		if got := summer.InCloseMonth(tc.date); got != tc.closeMonth {
			t.Fatalf("unexpected close month on %s: got=%t want=%t", tc.date.Format(time.DateOnly), got, tc.closeMonth)
		}
	}

	if summer.Key(day(2025, time.August, 1)) != summer.Key(day(2025, time.September, 15)) {
		t.Fatalf("window key should be stable across one occurrence")
	}
}

func TestOpenWindow(t *testing.T) {
	windows := []TransferWindow{
		{Name: "summer", OpenMonth: time.July, OpenDay: 1, CloseMonth: time.September, CloseDay: 1},
		{Name: "winter", OpenMonth: time.January, OpenDay: 1, CloseMonth: time.February, CloseDay: 1},
	}
	w, ok := OpenWindow(windows, day(2026, time.January, 15))
	if !ok || w.Name != "winter" {
		t.Fatalf("expected winter window, got=%+v ok=%t", w, ok)
	}
	if _, ok := OpenWindow(windows, day(2026, time.March, 15)); ok {
		t.Fatalf("expected no window in March")
	}
}

func TestAcceptsRenewal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	if !AcceptsRenewal(ContractNegotiation{OfferedWage: 100, DemandedWage: 100}, rng) {
		t.Fatalf("offer meeting demand must be accepted")
	}
	if AcceptsRenewal(ContractNegotiation{OfferedWage: 50, DemandedWage: 100}, rng) {
		t.Fatalf("offer at half the demand must be rejected")
	}
}

func TestAcceptsBid(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	if !AcceptsBid(130, 100, rng) {
		t.Fatalf("bid well above value must be accepted")
	}
	if AcceptsBid(50, 100, rng) {
		t.Fatalf("bid at half value must be rejected")
	}
}
