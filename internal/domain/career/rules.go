package career

import (
	"math/rand/v2"
	"time"
)

// TransferWindow is a yearly period in which registrations are allowed.
// Close is exclusive: the window is shut from CloseMonth/CloseDay on.
type TransferWindow struct {
	Name       string     `koanf:"name"`
	OpenMonth  time.Month `koanf:"open_month"`
	OpenDay    int        `koanf:"open_day"`
	CloseMonth time.Month `koanf:"close_month"`
	CloseDay   int        `koanf:"close_day"`
}

func (w TransferWindow) opensOn(year int) time.Time {
	return time.Date(year, w.OpenMonth, w.OpenDay, 0, 0, 0, 0, time.UTC)
}

func (w TransferWindow) closesOn(year int) time.Time {
	closeYear := year
	if w.CloseMonth < w.OpenMonth {
		closeYear++
	}
	return time.Date(closeYear, w.CloseMonth, w.CloseDay, 0, 0, 0, 0, time.UTC)
}

// IsOpen reports whether date falls inside the window.
func (w TransferWindow) IsOpen(date time.Time) bool {
	for _, year := range []int{date.Year() - 1, date.Year()} {
		if !date.Before(w.opensOn(year)) && date.Before(w.closesOn(year)) {
			return true
		}
	}
	return false
}

// InCloseMonth reports whether date is in the month the window shuts.
func (w TransferWindow) InCloseMonth(date time.Time) bool {
	return date.Month() == w.CloseMonth && date.Day() >= w.CloseDay
}

// Key identifies one yearly occurrence of the window.
func (w TransferWindow) Key(date time.Time) string {
	year := date.Year()
	if date.Before(w.opensOn(year)) && w.CloseMonth < w.OpenMonth {
		year--
	}
	return w.Name + ":" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}

// OpenWindow returns the window open on date, if any.
func OpenWindow(windows []TransferWindow, date time.Time) (TransferWindow, bool) {
	for _, w := range windows {
		if w.IsOpen(date) {
			return w, true
		}
	}
	return TransferWindow{}, false
}

// AcceptsRenewal decides a player's reply to a contract offer. Offers at or
// above the demand are always accepted; within ten percent it is a coin flip.
func AcceptsRenewal(n ContractNegotiation, rng *rand.Rand) bool {
	if n.OfferedWage >= n.DemandedWage {
		return true
	}
	if n.OfferedWage*10 >= n.DemandedWage*9 {
		return rng.IntN(2) == 0
	}
	return false
}

// AcceptsBid decides whether a selling club takes a fee for a player valued
// at marketValue.
func AcceptsBid(fee, marketValue int64, rng *rand.Rand) bool {
	switch {
	case fee >= marketValue*12/10:
		return true
	case fee >= marketValue:
		return rng.IntN(3) > 0
	case fee >= marketValue*8/10:
		return rng.IntN(4) == 0
	default:
		return false
	}
}

// AcceptsLoan decides whether a club lends a player it rarely uses.
func AcceptsLoan(appearances, age int, rng *rand.Rand) bool {
	if age > 23 {
		return rng.IntN(4) == 0
	}
	if appearances < 5 {
		return true
	}
	return rng.IntN(2) == 0
}
