package daycount_test

import (
	"testing"
	"time"

	"github.com/meenmo/wopricer/daycount"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFractionAct360(t *testing.T) {
	yf, err := daycount.Fraction(d("2026-01-01"), d("2026-07-01"), daycount.Act360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 181.0 / 360.0
	if diff := yf - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %v want %v", yf, want)
	}
}

func TestFractionAct365F(t *testing.T) {
	yf, err := daycount.Fraction(d("2026-01-01"), d("2027-01-01"), daycount.Act365F)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 365.0 / 365.0
	if yf != want {
		t.Fatalf("got %v want %v", yf, want)
	}
}

func TestFractionThirty360DayRoll(t *testing.T) {
	// day=31 on both legs rolls back to 30.
	yf, err := daycount.Fraction(d("2026-01-31"), d("2026-03-31"), daycount.Thirty360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 60.0 / 360.0
	if yf != want {
		t.Fatalf("got %v want %v", yf, want)
	}
}

func TestFractionFailsWhenEndBeforeStart(t *testing.T) {
	_, err := daycount.Fraction(d("2026-05-01"), d("2026-01-01"), daycount.Act365F)
	if err == nil {
		t.Fatal("expected error for end < start")
	}
}

func TestBracket(t *testing.T) {
	dates := []time.Time{d("2026-01-01"), d("2026-04-01"), d("2026-07-01")}
	lo, hi, found := daycount.Bracket(dates, d("2026-05-01"))
	if !found {
		t.Fatal("expected bracket to be found")
	}
	if !lo.Equal(d("2026-04-01")) || !hi.Equal(d("2026-07-01")) {
		t.Fatalf("got (%v, %v)", lo, hi)
	}
}

func TestBracketOutOfRange(t *testing.T) {
	dates := []time.Time{d("2026-01-01"), d("2026-04-01")}
	_, _, found := daycount.Bracket(dates, d("2027-01-01"))
	if found {
		t.Fatal("expected not found for out-of-range target")
	}
}

func TestUniqueSortedDates(t *testing.T) {
	dates := []time.Time{d("2026-07-01"), d("2026-01-01"), d("2026-01-01"), d("2026-04-01")}
	got := daycount.UniqueSortedDates(dates)
	want := []time.Time{d("2026-01-01"), d("2026-04-01"), d("2026-07-01")}
	if len(got) != len(want) {
		t.Fatalf("got %d dates want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}
