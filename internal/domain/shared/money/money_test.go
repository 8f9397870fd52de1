package money

import "testing"

func TestNewRejectsBadCurrency(t *testing.T) {
	if _, err := New(100, "KESH"); err == nil {
		t.Fatal("expected error for 4-letter currency")
	}
	if _, err := New(100, ""); err == nil {
		t.Fatal("expected error for empty currency")
	}
}

func TestArithmeticGuardsCurrency(t *testing.T) {
	kes := Must(1000, "KES")
	usd := Must(1000, "USD")
	if _, err := kes.Add(usd); err != ErrCurrencyMismatch {
		t.Fatalf("err = %v, want ErrCurrencyMismatch", err)
	}
	sum, err := kes.Add(Must(500, "KES"))
	if err != nil || sum.Amount != 1500 {
		t.Fatalf("Add = %v, %v", sum, err)
	}
	diff, err := kes.Sub(Must(300, "KES"))
	if err != nil || diff.Amount != 700 {
		t.Fatalf("Sub = %v, %v", diff, err)
	}
}

func TestPercentBpsRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{10000, 1600, 1600},
		{333, 1600, 53},  // 53.28 rounds down
		{333, 1000, 33},  // 33.3 rounds down
		{325, 1000, 33},  // 32.5 rounds up
		{100, 50, 1},     // 0.5 rounds up
		{100, 40, 0},     // 0.4 rounds down
	}
	for _, tc := range cases {
		m := Must(tc.amount, "KES")
		if got := m.PercentBps(tc.bps).Amount; got != tc.want {
			t.Fatalf("PercentBps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}
