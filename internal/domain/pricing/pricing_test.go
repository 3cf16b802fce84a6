package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		items     string
		tax       string
		travel    string
		tip       string
		beforeTip string
		final     string
	}{
		{
			name:      "typical event",
			req:       Request{Miles: d("10"), PackageRate: d("25"), GuestCount: 20},
			items:     "500",
			tax:       "31.25",
			travel:    "90",
			tip:       "90",
			beforeTip: "621.25",
			final:     "711.25",
		},
		{
			name:      "zero guests charges travel only",
			req:       Request{Miles: d("12.5"), PackageRate: d("25"), GuestCount: 0},
			items:     "0",
			tax:       "0",
			travel:    "100",
			tip:       "0",
			beforeTip: "100",
			final:     "100",
		},
		{
			name:      "zero package rate charges travel only",
			req:       Request{Miles: d("3"), PackageRate: decimal.Zero, GuestCount: 40},
			items:     "0",
			tax:       "0",
			travel:    "62",
			tip:       "0",
			beforeTip: "62",
			final:     "62",
		},
		{
			name:      "negative miles clamp to base travel fee",
			req:       Request{Miles: d("-15"), PackageRate: d("10"), GuestCount: 1},
			items:     "10",
			tax:       "0.625",
			travel:    "50",
			tip:       "1.8",
			beforeTip: "60.625",
			final:     "62.425",
		},
		{
			name:      "fractional rate is not rounded",
			req:       Request{Miles: d("0.3"), PackageRate: d("19.99"), GuestCount: 3},
			items:     "59.97",
			tax:       "3.7481250",
			travel:    "51.2",
			tip:       "10.7946",
			beforeTip: "114.918125",
			final:     "125.712725",
		},
		{
			name:      "empty request",
			req:       Request{},
			items:     "0",
			tax:       "0",
			travel:    "50",
			tip:       "0",
			beforeTip: "50",
			final:     "50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := Price(tt.req)

			assertDecimal(t, tt.items, est.Items, "items")
			assertDecimal(t, tt.tax, est.Tax, "tax")
			assertDecimal(t, tt.travel, est.Travel, "travel")
			assertDecimal(t, tt.tip, est.Tip, "tip")
			assertDecimal(t, tt.beforeTip, est.TotalBeforeTip, "total before tip")
			assertDecimal(t, tt.final, est.FinalTotal, "final total")
		})
	}
}

func TestPrice_Invariants(t *testing.T) {
	for _, rate := range []string{"0", "1", "12.34", "99.999"} {
		for _, guests := range []int{0, 1, 7, 250} {
			for _, miles := range []string{"-1", "0", "0.5", "42"} {
				est := Price(Request{Miles: d(miles), PackageRate: d(rate), GuestCount: guests})

				items := d(rate).Mul(decimal.NewFromInt(int64(guests)))
				assert.True(t, items.Equal(est.Items))
				assert.True(t, TaxRate.Mul(items).Equal(est.Tax))
				assert.True(t, TipRate.Mul(items).Equal(est.Tip))
				assert.True(t, est.Travel.Add(est.Items).Add(est.Tax).Equal(est.TotalBeforeTip))
				assert.True(t, est.TotalBeforeTip.Add(est.Tip).Equal(est.FinalTotal))
			}
		}
	}
}

func TestPrice_Deterministic(t *testing.T) {
	req := Request{Miles: d("7.25"), PackageRate: d("31.5"), GuestCount: 33}
	assert.Equal(t, Price(req), Price(req))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"25", "25"},
		{" 12.5 ", "12.5"},
		{"-3", "-3"},
		{"", "0"},
		{"abc", "0"},
		{"1e2", "100"},
		{"0e20000000", "0"},
		{"999999999.9999999999", "999999999.9999999999"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, "ParseAmount(%q)", tt.in)
		assertDecimal(t, tt.want, got, "ParseAmount("+tt.in+")")
	}
}

func TestParseAmount_OutOfRange(t *testing.T) {
	for _, in := range []string{
		"1e20000000",
		"1e-20000000",
		"-1e20000000",
		"1e10",
		"1000000000",
		"-1000000000",
		"0.00000000001",
	} {
		t.Run(in, func(t *testing.T) {
			done := make(chan struct{})
			var err error
			go func() {
				defer close(done)
				_, err = ParseAmount(in)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("ParseAmount did not return promptly")
			}
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"20", 20},
		{"20.9", 20},
		{"-2.7", -2},
		{"many", 0},
		{"", 0},
		{"999999999", 999999999},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		require.NoError(t, err, "ParseCount(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseCount(%q)", tt.in)
	}

	for _, in := range []string{"1e19", "18446744073709551617", "9.3e18", "-1e19"} {
		_, err := ParseCount(in)
		assert.ErrorIs(t, err, ErrOutOfRange, "ParseCount(%q)", in)
	}
}
