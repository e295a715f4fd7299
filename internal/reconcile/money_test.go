package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1234.56", 123456, false},
		{"$1,234.56", 123456, false},
		{"€99.90", 9990, false},
		{"12", 1200, false},
		{"0.5", 50, false},
		{"-7.50", -750, false},
		{"(45.00)", -4500, false},
		{" 10.00 ", 1000, false},
		{"", 0, true},
		{"9.999", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.34", FormatCents(1234))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-7.50", FormatCents(-750))
}

func TestCentsWithinTolerance(t *testing.T) {
	// 0.5 x 199.99 computes to 99.995: half a cent off a stated 100.00
	// is fine, a dime off a stated 99.90 is not
	assert.True(t, centsWithinTolerance(9999.5, 10000))
	assert.False(t, centsWithinTolerance(9999.5, 9990))
	assert.True(t, centsWithinTolerance(3000, 3001))
	assert.False(t, centsWithinTolerance(3000, 3002))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-03-14", "2025/03/14", "03/14/2025", "Mar 14, 2025", "14 March 2025"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, 2025, got.Year())
		assert.Equal(t, 3, int(got.Month()))
		assert.Equal(t, 14, got.Day())
	}
	_, ok := ParseDate("last tuesday")
	assert.False(t, ok)
}
