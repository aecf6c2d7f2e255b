package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarnings(t *testing.T) {
	cases := []struct {
		name    string
		seconds int64
		rate    int64
		want    int64
	}{
		{"zero time", 0, 1000, 0},
		{"one hour at $10", 3600, 1000, 1000},
		{"half hour at $10", 1800, 1000, 500},
		{"no rate", 3600, 0, 0},
		{"negative seconds clamp", -60, 1000, 0},
		{"one second at $60 rounds up from 1.67", 1, 6000, 2},
		{"half cent rounds up", 18, 100, 1},     // 0.5 cent
		{"just under half rounds down", 17, 100, 0}, // 0.47 cent
		{"hour at $60", 3600, 6000, 6000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Earnings(tc.seconds, tc.rate))
		})
	}
}

func TestParseAndFormatCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"60", 6000},
		{"60.5", 6050},
		{"$12.34", 1234},
		{".75", 75},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := ParseCents(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "-1", "1.234", "abc", "1."} {
		_, err := ParseCents(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "60.00", FormatCents(6000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-1.50", FormatCents(-150))
}
