package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"identical", "20.00", "20.00", true},
		{"trailing zeros", "20", "20.00", true},
		{"one trailing zero", "20.0", "20.00", true},
		{"free", "0", "0.00", true},
		{"different values", "20.00", "15.00", false},
		{"off by a cent", "20.00", "20.01", false},
		{"whitespace tolerated", " 20.00 ", "20", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Equal(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.equal, got)
		})
	}
}

func TestEqualInvalidInput(t *testing.T) {
	for _, amount := range []string{"", "abc", "20.00.00", "-5"} {
		_, err := Equal(amount, "20.00")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}
}

func TestIsFree(t *testing.T) {
	free, err := IsFree("0")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = IsFree("0.00")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = IsFree("19.99")
	require.NoError(t, err)
	assert.False(t, free)

	_, err = IsFree("not-a-price")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "20.00", FromMinorUnits(2000))
	assert.Equal(t, "0.99", FromMinorUnits(99))
	assert.Equal(t, "0.00", FromMinorUnits(0))
	assert.Equal(t, "1234.05", FromMinorUnits(123405))
}

func TestToMinorUnits(t *testing.T) {
	cents, err := ToMinorUnits("20.00")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cents)

	cents, err = ToMinorUnits("20")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cents)

	cents, err = ToMinorUnits("0.99")
	require.NoError(t, err)
	assert.Equal(t, int64(99), cents)

	_, err = ToMinorUnits("0.999")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	equal, err := Equal(FromMinorUnits(2000), "20")
	require.NoError(t, err)
	assert.True(t, equal, "provider-reported cents must compare equal to the catalog price")
}
