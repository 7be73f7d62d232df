package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "basic", want: Basic},
		{in: " Premium ", want: Premium},
		{in: "scale_elite", want: Elite},
		{in: "PRO", want: Pro},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := Parse("ultra")
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = Parse("")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestCodesMatchRemoteScale(t *testing.T) {
	want := map[Tier]string{Basic: "1", Premium: "2", Elite: "3", Pro: "4"}
	for _, tr := range All {
		assert.Equal(t, want[tr], tr.Code())
		assert.True(t, tr.Valid())
		back, err := Parse(tr.CallbackData())
		require.NoError(t, err)
		assert.Equal(t, tr, back)
	}
	assert.False(t, Unset.Valid())
	assert.Empty(t, Unset.Code())
	assert.Equal(t, "Premium", Premium.Title())
}
