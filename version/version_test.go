package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantNil bool
	}{
		{name: "simple", raw: "1.0", want: "1.0"},
		{name: "leading v", raw: "v2.3.1", want: "2.3.1"},
		{name: "leading capital V", raw: "V4", want: "4"},
		{name: "latest", raw: "latest", want: "latest"},
		{name: "latest mixed case", raw: "Latest", want: "latest"},
		{name: "trailing dot", raw: "1.", wantNil: true},
		{name: "word", raw: "draft", wantNil: true},
		{name: "lone v", raw: "v", wantNil: true},
		{name: "negative", raw: "-1", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(tt.raw)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestOfEmpty(t *testing.T) {
	v, err := Of("")
	assert.Nil(t, v)
	assert.True(t, errors.Is(err, ErrNilVersion))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2", "1.2.4", -1},
		{"1.2.4", "1.2", 1},
		{"1.10", "1.9", 1},
		{"2", "1.99.99", 1},
		{"v1.0", "1.0", 0},
		{"latest", "99.0", 1},
		{"3.1", "latest", -1},
		{"latest", "LATEST", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, b := MustOf(tt.a), MustOf(tt.b)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestLatest(t *testing.T) {
	name, ok := Latest([]string{"1.0", "v1.2", "notes", "1.1.9"})
	require.True(t, ok)
	assert.Equal(t, "v1.2", name)

	name, ok = Latest([]string{"2.0", "latest"})
	require.True(t, ok)
	assert.Equal(t, "latest", name)

	_, ok = Latest([]string{"docs", "img"})
	assert.False(t, ok)
}

func TestComponentsIsCopy(t *testing.T) {
	v := MustOf("1.2")
	c := v.Components()
	c[0] = 9
	assert.Equal(t, "1.2", v.String())
}
