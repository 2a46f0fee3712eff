package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFieldsDefault(t *testing.T) {
	assert.Equal(t, DefaultLimit, NewFields(0).DefaultLimit())
	assert.Equal(t, DefaultLimit, NewFields(-3).DefaultLimit())
	assert.Equal(t, 25, NewFields(25).DefaultLimit())
}

func TestLimit(t *testing.T) {
	f := NewFields(10)

	assert.Equal(t, 5, f.Limit(map[string]interface{}{"limit": 5}))
	assert.Equal(t, 0, f.Limit(map[string]interface{}{"limit": 0}))
	assert.Equal(t, 10, f.Limit(map[string]interface{}{}))
	assert.Equal(t, 10, f.Limit(nil))
	// Negative and non-numeric values fall back to the default.
	assert.Equal(t, 10, f.Limit(map[string]interface{}{"limit": -1}))
	assert.Equal(t, 10, f.Limit(map[string]interface{}{"limit": "many"}))
}

func TestStart(t *testing.T) {
	start, ok := Start(map[string]interface{}{"start": "cursor-3"})
	assert.True(t, ok)
	assert.Equal(t, "cursor-3", start)

	_, ok = Start(map[string]interface{}{})
	assert.False(t, ok)
	_, ok = Start(map[string]interface{}{"start": ""})
	assert.False(t, ok)
	_, ok = Start(nil)
	assert.False(t, ok)
}

func TestArgsShape(t *testing.T) {
	f := NewFields(10)
	args := f.Args()

	assert.Contains(t, args, "start")
	assert.Contains(t, args, "limit")
	assert.Equal(t, 10, args["limit"].DefaultValue)
}

func TestPagingTypeCached(t *testing.T) {
	f := NewFields(10)
	first := f.PagingType()
	second := f.PagingType()

	assert.Same(t, first, second)
	assert.Equal(t, "CollectionPaging", first.Name())
	for _, field := range []string{"start", "limit", "count", "nextStart", "total"} {
		assert.Contains(t, first.Fields(), field)
	}
}

func TestCoerceNonNegativeInt(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  int
		ok    bool
	}{
		{name: "int", value: 7, want: 7, ok: true},
		{name: "zero", value: 0, want: 0, ok: true},
		{name: "negative int", value: -1, ok: false},
		{name: "float", value: float64(4), want: 4, ok: true},
		{name: "fractional float", value: 4.5, ok: false},
		{name: "int64", value: int64(12), want: 12, ok: true},
		{name: "string", value: "12", ok: false},
		{name: "nil", value: nil, ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := coerceNonNegativeInt(tc.value)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
