package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagedRelationCost(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		childCost float64
		want      float64
	}{
		{name: "two pages of scalars", limit: 20, childCost: 1.0, want: 20.0},
		{name: "small limit rounds up to one page", limit: 1, childCost: 2.0, want: 20.0},
		{name: "exactly one page", limit: 10, childCost: 1.0, want: 10.0},
		{name: "partial second page truncates", limit: 25, childCost: 1.0, want: 20.0},
		{name: "zero limit still costs one page", limit: 0, childCost: 1.0, want: 10.0},
		{name: "nested amplification", limit: 30, childCost: 10.0, want: 300.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, PagedRelationCost(tc.limit, tc.childCost), 1e-9)
		})
	}
}
