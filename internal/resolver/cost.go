package resolver

// costPageSize is the fan-out granularity of the cost model: every ten
// requested elements count as one indexed page fetch.
const costPageSize = 10

// costPageFactor weights one page fetch against a scalar field; a paged
// relation is an indexed lookup, costlier than reading a field in place.
const costPageFactor = 10.0

// PagedRelationCost estimates the complexity contribution of one paged
// relation field: the page may fan out into limit downstream element
// fetches, each amplifying the cost of the child selection.
func PagedRelationCost(limit int, childCost float64) float64 {
	pages := limit / costPageSize
	if pages < 1 {
		pages = 1
	}
	return float64(pages) * costPageFactor * childCost
}
