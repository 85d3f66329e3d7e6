package util

// Calculate turns the page/size query params of the player search endpoint
// into an Elasticsearch from/size window. Out-of-range values fall back to
// page 1 and a page size of 10, capped at 100.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	from = (page - 1) * size
	return from, size
}
