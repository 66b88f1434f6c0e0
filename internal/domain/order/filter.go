package order

import "strings"

// TabAll selects every status.
const TabAll = "all"

// Filter narrows an order list by status tab and free-text search.
type Filter struct {
	// Status is empty for the "all" tab.
	Status Status
	Query  string
}

// ParseFilter builds a Filter from raw query values. An empty tab means all.
func ParseFilter(tab, query string) (Filter, error) {
	f := Filter{Query: strings.TrimSpace(query)}
	if tab == "" || tab == TabAll {
		return f, nil
	}
	s, err := ParseStatus(tab)
	if err != nil {
		return Filter{}, err
	}
	f.Status = s
	return f, nil
}

// Match reports whether o passes the filter. The query matches the order ID
// or the customer name case-insensitively, or the phone number as is.
func (f Filter) Match(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(o.ID), q) ||
		strings.Contains(strings.ToLower(o.UserName), q) ||
		(o.UserPhone != "" && strings.Contains(o.UserPhone, f.Query))
}

// Apply returns the orders matching f, keeping their order.
func (f Filter) Apply(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// CountByStatus counts orders per status.
func CountByStatus(orders []Order) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		out[s] = 0
	}
	for _, o := range orders {
		out[o.Status]++
	}
	return out
}
