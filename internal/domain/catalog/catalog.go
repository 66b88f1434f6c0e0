package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested service does not exist.
var ErrNotFound = errors.New("service not found")

// CategoryAll selects every service regardless of category.
const CategoryAll = "all"

// Service represents an offerable laundry service.
type Service struct {
	ID          string
	Title       string
	Description string
	UnitPrice   decimal.Decimal
	// Unit is the pricing unit label, e.g. "/article" or "/5kg".
	Unit string
	// SubPrice is an optional secondary price hint such as "(44 DT /10kg)".
	SubPrice string
	Icon     string
	Category string
}

// Category groups services on the selection step.
type Category struct {
	ID   string
	Name string
}

// Catalog is an immutable, ordered list of services.
type Catalog struct {
	services   []Service
	byID       map[string]int
	categories []Category
}

// New builds a Catalog. Service IDs must be unique.
func New(categories []Category, services []Service) (*Catalog, error) {
	byID := make(map[string]int, len(services))
	for i, s := range services {
		if s.ID == "" {
			return nil, errors.Errorf("service at index %d has empty id", i)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, errors.Errorf("duplicate service id %q", s.ID)
		}
		if s.UnitPrice.IsNegative() {
			return nil, errors.Errorf("service %q has negative price", s.ID)
		}
		byID[s.ID] = i
	}
	return &Catalog{
		services:   append([]Service(nil), services...),
		byID:       byID,
		categories: append([]Category(nil), categories...),
	}, nil
}

// List returns the services of the given category in catalog order.
// An empty category or CategoryAll returns every service.
func (c *Catalog) List(category string) []Service {
	out := make([]Service, 0, len(c.services))
	for _, s := range c.services {
		if category == "" || category == CategoryAll || s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a single service by ID.
func (c *Catalog) Get(id string) (Service, error) {
	i, ok := c.byID[id]
	if !ok {
		return Service{}, ErrNotFound
	}
	return c.services[i], nil
}

// Categories returns the category tabs in display order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}
