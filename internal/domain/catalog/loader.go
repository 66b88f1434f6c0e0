package catalog

import (
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// LoadFile reads a catalog from a JSON file. Files ending in ".gz" are
// decompressed on the fly.
//
// Expected layout:
//
//	{"categories":[{"id":"laver","name":"Laver & Sécher"}],
//	 "services":[{"id":"kilo-wash","title":"...","price":"22","unit":"/5kg",...}]}
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	c, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return c, nil
}

// Decode parses a catalog document from r.
func Decode(r io.Reader) (*Catalog, error) {
	var (
		categories []Category
		services   []Service
	)
	d := jx.Decode(r, 4096)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCategory(d)
				if err != nil {
					return err
				}
				categories = append(categories, c)
				return nil
			})
		case "services":
			return d.Arr(func(d *jx.Decoder) error {
				s, err := decodeService(d)
				if err != nil {
					return err
				}
				services = append(services, s)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return New(categories, services)
}

func decodeCategory(d *jx.Decoder) (Category, error) {
	var c Category
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeService(d *jx.Decoder) (Service, error) {
	var s Service
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "title":
			s.Title, err = d.Str()
		case "description":
			s.Description, err = d.Str()
		case "price":
			s.UnitPrice, err = decodePrice(d)
		case "unit":
			s.Unit, err = d.Str()
		case "subPrice":
			s.SubPrice, err = d.Str()
		case "icon":
			s.Icon, err = d.Str()
		case "category":
			s.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	return s, err
}

// decodePrice accepts both "12.5" and 12.5.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, errors.New("price must be a string or number")
	}
	return decimal.NewFromString(raw)
}
