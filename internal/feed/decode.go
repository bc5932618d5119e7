// Package feed reads the catalog document: a JSON object whose "productos"
// member lists the products in display order.
package feed

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrMalformed is returned when the document is not a catalog.
var ErrMalformed = errors.New("malformed catalog document")

// Decode parses a catalog document. Unknown fields are skipped.
func Decode(data []byte) ([]product.Product, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errors.Wrap(ErrMalformed, "expected object")
	}

	var (
		products []product.Product
		found    bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "productos" {
			return d.Skip()
		}
		found = true
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return errors.Wrapf(err, "product %d", len(products))
			}
			products = append(products, p)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if !found {
		return nil, errors.Wrap(ErrMalformed, `missing "productos"`)
	}
	if products == nil {
		products = []product.Product{}
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p     product.Product
		hasID bool
	)
	p.ListPrice = product.OnRequest()

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
			hasID = err == nil
		case "nombre":
			p.Name, err = optString(d)
		case "descripcion":
			p.Description, err = optString(d)
		case "imagen":
			p.Image, err = optString(d)
		case "categoria":
			p.Category, err = optString(d)
		case "precio":
			var v decimal.NullDecimal
			if v, err = optDecimal(d); err == nil && v.Valid {
				p.ListPrice = product.Fixed(v.Decimal)
			}
		case "precio_oferta":
			var v decimal.NullDecimal
			if v, err = optDecimal(d); err == nil && v.Valid {
				p.SalePrice = v.Decimal
			}
		case "oferta":
			p.OnSale, err = optBool(d)
		case "envio-gratis":
			p.FreeShipping, err = optBool(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return product.Product{}, err
	}
	if !hasID {
		return product.Product{}, errors.Wrap(ErrMalformed, "product without id")
	}
	return p, nil
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func optBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

func optDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.NullDecimal{}, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}, errors.Wrapf(err, "parse number %q", n.String())
		}
		return decimal.NewNullDecimal(v), nil
	default:
		return decimal.NullDecimal{}, errors.Wrap(ErrMalformed, "price must be a number or null")
	}
}
