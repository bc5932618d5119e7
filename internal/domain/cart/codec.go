package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Slot field names match the browser storefront's saved carts so existing
// slots stay readable.
const (
	fieldID       = "id"
	fieldName     = "nombre"
	fieldImage    = "imagen"
	fieldPrice    = "precio"
	fieldQuantity = "cantidad"
)

func encodeItems(items []LineItem) ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart(fieldID)
		e.Int64(item.ProductID)
		e.FieldStart(fieldName)
		e.Str(item.Name)
		e.FieldStart(fieldImage)
		e.Str(item.Image)
		e.FieldStart(fieldPrice)
		e.Raw([]byte(item.UnitPrice.String()))
		e.FieldStart(fieldQuantity)
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	return append([]byte(nil), e.Bytes()...), nil
}

// decodeItems parses a cart slot. Rows with a non-positive quantity are
// dropped and duplicate product rows are merged.
func decodeItems(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("cart slot is not an array")
	}

	var (
		items = make([]LineItem, 0)
		row   int
	)
	if err := d.Arr(func(d *jx.Decoder) error {
		item, err := decodeItem(d)
		if err != nil {
			return errors.Wrapf(err, "row %d", row)
		}
		row++
		if item.Quantity < 1 {
			return nil
		}
		if i := indexOf(items, item.ProductID); i >= 0 {
			items[i].Quantity += item.Quantity
			return nil
		}
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart items")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	item := LineItem{UnitPrice: decimal.Zero}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case fieldID:
			item.ProductID, err = d.Int64()
		case fieldName:
			item.Name, err = d.Str()
		case fieldImage:
			item.Image, err = d.Str()
		case fieldPrice:
			var n jx.Num
			if n, err = d.Num(); err != nil {
				return err
			}
			if item.UnitPrice, err = decimal.NewFromString(n.String()); err != nil {
				return errors.Wrapf(err, "price %q", n.String())
			}
		case fieldQuantity:
			item.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return item, err
}
