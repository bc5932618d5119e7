package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/checkout"
)

// maxBodySize bounds request bodies; the largest is the checkout form.
const maxBodySize = 16 << 10

func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, badRequest(err, "read body")
	}
	return jx.DecodeBytes(data), nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, badRequest(err, "product id")
	}
	return id, nil
}

// decodeAddItem reads {"id": n}. The id may also be sent as a string, as
// catalog anchors carry it in a data attribute.
func decodeAddItem(r *http.Request) (int64, error) {
	d, err := readBody(r)
	if err != nil {
		return 0, err
	}

	var (
		id    int64
		found bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		found = true
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			id, err = strconv.ParseInt(s, 10, 64)
			return err
		default:
			id, err = d.Int64()
			return err
		}
	}); err != nil {
		return 0, badRequest(err, "decode item")
	}
	if !found {
		return 0, badRequest(errors.New(`missing "id"`), "decode item")
	}
	return id, nil
}

func decodeCoupon(r *http.Request) (string, error) {
	d, err := readBody(r)
	if err != nil {
		return "", err
	}

	var code string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		code, err = d.Str()
		return err
	}); err != nil {
		return "", badRequest(err, "decode coupon")
	}
	return code, nil
}

// decodeForm reads the buyer form. Unknown keys are ignored; validation is
// left to the checkout orchestrator.
func decodeForm(r *http.Request) (checkout.Form, error) {
	var f checkout.Form
	d, err := readBody(r)
	if err != nil {
		return f, err
	}

	fields := map[string]*string{
		"full_name":   &f.FullName,
		"email":       &f.Email,
		"phone":       &f.Phone,
		"address":     &f.Address,
		"city":        &f.City,
		"postal_code": &f.PostalCode,
		"card_number": &f.CardNumber,
		"card_expiry": &f.CardExpiry,
		"card_cvv":    &f.CardCVV,
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok || d.Next() == jx.Null {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrap(err, key)
		}
		*dst = v
		return nil
	}); err != nil {
		return f, badRequest(err, "decode form")
	}
	return f, nil
}
