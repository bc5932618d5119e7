package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/view"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// badRequestError marks malformed input: unparsable bodies, path ids or
// query parameters.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error, msg string) error {
	return &badRequestError{err: errors.Wrap(err, msg)}
}

// mapError converts domain errors to HTTP responses.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		formErr *checkout.FormError
		reqErr  *badRequestError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusConflict, func(e *jx.Encoder) {
			e.FieldStart("code")
			e.Int(http.StatusConflict)
			e.FieldStart("message")
			e.Str(err.Error())
			e.FieldStart("notifications")
			view.EncodeNotifications(e, []view.Notification{view.EmptyCartRejected()})
		})
	case errors.As(err, &formErr):
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.FieldStart("code")
			e.Int(http.StatusUnprocessableEntity)
			e.FieldStart("message")
			e.Str("invalid checkout form")
			e.FieldStart("fields")
			e.ArrStart()
			for _, f := range formErr.Fields {
				e.ObjStart()
				e.FieldStart("field")
				e.Str(f.Field)
				e.FieldStart("tag")
				e.Str(f.Tag)
				e.FieldStart("message")
				e.Str(f.Message)
				e.ObjEnd()
			}
			e.ArrEnd()
		})
	case errors.Is(err, product.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &reqErr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, reqErr.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
