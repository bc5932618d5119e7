package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Form holds the buyer fields of the payment form. Only the fields in Buyer
// survive into the order; card data is validated and dropped.
type Form struct {
	FullName   string `json:"full_name"   validate:"required,min=3,max=100"`
	Email      string `json:"email"       validate:"required,email"`
	Phone      string `json:"phone"       validate:"omitempty,e164"`
	Address    string `json:"address"     validate:"required,max=200"`
	City       string `json:"city"        validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,alphanum,min=3,max=10"`
	CardNumber string `json:"card_number" validate:"required,credit_card"`
	CardExpiry string `json:"card_expiry" validate:"required,card_expiry"`
	CardCVV    string `json:"card_cvv"    validate:"required,numeric,min=3,max=4"`
}

// Buyer is the part of the form kept with an order.
type Buyer struct {
	FullName   string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	// CardLast4 holds the last four digits of the card number.
	CardLast4 string
}

func (f Form) buyer() Buyer {
	digits := strings.ReplaceAll(f.CardNumber, " ", "")
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return Buyer{
		FullName:   strings.TrimSpace(f.FullName),
		Email:      strings.TrimSpace(f.Email),
		Phone:      f.Phone,
		Address:    strings.TrimSpace(f.Address),
		City:       strings.TrimSpace(f.City),
		PostalCode: f.PostalCode,
		CardLast4:  last4,
	}
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// FormError is returned when the buyer form does not pass validation.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid checkout form: %s", strings.Join(names, ", "))
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)

// FormValidator checks a Form against its struct tags.
type FormValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewFormValidator creates a FormValidator. now reports the current time for
// card expiry checks; nil means time.Now.
func NewFormValidator(now func() time.Time) *FormValidator {
	if now == nil {
		now = time.Now
	}
	v := &FormValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.validate.RegisterValidation("card_expiry", v.cardExpiry); err != nil {
		panic(err)
	}
	return v
}

// Validate returns a *FormError listing every rejected field, or nil.
func (v *FormValidator) Validate(f Form) error {
	err := v.validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate form")
	}
	out := &FormError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// cardExpiry accepts MM/YY dates whose month has not ended yet.
func (v *FormValidator) cardExpiry(fl validator.FieldLevel) bool {
	m := expiryPattern.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	now := v.now()
	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	return now.Before(end)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "email":
		return "Introduce un correo electrónico válido."
	case "e164":
		return "Introduce un teléfono en formato internacional."
	case "credit_card":
		return "El número de tarjeta no es válido."
	case "card_expiry":
		return "La fecha de vencimiento no es válida (MM/AA)."
	case "min":
		return fmt.Sprintf("Debe tener al menos %s caracteres.", fe.Param())
	case "max":
		return fmt.Sprintf("Debe tener como máximo %s caracteres.", fe.Param())
	case "numeric", "alphanum":
		return "Contiene caracteres no permitidos."
	default:
		return "Valor no válido."
	}
}
