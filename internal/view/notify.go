package view

import "time"

// NotificationKind selects the toast style.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is a transient toast.
type Notification struct {
	Text     string
	Kind     NotificationKind
	Duration time.Duration
	// Link is the page opened when the toast is clicked, if any.
	Link string
}

// CartPage is where an "added" toast leads.
const CartPage = "/carrito"

// ItemAdded is shown after a product is put in the cart.
func ItemAdded(name string) Notification {
	return Notification{
		Text:     "✅ " + name + " agregado al carrito",
		Kind:     KindInfo,
		Duration: 1800 * time.Millisecond,
		Link:     CartPage,
	}
}

// OrderPlaced is shown after a successful checkout.
func OrderPlaced() Notification {
	return Notification{
		Text:     "🎉 ¡Compra realizada con éxito! Procesando pedido...",
		Kind:     KindSuccess,
		Duration: 4 * time.Second,
	}
}

// EmptyCartRejected is shown when checkout is attempted without items.
func EmptyCartRejected() Notification {
	return Notification{
		Text:     "No puedes finalizar la compra con el carrito vacío.",
		Kind:     KindError,
		Duration: 4 * time.Second,
	}
}
