package tools

// Result texts spoken back by the assistant.
const (
	MsgTechnicalError = "A technical error occurred."
	MsgUnsupported    = "This function is not supported."
	MsgNameMissing    = "I didn't catch the product name. Could you repeat it?"
	MsgCartCleared    = "Cart cleared."
	MsgCartEmpty      = "The cart is empty."
	MsgConfirmEmpty   = "The cart is empty. Please choose some items first."
	MsgCheckout       = "Moved to the checkout page."

	msgAdded       = "Added: %d x %s. Anything else?"
	msgNotOnMenu   = "Sorry, %q isn't on the menu. Maybe it goes by another name?"
	msgRemoved     = "%d x %s removed from the cart."
	msgNotInCart   = "%q was not found in the cart."
	msgCartSummary = "Cart: %s. Total: %d %s."
)

const (
	DefaultCurrency = "so'm"
	nameQuotes      = "'\"`"
)
