package checkout

import "errors"

// ValidationError is a problem with the checkout form, reported before any
// write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrAuthRequired         = &ValidationError{Field: "session", Message: "please login to place an order"}
	ErrEmptyCart            = &ValidationError{Field: "cart", Message: "add some items to your cart before checkout"}
	ErrAddressRequired      = &ValidationError{Field: "delivery_address", Message: "please provide a delivery address"}
	ErrPhoneRequired        = &ValidationError{Field: "mobile_number", Message: "please provide a contact number"}
	ErrTableRequired        = &ValidationError{Field: "table_number", Message: "please provide your table number"}
	ErrUPIIDRequired        = &ValidationError{Field: "upi_id", Message: "please provide your UPI ID"}
	ErrInvalidTransactionID = &ValidationError{Field: "upi_transaction_id", Message: "please provide a valid transaction ID"}
	ErrInvalidOrderType     = &ValidationError{Field: "type", Message: "unknown order type"}
	ErrInvalidPayment       = &ValidationError{Field: "payment_method", Message: "unknown payment method"}
)

// ErrVerificationRequired means the transfer has to be confirmed with a
// transaction id; the caller shows the verification step and submits again.
var ErrVerificationRequired = errors.New("payment verification required")

// SubmitError wraps a failed order write. Nothing was committed and the
// same form can be submitted again.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "failed to place order: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
