package enums

import "fmt"

// PaymentMethod enumerates the payment channels accepted at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD       PaymentMethod = "cod"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodWallet    PaymentMethod = "wallet"
	PaymentMethodJazzCash  PaymentMethod = "jazzcash"
	PaymentMethodEasyPaisa PaymentMethod = "easypaisa"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodCard,
	PaymentMethodWallet,
	PaymentMethodJazzCash,
	PaymentMethodEasyPaisa,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
