package models

import "strings"

// PaymentType - closed set of payment classifications
type PaymentType string

const (
	PaymentCash    PaymentType = "CASH"
	PaymentQR      PaymentType = "QR"
	PaymentVIP     PaymentType = "VIP"
	PaymentCard    PaymentType = "CARD"
	PaymentReturn  PaymentType = "RETURN"
	PaymentUnknown PaymentType = "UNKNOWN"
)

// PaymentTypeAll is the query-side wildcard, never stored.
const PaymentTypeAll = "ALL"

// PaymentTypes lists every stored payment type in display order.
var PaymentTypes = []PaymentType{
	PaymentCash,
	PaymentQR,
	PaymentVIP,
	PaymentCard,
	PaymentReturn,
	PaymentUnknown,
}

// ParsePaymentType accepts a case-insensitive payment type name.
// "ALL" and "" are not payment types; callers treat them as "no filter".
func ParsePaymentType(s string) (PaymentType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, pt := range PaymentTypes {
		if string(pt) == s {
			return pt, true
		}
	}
	return "", false
}
