package ingest

import (
	"strings"

	"sales-analytics-backend/internal/models"

	"github.com/shopspring/decimal"
)

// paymentRule - label substrings mapped to a payment type. Order matters:
// the first rule that matches wins.
type paymentRule struct {
	paymentType models.PaymentType
	needles     []string
}

var paymentRules = []paymentRule{
	{models.PaymentCash, []string{"cash", "налич"}},
	{models.PaymentQR, []string{"qr", "таможен"}},
	{models.PaymentVIP, []string{"vip", "вип"}},
	{models.PaymentCard, []string{"card", "credit", "карт", "кредит"}},
}

var returnNeedles = []string{"return", "возврат"}

// Classify maps a free-text payment label and the signed amount to a
// payment type. A negative amount is always a RETURN, whatever the label says.
func Classify(rawLabel string, amount decimal.Decimal) models.PaymentType {
	result := classifyLabel(rawLabel)
	if amount.IsNegative() {
		return models.PaymentReturn
	}
	return result
}

func classifyLabel(rawLabel string) models.PaymentType {
	label := strings.ToLower(strings.TrimSpace(rawLabel))
	if label == "" {
		return models.PaymentUnknown
	}
	for _, rule := range paymentRules {
		if containsAny(label, rule.needles) {
			return rule.paymentType
		}
	}
	return models.PaymentUnknown
}

// IsReturnLabel reports whether the label itself marks the row as a return.
func IsReturnLabel(rawLabel string) bool {
	return containsAny(strings.ToLower(strings.TrimSpace(rawLabel)), returnNeedles)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
