package ingest

import (
	"testing"

	"sales-analytics-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Labels(t *testing.T) {
	positive := decimal.NewFromInt(100)

	cases := []struct {
		label string
		want  models.PaymentType
	}{
		{"Cash", models.PaymentCash},
		{"  CASH payment ", models.PaymentCash},
		{"Наличные", models.PaymentCash},
		{"QR code", models.PaymentQR},
		{"Таможенный платеж", models.PaymentQR},
		{"VIP", models.PaymentVIP},
		{"вип клиент", models.PaymentVIP},
		{"Credit card", models.PaymentCard},
		{"Карта", models.PaymentCard},
		{"кредит", models.PaymentCard},
		{"cash or card", models.PaymentCash},
		{"vip card", models.PaymentVIP},
		{"", models.PaymentUnknown},
		{"bitcoin", models.PaymentUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.label, positive))
		})
	}
}

func TestClassify_NegativeAmountIsAlwaysReturn(t *testing.T) {
	negatives := []decimal.Decimal{
		decimal.NewFromInt(-1),
		decimal.RequireFromString("-0.01"),
		decimal.NewFromInt(-100000),
	}
	labels := []string{"", "cash", "QR", "vip", "card", "unknown thing", "return"}

	for _, amount := range negatives {
		for _, label := range labels {
			assert.Equal(t, models.PaymentReturn, Classify(label, amount), "label %q amount %s", label, amount)
		}
	}
}

func TestClassify_ZeroIsNotReturn(t *testing.T) {
	assert.Equal(t, models.PaymentCash, Classify("cash", decimal.Zero))
}

func TestIsReturnLabel(t *testing.T) {
	assert.True(t, IsReturnLabel("Return"))
	assert.True(t, IsReturnLabel("возврат наличными"))
	assert.False(t, IsReturnLabel("cash"))
	assert.False(t, IsReturnLabel(""))
}
