// README: Common money value object used across modules.
package types

import "math"

// CurrencyTND is the only currency the marketplace prices in.
const CurrencyTND = "TND"

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// TND builds a Money value rounded to the millime-free 2-decimal display precision.
func TND(amount float64) Money {
	return Money{Amount: Round2(amount), Currency: CurrencyTND}
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
