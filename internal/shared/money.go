package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pesoPrinter = message.NewPrinter(language.English)

// FormatPeso renders amount with the peso sign and thousands separators,
// e.g. ₱1,250,000.
func FormatPeso(amount int64) string {
	return pesoPrinter.Sprintf("₱%d", amount)
}
