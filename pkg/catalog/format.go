package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders an amount as US dollars, e.g. $1,234.56 or -$0.50.
func FormatPrice(amount decimal.Decimal) string {
	rounded := amount.Round(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}

	abs := rounded.Abs()
	whole := abs.Truncate(0)
	cents := abs.Sub(whole).Shift(2).IntPart()

	return fmt.Sprintf("%s$%s.%02d", sign, usdPrinter.Sprintf("%d", whole.IntPart()), cents)
}
