package autoreply

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders minor-currency units as a dollar amount, e.g. 2900 -> "$29.00".
// Whole units are grouped ("$1,250.00").
func FormatPrice(cents int64) string {
	sign := ""
	mag := uint64(cents)
	if cents < 0 {
		sign = "-"
		mag = uint64(-(cents + 1)) + 1
	}
	return sign + "$" + pricePrinter.Sprintf("%d", mag/100) + fmt.Sprintf(".%02d", mag%100)
}
