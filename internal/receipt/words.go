package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten",
		"Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells an amount in Indian currency words, grouping by
// crore, lakh and thousand, e.g. "Rupees One Lakh Twenty Thousand Only".
func AmountInWords(amount decimal.Decimal) string {
	paiseTotal := amount.Abs().Round(2).Shift(2).IntPart()
	rupees := paiseTotal / 100
	paise := paiseTotal % 100

	if rupees == 0 && paise == 0 {
		return "Rupees Zero Only"
	}

	words := indianWords(rupees)
	if words == "" {
		words = "Zero"
	}

	var b strings.Builder
	b.WriteString("Rupees ")
	b.WriteString(words)
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(twoDigits(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

func indianWords(n int64) string {
	if n == 0 {
		return ""
	}

	parts := make([]string, 0, 4)
	if crore := n / 10000000; crore > 0 {
		// counts above 99 crore are spelled with the same grouping
		parts = append(parts, indianWords(crore)+" Crore")
	}
	if lakh := (n % 10000000) / 100000; lakh > 0 {
		parts = append(parts, twoDigits(lakh)+" Lakh")
	}
	if thousand := (n % 100000) / 1000; thousand > 0 {
		parts = append(parts, twoDigits(thousand)+" Thousand")
	}
	if rest := n % 1000; rest > 0 {
		parts = append(parts, threeDigits(rest))
	}
	return strings.Join(parts, " ")
}

func threeDigits(n int64) string {
	hundreds := n / 100
	rest := n % 100

	switch {
	case hundreds == 0:
		return twoDigits(rest)
	case rest == 0:
		return ones[hundreds] + " Hundred"
	default:
		return ones[hundreds] + " Hundred " + twoDigits(rest)
	}
}

func twoDigits(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
