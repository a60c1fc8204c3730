package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Width is the column count of the thermal paper. Every header, item and
// separator row is padded or truncated to exactly this many columns.
const Width = 32

// Payment labels offered at the register. The renderer and the transports
// treat the label as opaque text; only the API boundary enforces the set.
const (
	PaymentCash    = "Dinheiro"
	PaymentCard    = "Cartão"
	PaymentPix     = "PIX"
	PaymentVoucher = "Vale"
)

// KnownPayment reports whether label is one of the register's payment methods.
func KnownPayment(label string) bool {
	switch label {
	case PaymentCash, PaymentCard, PaymentPix, PaymentVoucher:
		return true
	}
	return false
}

// StoreIdentity is the store header printed on every receipt. It is read
// from settings at print time and never mutated afterwards.
type StoreIdentity struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// CartLine is one sale item in entry order. LineTotal is the
// quantity-extended amount, not the unit price.
type CartLine struct {
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ItemLine formats a cart line the way sale records and the ESC/POS
// transport print it: "{qty}x {description} - {total}".
func ItemLine(l CartLine) string {
	return fmt.Sprintf("%dx %s - %s", l.Quantity, l.Description, l.LineTotal.StringFixed(2))
}

// Sum returns the sum of the line totals.
func Sum(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// Render converts a finalized sale into the receipt byte block sent to
// network printers. The output is deterministic: the same inputs always
// produce the same bytes. Rows are joined with single newlines and the
// block ends with a blank line as a feed hint for the printer.
func Render(store StoreIdentity, lines []CartLine, total decimal.Decimal, payment string) []byte {
	rows := make([]string, 0, len(lines)+10)

	rows = append(rows, center(store.Name))
	if store.Address != "" {
		rows = append(rows, center(store.Address))
	}
	if store.Phone != "" {
		rows = append(rows, center("Tel: "+store.Phone))
	}
	rows = append(rows, separator)
	for _, l := range lines {
		rows = append(rows, itemRow(l))
	}
	rows = append(rows, separator)
	rows = append(rows, totalRow(total))
	rows = append(rows, "Pagamento: "+payment)
	rows = append(rows, separator)
	rows = append(rows, "Obrigado!")

	return []byte(strings.Join(rows, "\n") + "\n\n")
}

var separator = strings.Repeat("-", Width)

// center pads s on both sides to Width columns. On an odd remainder the
// extra column goes to the right. Strings already wider than the paper
// are passed through unchanged.
func center(s string) string {
	pad := Width - len([]rune(s))
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// itemRow lays out "{qty}x {description}" against a right-aligned amount.
// When both parts cannot fit in Width columns the description is cut hard,
// no ellipsis, reserving one column of separation. The amount always stays
// right-most, even in degenerate cases where nothing else fits.
func itemRow(l CartLine) string {
	amount := l.LineTotal.StringFixed(2)
	left := []rune(fmt.Sprintf("%dx %s", l.Quantity, l.Description))

	if len(left)+len(amount) > Width {
		cut := Width - len(amount) - 1
		if cut < 0 {
			cut = 0
		}
		if cut < len(left) {
			left = left[:cut]
		}
	}

	gap := Width - len(left) - len(amount)
	if gap < 0 {
		gap = 0
	}
	return string(left) + strings.Repeat(" ", gap) + amount
}

// totalRow right-aligns the formatted total against the TOTAL label. The
// gap is computed from the amount width so totals of any magnitude keep
// the row at Width columns.
func totalRow(total decimal.Decimal) string {
	const label = "TOTAL"
	amount := total.StringFixed(2)
	gap := Width - len(label) - len(amount)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + amount
}
