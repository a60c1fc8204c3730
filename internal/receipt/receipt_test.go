package receipt_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
)

func burgerHouseSale() (receipt.StoreIdentity, []receipt.CartLine, decimal.Decimal, string) {
	store := receipt.StoreIdentity{Name: "Burger House"}
	lines := []receipt.CartLine{
		{Quantity: 2, Description: "Burguer Classico", LineTotal: decimal.RequireFromString("25.00")},
		{Quantity: 1, Description: "Refrigerante Lata", LineTotal: decimal.RequireFromString("5.00")},
	}
	return store, lines, decimal.RequireFromString("30.00"), "Dinheiro"
}

func TestRender_BurgerHouseExample(t *testing.T) {
	store, lines, total, payment := burgerHouseSale()
	out := string(receipt.Render(store, lines, total, payment))
	rows := strings.Split(out, "\n")

	assert.Contains(t, rows, "2x Burguer Classico"+strings.Repeat(" ", 8)+"25.00")
	assert.Contains(t, rows, "1x Refrigerante Lata"+strings.Repeat(" ", 8)+"5.00")
	assert.Contains(t, rows, "TOTAL"+strings.Repeat(" ", 22)+"30.00")
	assert.Contains(t, rows, "Pagamento: Dinheiro")
	assert.Contains(t, rows, "Obrigado!")
	assert.True(t, strings.HasSuffix(out, "Obrigado!\n\n"), "block must end with a blank feed line")
}

func TestRender_RowWidths(t *testing.T) {
	store := receipt.StoreIdentity{Name: "Minha Loja", Address: "Rua Exemplo, 123", Phone: "(11) 99999-9999"}
	lines := []receipt.CartLine{
		{Quantity: 3, Description: "Batata Frita", LineTotal: decimal.RequireFromString("24.00")},
	}
	out := string(receipt.Render(store, lines, decimal.RequireFromString("24.00"), receipt.PaymentPix))
	rows := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Everything up to the TOTAL row is padded to the paper width; the
	// payment and thank-you rows are not.
	for i, row := range rows {
		if strings.HasPrefix(row, "Pagamento: ") || row == "Obrigado!" {
			continue
		}
		assert.Len(t, []rune(row), receipt.Width, "row %d: %q", i, row)
	}

	assert.Equal(t, "Tel: (11) 99999-9999", strings.TrimSpace(rows[2]))
}

func TestRender_CenterPutsExtraColumnRight(t *testing.T) {
	store := receipt.StoreIdentity{Name: "Loja"} // 32-4=28 pad, 14 each side
	out := string(receipt.Render(store, nil, decimal.Zero, "Dinheiro"))
	rows := strings.Split(out, "\n")
	assert.Equal(t, strings.Repeat(" ", 14)+"Loja"+strings.Repeat(" ", 14), rows[0])

	store.Name = "Lojas" // odd remainder: 13 left, 14 right
	out = string(receipt.Render(store, nil, decimal.Zero, "Dinheiro"))
	rows = strings.Split(out, "\n")
	assert.Equal(t, strings.Repeat(" ", 13)+"Lojas"+strings.Repeat(" ", 14), rows[0])
}

func TestRender_TruncatesLongDescriptions(t *testing.T) {
	store := receipt.StoreIdentity{Name: "Loja"}
	lines := []receipt.CartLine{
		{Quantity: 1, Description: strings.Repeat("Churrasco Misto ", 4), LineTotal: decimal.RequireFromString("99.90")},
	}
	out := string(receipt.Render(store, lines, decimal.RequireFromString("99.90"), "Cartão"))
	rows := strings.Split(out, "\n")

	itemRow := rows[2] // name, separator, item
	require.Len(t, []rune(itemRow), receipt.Width)
	assert.True(t, strings.HasSuffix(itemRow, "99.90"))
	assert.NotContains(t, itemRow, "...", "truncation is a hard cutoff")
	// one reserved column between the cut description and the amount
	assert.Equal(t, " 99.90", itemRow[len(itemRow)-6:])
}

func TestRender_DegenerateAmountWiderThanPaper(t *testing.T) {
	store := receipt.StoreIdentity{Name: "Loja"}
	huge := decimal.RequireFromString("123456789012345678901234567890.00")
	lines := []receipt.CartLine{{Quantity: 1, Description: "Item", LineTotal: huge}}

	var out []byte
	require.NotPanics(t, func() {
		out = receipt.Render(store, lines, huge, "Dinheiro")
	})
	rows := strings.Split(string(out), "\n")
	assert.True(t, strings.HasSuffix(rows[2], huge.StringFixed(2)), "amount stays right-most")
}

func TestRender_TotalGapIsComputed(t *testing.T) {
	store := receipt.StoreIdentity{Name: "Loja"}
	lines := []receipt.CartLine{{Quantity: 1, Description: "Item", LineTotal: decimal.RequireFromString("1234567.89")}}
	out := string(receipt.Render(store, lines, decimal.RequireFromString("1234567.89"), "PIX"))

	totalRow := ""
	for _, row := range strings.Split(out, "\n") {
		if strings.HasPrefix(row, "TOTAL") {
			totalRow = row
		}
	}
	require.NotEmpty(t, totalRow)
	assert.Len(t, []rune(totalRow), receipt.Width, "large totals still align to the paper width")
	assert.True(t, strings.HasSuffix(totalRow, "1234567.89"))
}

func TestRender_Idempotent(t *testing.T) {
	store, lines, total, payment := burgerHouseSale()
	first := receipt.Render(store, lines, total, payment)
	second := receipt.Render(store, lines, total, payment)
	assert.True(t, bytes.Equal(first, second), "re-rendering the same sale must be byte-identical")
}

func TestRender_OmitsEmptyAddressAndPhone(t *testing.T) {
	out := string(receipt.Render(receipt.StoreIdentity{Name: "Loja"}, nil, decimal.Zero, "Vale"))
	assert.NotContains(t, out, "Tel: ")
	rows := strings.Split(out, "\n")
	assert.Equal(t, strings.Repeat("-", receipt.Width), rows[1], "separator follows the name directly")
}

func TestSum(t *testing.T) {
	_, lines, total, _ := burgerHouseSale()
	assert.True(t, receipt.Sum(lines).Equal(total))
	assert.True(t, receipt.Sum(nil).IsZero())
}

func TestItemLine(t *testing.T) {
	line := receipt.CartLine{Quantity: 2, Description: "Burguer Classico", LineTotal: decimal.RequireFromString("25.00")}
	assert.Equal(t, "2x Burguer Classico - 25.00", receipt.ItemLine(line))
}

func TestKnownPayment(t *testing.T) {
	for _, label := range []string{"Dinheiro", "Cartão", "PIX", "Vale"} {
		assert.True(t, receipt.KnownPayment(label), label)
	}
	assert.False(t, receipt.KnownPayment("Cheque"))
	assert.False(t, receipt.KnownPayment(""))
}
