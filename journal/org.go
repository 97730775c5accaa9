package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTradeOrg renders a fill as an Org-mode heading with the trade
// facts in a PROPERTIES drawer and an empty Notes section.
func FormatTradeOrg(t TradeRecord) string {
	props := [][2]string{
		{"TRADE_ID", t.TradeID},
		{"ORDER_ID", t.OrderID},
		{"TIME", t.Time.UTC().Format(time.RFC3339)},
		{"OWNER", t.Owner},
		{"SYMBOL", t.Symbol},
		{"SIDE", t.Side},
		{"TYPE", t.Type},
		{"QUANTITY", strconv.Itoa(t.Quantity)},
		{"PRICE", money(t.Price)},
		{"GROSS", money(t.Gross)},
		{"FEE", money(t.Fee)},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s %d @ %s [%s]\n", t.Side, t.Symbol, t.Quantity, money(t.Price), shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	for _, p := range props {
		if p[1] == "" {
			continue
		}
		fmt.Fprintf(&b, ":%s: %s\n", p[0], p[1])
	}
	b.WriteString(":END:\n\n*** Notes\n- \n")
	return b.String()
}

// FormatTradesOrg renders trades under a single top-level heading.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "* Trades (%d)\n", len(trades))
	for _, t := range trades {
		b.WriteString("\n")
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func money(x float64) string { return strconv.FormatFloat(x, 'f', 2, 64) }

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
