// Package billing holds the invoice arithmetic shared by every call site
// (handlers, services, reports). All money values are decimal.Decimal; no
// intermediate rounding is applied, presentation layers round for display.
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineItem is one billable row of an invoice. Quantity, UnitPrice,
// DiscountPercent, DiscountAmount and TaxPercent are inputs; the remaining
// fields are derived by ComputeLineItem.
type LineItem struct {
	LineNumber       int
	ItemCode         string
	Description      string
	Unit             string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	DiscountPercent  decimal.Decimal
	DiscountAmount   decimal.Decimal
	TaxPercent       decimal.Decimal
	TaxAmount        decimal.Decimal
	LineTotal        decimal.Decimal
	LineTotalWithTax decimal.Decimal
}

// ComputeLineItem recomputes the derived fields of a line item.
// A positive DiscountPercent takes precedence over a manually entered
// DiscountAmount; tax is always applied to the discounted base, never to
// the gross subtotal. Pure function, safe to call on every edit.
func ComputeLineItem(li LineItem) LineItem {
	subtotal := li.Quantity.Mul(li.UnitPrice)
	if li.DiscountPercent.IsPositive() {
		li.DiscountAmount = subtotal.Mul(li.DiscountPercent).Div(hundred)
	}
	li.LineTotal = subtotal.Sub(li.DiscountAmount)
	li.TaxAmount = li.LineTotal.Mul(li.TaxPercent).Div(hundred)
	li.LineTotalWithTax = li.LineTotal.Add(li.TaxAmount)
	return li
}

// ComputeInvoiceTotal sums rent, additional charges and line totals, then
// subtracts the invoice-level flat discount. Additional charges are not
// taxed. The result is not floored at zero: a discount larger than the
// charges yields a negative total, matching historical billing data.
func ComputeInvoiceTotal(monthlyRent, additionalCharges, discount decimal.Decimal, items []LineItem) decimal.Decimal {
	total := monthlyRent.Add(additionalCharges)
	for _, li := range items {
		total = total.Add(li.LineTotalWithTax)
	}
	return total.Sub(discount)
}

// RenumberLines reassigns LineNumber to 1..N in slice order. Call after any
// insertion or deletion so numbering stays contiguous.
func RenumberLines(items []LineItem) []LineItem {
	for i := range items {
		items[i].LineNumber = i + 1
	}
	return items
}

// ClampAmount coerces negative or invalid amounts to zero. Handlers run
// request values through this before they reach the calculator.
func ClampAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ClampPercent restricts a percentage to [0,100].
func ClampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}
