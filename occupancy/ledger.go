/*
ledger.go - Reconciliation of a booking against its payments

PURPOSE:
  Computes what a resident owes and what has been collected. The result is
  always derived from the booking and its payments; nothing here is stored.

FORMULAS:
  TotalPayable    = MonthlyAmount + SecurityDeposit
  TotalPaid       = Σ PAID non-refund amounts − Σ |PAID refund amounts|
  Balance         = TotalPayable − TotalPaid          (negative = overpaid)
  ProgressPercent = round(100 × TotalPaid / TotalPayable), 0 when payable is 0

  Refunds always reduce what was collected, whether they were recorded with a
  positive amount and the refund type or with a negative legacy amount.
  ProgressPercent is not clamped above 100: overpayment must stay visible.
  It is floored at 0 when refunds exceed collections.

EXAMPLE:
  booking: monthly 10000, deposit 5000
  payments: rent 10000 PAID, deposit 5000 PAID
    → payable 15000, paid 15000, balance 0, progress 100
  after checkout with refund: + refund 5000 PAID
    → paid 10000, balance 5000, progress 67

SEE ALSO:
  - types.go: Booking, Payment
  - settlement/saga.go: Reports the reconciliation in settlement results
*/
package occupancy

import "github.com/shopspring/decimal"

// Reconciliation is the derived ledger view of a booking.
type Reconciliation struct {
	BookingID       BookingID
	TotalPayable    Money
	TotalPaid       Money
	Balance         Money
	ProgressPercent int64
}

// Overpaid reports whether more was collected than owed.
func (r Reconciliation) Overpaid() bool {
	return r.Balance.IsNegative()
}

var hundred = decimal.NewFromInt(100)

// Reconcile computes the ledger for booking from payments. Payments belonging
// to another booking are ignored. Inputs are not modified.
func Reconcile(booking Booking, payments []Payment) Reconciliation {
	payable := booking.MonthlyAmount.Add(booking.SecurityDeposit)

	paid := NewMoney(0)
	for _, p := range payments {
		if p.BookingID != booking.ID || p.Status != PaymentPaid {
			continue
		}
		if p.Type == PaymentRefund {
			paid = paid.Sub(p.Amount.Abs())
			continue
		}
		paid = paid.Add(p.Amount)
	}

	return Reconciliation{
		BookingID:       booking.ID,
		TotalPayable:    payable,
		TotalPaid:       paid,
		Balance:         payable.Sub(paid),
		ProgressPercent: progressPercent(paid, payable),
	}
}

func progressPercent(paid, payable Money) int64 {
	if !payable.IsPositive() {
		return 0
	}
	pct := paid.Decimal.Mul(hundred).Div(payable.Decimal).Round(0).IntPart()
	if pct < 0 {
		return 0
	}
	return pct
}
