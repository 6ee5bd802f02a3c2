package settlement

import (
	"fmt"
	"strings"

	"github.com/warp/occupancy-engine/occupancy"
)

const (
	EventCheckedOut        = "booking.checked_out"
	EventPartialSettlement = "booking.settlement_partial"
)

// checkoutNotification builds the message sent after the status commit.
// p is nil for a complete settlement.
func checkoutNotification(recipients []string, b occupancy.Booking, refund *occupancy.Payment, p *Partial) occupancy.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Resident %s has checked out of room %s (booking %s).\n", b.ResidentID, b.RoomID, b.ID)
	if refund != nil {
		fmt.Fprintf(&body, "Security deposit of %s refunded (payment %s).\n", refund.Amount.StringFixed(2), refund.ID)
	}

	n := occupancy.Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("Checkout completed: room %s", b.RoomID),
		BookingID:  b.ID,
		Event:      EventCheckedOut,
	}
	if p != nil {
		n.Subject = fmt.Sprintf("Checkout needs follow-up: room %s", b.RoomID)
		n.Event = EventPartialSettlement
		fmt.Fprintf(&body, "Step %s did not complete: %v\n", p.FailedStep, p.Err)
	}
	n.Body = body.String()
	return n
}
