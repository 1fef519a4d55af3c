package service

import (
	"fmt"
	"strings"
	"time"

	"bankops/pkg/model"
)

// RenderConfirmation builds the receipt text from the immutable fields of a
// terminal transaction only, so rendering twice yields identical bytes.
func RenderConfirmation(tx *model.Transaction) string {
	var b strings.Builder

	b.WriteString("BANKOPS CONFIRMATION\n")
	fmt.Fprintf(&b, "Transaction: %s\n", tx.ID)
	fmt.Fprintf(&b, "Type: %s\n", tx.Type)
	fmt.Fprintf(&b, "Amount: %s\n", tx.Amount)
	if tx.SourceAccountID != "" {
		fmt.Fprintf(&b, "From account: %s\n", tx.SourceAccountID)
	}
	switch {
	case tx.DestinationAccountID != "":
		fmt.Fprintf(&b, "To account: %s\n", tx.DestinationAccountID)
	case tx.DestinationExternal != "":
		fmt.Fprintf(&b, "To external: %s\n", tx.DestinationExternal)
	}
	if tx.DeviceID != "" {
		fmt.Fprintf(&b, "Device: %s\n", tx.DeviceID)
	}
	fmt.Fprintf(&b, "Status: %s\n", model.ProjectStatus(tx.Status, model.ViewAdmin))
	if tx.DecidedAt != nil {
		fmt.Fprintf(&b, "Date: %s\n", tx.DecidedAt.UTC().Format(time.RFC3339))
	}

	return b.String()
}
