// Package receipt renders sale receipts and delivers them over WhatsApp.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"medicos/m/domain"
)

// Render formats the customer-facing receipt text for a committed sale.
func Render(pharmacy string, sale domain.Sale, at time.Time) string {
	paymentID := "N/A"
	if sale.PaymentID != nil && *sale.PaymentID != "" {
		paymentID = *sale.PaymentID
	}
	method := "Cash"
	if sale.PaymentMethod == domain.MethodRazorpay {
		method = "Razorpay"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s - Payment Receipt*\n\n", pharmacy)
	fmt.Fprintf(&b, "Date: %s\n", at.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Receipt No: %d\n", sale.ID)
	fmt.Fprintf(&b, "Payment ID: %s\n\n", paymentID)
	b.WriteString("*Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(sale.CustomerName))
	fmt.Fprintf(&b, "Phone: %s\n", orNA(sale.CustomerPhone))
	if sale.DoctorName != "" {
		fmt.Fprintf(&b, "Doctor: %s\n", sale.DoctorName)
	}
	b.WriteString("\n*Medicine Details:*\n")
	fmt.Fprintf(&b, "Medicine: %s\n", orNA(sale.MedicineName))
	if sale.BatchNumber != "" {
		fmt.Fprintf(&b, "Batch: %s\n", sale.BatchNumber)
	}
	fmt.Fprintf(&b, "Quantity: %d\n", sale.QuantitySold)
	fmt.Fprintf(&b, "Rate: %s\n", Money(sale.UnitPrice, sale.Currency))
	fmt.Fprintf(&b, "Total Amount: %s\n\n", Money(sale.TotalAmount, sale.Currency))
	b.WriteString("*Payment Status:* PAID\n")
	fmt.Fprintf(&b, "Payment Method: %s\n\n", method)
	fmt.Fprintf(&b, "*%s*\nThank you for your purchase!", pharmacy)
	return b.String()
}

// Money formats minor units as a decimal amount, e.g. 1250 INR -> "₹12.50".
func Money(minor int64, currency string) string {
	symbol := currency + " "
	if currency == "" || strings.EqualFold(currency, "INR") {
		symbol = "₹"
	}
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, minor/100, minor%100)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
