package drafting

import (
	"fmt"
	"strings"

	"pizzeria-backoffice-api-server/internal/models"
)

func greeting(q *models.Quotation) string {
	if q.Supplier.Name == "" {
		return "Dear supplier,"
	}
	return fmt.Sprintf("Dear %s,", q.Supplier.Name)
}

func signature(company string) string {
	return fmt.Sprintf("\nBest regards,\n%s purchasing", company)
}

func requestTemplate(company string, q *models.Quotation) (string, string) {
	var b strings.Builder
	b.WriteString(greeting(q) + "\n\n")
	b.WriteString("we would like to receive your best price for the following items:\n\n")
	b.WriteString(itemList(q.Items, false))
	b.WriteString("\nPlease include unit price, availability and the earliest delivery date for each item.\n")
	fmt.Fprintf(&b, "Reference: %s\n", q.QuotationID)
	b.WriteString(signature(company))
	return fmt.Sprintf("Quotation request %s - %s", q.QuotationID, company), b.String()
}

func confirmationTemplate(company string, q *models.Quotation) (string, string) {
	var b strings.Builder
	b.WriteString(greeting(q) + "\n\n")
	fmt.Fprintf(&b, "we confirm the order for quotation %s at the prices you quoted:\n\n", q.QuotationID)
	b.WriteString(itemList(q.Items, true))
	fmt.Fprintf(&b, "\nOrder total: %.2f\n", quotedOrEstimated(q))
	if q.DeliveryTerms != "" {
		fmt.Fprintf(&b, "Delivery terms: %s\n", q.DeliveryTerms)
	}
	b.WriteString(signature(company))
	return fmt.Sprintf("Order confirmation %s", q.QuotationID), b.String()
}

func followUpTemplate(company string, q *models.Quotation) (string, string) {
	var b strings.Builder
	b.WriteString(greeting(q) + "\n\n")
	fmt.Fprintf(&b, "we are following up on our quotation request %s, which we have not yet received an answer to.\n", q.QuotationID)
	b.WriteString("Could you send us your prices for the following items?\n\n")
	b.WriteString(itemList(q.Items, false))
	b.WriteString(signature(company))
	return fmt.Sprintf("Follow-up: quotation request %s", q.QuotationID), b.String()
}

func negotiationTemplate(company string, q *models.Quotation, concerns []PriceConcern) (string, string) {
	var b strings.Builder
	b.WriteString(greeting(q) + "\n\n")
	fmt.Fprintf(&b, "thank you for your quotation %s. Some prices are above what we have paid you recently:\n\n", q.QuotationID)
	for _, c := range concerns {
		fmt.Fprintf(&b, "- %s: %.2f quoted, %.2f on average (+%.1f%%)\n",
			c.ProductName, c.CurrentPrice, c.AveragePrice, c.DeviationPercent)
	}
	b.WriteString("\nCould you review these prices so that we can proceed with the order?\n")
	b.WriteString(signature(company))
	return fmt.Sprintf("Price review for quotation %s", q.QuotationID), b.String()
}
