package mailer

import (
	"fmt"
	"html"

	"github.com/spec-kit/returns-service/internal/domain"
)

// TicketCreated renders the confirmation sent to the submitter of a new ticket.
func TicketCreated(to, recipientName, number, contractNumber, invoiceNumber string) Message {
	subject := fmt.Sprintf("Return request %s received", number)

	plainBody := fmt.Sprintf(`Hello %s,

We received your return request %s.
Contract: %s
Invoice: %s

You will be notified whenever its status changes.
`, recipientName, number, contractNumber, invoiceNumber)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>We received your return request <strong>%s</strong>.</p>
			<ul>
				<li>Contract: %s</li>
				<li>Invoice: %s</li>
			</ul>
			<p>You will be notified whenever its status changes.</p>
		</body>
		</html>
	`, html.EscapeString(recipientName), html.EscapeString(number), html.EscapeString(contractNumber), html.EscapeString(invoiceNumber))

	return Message{To: to, Subject: subject, PlainBody: plainBody, HTMLBody: htmlBody}
}

// StatusChanged renders the update sent when a ticket moves to a new status.
func StatusChanged(to, recipientName, number string, oldStatus, newStatus domain.TicketStatus, reason string) Message {
	subject := fmt.Sprintf("Return request %s is now %s", number, newStatus.Label())

	reasonLine := ""
	reasonHTML := ""
	if reason != "" {
		reasonLine = fmt.Sprintf("Reason: %s\n", reason)
		reasonHTML = fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(reason))
	}

	plainBody := fmt.Sprintf(`Hello %s,

The status of your return request %s changed from %s to %s.
%s`, recipientName, number, oldStatus.Label(), newStatus.Label(), reasonLine)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>The status of your return request <strong>%s</strong> changed from %s to <strong>%s</strong>.</p>
			%s
		</body>
		</html>
	`, html.EscapeString(recipientName), html.EscapeString(number), oldStatus.Label(), newStatus.Label(), reasonHTML)

	return Message{To: to, Subject: subject, PlainBody: plainBody, HTMLBody: htmlBody}
}
