package delivery

import (
	"fmt"
	"html"
	"strings"

	"github.com/samims/notifyhub/internal/model"
)

const defaultEmailSubject = "Notification"

// EmailSubject falls back to a generic subject when the client sent none.
func EmailSubject(msg *model.QueueMessage) string {
	if s := strings.TrimSpace(msg.Subject); s != "" {
		return s
	}
	return defaultEmailSubject
}

// EmailHTML renders the message body. Client text is escaped before line
// breaks are turned into <br/>.
func EmailHTML(msg *model.QueueMessage) string {
	body := strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br/>")
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #333;">%s - %s</h2>
    <hr style="border: 1px solid #eee;"/>
    <div style="color: #555; line-height: 1.6;">%s</div>
    <hr style="border: 1px solid #eee;"/>
    <p style="color: #666; font-size: 12px; margin-top: 20px;"><i>Sent from: %s</i></p>
  </div>
</body>
</html>`,
		html.EscapeString(string(msg.Type)),
		html.EscapeString(EmailSubject(msg)),
		body,
		html.EscapeString(msg.SystemName),
	)
}

// ChatText renders a message for the bot API's HTML parse mode.
func ChatText(msg *model.QueueMessage) string {
	var b strings.Builder
	b.WriteString("<b>🔔 ")
	b.WriteString(html.EscapeString(string(msg.Type)))
	b.WriteString("</b>\n\n")
	if s := strings.TrimSpace(msg.Subject); s != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(s))
		b.WriteString("</b>\n\n")
	}
	b.WriteString(html.EscapeString(msg.Message))
	b.WriteString("\n\n<i>From: ")
	b.WriteString(html.EscapeString(msg.SystemName))
	b.WriteString("</i>")
	return b.String()
}
