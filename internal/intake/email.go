package intake

import (
	"fmt"
	"html"
	"strings"
)

func buildSubject(sub Submission) string {
	who := sub.Company
	if who == "" {
		who = sub.Name
	}
	return fmt.Sprintf("[Quote] %s - %s", sub.Service, who)
}

func renderText(sub Submission) string {
	return fmt.Sprintf("Name: %s\nCompany: %s\nEmail: %s\nPhone: %s\n\nRequest:\n%s",
		sub.Name, sub.Company, sub.Email, sub.Phone, sub.Message)
}

func renderHTML(sub Submission) string {
	rows := [][2]string{
		{"Name", sub.Name},
		{"Company", sub.Company},
		{"Email", sub.Email},
		{"Phone", sub.Phone},
		{"Service", sub.Service},
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,Helvetica,sans-serif;color:#222;">`)
	b.WriteString(`<h2 style="color:#0b5394;">New quote request</h2>`)
	b.WriteString(`<table style="width:100%;border-collapse:collapse;">`)
	for _, row := range rows {
		fmt.Fprintf(&b,
			`<tr><td style="padding:8px;border:1px solid #e6eef6;width:140px;font-weight:600;">%s</td><td style="padding:8px;border:1px solid #e6eef6;">%s</td></tr>`,
			row[0], html.EscapeString(row[1]))
	}
	b.WriteString(`</table>`)
	fmt.Fprintf(&b,
		`<div style="padding:12px;border:1px solid #e6eef6;margin-top:12px;"><strong style="color:#0b5394;">Request</strong><div style="white-space:pre-wrap;">%s</div></div>`,
		html.EscapeString(sub.Message))
	b.WriteString(`</div>`)
	return b.String()
}
