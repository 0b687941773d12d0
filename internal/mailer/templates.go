package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

const notificationText = `New message from the portfolio contact form.

Name:    {{.Name}}
Email:   {{.Email}}
IP:      {{.IPAddress}}
Sent at: {{.SentAt}}

{{.Message}}
`

const notificationHTML = `<h2>New contact form submission</h2>
<p><strong>Name:</strong> {{.Name}}<br>
<strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a><br>
<strong>IP:</strong> {{.IPAddress}}<br>
<strong>Sent at:</strong> {{.SentAt}}</p>
<p style="white-space: pre-wrap">{{.Message}}</p>
`

const confirmationText = `Hi {{.Name}},

Thanks for your message. I read everything that comes through the site and
will get back to you soon.

Your message:

{{.Message}}
`

const confirmationHTML = `<p>Hi {{.Name}},</p>
<p>Thanks for your message. I read everything that comes through the site and will get back to you soon.</p>
<blockquote style="white-space: pre-wrap">{{.Message}}</blockquote>
`

var (
	notificationTextTmpl = texttemplate.Must(texttemplate.New("notification.txt").Parse(notificationText))
	notificationHTMLTmpl = htmltemplate.Must(htmltemplate.New("notification.html").Parse(notificationHTML))
	confirmationTextTmpl = texttemplate.Must(texttemplate.New("confirmation.txt").Parse(confirmationText))
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Parse(confirmationHTML))
)

type templateData struct {
	Name      string
	Email     string
	Message   string
	IPAddress string
	SentAt    string
}

func newTemplateData(sub Submission) templateData {
	sentAt := sub.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return templateData{
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		IPAddress: sub.IPAddress,
		SentAt:    sentAt.UTC().Format(time.RFC1123),
	}
}

func render(textTmpl *texttemplate.Template, htmlTmpl *htmltemplate.Template, data templateData) (string, string, error) {
	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("mailer: render %s: %w", textTmpl.Name(), err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("mailer: render %s: %w", htmlTmpl.Name(), err)
	}
	return text.String(), html.String(), nil
}

func renderNotification(sub Submission) (string, string, error) {
	return render(notificationTextTmpl, notificationHTMLTmpl, newTemplateData(sub))
}

func renderConfirmation(sub Submission) (string, string, error) {
	return render(confirmationTextTmpl, confirmationHTMLTmpl, newTemplateData(sub))
}
