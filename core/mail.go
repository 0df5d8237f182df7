package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated content
		Template     *texttmpl.Template
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.Template == nil {
		return nil
	}
	var buff bytes.Buffer
	if err := m.Template.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }
