// Package notify sends invoice notification emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*
var templatesFS embed.FS

// ErrNoRecipient is returned when a notification has no address to go to.
var ErrNoRecipient = errors.New("no recipient address")

// dateLayout renders dates as M/D/YYYY.
const dateLayout = "1/2/2006"

// InvoiceNotification carries what the email says about a new invoice.
type InvoiceNotification struct {
	To            string
	ContactName   string
	CustomerName  string
	InvoiceNumber string
	Total         decimal.Decimal
	IssueDate     time.Time
	DueDate       time.Time
	ItemCount     int
}

// Notifier tells a customer that an invoice was issued.
type Notifier interface {
	NotifyInvoice(ctx context.Context, n InvoiceNotification) error
}

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Branding is the company identity printed in every email.
type Branding struct {
	Company      string
	Tagline      string
	Locality     string
	BillingEmail string
}

func (b Branding) footer() string {
	parts := []string{b.Company}
	if b.Tagline != "" {
		parts = append(parts, b.Tagline)
	}
	if b.Locality != "" {
		parts = append(parts, b.Locality)
	}
	return strings.Join(parts, " | ")
}

// Service renders invoice notifications from embedded templates and hands
// them to a Sender. Each notification is attempted once.
type Service struct {
	log      *slog.Logger
	sender   Sender
	branding Branding

	html *htmltemplate.Template
	text *texttemplate.Template
}

var _ Notifier = (*Service)(nil)

// New creates a notification service.
func New(log *slog.Logger, sender Sender, branding Branding) (*Service, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Service{
		log:      log,
		sender:   sender,
		branding: branding,
		html:     html,
		text:     text,
	}, nil
}

type invoiceView struct {
	Company       string
	Footer        string
	BillingEmail  string
	ContactName   string
	CustomerName  string
	InvoiceNumber string
	Total         string
	IssueDate     string
	DueDate       string
	ItemCount     int
}

// Render builds the message for n without sending it.
func (s *Service) Render(n InvoiceNotification) (*Message, error) {
	contact := n.ContactName
	if contact == "" {
		contact = n.CustomerName
	}
	view := invoiceView{
		Company:       s.branding.Company,
		Footer:        s.branding.footer(),
		BillingEmail:  s.branding.BillingEmail,
		ContactName:   contact,
		CustomerName:  n.CustomerName,
		InvoiceNumber: n.InvoiceNumber,
		Total:         n.Total.StringFixed(2),
		IssueDate:     n.IssueDate.Format(dateLayout),
		DueDate:       n.DueDate.Format(dateLayout),
		ItemCount:     n.ItemCount,
	}

	var html, text bytes.Buffer
	if err := s.html.ExecuteTemplate(&html, "invoice.html", view); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := s.text.ExecuteTemplate(&text, "invoice.txt", view); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}

	return &Message{
		To:      n.To,
		Subject: fmt.Sprintf("Invoice %s - %s", n.InvoiceNumber, s.branding.Company),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// NotifyInvoice renders and sends the notification for one invoice.
func (s *Service) NotifyInvoice(ctx context.Context, n InvoiceNotification) error {
	if strings.TrimSpace(n.To) == "" {
		return ErrNoRecipient
	}

	msg, err := s.Render(n)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error("invoice notification failed",
			slog.String("invoice_number", n.InvoiceNumber),
			slog.String("to", n.To),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.log.Info("invoice notification sent",
		slog.String("invoice_number", n.InvoiceNumber),
		slog.String("to", n.To),
	)
	return nil
}
