// internal/services/notification_providers.go
package services

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"

	"github.com/javajoker/trademark-backend/internal/config"
)

// NewAWSSession builds a session from static keys when present, otherwise
// from the default credential chain.
func NewAWSSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// NewEmailSender returns the configured email provider, or nil when email
// delivery is not set up.
func NewEmailSender(cfg config.EmailConfig, sess *session.Session) EmailSender {
	switch cfg.Provider {
	case "ses":
		if sess == nil {
			return nil
		}
		return NewSESEmailSender(ses.New(sess), cfg)
	default:
		if cfg.SMTPHost == "" {
			return nil
		}
		return NewSMTPEmailSender(cfg)
	}
}

// NewSMSSender returns the SNS sender, or nil when SMS is disabled.
func NewSMSSender(cfg config.SMSConfig, sess *session.Session) SMSSender {
	if !cfg.Enabled || sess == nil {
		return nil
	}
	return NewSNSSMSSender(sns.New(sess), cfg.SenderID)
}

type SMTPEmailSender struct {
	config config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPEmailSender(cfg config.EmailConfig) *SMTPEmailSender {
	return &SMTPEmailSender{config: cfg, send: smtp.SendMail}
}

func (s *SMTPEmailSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%s", s.config.SMTPHost, s.config.SMTPPort)
	raw := buildMIMEMessage(s.from(), msg)

	// net/smtp has no context support; abandon the call when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.config.FromEmail, []string{msg.To}, raw)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPEmailSender) from() string {
	if s.config.FromName == "" {
		return s.config.FromEmail
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.FromEmail)
}

func buildMIMEMessage(from string, msg EmailMessage) []byte {
	contentType := "text/plain"
	body := msg.TextBody
	if msg.HTMLBody != "" {
		contentType = "text/html"
		body = msg.HTMLBody
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType)
	b.WriteString(body)
	return []byte(b.String())
}

type SESEmailSender struct {
	client sesiface.SESAPI
	config config.EmailConfig
}

func NewSESEmailSender(client sesiface.SESAPI, cfg config.EmailConfig) *SESEmailSender {
	return &SESEmailSender{client: client, config: cfg}
}

func (s *SESEmailSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	body := &ses.Body{}
	if msg.HTMLBody != "" {
		body.Html = &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.HTMLBody)}
	}
	if msg.TextBody != "" {
		body.Text = &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.TextBody)}
	}

	source := s.config.FromEmail
	if s.config.FromName != "" {
		source = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.FromEmail)
	}

	_, err := s.client.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(msg.To)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.Subject)},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

type SNSSMSSender struct {
	client   snsiface.SNSAPI
	senderID string
}

func NewSNSSMSSender(client snsiface.SNSAPI, senderID string) *SNSSMSSender {
	return &SNSSMSSender{client: client, senderID: senderID}
}

func (s *SNSSMSSender) SendSMS(ctx context.Context, to, body string) error {
	attrs := map[string]*sns.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.PublishWithContext(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
