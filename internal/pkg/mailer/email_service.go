// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendHandoffAlert(toEmail string, req *entity.LiveChatRequest) error
}

// Sender is the part of gomail.Dialer the service uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	d := gomail.NewDialer(host, port, username, password)
	return NewEmailServiceWithSender(d, username, senderName, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

// BuildHandoffAlert renders the mail sent to the operator inbox when a
// customer asks for an agent.
func BuildHandoffAlert(from, fromName, toEmail string, req *entity.LiveChatRequest) *gomail.Message {
	// short lines, so the body can go out as plain 8bit
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"), gomail.SetEncoding(gomail.Unencoded))
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[상담 요청] %s (%s)", req.CustomerName, req.InquiryType))

	description := req.Description
	if description == "" {
		description = "-"
	}
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>새 상담원 연결 요청</h2>
			<p><b>세션</b>: %s</p>
			<p><b>고객명</b>: %s</p>
			<p><b>연락처</b>: %s</p>
			<p><b>문의 유형</b>: %s</p>
			<p><b>내용</b>: %s</p>
			<p>요청 시각: %s</p>
		</div>
	`,
		html.EscapeString(req.ChatSessionId),
		html.EscapeString(req.CustomerName),
		html.EscapeString(req.CustomerContact),
		html.EscapeString(req.InquiryType),
		html.EscapeString(description),
		req.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) SendHandoffAlert(toEmail string, req *entity.LiveChatRequest) error {
	m := BuildHandoffAlert(s.senderEmail, s.senderName, toEmail, req)

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("Mailer", "Failed to send handoff alert", map[string]interface{}{
			"to":         toEmail,
			"request_id": req.Id.String(),
			"error":      err.Error(),
		})
		return err
	}

	s.logger.Info("Mailer", "Handoff alert sent", map[string]interface{}{
		"to":         toEmail,
		"request_id": req.Id.String(),
	})
	return nil
}
