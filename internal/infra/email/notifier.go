package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger, send: smtp.SendMail}
}

// FailureMessage renders the RFC 822 message sent when an estimation job
// exhausts its retries.
func FailureMessage(from, to, jobID, videoName, errorMsg string) []byte {
	subject := fmt.Sprintf("WebSA - Height Estimation Failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not estimate your height from one of your uploaded videos.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Make sure your whole body is visible and well lit, then upload the video again.\r\n\r\n"+
			"-- WebSA",
		jobID, videoName, errorMsg,
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, to, subject, body,
	))
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, videoName, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := FailureMessage(n.from, userEmail, jobID, videoName, errorMsg)

	if err := n.send(addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}
