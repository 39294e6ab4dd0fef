package runner

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
)

// MailNotifier 把邮件发送到 email_queue，由 mail worker 发出
type MailNotifier struct {
	ch      *amqp.Channel
	timeout time.Duration
}

func NewMailNotifier(ch *amqp.Channel, timeout time.Duration) *MailNotifier {
	return &MailNotifier{
		ch:      ch,
		timeout: timeout,
	}
}

func (n *MailNotifier) Notify(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.ch.PublishWithContext(
		ctx,
		"",
		domain.EmailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
