// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-tickets/internal/common/logger"
	"club-tickets/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

var (
	ErrSendFailed  = errors.New("NOTIFICATION_SEND_FAILED")
	ErrNotDecided  = errors.New("APPLICATION_NOT_DECIDED")
	ErrNoRecipient = errors.New("RECIPIENT_MISSING")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

// Result describes what was delivered for one notice.
type Result struct {
	NotificationID string    `json:"notificationId"`
	Status         string    `json:"status"`
	Channels       []string  `json:"channels"`
	SentAt         time.Time `json:"sentAt"`
}

type message struct {
	subject string
	body    string
	sms     string
}

// Notifier tells applicants how their application was decided.
type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func NewNotifier(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Notify emails the decision and, when SMS is enabled and a phone number is
// known, also texts it. An email failure fails the notice; an SMS failure after
// a delivered email is only logged.
func (n *Notifier) Notify(ctx context.Context, notice models.DecisionNotice) (*Result, error) {
	msg, err := render(notice)
	if err != nil {
		return nil, err
	}

	result := &Result{
		NotificationID: uuid.New().String(),
		Status:         models.NotificationDisabled,
		Channels:       []string{},
		SentAt:         time.Now().UTC(),
	}

	if n.config.EmailEnabled && n.ses != nil {
		if notice.Recipient.Email == "" {
			return nil, fmt.Errorf("%w: no email for applicant %s", ErrNoRecipient, notice.Recipient.ID)
		}
		if err := n.sendEmail(ctx, notice.Recipient.Email, msg); err != nil {
			return nil, fmt.Errorf("%w: email to %s: %v", ErrSendFailed, notice.Recipient.ID, err)
		}
		result.Channels = append(result.Channels, models.ChannelEmail)
	}

	if n.config.SMSEnabled && n.sns != nil && notice.Recipient.Phone != "" {
		if err := n.sendSMS(ctx, notice.Recipient.Phone, msg.sms); err != nil {
			if len(result.Channels) == 0 {
				return nil, fmt.Errorf("%w: sms to %s: %v", ErrSendFailed, notice.Recipient.ID, err)
			}
			n.logger.Warn("sms send failed", map[string]interface{}{
				"error":         err,
				"applicationId": notice.ApplicationID,
			})
		} else {
			result.Channels = append(result.Channels, models.ChannelSMS)
		}
	}

	if len(result.Channels) > 0 {
		result.Status = models.NotificationSent
	}

	n.logger.Info("decision notification processed", map[string]interface{}{
		"applicationId": notice.ApplicationID,
		"status":        result.Status,
		"channels":      result.Channels,
	})
	return result, nil
}

func render(notice models.DecisionNotice) (message, error) {
	name := notice.Recipient.Name
	if name == "" {
		name = "there"
	}

	switch notice.Status {
	case models.StatusApproved:
		return message{
			subject: fmt.Sprintf("Your ticket for %s", notice.Matchup),
			body: fmt.Sprintf("Hi %s,\n\ngood news: your application for %s was approved. "+
				"Your ticket is reserved.\n", name, notice.Matchup),
			sms: fmt.Sprintf("Your ticket application for %s was approved.", notice.Matchup),
		}, nil
	case models.StatusRejected:
		return message{
			subject: fmt.Sprintf("Your application for %s", notice.Matchup),
			body: fmt.Sprintf("Hi %s,\n\nunfortunately there were not enough tickets for %s "+
				"and your application was not successful. Applicants who miss out get "+
				"priority in the following weeks.\n", name, notice.Matchup),
			sms: fmt.Sprintf("Your ticket application for %s was not successful.", notice.Matchup),
		}, nil
	default:
		return message{}, fmt.Errorf("%w: status %q", ErrNotDecided, notice.Status)
	}
}

func (n *Notifier) sendEmail(ctx context.Context, to string, msg message) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, text string) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(text),
	})
	return err
}
