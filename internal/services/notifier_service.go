package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"vaultrag/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// publishAPI is the slice of the SNS client the notifier uses.
type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NotifierService publishes access-request events when a denied user asks
// for elevated clearance. Fire-and-forget: a failure is reported to the
// caller so the UI can say the request did not go through, but nothing is
// retried internally. Duplicate notifications from manual resends are an
// accepted cost of simplicity.
type NotifierService struct {
	client   publishAPI
	topicARN string
}

// NewNotifierService creates a new escalation notifier.
func NewNotifierService(client publishAPI, topicARN string) *NotifierService {
	return &NotifierService{client: client, topicARN: topicARN}
}

// Notify publishes one access-request event to the review topic.
func (s *NotifierService) Notify(ctx context.Context, event models.AccessRequestEvent) error {
	message := fmt.Sprintf(
		"User: %s\nID: %s\nQuery: %s\nTime: %s\n\nAction: Review Clearance.",
		event.Requester,
		event.EmployeeID,
		event.DeniedQuery,
		event.Timestamp.UTC().Format(time.RFC3339),
	)

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(fmt.Sprintf("Access Request: %s", event.Requester)),
		Message:  aws.String(message),
	})
	if err != nil {
		log.Printf("❌ [ESCALATION] Publish failed for %s: %v", event.Requester, err)
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	log.Printf("📨 [ESCALATION] Access request sent for %s", event.Requester)
	return nil
}
