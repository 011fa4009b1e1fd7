package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"helpmatch-service/internal/events"
	"helpmatch-service/internal/users"
	"helpmatch-service/pkg/kafka"
	"helpmatch-service/pkg/mailer"
)

var log = logrus.WithField("prefix", "notifications")

const relatedHelpRequest = "helpRequest"

// Directory supplies the volunteers to broadcast new requests to.
type Directory interface {
	AvailableVolunteers(ctx context.Context, city, category string) ([]users.User, error)
}

// Consumer turns lifecycle events into in-app notifications and email.
// Every failure here is logged and swallowed: notification delivery
// must never surface as a transition failure.
type Consumer struct {
	svc    *Service
	kafka  *kafka.Client
	mailer *mailer.Mailer
	dir    Directory
}

// NewConsumer wires the notification sink.
func NewConsumer(svc *Service, k *kafka.Client, m *mailer.Mailer, dir Directory) *Consumer {
	return &Consumer{svc: svc, kafka: k, mailer: m, dir: dir}
}

// Start subscribes to all lifecycle topics in background goroutines.
func (c *Consumer) Start(ctx context.Context) {
	c.kafka.Subscribe(ctx, kafka.TopicRequestCreated, "notify-created", func(data []byte) error {
		var ev events.RequestCreatedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		c.onCreated(ctx, ev)
		return nil
	})

	c.kafka.Subscribe(ctx, kafka.TopicRequestAccepted, "notify-accepted", func(data []byte) error {
		var ev events.RequestAcceptedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		c.onAccepted(ctx, ev)
		return nil
	})

	c.kafka.Subscribe(ctx, kafka.TopicRequestCompleted, "notify-completed", func(data []byte) error {
		var ev events.RequestCompletedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		c.onCompleted(ctx, ev)
		return nil
	})
}

// onCreated broadcasts a new request to available volunteers in the
// requester's city whose skills cover the category.
func (c *Consumer) onCreated(ctx context.Context, ev events.RequestCreatedEvent) {
	vols, err := c.dir.AvailableVolunteers(ctx, ev.City, ev.Category)
	if err != nil {
		log.Errorf("volunteer lookup for %s: %v", ev.RequestID, err)
		return
	}
	log.Infof("request.created %s: notifying %d volunteers in %s", ev.RequestID, len(vols), ev.City)

	title := "New Help Request: " + ev.Title
	message := fmt.Sprintf("%s needs help with %s (%s urgency) in %s. %s",
		ev.RequesterName, ev.Category, ev.Urgency, ev.City, ev.Description)

	for _, v := range vols {
		c.deliver(ctx, v.ID, v.Email, TypeRequestCreated, title, message, ev.RequestID,
			createdEmailBody(v.Name, ev))
	}
}

// onAccepted tells the requester who claimed their request.
func (c *Consumer) onAccepted(ctx context.Context, ev events.RequestAcceptedEvent) {
	title := "Your Request Was Accepted!"
	message := fmt.Sprintf("%s has accepted your help request %q. They will contact you soon.",
		ev.VolunteerName, ev.Title)

	c.deliver(ctx, ev.RequesterID, ev.RequesterEmail, TypeRequestAccepted, title, message,
		ev.RequestID, acceptedEmailBody(ev))
}

// onCompleted notifies both parties.
func (c *Consumer) onCompleted(ctx context.Context, ev events.RequestCompletedEvent) {
	title := "Request Completed: " + ev.Title

	requesterMsg := fmt.Sprintf(
		"Your help request %q has been completed by %s. Please consider leaving feedback!",
		ev.Title, ev.VolunteerName)
	c.deliver(ctx, ev.RequesterID, ev.RequesterEmail, TypeRequestCompleted, title, requesterMsg,
		ev.RequestID, completedRequesterEmailBody(ev))

	volunteerMsg := fmt.Sprintf(
		"You have completed the help request %q for %s. Thank you for your service!",
		ev.Title, ev.RequesterName)
	c.deliver(ctx, ev.VolunteerID, ev.VolunteerEmail, TypeRequestCompleted, title, volunteerMsg,
		ev.RequestID, completedVolunteerEmailBody(ev))
}

// deliver writes the in-app notification and sends the email. Either
// failing only produces a log line.
func (c *Consumer) deliver(ctx context.Context, userID, email, typ, title, message, requestID, emailBody string) {
	related := relatedHelpRequest
	if err := c.svc.Create(ctx, userID, email, typ, title, message, &requestID, &related); err != nil {
		log.Errorf("store notification for %s: %v", userID, err)
	}
	if email == "" {
		return
	}
	if err := c.mailer.Send(email, title, emailBody); err != nil {
		log.Errorf("send email to %s: %v", email, err)
	}
}

// ---- email bodies ----

func createdEmailBody(volunteerName string, ev events.RequestCreatedEvent) string {
	return fmt.Sprintf(`<h2>New Help Request Available</h2>
<p>Hi %s,</p>
<p>A new help request has been posted in your area:</p>
<ul>
<li><strong>Title:</strong> %s</li>
<li><strong>Category:</strong> %s</li>
<li><strong>Urgency:</strong> %s</li>
<li><strong>City:</strong> %s</li>
<li><strong>Description:</strong> %s</li>
</ul>
<p>Log in to your dashboard to accept this request if you're available to help!</p>`,
		volunteerName, ev.Title, ev.Category, ev.Urgency, ev.City, ev.Description)
}

func acceptedEmailBody(ev events.RequestAcceptedEvent) string {
	return fmt.Sprintf(`<h2>Great News! Your Request Was Accepted</h2>
<p>Hi %s,</p>
<p>Your help request <strong>%s</strong> has been accepted by %s (%s).</p>
<p>Meeting link: <a href="%s">%s</a></p>
<p>The volunteer will reach out to you soon to coordinate the help.</p>`,
		ev.RequesterName, ev.Title, ev.VolunteerName, ev.VolunteerPhone, ev.MeetLink, ev.MeetLink)
}

func completedRequesterEmailBody(ev events.RequestCompletedEvent) string {
	return fmt.Sprintf(`<h2>Request Completed!</h2>
<p>Hi %s,</p>
<p>Your help request <strong>%s</strong> has been completed by %s.</p>
<p>We hope you received the help you needed! Please consider leaving feedback.</p>`,
		ev.RequesterName, ev.Title, ev.VolunteerName)
}

func completedVolunteerEmailBody(ev events.RequestCompletedEvent) string {
	return fmt.Sprintf(`<h2>Great Job!</h2>
<p>Hi %s,</p>
<p>You have completed the help request <strong>%s</strong> for %s.</p>
<p>Thank you for making a difference in your community!</p>`,
		ev.VolunteerName, ev.Title, ev.RequesterName)
}
