// Package mailer delivers the worker's outbound email: operator failure
// alerts from the dispatcher and single/digest comment notifications from
// the aggregator.
package mailer

import (
	"fmt"
	"net/url"
	"strings"

	mail "gopkg.in/mail.v2"
)

// notificationTypeTag identifies comment notifications in unsubscribe links.
const notificationTypeTag = "recipe_comments"

// CommentLine is one rendered comment in a notification email.
type CommentLine struct {
	CommenterName string
	RecipeTitle   string
	RecipeURL     string
	Text          string
}

// Client sends mail over SMTP. A dialer is created per send; the workers
// send at most a handful of messages per run, so connection reuse is not
// worth the bookkeeping.
type Client struct {
	host         string
	port         int
	username     string
	password     string
	from         string
	operatorAddr string
	baseURL      string

	// send is swapped out in tests.
	send func(m *mail.Message) error
}

// NewClient creates a mailer. baseURL is the public app URL used for
// unsubscribe links.
func NewClient(host string, port int, username, password, from, operatorAddr, baseURL string) *Client {
	c := &Client{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		from:         from,
		operatorAddr: operatorAddr,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
	}
	c.send = func(m *mail.Message) error {
		dialer := mail.NewDialer(c.host, c.port, c.username, c.password)
		return dialer.DialAndSend(m)
	}
	return c
}

// Dial verifies the SMTP connection without sending anything. Used by the
// readiness probe.
func (c *Client) Dial() error {
	dialer := mail.NewDialer(c.host, c.port, c.username, c.password)
	closer, err := dialer.Dial()
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	return closer.Close()
}

// SendOperatorAlert emails the operator address about a dispatcher failure.
func (c *Client) SendOperatorAlert(subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", c.operatorAddr)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return c.send(m)
}

// SendCommentNotification sends the single-comment form of the
// notification email.
func (c *Client) SendCommentNotification(to, recipientID string, line CommentLine) error {
	subject := fmt.Sprintf("%s commented on %s", line.CommenterName, line.RecipeTitle)
	body := buildSingleBody(line, c.unsubscribeURL(recipientID))

	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return c.send(m)
}

// SendCommentDigest sends one email aggregating several comments for the
// same recipient.
func (c *Client) SendCommentDigest(to, recipientID string, lines []CommentLine) error {
	subject := fmt.Sprintf("%d new comments on your recipes", len(lines))
	body := buildDigestBody(lines, c.unsubscribeURL(recipientID))

	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return c.send(m)
}

func (c *Client) unsubscribeURL(recipientID string) string {
	return fmt.Sprintf("%s/unsubscribe?user_id=%s&type=%s",
		c.baseURL, url.QueryEscape(recipientID), notificationTypeTag)
}

func buildSingleBody(line CommentLine, unsubscribe string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s commented on %s:\n\n", line.CommenterName, line.RecipeTitle)
	fmt.Fprintf(&b, "  %q\n\n", strings.TrimSpace(line.Text))
	fmt.Fprintf(&b, "View the recipe: %s\n", line.RecipeURL)
	writeFooter(&b, unsubscribe)
	return b.String()
}

func buildDigestBody(lines []CommentLine, unsubscribe string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d new comments on your recipes:\n\n", len(lines))
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s on %s: %q\n  %s\n",
			line.CommenterName, line.RecipeTitle, strings.TrimSpace(line.Text), line.RecipeURL)
	}
	writeFooter(&b, unsubscribe)
	return b.String()
}

func writeFooter(b *strings.Builder, unsubscribe string) {
	b.WriteString("\n--\n")
	b.WriteString("You receive these emails because comment notifications are enabled for your account.\n")
	fmt.Fprintf(b, "Unsubscribe: %s\n", unsubscribe)
}
