package notify

import (
	"fmt"
	"strings"
	"time"
)

// Composer renders transactional emails with links back to the web app.
type Composer struct {
	publicURL string
}

// NewComposer builds a composer for the given frontend base URL.
func NewComposer(publicURL string) *Composer {
	return &Composer{publicURL: strings.TrimRight(publicURL, "/")}
}

func (c *Composer) VerifyEmail(name, address, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/verify-email?token=%s", c.publicURL, token)
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Confirm your email address",
		Text: fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening the link below within %s.\n\n%s\n",
			name, humanize(ttl), link),
	}
}

func (c *Composer) PasswordReset(name, address, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.publicURL, token)
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   "Reset your password",
		Text: fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. The link below expires in %s.\n\n%s\n\nIf you did not request this, ignore this email.\n",
			name, humanize(ttl), link),
	}
}

func (c *Composer) StatusChanged(name, address, trackingCode, status string) Message {
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   fmt.Sprintf("Report %s is now %s", trackingCode, status),
		Text: fmt.Sprintf("Hello %s,\n\nYour report %s moved to status %q.\n\nTrack it at %s/track/%s\n",
			name, trackingCode, status, c.publicURL, trackingCode),
	}
}

func (c *Composer) CaseAssigned(name, address, trackingCode, title string) Message {
	return Message{
		ToName:    name,
		ToAddress: address,
		Subject:   fmt.Sprintf("Report %s assigned to you", trackingCode),
		Text: fmt.Sprintf("Hello %s,\n\nReport %s (%s) has been assigned to you.\n\n%s/reports\n",
			name, trackingCode, title, c.publicURL),
	}
}

func humanize(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
