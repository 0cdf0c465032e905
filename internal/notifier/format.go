package notifier

import (
	"fmt"
	"strings"

	"power_alert/internal/model"
)

// Subject is the subject line of every alert.
const Subject = "Power Maintenance Alert"

// permalinkFormat resolves a post ID without knowing the author handle.
const permalinkFormat = "https://x.com/i/status/%s"

// Permalink returns the post's own link, or https://x.com/i/status/<id> when
// the source did not provide one.
func Permalink(post model.Post) string {
	if post.Link != "" {
		return post.Link
	}
	return fmt.Sprintf(permalinkFormat, post.ID)
}

// Format builds the alert for a matched post.
func Format(account string, names []string, post model.Post, recipients []string) model.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s posted about maintenance in %s:\n\n", strings.TrimPrefix(account, "@"), strings.Join(names, ", "))
	b.WriteString(post.Text)
	b.WriteString("\n\nPost Link: ")
	b.WriteString(Permalink(post))

	return model.Notification{
		Subject:    Subject,
		Body:       b.String(),
		Recipients: recipients,
	}
}
