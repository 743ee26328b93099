package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes emails to disk instead of sending them. Used in
// development environments without Postmark credentials.
type DevSender struct {
	dir string
}

// NewDevSender creates a development sender that saves emails under dir.
func NewDevSender(dir string) Sender {
	return &DevSender{dir: dir}
}

func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSend, err)
	}

	name := msg.Tag
	if name == "" {
		name = msg.Subject
	}
	path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.html",
		time.Now().Format("2006_01_02_150405"), sanitizeFilename(name)))

	body := fmt.Sprintf("<!-- to: %s subject: %s -->\n%s", msg.To, msg.Subject, msg.BodyHTML)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: write file: %v", ErrFailedToSend, err)
	}
	return nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")
	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
