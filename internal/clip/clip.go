package clip

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/gateway"
)

// maxTextLen bounds how much extracted text is sent to the backend's
// command interpreter.
const maxTextLen = 4000

var skipPrefixes = []string{"about:", "file:", "chrome:", "data:"}

// FetchReadable fetches a URL and extracts readable text content.
// Returns the article title and extracted text.
func FetchReadable(url string) (title, text string, err error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return "", "", fmt.Errorf("skipping non-HTTP URL: %s", url)
		}
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "labbook/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", "", fmt.Errorf("extract readable content from %s: %w", url, err)
	}

	return article.Title, article.TextContent, nil
}

// CommandText builds the free-text command submitted to the backend for
// a clipped page. The backend's interpreter decides what to do with it.
func CommandText(title, text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	if title == "" {
		return "add note: " + text
	}
	return fmt.Sprintf("add note from %q: %s", title, text)
}

// Run clips a web page into the notebook: extract readable text and hand
// it to the backend as a command.
func Run(ctx context.Context, gw *gateway.Client, url string) error {
	title, text, err := FetchReadable(url)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no readable content at %s", url)
	}

	res, err := gw.SubmitCommand(ctx, CommandText(title, text))
	if err != nil {
		return fmt.Errorf("submit clip: %w", err)
	}
	applog.Info("clip.applied", "url", url, "type", res.Applied.Type, "session", res.Applied.SessionID)
	return nil
}
