package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	gmailScope   = "https://www.googleapis.com/auth/gmail.readonly"
	gmailBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"
)

// GmailSource reads recent mail through the Gmail REST API using the
// same cached OAuth credentials as the calendar provider.
type GmailSource struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

func NewGmailSource(ctx context.Context, credentialsFile, tokenFile string) (*GmailSource, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read credentials file %s", credentialsFile)
	}
	config, err := google.ConfigFromJSON(credentials, gmailScope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse credentials file")
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read token file %s", tokenFile)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token file")
	}

	return &GmailSource{
		client:  config.Client(ctx, token),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		baseURL: gmailBaseURL,
	}, nil
}

func (s *GmailSource) Name() string { return "gmail" }

type gmailMessageRef struct {
	ID string `json:"id"`
}

type gmailMessageList struct {
	Messages []gmailMessageRef `json:"messages"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

type gmailMessage struct {
	ID      string `json:"id"`
	Payload struct {
		Headers []gmailHeader `json:"headers"`
		gmailPart
	} `json:"payload"`
}

func (s *GmailSource) get(ctx context.Context, target string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "gmail request %s failed", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("gmail request %s failed with status %d: %s", target, resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Fetch renders new messages in the window into a flat text block the
// extraction prompt can consume.
func (s *GmailSource) Fetch(ctx context.Context, after, before time.Time) (string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("after:%d before:%d", after.Unix(), before.Unix()))
	params.Set("maxResults", "50")

	list := &gmailMessageList{}
	if err := s.get(ctx, s.baseURL+"/messages?"+params.Encode(), list); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, ref := range list.Messages {
		message := &gmailMessage{}
		if err := s.get(ctx, fmt.Sprintf("%s/messages/%s?format=full", s.baseURL, ref.ID), message); err != nil {
			return "", err
		}

		for _, h := range message.Payload.Headers {
			switch h.Name {
			case "From", "Subject", "Date":
				fmt.Fprintf(&b, "%s: %s\n", h.Name, h.Value)
			}
		}
		b.WriteString(extractPlainText(&message.Payload.gmailPart))
		b.WriteString("\n---\n")
	}
	return b.String(), nil
}

// extractPlainText walks the MIME tree collecting text/plain bodies.
func extractPlainText(part *gmailPart) string {
	var b strings.Builder
	if part.MimeType == "text/plain" && part.Body.Data != "" {
		if raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data); err == nil {
			b.Write(raw)
		}
	}
	for i := range part.Parts {
		b.WriteString(extractPlainText(&part.Parts[i]))
	}
	return b.String()
}
