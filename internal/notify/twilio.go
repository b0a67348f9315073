package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioChannel delivers notifications as SMS through the Twilio Messages
// REST endpoint.
type TwilioChannel struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
	to         string
}

// NewTwilioChannel builds the SMS channel.
func NewTwilioChannel(accountSID, authToken, from, to string, timeout time.Duration) *TwilioChannel {
	return &TwilioChannel{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    twilioAPIBase,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
	}
}

func (c *TwilioChannel) Name() string { return "sms" }

// Send posts the message. SMS has no subject line, so it is folded into the
// body's first line.
func (c *TwilioChannel) Send(ctx context.Context, n Notification) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", c.to)
	form.Set("Body", n.Subject+"\n"+n.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.NewDispatchError(domain.DispatchChannelUnavailable, c.Name(), err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := domain.DispatchChannelUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.DispatchTimeout
		}
		return domain.NewDispatchError(kind, c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("twilio status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	kind := domain.DispatchRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		kind = domain.DispatchChannelUnavailable
	}
	return domain.NewDispatchError(kind, c.Name(), err)
}
