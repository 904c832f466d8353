package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy computes the delay before each polling attempt. The delay
// doubles after each attempt for the first DoubleFor attempts, capped at
// Max, and stays pinned at Max thereafter.
type RetryPolicy struct {
	Initial   time.Duration
	Max       time.Duration
	DoubleFor int
}

// DefaultRetryPolicy yields delays of 2s, 4s, 8s, then 10s steady-state:
// no sub-second hammering of the server, and a bounded wait once
// verification runs long.
var DefaultRetryPolicy = RetryPolicy{
	Initial:   2 * time.Second,
	Max:       10 * time.Second,
	DoubleFor: 3,
}

// Delay returns the wait before the given zero-based attempt. Unset fields
// fall back to DefaultRetryPolicy, so a partially-filled policy still yields
// a positive, capped schedule rather than a zero-delay busy loop.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Initial <= 0 {
		p.Initial = DefaultRetryPolicy.Initial
	}
	if p.Max <= 0 {
		p.Max = DefaultRetryPolicy.Max
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}

	d := p.Initial
	for i := 0; i < attempt && i < p.DoubleFor; i++ {
		d *= 2
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// VerificationPoller polls for a message's verification result, which
// resolves out-of-band from the main stream and may arrive well after it
// ends. The poller has no overall timeout; it stops on a definitive
// response or on context cancellation.
type VerificationPoller struct {
	Client *Client
	Policy RetryPolicy

	// Sleep waits between attempts. Tests override it to observe the
	// schedule without wall-clock time. Nil uses a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// PollVerification polls with the default policy. See VerificationPoller.Poll.
func (c *Client) PollVerification(ctx context.Context, chatID, messageID string, onUpdate func(VerificationResult)) error {
	p := &VerificationPoller{Client: c}
	return p.Poll(ctx, chatID, messageID, onUpdate)
}

// Poll repeatedly requests the verification result for (chatID, messageID)
// until the server answers definitively (HTTP 200), then invokes onUpdate
// exactly once and returns nil.
//
// A 202 means the critic is still computing. A 401 (token refresh race),
// any other unexpected status, and network-level failures are all treated
// as retryable: verification may still complete server-side even if this
// request failed. Cancellation observed before a request stops the loop
// without invoking the callback.
func (p *VerificationPoller) Poll(ctx context.Context, chatID, messageID string, onUpdate func(VerificationResult)) error {
	policy := p.Policy
	if policy == (RetryPolicy{}) {
		policy = DefaultRetryPolicy
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := p.Client.logger.With(
		zap.String("chat_id", chatID),
		zap.String("message_id", messageID),
	)

	for attempt := 0; ; attempt++ {
		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, status, err := p.Client.getVerification(ctx, chatID, messageID)
		switch {
		case err != nil:
			logger.Debug("verification poll failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		case status == http.StatusOK:
			onUpdate(result)
			return nil
		case status == http.StatusAccepted:
			// Still computing.
		case status == http.StatusUnauthorized:
			// Transient auth refresh race; the next attempt picks up a
			// fresh token from the provider.
			logger.Debug("verification poll unauthorized, retrying",
				zap.Int("attempt", attempt),
			)
		default:
			logger.Debug("unexpected verification poll status, retrying",
				zap.Int("attempt", attempt),
				zap.Int("status", status),
			)
		}
	}
}

// getVerification issues one poll request and decodes a 200 response.
func (c *Client) getVerification(ctx context.Context, chatID, messageID string) (VerificationResult, int, error) {
	var result VerificationResult

	reqURL := c.buildURL(fmt.Sprintf("/api/chats/%s/messages/%s/verification", chatID, messageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return result, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return result, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return result, 0, fmt.Errorf("decode response: %w", err)
		}
	}
	return result, resp.StatusCode, nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
