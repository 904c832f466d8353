package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// StreamError is a protocol-level terminal error: the server ended the
// stream with an error event rather than a transport failure.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "stream error: " + e.Message
}

// StreamQuery sends a query and streams the response events.
//
// Events are delivered strictly in arrival order on the returned channel.
// The channel closes after the terminal event (complete or error), after a
// transport failure (reported on the error channel), or when ctx is
// cancelled. Once a terminal event is delivered no further frames are
// processed, even if more bytes are buffered, and the response body is
// released on every exit path.
func (c *Client) StreamQuery(ctx context.Context, chatID string, req *QueryRequest) (<-chan *StreamEvent, <-chan error, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request body: %w", err)
	}

	reqURL := c.buildURL("/api/chats/" + chatID + "/query/stream")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, nil, err
	}

	// Streaming responses outlive any client timeout; the context bounds
	// the request instead.
	sseClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := sseClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	eventCh := make(chan *StreamEvent, 100)
	errCh := make(chan error, 1)

	go c.readStream(ctx, resp.Body, eventCh, errCh)

	return eventCh, errCh, nil
}

// readStream is the single sequential consumer of one response body. The
// producer is naturally throttled: the next chunk is requested only after
// the previous one is fully dispatched.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, eventCh chan<- *StreamEvent, errCh chan<- error) {
	defer close(eventCh)
	defer close(errCh)
	defer body.Close()

	scanner := NewFrameScanner(c.logger)
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range scanner.Scan(buf[:n]) {
				ev, decodeErr := decodeEvent(frame)
				if decodeErr != nil {
					// One malformed frame must not kill an otherwise
					// healthy session.
					c.logger.Warn("skipping malformed frame",
						zap.String("event", frame.Event),
						zap.Error(decodeErr),
					)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case eventCh <- ev:
				}

				if ev.Terminal() {
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case <-ctx.Done():
				default:
					errCh <- err
				}
			}
			return
		}
	}
}

// Ask sends a query, accumulates the stream into a Session, and notifies
// the observer for each event in arrival order. A nil observer is allowed.
//
// Ask returns once the stream terminates: a *StreamError when the server
// sent an error event, a wrapped transport error when the read failed, and
// nil on complete. The returned Session is valid in all cases and reflects
// everything accumulated before termination.
func (c *Client) Ask(ctx context.Context, chatID string, req *QueryRequest, obs StreamObserver) (*Session, error) {
	events, errs, err := c.StreamQuery(ctx, chatID, req)
	if err != nil {
		return nil, err
	}

	sess := NewSession(chatID)

	for {
		select {
		case <-ctx.Done():
			return sess, ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return sess, fmt.Errorf("stream read: %w", err)
			}
			// Closed without an error: keep draining buffered events.
			errs = nil
		case ev, ok := <-events:
			if !ok {
				if errs != nil {
					if err, ok := <-errs; ok && err != nil {
						return sess, fmt.Errorf("stream read: %w", err)
					}
				}
				return sess, nil
			}

			sess.Apply(ev)
			if obs != nil {
				notify(obs, ev)
			}

			if ev.Type == EventError && ev.Error != nil {
				return sess, &StreamError{Message: ev.Error.Message}
			}
			if ev.Type == EventComplete {
				return sess, nil
			}
		}
	}
}
