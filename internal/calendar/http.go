package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

var (
	ErrHTTPNTooManyRequets     = errors.New("http 429")
	ErrHTTPInternalServerError = errors.New("http 5xx")
	ErrHTTPOther               = errors.New("http other")
	ErrTimeout                 = errors.New("timeout")
)

type httpClient struct {
	baseURL  string
	timezone string
	client   *http.Client
}

// NewHTTPClient клиент google calendar api.
// baseURL вида https://www.googleapis.com/calendar/v3
func NewHTTPClient(baseURL, timezone string) Client {
	return &httpClient{
		baseURL:  baseURL,
		timezone: timezone,
		client: &http.Client{
			// TODO timeout в конфиг
			Timeout: 5 * time.Second,
		},
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventResponse struct {
	ID string `json:"id"`
}

func (c *httpClient) body(ev Event) ([]byte, error) {
	b := eventBody{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: c.timezone},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: c.timezone},
	}
	return json.Marshal(b)
}

func (c *httpClient) CreateEvent(ctx context.Context, creds Credentials, ev Event) (string, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(creds.CalendarID))
	body, err := c.body(ev)
	if err != nil {
		return "", err
	}
	resp, err := c.doWithRetries(ctx, http.MethodPost, endpoint, creds.Token, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data eventResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&data); err != nil {
		if os.IsTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("bad json: %w", err)
	}
	if data.ID == "" {
		return "", errors.New("empty event id in response")
	}
	return data.ID, nil
}

func (c *httpClient) UpdateEvent(ctx context.Context, creds Credentials, eventID string, ev Event) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		c.baseURL, url.PathEscape(creds.CalendarID), url.PathEscape(eventID))
	body, err := c.body(ev)
	if err != nil {
		return err
	}
	resp, err := c.doWithRetries(ctx, http.MethodPut, endpoint, creds.Token, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *httpClient) DeleteEvent(ctx context.Context, creds Credentials, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		c.baseURL, url.PathEscape(creds.CalendarID), url.PathEscape(eventID))
	resp, err := c.doWithRetries(ctx, http.MethodDelete, endpoint, creds.Token, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *httpClient) doWithRetries(ctx context.Context, method, endpoint, token string, body []byte) (*http.Response, error) {
	retry := []time.Duration{
		1500 * time.Millisecond,
		3000 * time.Millisecond,
		0 * time.Millisecond,
	}

	var (
		resp *http.Response
		err  error
	)
	for _, dur := range retry {
		resp, err = c.do(ctx, method, endpoint, token, body)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTimeout) ||
			errors.Is(err, ErrHTTPInternalServerError) ||
			errors.Is(err, ErrHTTPNTooManyRequets) {
			timeout := time.After(dur)
			select {
			case <-timeout:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return nil, err
	}
	return resp, err
}

func (c *httpClient) do(ctx context.Context, method, endpoint, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed %s: %w", method, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrHTTPNTooManyRequets
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, ErrHTTPInternalServerError
	default:
		resp.Body.Close()
		return nil, ErrHTTPOther
	}
}
