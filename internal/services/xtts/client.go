// Package xtts is an HTTP client for an XTTS v2 voice cloning server
// (xtts-api-server compatible): text plus a reference speaker wav in, a wav
// waveform out.
package xtts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"youdub/internal/services"
)

// Config captures server settings.
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
	Attempts int
}

// Client synthesizes speech.
type Client struct {
	baseURL  string
	language string
	http     *http.Client
	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryDelay overrides the pause between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) { c.delay = delay }
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "zh-cn"
	}
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		language: language,
		http:     &http.Client{Timeout: timeout},
		attempts: attempts,
		delay:    time.Second,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Language returns the default synthesis language code.
func (c *Client) Language() string { return c.language }

// Health verifies the server answers its language listing.
func (c *Client) Health(ctx context.Context) error {
	endpoint, err := c.endpoint("languages")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("xtts health: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "health", "server unreachable at "+c.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "tts", "health", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return nil
}

type request struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Synthesize renders text in the voice of speakerWav (a path readable by
// the server). An empty language uses the client default. Each failure is
// retried up to the configured attempt count.
func (c *Client) Synthesize(ctx context.Context, text, speakerWav, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "tts", "synthesize", "empty text", nil)
	}
	if language == "" {
		language = c.language
	}
	payload, err := json.Marshal(request{Text: text, SpeakerWav: speakerWav, Language: language})
	if err != nil {
		return nil, fmt.Errorf("xtts: encode request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		audio, err := c.post(ctx, payload)
		if err == nil {
			return audio, nil
		}
		if errors.Is(err, services.ErrConfiguration) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt < c.attempts {
			if err := c.sleep(ctx, c.delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, services.Wrap(services.ErrExternalTool, "tts", "synthesize", fmt.Sprintf("failed after %d attempts", c.attempts), lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	endpoint, err := c.endpoint("tts_to_audio/")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("xtts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "tts", "request", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tts", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "tts", "request", fmt.Sprintf("status %d: %s", resp.StatusCode, snippet(body)), nil)
	}
	if !bytes.HasPrefix(body, []byte("RIFF")) {
		return nil, services.Wrap(services.ErrExternalTool, "tts", "decode", "response is not a wav file", nil)
	}
	return body, nil
}

func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "tts", "endpoint", "tts.base_url is empty", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "tts", "endpoint", "invalid tts.base_url", err)
	}
	return endpoint, nil
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
