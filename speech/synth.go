package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Voxel-Fox-Ltd/twitch-tts/voice"
)

// Audio is a playable synthesis result: either a resource locator the player
// can fetch itself, or raw audio bytes. Exactly one of the two is set.
type Audio struct {
	URL  string
	Data []byte
}

// SynthesisError reports a non-success response from a synthesis backend.
// The utterance that caused it is dropped; the playback queue is unaffected.
type SynthesisError struct {
	Backend string
	Status  string
	Body    string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed: %s: %s", e.Backend, e.Status, e.Body)
}

// Synthesizer turns (text, voice) into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, v voice.Voice) (Audio, error)
}

// StreamElementsClient is the unsigned GET backend. The endpoint returns a
// directly playable resource, so Synthesize only builds the URL; no request
// is made until playback.
type StreamElementsClient struct {
	BaseURL string
}

const defaultStreamElementsURL = "https://api.streamelements.com/kappa/v2/speech"

func (c *StreamElementsClient) Synthesize(_ context.Context, text string, v voice.Voice) (Audio, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultStreamElementsURL
	}
	q := url.Values{}
	q.Set("voice", v.Name)
	q.Set("text", text)
	return Audio{URL: base + "?" + q.Encode()}, nil
}

func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 2048))
	return string(b)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}
