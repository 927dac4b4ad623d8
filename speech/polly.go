package speech

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/voice"
)

// PollyClient is the signed POST backend. Each request carries a freshly
// derived AWS Signature Version 4 envelope; the response body is raw audio
// bytes rather than a URL.
type PollyClient struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	OutputFormat    string
	Engine          string

	// Endpoint overrides the regional Polly endpoint; tests point it at an
	// httptest server. Host is still signed as the real regional host.
	Endpoint   string
	HTTPClient *http.Client

	// now is stubbed in tests to pin the signature timestamp.
	now func() time.Time
}

const pollySpeechURI = "/v1/speech"

func (c *PollyClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *PollyClient) region() string {
	if c.Region != "" {
		return c.Region
	}
	return "eu-west-2"
}

func (c *PollyClient) Synthesize(ctx context.Context, text string, v voice.Voice) (Audio, error) {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return Audio{}, fmt.Errorf("polly: missing access key or secret key")
	}

	format := c.OutputFormat
	if format == "" {
		format = "mp3"
	}
	engine := c.Engine
	if engine == "" {
		engine = "neural"
	}
	body, err := json.Marshal(struct {
		Text         string
		OutputFormat string
		VoiceId      string
		Engine       string
	}{Text: text, OutputFormat: format, VoiceId: v.Name, Engine: engine})
	if err != nil {
		return Audio{}, fmt.Errorf("polly: encode request: %w", err)
	}

	region := c.region()
	host := fmt.Sprintf("polly.%s.amazonaws.com", region)
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = "https://" + host
	}

	nowFn := c.now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	auth := c.authorizationHeader(body, host, amzDate, dateStamp, region)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+pollySpeechURI, bytes.NewReader(body))
	if err != nil {
		return Audio{}, fmt.Errorf("polly: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("Authorization", auth)

	resp, err := c.http().Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("polly: request: %w", err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return Audio{}, &SynthesisError{Backend: "polly", Status: resp.Status, Body: drainBody(resp.Body)}
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("polly: read audio: %w", err)
	}
	return Audio{Data: audio}, nil
}

// authorizationHeader builds the SigV4 Authorization header for a POST to the
// speech URI with an empty query string, signing content-type, host and
// x-amz-date.
func (c *PollyClient) authorizationHeader(body []byte, host, amzDate, dateStamp, region string) string {
	const (
		algorithm     = "AWS4-HMAC-SHA256"
		service       = "polly"
		signedHeaders = "content-type;host;x-amz-date"
	)

	canonicalHeaders := "content-type:application/json\n" +
		"host:" + host + "\n" +
		"x-amz-date:" + amzDate + "\n"
	payloadHash := sha256Hex(body)
	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		pollySpeechURI,
		"", // canonical query string
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := strings.Join([]string{dateStamp, region, service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(c.SecretAccessKey, dateStamp, region, service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, c.AccessKeyID, credentialScope, signedHeaders, signature)
}

// deriveSigningKey chains four HMAC-SHA256 steps seeded from the secret key,
// date stamp, region and service name.
func deriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
