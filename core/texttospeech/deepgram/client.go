package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fokus-assistant/fokus-core/core/texttospeech"
)

const (
	speakEndpoint     = "https://api.deepgram.com/v1/speak"
	defaultVoice      = "aura-2-thalia-en"
	defaultSampleRate = 48000
)

// AudioSink plays one finished chunk of linear16 audio.
type AudioSink interface {
	Play(audio []byte) error
}

// SpeechClient synthesizes replies through Deepgram's speak endpoint and
// hands the audio to the configured sink. Speak is synchronous; callers that
// want fire-and-forget run it on their own goroutine.
type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
	sink       AudioSink

	voice      string
	sampleRate int
}

type ClientOption func(*SpeechClient)

func WithVoice(voice string) ClientOption {
	return func(c *SpeechClient) {
		c.voice = voice
	}
}

func WithSampleRate(sampleRate int) ClientOption {
	return func(c *SpeechClient) {
		c.sampleRate = sampleRate
	}
}

func NewSpeechClient(sink AudioSink, opts ...ClientOption) (*SpeechClient, error) {
	apiKey := os.Getenv("DEEPGRAM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
	}
	if sink == nil {
		return nil, fmt.Errorf("audio sink is required")
	}

	client := &SpeechClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		sink:       sink,
		voice:      defaultVoice,
		sampleRate: defaultSampleRate,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *SpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	options := texttospeech.SpeakOptions{Voice: c.voice, SampleRate: c.sampleRate}
	for _, opt := range opts {
		opt(&options)
	}
	span.SetAttributes(
		attribute.String("request.voice", options.Voice),
		attribute.Int("request.characters", len(text)),
	)

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	query := url.Values{}
	query.Set("model", options.Voice)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(options.SampleRate))
	query.Set("container", "none")

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, speakEndpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build speak request: %w", err)
	}
	request.Header.Set("Authorization", "Token "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		err = fmt.Errorf("speak request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		err = fmt.Errorf("speak request returned %d: %s", response.StatusCode, string(errorBody))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	audio, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	logger.Debug("speech synthesized", "bytes", len(audio), "voice", options.Voice)
	if err := c.sink.Play(audio); err != nil {
		return fmt.Errorf("failed to play synthesized audio: %w", err)
	}
	return nil
}
