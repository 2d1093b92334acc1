package deepgram

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"

	prerecorded "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/speechtotext"
)

const defaultModel = "nova-2"

// TranscriptionClient transcribes complete captured utterances through
// Deepgram's prerecorded endpoint. Capture emits bounded utterances, so no
// streaming session is kept open between them.
type TranscriptionClient struct {
	client *prerecorded.Client

	model    string
	language string
}

type ClientOption func(*TranscriptionClient)

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		c.language = language
	}
}

// NewTranscriptionClient reads the API key from DEEPGRAM_API_KEY unless one
// was set in the environment the SDK resolves itself.
func NewTranscriptionClient(opts ...ClientOption) (*TranscriptionClient, error) {
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
	}

	rest := listen.NewREST("", &clientinterfaces.ClientOptions{})
	client := &TranscriptionClient{
		client: prerecorded.New(rest),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, utterance audio.Utterance, opts ...speechtotext.TranscriptionOption) (*speechtotext.Result, error) {
	ctx, span := tracer.Start(ctx, "transcribe utterance")
	defer span.End()

	options := speechtotext.TranscriptionOptions{Model: c.model, Language: c.language}
	for _, opt := range opts {
		opt(&options)
	}
	span.SetAttributes(
		attribute.String("request.model", options.Model),
		attribute.Float64("utterance.duration_seconds", utterance.Duration().Seconds()),
	)

	response, err := c.client.FromStream(
		ctx,
		bytes.NewReader(wavEncode(utterance)),
		&clientinterfaces.PreRecordedTranscriptionOptions{
			Model:       options.Model,
			Language:    options.Language,
			SmartFormat: true,
			Punctuate:   true,
		},
	)
	if err != nil {
		err = fmt.Errorf("transcription request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response == nil || len(response.Results.Channels) == 0 ||
		len(response.Results.Channels[0].Alternatives) == 0 {
		return &speechtotext.Result{}, nil
	}

	channel := response.Results.Channels[0]
	alternative := channel.Alternatives[0]
	result := &speechtotext.Result{
		Text:       alternative.Transcript,
		Language:   channel.DetectedLanguage,
		Confidence: alternative.Confidence,
	}
	if result.Language == "" {
		result.Language = options.Language
	}

	logger.Debug("utterance transcribed",
		"characters", len(result.Text), "confidence", result.Confidence)
	return result, nil
}

// wavEncode wraps raw linear16 samples in a minimal WAV container so the
// endpoint can derive sample rate and encoding from the payload itself.
func wavEncode(utterance audio.Utterance) []byte {
	pcm := utterance.Bytes()
	sampleRate := uint32(utterance.SampleRate)
	byteRate := sampleRate * 2

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
