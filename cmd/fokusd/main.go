package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/fokus-assistant/fokus-core/core"
	"github.com/fokus-assistant/fokus-core/core/audio/miniaudio"
	"github.com/fokus-assistant/fokus-core/core/audio/portaudio"
	"github.com/fokus-assistant/fokus-core/core/capture"
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/llms"
	"github.com/fokus-assistant/fokus-core/core/llms/groq"
	sttdeepgram "github.com/fokus-assistant/fokus-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/fokus-assistant/fokus-core/core/texttospeech/deepgram"
	"github.com/fokus-assistant/fokus-core/internal/config"
	"github.com/fokus-assistant/fokus-core/server"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := server.NewBus()
	ui := server.New(bus, server.WithAddress(cfg.Server.Address))
	go func() {
		if err := ui.ListenAndServe(); err != nil {
			log.Printf("ui server stopped: %v", err)
		}
	}()

	source, err := newFrameSource(cfg.Audio)
	if err != nil {
		return fmt.Errorf("audio capture is required: %w", err)
	}

	detector := capture.NewEnergyRunDetector(0,
		cfg.Capture.WakeWord.RequiredRun, cfg.Capture.WakeWord.CooldownFrames)
	captureService := capture.NewService(source, detector,
		capture.WithVADMultiplier(cfg.Capture.VADMultiplier),
		capture.WithCalibrationWindow(cfg.Capture.CalibrationWindow.Std()),
		capture.WithWakeThresholdMultiplier(cfg.Capture.WakeWord.ThresholdMultiplier),
		capture.WithUtteranceConfig(capture.UtteranceConfig{
			SilenceTimeout:  cfg.Capture.SilenceTimeout.Std(),
			MaxUtterance:    cfg.Capture.MaxUtterance.Std(),
			NoSpeechTimeout: cfg.Capture.NoSpeechTimeout.Std(),
			MinSpeech:       cfg.Capture.MinSpeech.Std(),
		}),
	)

	engineOptions := []orchestration.EngineOption{
		orchestration.WithCaptureSource(captureService),
		orchestration.WithEventPublisher(bus),
		orchestration.WithOracle(clockOracle{}),
		orchestration.WithPomodoroOptions(
			countdown.WithDefaultDuration(int(cfg.Pomodoro.DefaultDuration.Std().Seconds())),
			countdown.WithDefaultSession(cfg.Pomodoro.DefaultSession),
		),
		orchestration.WithTimerOptions(
			countdown.WithDefaultDuration(int(cfg.Timer.DefaultDuration.Std().Seconds())),
		),
	}
	if cfg.Assistant.Instructions != "" {
		engineOptions = append(engineOptions, orchestration.WithInstructions(cfg.Assistant.Instructions))
	}

	if cfg.SpeechToText.Enabled {
		transcription, err := sttdeepgram.NewTranscriptionClient(
			sttdeepgram.WithModel(cfg.SpeechToText.Model),
			sttdeepgram.WithLanguage(cfg.SpeechToText.Language),
		)
		if err != nil {
			log.Printf("running without speech-to-text: %v", err)
		} else {
			engineOptions = append(engineOptions, orchestration.WithSpeechToTextClient(transcription))
		}
	}

	if cfg.Assistant.Enabled {
		assistant, err := groq.NewClient(groq.WithModel(cfg.Assistant.Model))
		if err != nil {
			log.Printf("running without an assistant: %v", err)
		} else {
			engineOptions = append(engineOptions, orchestration.WithAssistantClient(assistant))
		}
	}

	var playback *miniaudio.Playback
	if cfg.TextToSpeech.Enabled {
		playback, err = miniaudio.NewPlayback()
		if err != nil {
			log.Printf("running without speech output: %v", err)
		} else {
			speech, err := ttsdeepgram.NewSpeechClient(playback,
				ttsdeepgram.WithVoice(cfg.TextToSpeech.Voice))
			if err != nil {
				log.Printf("running without speech output: %v", err)
			} else {
				engineOptions = append(engineOptions, orchestration.WithTextToSpeechClient(speech))
			}
		}
	}

	engine := orchestration.New(engineOptions...)
	defer engine.Close()

	runErr := engine.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ui.Shutdown(shutdownCtx); err != nil {
		log.Printf("ui server shutdown: %v", err)
	}
	if playback != nil {
		_ = playback.Close()
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newFrameSource(cfg config.Audio) (capture.FrameSource, error) {
	switch cfg.Backend {
	case "", "miniaudio":
		return miniaudio.NewFrameSource(
			miniaudio.WithSampleRate(cfg.SampleRate),
			miniaudio.WithFrameLength(cfg.FrameLength),
		)
	case "portaudio":
		return portaudio.NewFrameSource(
			portaudio.WithSampleRate(cfg.SampleRate),
			portaudio.WithFrameLength(cfg.FrameLength),
		)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

// clockOracle is the built-in ambient context provider: local time only, no
// sensors and no calendar.
type clockOracle struct{}

func (clockOracle) Environment(context.Context) (*llms.EnvironmentContext, error) {
	return &llms.EnvironmentContext{
		NowLocal: time.Now().Format("Monday 15:04"),
	}, nil
}

func (clockOracle) UpcomingEvents(context.Context) ([]string, error) {
	return nil, errors.New("no calendar is connected")
}

func (clockOracle) AddEvent(context.Context, string) error {
	return errors.New("no calendar is connected")
}
