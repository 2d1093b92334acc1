// Package config loads the daemon configuration. Every field has a working
// default; a config file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML values like "1200ms" or "25m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server       Server       `yaml:"server"`
	Audio        Audio        `yaml:"audio"`
	Capture      Capture      `yaml:"capture"`
	SpeechToText SpeechToText `yaml:"speech_to_text"`
	Assistant    Assistant    `yaml:"assistant"`
	TextToSpeech TextToSpeech `yaml:"text_to_speech"`
	Pomodoro     Countdown    `yaml:"pomodoro"`
	Timer        Countdown    `yaml:"timer"`
}

type Server struct {
	Address string `yaml:"address"`
}

type Audio struct {
	// Backend selects the capture stack: "miniaudio" or "portaudio".
	Backend     string `yaml:"backend"`
	SampleRate  int    `yaml:"sample_rate"`
	FrameLength int    `yaml:"frame_length"`
}

type Capture struct {
	VADMultiplier     float64  `yaml:"vad_multiplier"`
	CalibrationWindow Duration `yaml:"calibration_window"`
	SilenceTimeout    Duration `yaml:"silence_timeout"`
	MaxUtterance      Duration `yaml:"max_utterance"`
	NoSpeechTimeout   Duration `yaml:"no_speech_timeout"`
	MinSpeech         Duration `yaml:"min_speech"`
	WakeWord          WakeWord `yaml:"wake_word"`
}

// WakeWord tunes the built-in energy trigger. ThresholdMultiplier scales the
// calibrated voice threshold; RequiredRun and CooldownFrames are counted in
// capture frames.
type WakeWord struct {
	ThresholdMultiplier float64 `yaml:"threshold_multiplier"`
	RequiredRun         int     `yaml:"required_run"`
	CooldownFrames      int     `yaml:"cooldown_frames"`
}

type SpeechToText struct {
	Enabled  bool   `yaml:"enabled"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type Assistant struct {
	Enabled      bool   `yaml:"enabled"`
	Model        string `yaml:"model"`
	Instructions string `yaml:"instructions"`
}

type TextToSpeech struct {
	Enabled bool   `yaml:"enabled"`
	Voice   string `yaml:"voice"`
}

type Countdown struct {
	DefaultDuration Duration `yaml:"default_duration"`
	DefaultSession  string   `yaml:"default_session"`
}

func Default() Config {
	return Config{
		Server: Server{Address: "127.0.0.1:8765"},
		Audio: Audio{
			Backend:     "miniaudio",
			SampleRate:  16000,
			FrameLength: 512,
		},
		Capture: Capture{
			VADMultiplier:     2.5,
			CalibrationWindow: Duration(2 * time.Second),
			SilenceTimeout:    Duration(1200 * time.Millisecond),
			MaxUtterance:      Duration(12 * time.Second),
			NoSpeechTimeout:   Duration(5 * time.Second),
			MinSpeech:         Duration(400 * time.Millisecond),
			WakeWord: WakeWord{
				ThresholdMultiplier: 1.5,
				RequiredRun:         3,
				CooldownFrames:      30,
			},
		},
		SpeechToText: SpeechToText{Enabled: true, Model: "nova-2", Language: "en"},
		Assistant:    Assistant{Enabled: true, Model: "llama-3.3-70b-versatile"},
		TextToSpeech: TextToSpeech{Enabled: true, Voice: "aura-2-thalia-en"},
		Pomodoro:     Countdown{DefaultDuration: Duration(25 * time.Minute)},
		Timer:        Countdown{DefaultDuration: Duration(10 * time.Minute)},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults untouched; a missing file is an error.
func Load(path string) (Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}
