// Package voice provides speech-to-text transcription for Telegram voice notes.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// Recognized failure conditions. The transport maps both to a localized
// apology instead of processing the turn.
var (
	// ErrInaudible means the clip produced no usable transcript.
	ErrInaudible = errors.New("speech could not be understood")
	// ErrUnavailable means the transcription service could not be reached.
	ErrUnavailable = errors.New("speech recognition service unavailable")
)

// Transcriber converts a voice clip to text in the requested language.
type Transcriber interface {
	// Transcribe converts raw audio bytes (ogg/opus as delivered by Telegram)
	// to text. languageCode is a BCP-47 or ISO-639-1 code hint.
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// transcriptionService is the minimal slice of the OpenAI audio API consumed
// here, kept narrow for testing.
type transcriptionService interface {
	New(ctx context.Context, body openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error)
}

// OpenAITranscriber implements Transcriber over the Whisper transcription API.
type OpenAITranscriber struct {
	service transcriptionService
}

// NewOpenAITranscriber creates a transcriber using the given API key.
func NewOpenAITranscriber(apiKey string) (*OpenAITranscriber, error) {
	if apiKey == "" {
		slog.Error("OpenAITranscriber API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITranscriber{service: &client.Audio.Transcriptions}, nil
}

// Transcribe sends the clip to the transcription endpoint. Telegram delivers
// voice notes as ogg/opus, which the endpoint accepts without transcoding.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
		Model: openai.AudioModelWhisper1,
	}
	if lang := NormalizeLanguage(languageCode); lang != "" {
		params.Language = param.NewOpt(lang)
	}

	resp, err := t.service.New(ctx, params)
	if err != nil {
		slog.Error("OpenAITranscriber Transcribe failed", "error", err, "language", languageCode)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		slog.Warn("OpenAITranscriber Transcribe produced empty transcript", "language", languageCode)
		return "", ErrInaudible
	}
	slog.Debug("OpenAITranscriber Transcribe succeeded", "language", languageCode, "textLength", len(text))
	return text, nil
}

// NormalizeLanguage reduces a BCP-47 tag like "de-DE" to the ISO-639-1 code
// the transcription endpoint expects.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}
