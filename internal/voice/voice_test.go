package voice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type mockTranscriptionService struct {
	text string
	err  error
}

func (m *mockTranscriptionService) New(ctx context.Context, body openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &openai.Transcription{Text: m.text}, nil
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"de-DE", "de"},
		{"de", "de"},
		{"en_US", "en"},
		{"EN", "en"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeLanguage(c.in); got != c.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTranscribeSuccess(t *testing.T) {
	tr := &OpenAITranscriber{service: &mockTranscriptionService{text: "wer ist für die Abrechnung zuständig?"}}
	text, err := tr.Transcribe(context.Background(), []byte("ogg"), "de-DE")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "wer ist für die Abrechnung zuständig?" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestTranscribeEmptyTranscriptIsInaudible(t *testing.T) {
	tr := &OpenAITranscriber{service: &mockTranscriptionService{text: "  "}}
	_, err := tr.Transcribe(context.Background(), []byte("ogg"), "de")
	if !errors.Is(err, ErrInaudible) {
		t.Fatalf("expected ErrInaudible, got %v", err)
	}
}

func TestTranscribeServiceFailureIsUnavailable(t *testing.T) {
	tr := &OpenAITranscriber{service: &mockTranscriptionService{err: fmt.Errorf("connection refused")}}
	_, err := tr.Transcribe(context.Background(), []byte("ogg"), "de")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewOpenAITranscriberRequiresKey(t *testing.T) {
	if _, err := NewOpenAITranscriber(""); err == nil {
		t.Error("expected error for missing API key")
	}
}
