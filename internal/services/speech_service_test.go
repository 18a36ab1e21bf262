package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/voice"
)

type fakeProvider struct {
	synthReq  voice.SynthesisRequest
	upload    voice.ReferenceUpload
	uploadID  string
	err       error
	calls     int
	closed    bool
}

func (p *fakeProvider) Synthesize(_ context.Context, req voice.SynthesisRequest) (io.ReadCloser, error) {
	p.calls++
	p.synthReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &trackingCloser{Reader: strings.NewReader("audio-bytes"), closed: &p.closed}, nil
}

func (p *fakeProvider) UploadReference(_ context.Context, up voice.ReferenceUpload) (string, error) {
	p.calls++
	p.upload = up
	return p.uploadID, p.err
}

type trackingCloser struct {
	io.Reader
	closed *bool
}

func (t *trackingCloser) Close() error { *t.closed = true; return nil }

type fakeAudio struct {
	key, contentType, body string
	deleted                []string
	afterSave              func()
}

func (a *fakeAudio) Save(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	b, _ := io.ReadAll(r)
	a.key, a.contentType, a.body = key, contentType, string(b)
	if a.afterSave != nil {
		a.afterSave()
	}
	return "/audio/" + key, nil
}

func (a *fakeAudio) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.deleted = append(a.deleted, key)
	return nil
}

type fakeRegistry struct {
	refErr  error
	created []CreateVoiceModelInput
}

func (r *fakeRegistry) CheckReferences(context.Context, string, *string) error { return r.refErr }

func (r *fakeRegistry) CreateVoiceModel(_ context.Context, in CreateVoiceModelInput) (*domain.VoiceModel, error) {
	r.created = append(r.created, in)
	return &domain.VoiceModel{ProviderModelID: in.ProviderModelID, FileKind: domain.FileKind(in.FileKind), Name: in.Name}, nil
}

func TestSynthesize_StoresAudio(t *testing.T) {
	p, a := &fakeProvider{}, &fakeAudio{}
	s := NewSpeechService(p, a, &fakeRegistry{})

	res, err := s.Synthesize(context.Background(), SynthesizeInput{Text: "  hello ", ReferenceID: "ref-1", VoiceID: "v-1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if p.synthReq.Text != "hello" || p.synthReq.Format != "wav" || p.synthReq.ReferenceID != "ref-1" || p.synthReq.VoiceID != "v-1" {
		t.Fatalf("unexpected provider request: %+v", p.synthReq)
	}
	if res.Format != "wav" || !strings.HasPrefix(res.Key, "tts/") || !strings.HasSuffix(res.Key, ".wav") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Location != "/audio/"+res.Key || a.body != "audio-bytes" || a.contentType != "audio/wav" {
		t.Fatalf("audio not stored as expected: %+v / %+v", res, a)
	}
	if !p.closed {
		t.Fatalf("provider stream must be closed")
	}
}

func TestSynthesize_CallerGoneDropsStoredAudio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &fakeAudio{afterSave: cancel}
	s := NewSpeechService(&fakeProvider{}, a, &fakeRegistry{})

	if _, err := s.Synthesize(ctx, SynthesizeInput{Text: "hello"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(a.deleted) != 1 || a.deleted[0] != a.key {
		t.Fatalf("stored audio not removed: saved=%q deleted=%v", a.key, a.deleted)
	}
}

func TestSynthesize_Validation(t *testing.T) {
	p := &fakeProvider{}
	s := NewSpeechService(p, &fakeAudio{}, &fakeRegistry{})
	ctx := context.Background()

	if _, err := s.Synthesize(ctx, SynthesizeInput{Text: "   "}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := s.Synthesize(ctx, SynthesizeInput{Text: "x", Format: "flac"}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	s.MaxTextRunes = 2
	if _, err := s.Synthesize(ctx, SynthesizeInput{Text: "abc"}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("provider must not be called on validation failure")
	}

	s.MaxTextRunes = 0
	if _, err := s.Synthesize(ctx, SynthesizeInput{Text: "x", Format: "MP3"}); err != nil {
		t.Fatalf("format should be case-insensitive: %v", err)
	}
	if p.synthReq.Format != "mp3" {
		t.Fatalf("format not normalized: %q", p.synthReq.Format)
	}
}

func TestSynthesize_ProviderErrorPassesThrough(t *testing.T) {
	perr := &voice.ProviderError{Op: "synthesize", StatusCode: 402, Message: "Insufficient balance"}
	s := NewSpeechService(&fakeProvider{err: perr}, &fakeAudio{}, &fakeRegistry{})

	_, err := s.Synthesize(context.Background(), SynthesizeInput{Text: "x"})
	var got *voice.ProviderError
	if !errors.As(err, &got) || got.Message != "Insufficient balance" {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestUploadReference_AnonymousUpload(t *testing.T) {
	p := &fakeProvider{uploadID: "ref-9"}
	reg := &fakeRegistry{}
	s := NewSpeechService(p, &fakeAudio{}, reg)

	res, err := s.UploadReference(context.Background(), UploadInput{
		Filename:    "my_new-voice.wav",
		ContentType: "audio/wav",
		Body:        strings.NewReader("RIFF"),
	})
	if err != nil {
		t.Fatalf("UploadReference: %v", err)
	}
	if res.ModelID != "ref-9" || res.VoiceModel != nil || res.FileKind != domain.FileKindAudio {
		t.Fatalf("unexpected result: %+v", res)
	}
	if p.upload.Name != "My New Voice" || res.Name != "My New Voice" {
		t.Fatalf("display name not derived from filename: %q", p.upload.Name)
	}
	if len(reg.created) != 0 {
		t.Fatalf("no voice model may be recorded without a user")
	}
}

func TestUploadReference_WithUserPersistsVideoKind(t *testing.T) {
	p := &fakeProvider{uploadID: "ref-v"}
	reg := &fakeRegistry{}
	s := NewSpeechService(p, &fakeAudio{}, reg)
	persona := "p1"

	res, err := s.UploadReference(context.Background(), UploadInput{
		Filename:    "clips/interview.mp4",
		ContentType: "application/octet-stream",
		Body:        strings.NewReader("...."),
		Name:        "  Interview  ",
		UserID:      "u1",
		PersonaID:   &persona,
		FileKind:    "video",
	})
	if err != nil {
		t.Fatalf("UploadReference: %v", err)
	}
	if res.VoiceModel == nil || res.VoiceModel.FileKind != domain.FileKindVideo {
		t.Fatalf("expected persisted video model, got %+v", res)
	}
	in := reg.created[0]
	if in.UserID != "u1" || in.ProviderModelID != "ref-v" || in.Name != "  Interview  " || in.SourceFile != "interview.mp4" || *in.PersonaID != "p1" {
		t.Fatalf("unexpected registry input: %+v", in)
	}
}

func TestUploadReference_RejectsBeforeProvider(t *testing.T) {
	p := &fakeProvider{uploadID: "x"}
	s := NewSpeechService(p, &fakeAudio{}, &fakeRegistry{refErr: ErrInvalidReference})
	ctx := context.Background()

	if _, err := s.UploadReference(ctx, UploadInput{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidFileKind) {
		t.Fatalf("expected ErrInvalidFileKind, got %v", err)
	}
	if _, err := s.UploadReference(ctx, UploadInput{Filename: "a.wav", Body: strings.NewReader("x"), FileKind: "image"}); !errors.Is(err, ErrInvalidFileKind) {
		t.Fatalf("expected ErrInvalidFileKind for explicit image, got %v", err)
	}
	if _, err := s.UploadReference(ctx, UploadInput{Filename: "a.wav", Body: strings.NewReader("x"), UserID: "ghost"}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if _, err := s.UploadReference(ctx, UploadInput{Filename: "a.wav"}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField for missing body, got %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("provider must not be called, got %d calls", p.calls)
	}
}

func TestDisplayName_Fallback(t *testing.T) {
	s := NewSpeechService(nil, nil, nil)
	if got := s.displayName(".wav"); got != DefaultReferenceName {
		t.Fatalf("displayName(.wav) = %q", got)
	}
	if got := s.displayName(""); got != DefaultReferenceName {
		t.Fatalf("displayName(\"\") = %q", got)
	}
}

func TestResolveFileKind(t *testing.T) {
	cases := []struct {
		explicit, ct, name string
		want               domain.FileKind
		ok                 bool
	}{
		{"", "audio/mpeg", "x.bin", domain.FileKindAudio, true},
		{"", "video/mp4; codecs=avc1", "x", domain.FileKindVideo, true},
		{"", "", "x.MOV", domain.FileKindVideo, true},
		{"", "application/octet-stream", "x.flac", domain.FileKindAudio, true},
		{" audio ", "video/mp4", "x.mp4", domain.FileKindAudio, true},
		{"AUDIO", "audio/wav", "x.wav", "", false},
		{"", "image/jpeg", "x.jpg", "", false},
		{"", "", "noext", "", false},
	}
	for _, tc := range cases {
		got, err := resolveFileKind(tc.explicit, tc.ct, tc.name)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%+v: got %q, %v", tc, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidFileKind) {
			t.Fatalf("%+v: expected ErrInvalidFileKind, got %v", tc, err)
		}
	}
}
