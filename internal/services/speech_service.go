// Package services – SpeechService
//
// SpeechService orchestrates the voice provider: it validates synthesis
// requests, streams generated audio into the audio store, and turns uploaded
// reference material into provider voice models, recording them through the
// voice-model registry when a user is supplied.
//
// Provider failures are passed through unchanged (*voice.ProviderError,
// voice.ErrTimeout, voice.ErrNotConfigured) so handlers can map them.
package services

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/voice"
)

// DefaultReferenceName is used when an upload carries neither a display name
// nor a usable filename.
const DefaultReferenceName = "Reference Audio"

// formatContentTypes lists the formats the provider produces.
var formatContentTypes = map[string]string{
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"pcm":  "audio/pcm",
}

// AudioStore persists synthesized audio and returns its location.
type AudioStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// VoiceRegistry is the part of PersonaService that SpeechService depends on.
type VoiceRegistry interface {
	CheckReferences(ctx context.Context, userID string, personaID *string) error
	CreateVoiceModel(ctx context.Context, in CreateVoiceModelInput) (*domain.VoiceModel, error)
}

// SpeechService coordinates synthesis and reference uploads.
type SpeechService struct {
	Provider voice.Provider
	Audio    AudioStore
	Registry VoiceRegistry

	// DefaultFormat applies when a request names none.
	DefaultFormat string
	// MaxTextRunes caps synthesis text; zero disables the check.
	MaxTextRunes int
	// NameLocale drives title-casing of names derived from filenames.
	NameLocale language.Tag
}

// NewSpeechService constructs a SpeechService with sane defaults.
func NewSpeechService(p voice.Provider, audio AudioStore, reg VoiceRegistry) *SpeechService {
	return &SpeechService{
		Provider:      p,
		Audio:         audio,
		Registry:      reg,
		DefaultFormat: "wav",
		MaxTextRunes:  5000,
		NameLocale:    language.English,
	}
}

// SynthesizeInput is a text-to-speech request.
type SynthesizeInput struct {
	Text        string
	ReferenceID string
	VoiceID     string
	Format      string
}

// SynthesisResult tells the caller where the audio went.
type SynthesisResult struct {
	Location string
	Key      string
	Format   string
}

// Synthesize validates in, calls the provider, and stores the audio.
func (s *SpeechService) Synthesize(ctx context.Context, in SynthesizeInput) (*SynthesisResult, error) {
	ctx, span := s.start(ctx, "Synthesize",
		attribute.String("voice.reference_id", in.ReferenceID),
		attribute.String("voice.format", in.Format),
	)
	defer span.End()

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTooLong
	}
	format := strings.ToLower(strings.TrimSpace(in.Format))
	if format == "" {
		format = s.DefaultFormat
	}
	ct, ok := formatContentTypes[format]
	if !ok {
		return nil, ErrInvalidFormat
	}

	rc, err := s.Provider.Synthesize(ctx, voice.SynthesisRequest{
		Text:        text,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
		VoiceID:     strings.TrimSpace(in.VoiceID),
		Format:      format,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	defer rc.Close()

	key := "tts/" + uuid.NewString() + "." + format
	loc, err := s.Audio.Save(ctx, key, rc, ct)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := ctx.Err(); err != nil {
		// The caller is gone and will never learn the location.
		if derr := s.Audio.Delete(context.WithoutCancel(ctx), key); derr != nil {
			span.RecordError(derr)
		}
		return nil, fail(span, err)
	}
	return &SynthesisResult{Location: loc, Key: key, Format: format}, nil
}

// UploadInput is reference material plus optional ownership.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Name        string
	UserID      string
	PersonaID   *string
	FileKind    string
}

// UploadResult carries the provider model id and, when a user was supplied,
// the persisted voice model.
type UploadResult struct {
	ModelID    string
	Name       string
	FileKind   domain.FileKind
	VoiceModel *domain.VoiceModel
}

// UploadReference validates the upload, sends it to the provider, and records
// the resulting voice model for the user (if any). References are checked
// before the provider call so a bad id never creates a remote model.
func (s *SpeechService) UploadReference(ctx context.Context, in UploadInput) (*UploadResult, error) {
	ctx, span := s.start(ctx, "UploadReference",
		attribute.String("upload.filename", in.Filename),
		attribute.String("user.id", in.UserID),
	)
	defer span.End()

	if in.Body == nil {
		return nil, ErrMissingField
	}
	kind, err := resolveFileKind(in.FileKind, in.ContentType, in.Filename)
	if err != nil {
		return nil, err
	}
	name := in.Name
	if blank(name) {
		name = s.displayName(in.Filename)
	}
	userID := strings.TrimSpace(in.UserID)
	if in.PersonaID != nil && strings.TrimSpace(*in.PersonaID) == "" {
		in.PersonaID = nil
	}

	if userID != "" {
		if err := s.Registry.CheckReferences(ctx, userID, in.PersonaID); err != nil {
			return nil, fail(span, err)
		}
	}

	modelID, err := s.Provider.UploadReference(ctx, voice.ReferenceUpload{
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Body:        in.Body,
		Name:        name,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("voice_model.id", modelID))

	out := &UploadResult{ModelID: modelID, Name: name, FileKind: kind}
	if userID == "" {
		return out, nil
	}
	vm, err := s.Registry.CreateVoiceModel(ctx, CreateVoiceModelInput{
		UserID:          userID,
		ProviderModelID: modelID,
		Name:            name,
		SourceFile:      filepath.Base(in.Filename),
		FileKind:        string(kind),
		PersonaID:       in.PersonaID,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	out.VoiceModel = vm
	return out, nil
}

func (s *SpeechService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := otel.Tracer("services/SpeechService")
	return tr.Start(ctx, name, trace.WithAttributes(attrs...))
}

// displayName derives a title-cased name from a filename:
// "my_new-voice.wav" becomes "My New Voice".
func (s *SpeechService) displayName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = normalizeName(base)
	if base == "" {
		return DefaultReferenceName
	}
	return cases.Title(s.NameLocale).String(base)
}

// normalizeName applies Unicode NFC, trims, and collapses inner whitespace.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// extKinds covers common reference-material extensions; the system MIME
// table is consulted for anything else.
var extKinds = map[string]domain.FileKind{
	".wav": domain.FileKindAudio, ".mp3": domain.FileKindAudio, ".m4a": domain.FileKindAudio,
	".ogg": domain.FileKindAudio, ".opus": domain.FileKindAudio, ".flac": domain.FileKindAudio,
	".aac": domain.FileKindAudio,
	".mp4": domain.FileKindVideo, ".mov": domain.FileKindVideo, ".mkv": domain.FileKindVideo,
	".avi": domain.FileKindVideo, ".webm": domain.FileKindVideo,
}

// resolveFileKind uses the explicit kind when given, else the MIME type of the
// upload, else the filename extension.
func resolveFileKind(explicit, contentType, filename string) (domain.FileKind, error) {
	if k := strings.TrimSpace(explicit); k != "" {
		if fk := domain.FileKind(k); fk.Valid() {
			return fk, nil
		}
		return "", ErrInvalidFileKind
	}
	if fk, ok := kindOfMediaType(contentType); ok {
		return fk, nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if fk, ok := extKinds[ext]; ok {
		return fk, nil
	}
	if fk, ok := kindOfMediaType(mime.TypeByExtension(ext)); ok {
		return fk, nil
	}
	return "", ErrInvalidFileKind
}

func kindOfMediaType(ct string) (domain.FileKind, bool) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", false
	}
	switch {
	case strings.HasPrefix(mt, "audio/"):
		return domain.FileKindAudio, true
	case strings.HasPrefix(mt, "video/"):
		return domain.FileKindVideo, true
	}
	return "", false
}
