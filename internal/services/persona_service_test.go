package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/repo"
)

// ----- Fake store -----

// fakeStore embeds the interface so tests only implement what they exercise;
// an unexpected call panics on the nil embedded value.
type fakeStore struct {
	RecordStore

	users    map[string]*domain.User // by external id
	personas map[string]*domain.Persona

	findErr      error
	insertErrs   []error // consumed in order by InsertUser
	insertCalls  int
	findCalls    int
	appended     []domain.Message
	linkResult   bool
	linkCalls    int
	voiceInserts []repo.NewVoiceModel
	voiceErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*domain.User{}, personas: map[string]*domain.Persona{}}
}

func (f *fakeStore) FindUserByExternalID(_ context.Context, _ *gorm.DB, externalID string) (*domain.User, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if u, ok := f.users[externalID]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) GetUser(_ context.Context, _ *gorm.DB, id string) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) InsertUser(_ context.Context, _ *gorm.DB, externalID, email string) (*domain.User, error) {
	f.insertCalls++
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if errors.Is(err, repo.ErrDuplicate) {
			// Another writer won the race.
			f.users[externalID] = &domain.User{ID: "winner", ExternalID: externalID}
		}
		return nil, err
	}
	u := &domain.User{ID: "u-" + externalID, ExternalID: externalID, Email: email, CreatedAt: time.Now().UTC()}
	f.users[externalID] = u
	return u, nil
}

func (f *fakeStore) GetPersona(_ context.Context, _ *gorm.DB, id string) (*domain.Persona, error) {
	if p, ok := f.personas[id]; ok {
		return p, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) InsertPersona(_ context.Context, _ *gorm.DB, userID, name, prompt, ref string) (*domain.Persona, error) {
	p := &domain.Persona{ID: "p1", UserID: userID, Name: name, BehaviorPrompt: prompt, VoiceModelRef: ref}
	f.personas[p.ID] = p
	return p, nil
}

func (f *fakeStore) FindPersonaByUser(_ context.Context, _ *gorm.DB, userID string) (*domain.Persona, error) {
	for _, p := range f.personas {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) ListPersonasByUser(context.Context, *gorm.DB, string) ([]domain.Persona, error) {
	return nil, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, _ *gorm.DB, personaID string, role domain.Role, content string) (*domain.Message, error) {
	m := domain.Message{ID: "m", PersonaID: personaID, Role: role, Content: content}
	f.appended = append(f.appended, m)
	return &m, nil
}

func (f *fakeStore) FindMessages(context.Context, *gorm.DB, string, int) ([]domain.Message, error) {
	return nil, repo.ErrUnavailable
}

func (f *fakeStore) InsertVoiceModel(_ context.Context, _ *gorm.DB, in repo.NewVoiceModel) (*domain.VoiceModel, error) {
	f.voiceInserts = append(f.voiceInserts, in)
	if f.voiceErr != nil {
		return nil, f.voiceErr
	}
	return &domain.VoiceModel{ID: "v", UserID: in.UserID, ProviderModelID: in.ProviderModelID, Name: in.Name, FileKind: in.FileKind, PersonaID: in.PersonaID}, nil
}

func (f *fakeStore) LinkVoiceModelToPersona(context.Context, *gorm.DB, string, string) (bool, error) {
	f.linkCalls++
	return f.linkResult, nil
}

func (f *fakeStore) FindVoiceModelByID(context.Context, *gorm.DB, string) (*domain.VoiceModel, error) {
	return nil, repo.ErrNotFound
}

// ----- Tests -----

func TestNewPersonaService_Defaults(t *testing.T) {
	st := newFakeStore()
	s := NewPersonaService(nil, st)
	if s.DB != nil {
		t.Fatalf("expected nil DB, got %v", s.DB)
	}
	if s.Store != st {
		t.Fatalf("store not set")
	}
	if s.StoreTimeout != 10*time.Second || s.MaxNameRunes != 120 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestGetOrCreateUser_CreatesThenReturnsSame(t *testing.T) {
	st := newFakeStore()
	s := NewPersonaService(nil, st)
	ctx := context.Background()

	a, err := s.GetOrCreateUser(ctx, "  auth0|abc ", " a@example.com ")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	b, err := s.GetOrCreateUser(ctx, "auth0|abc", "other@example.com")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("ids differ: %s vs %s", a.ID, b.ID)
	}
	if a.Email != "a@example.com" || b.Email != "a@example.com" {
		t.Fatalf("email must be trimmed and kept from creation: %q / %q", a.Email, b.Email)
	}
	if st.insertCalls != 1 {
		t.Fatalf("expected a single insert, got %d", st.insertCalls)
	}
}

func TestGetOrCreateUser_LostRaceReReads(t *testing.T) {
	st := newFakeStore()
	st.insertErrs = []error{repo.ErrDuplicate}
	s := NewPersonaService(nil, st)

	u, err := s.GetOrCreateUser(context.Background(), "auth0|race", "r@x.io")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if u.ID != "winner" {
		t.Fatalf("expected the concurrent winner, got %+v", u)
	}
	if st.findCalls != 2 {
		t.Fatalf("expected find, insert, find; got %d finds", st.findCalls)
	}
}

func TestGetOrCreateUser_Validation_AndStoreErrors(t *testing.T) {
	s := NewPersonaService(nil, newFakeStore())
	if _, err := s.GetOrCreateUser(context.Background(), "   ", "x"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}

	st := newFakeStore()
	st.findErr = repo.ErrUnavailable
	s = NewPersonaService(nil, st)
	if _, err := s.GetOrCreateUser(context.Background(), "auth0|x", ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	st = newFakeStore()
	st.findErr = repo.ErrTimeout
	s = NewPersonaService(nil, st)
	if _, err := s.GetOrCreateUser(context.Background(), "auth0|x", ""); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGetUserByExternalID_NotFoundIsNotAnError(t *testing.T) {
	s := NewPersonaService(nil, newFakeStore())
	u, ok, err := s.GetUserByExternalID(context.Background(), "nobody")
	if err != nil || ok || u != nil {
		t.Fatalf("expected (nil,false,nil), got (%v,%v,%v)", u, ok, err)
	}
}

func TestCreatePersona_ValidatesAndStoresVerbatim(t *testing.T) {
	st := newFakeStore()
	st.users["auth0|a"] = &domain.User{ID: "u1", ExternalID: "auth0|a"}
	s := NewPersonaService(nil, st)
	ctx := context.Background()

	for _, tc := range [][4]string{
		{"", "Nova", "p", "v"},
		{"u1", "  ", "p", "v"},
		{"u1", "Nova", "", "v"},
		{"u1", "Nova", "p", " "},
	} {
		if _, err := s.CreatePersona(ctx, tc[0], tc[1], tc[2], tc[3]); !errors.Is(err, ErrMissingField) {
			t.Fatalf("%v: expected ErrMissingField, got %v", tc, err)
		}
	}

	if _, err := s.CreatePersona(ctx, "ghost", "Nova", "p", "v"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if len(st.personas) != 0 {
		t.Fatalf("no persona may be written for an unknown user")
	}

	name := "  Rene\u0301e \t  Bot "
	p, err := s.CreatePersona(ctx, "u1", name, " warm ", " placeholder ")
	if err != nil {
		t.Fatalf("CreatePersona: %v", err)
	}
	if p.Name != name || p.BehaviorPrompt != " warm " || p.VoiceModelRef != "placeholder" {
		t.Fatalf("name and prompt must be stored as given: %+v", p)
	}

	s.MaxNameRunes = 3
	if _, err := s.CreatePersona(ctx, "u1", "Longer", "p", "v"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestAppendMessage_Validation(t *testing.T) {
	st := newFakeStore()
	st.personas["p1"] = &domain.Persona{ID: "p1"}
	s := NewPersonaService(nil, st)
	ctx := context.Background()

	for _, role := range []string{"system", "User", "ASSISTANT", ""} {
		if _, err := s.AppendMessage(ctx, "p1", role, "hi"); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("role %q: expected ErrInvalidRole, got %v", role, err)
		}
	}
	if _, err := s.AppendMessage(ctx, "p1", "user", "   "); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, "ghost", "user", "hi"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if len(st.appended) != 0 {
		t.Fatalf("validation failures must not write, got %d", len(st.appended))
	}

	m, err := s.AppendMessage(ctx, "p1", " assistant ", "hello!")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.Role != domain.RoleAssistant {
		t.Fatalf("role = %q", m.Role)
	}
}

func TestGetHistory_NonPositiveLimit_AndStoreDown(t *testing.T) {
	s := NewPersonaService(nil, newFakeStore())
	got, err := s.GetHistory(context.Background(), "p1", 0)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("limit 0: expected empty, got %v, %v", got, err)
	}
	if _, err := s.GetHistory(context.Background(), "p1", 5); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCreateVoiceModel_FileKindAndReferences(t *testing.T) {
	st := newFakeStore()
	st.users["auth0|a"] = &domain.User{ID: "u1"}
	st.personas["p1"] = &domain.Persona{ID: "p1", UserID: "u1"}
	s := NewPersonaService(nil, st)
	ctx := context.Background()

	base := CreateVoiceModelInput{UserID: "u1", ProviderModelID: "fish-1", Name: "A"}
	for _, kind := range []string{"image", "VIDEO", "Audio", ""} {
		in := base
		in.FileKind = kind
		if _, err := s.CreateVoiceModel(ctx, in); !errors.Is(err, ErrInvalidFileKind) {
			t.Fatalf("kind %q: expected ErrInvalidFileKind, got %v", kind, err)
		}
	}

	ghost := "ghost"
	in := base
	in.FileKind, in.PersonaID = "video", &ghost
	if _, err := s.CreateVoiceModel(ctx, in); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown persona, got %v", err)
	}
	if len(st.voiceInserts) != 0 {
		t.Fatalf("nothing may be written on validation failure")
	}

	p1 := "p1"
	in.PersonaID = &p1
	vm, err := s.CreateVoiceModel(ctx, in)
	if err != nil {
		t.Fatalf("CreateVoiceModel: %v", err)
	}
	if vm.FileKind != domain.FileKindVideo || *vm.PersonaID != "p1" {
		t.Fatalf("unexpected model: %+v", vm)
	}

	empty := " "
	in.PersonaID = &empty
	if _, err := s.CreateVoiceModel(ctx, in); err != nil {
		t.Fatalf("blank persona id should be treated as absent: %v", err)
	}
	if st.voiceInserts[1].PersonaID != nil {
		t.Fatalf("blank persona id must not be stored")
	}

	st.voiceErr = repo.ErrDuplicate
	if _, err := s.CreateVoiceModel(ctx, in); !errors.Is(err, ErrDuplicateVoiceModel) {
		t.Fatalf("expected ErrDuplicateVoiceModel, got %v", err)
	}
}

func TestLinkVoiceModelToPersona_UnknownPersona(t *testing.T) {
	st := newFakeStore()
	s := NewPersonaService(nil, st)
	if _, err := s.LinkVoiceModelToPersona(context.Background(), "fish-1", "ghost"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if st.linkCalls != 0 {
		t.Fatalf("store must not be called for an unknown persona")
	}
}

func TestGetVoiceModelByID_Absent(t *testing.T) {
	s := NewPersonaService(nil, newFakeStore())
	vm, ok, err := s.GetVoiceModelByID(context.Background(), "nope")
	if vm != nil || ok || err != nil {
		t.Fatalf("expected (nil,false,nil), got (%v,%v,%v)", vm, ok, err)
	}
}

func TestStoreErr(t *testing.T) {
	if storeErr(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if !errors.Is(storeErr(repo.ErrInvalidReference), ErrInvalidReference) {
		t.Fatalf("invalid reference not mapped")
	}
	if !errors.Is(storeErr(context.DeadlineExceeded), ErrTimeout) {
		t.Fatalf("deadline not mapped")
	}
	other := errors.New("x")
	if storeErr(other) != other {
		t.Fatalf("unknown errors must pass through")
	}
}
