package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type MockProvider struct {
	mu         sync.Mutex
	Identity   *Identity
	Err        error
	ProfileErr error
	Calls      []string
	Reset      []string
	Block      chan struct{}
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockProvider) result(email string) (*Identity, error) {
	if m.Block != nil {
		<-m.Block
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Identity != nil {
		return m.Identity.clone(), nil
	}
	return &Identity{UID: "u1", Email: email, AccessToken: "tok"}, nil
}

func (m *MockProvider) SignUp(_ context.Context, email, _ string) (*Identity, error) {
	m.record("signUp")
	return m.result(email)
}

func (m *MockProvider) SignIn(_ context.Context, email, _ string) (*Identity, error) {
	m.record("signIn")
	return m.result(email)
}

func (m *MockProvider) SignInWithProvider(_ context.Context, kind ProviderKind) (*Identity, error) {
	m.record("idp:" + string(kind))
	return m.result("idp@example.com")
}

func (m *MockProvider) SendPasswordReset(_ context.Context, email string) error {
	m.record("reset")
	m.mu.Lock()
	m.Reset = append(m.Reset, email)
	m.mu.Unlock()
	return m.Err
}

func (m *MockProvider) UpdateProfile(_ context.Context, id *Identity, p Profile) (*Identity, error) {
	m.record("update")
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	out := id.clone()
	out.DisplayName = p.DisplayName
	out.PhotoURL = p.PhotoURL
	return out, nil
}

func TestSignInNotifiesSubscribers(t *testing.T) {
	s := New(&MockProvider{})

	var seen []*Identity
	cancel := s.Subscribe(func(id *Identity) { seen = append(seen, id) })
	defer cancel()

	id, err := s.SignIn(context.Background(), " ann@example.com ", "pw")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id.Email != "ann@example.com" {
		t.Errorf("Expected trimmed email, got %q", id.Email)
	}
	if s.AccessToken() != "tok" {
		t.Errorf("Expected access token 'tok', got %q", s.AccessToken())
	}

	_ = s.SignOut(context.Background())
	if s.Current() != nil {
		t.Error("Expected no identity after sign out")
	}
	if len(seen) != 2 || seen[0] == nil || seen[1] != nil {
		t.Errorf("Expected [identity, nil] notifications, got %v", seen)
	}
}

func TestSignInFailureLeavesSessionEmpty(t *testing.T) {
	kind := &AuthError{Kind: ErrInvalidCredential, Code: "INVALID_PASSWORD"}
	s := New(&MockProvider{Err: kind})

	_, err := s.SignIn(context.Background(), "ann@example.com", "bad")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Expected ErrInvalidCredential, got %v", err)
	}
	if s.Current() != nil {
		t.Error("Expected no identity after failed sign in")
	}
	if s.Loading() {
		t.Error("Expected in-flight flag cleared")
	}
}

func TestLoadingWhileInFlight(t *testing.T) {
	p := &MockProvider{Block: make(chan struct{})}
	s := New(p)

	done := make(chan struct{})
	go func() {
		_, _ = s.SignIn(context.Background(), "ann@example.com", "pw")
		close(done)
	}()

	deadline := time.After(time.Second)
	for !s.Loading() {
		select {
		case <-deadline:
			t.Fatal("Expected store to report loading")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(p.Block)
	<-done
	if s.Loading() {
		t.Error("Expected loading cleared after completion")
	}
}

func TestCreateAccountAppliesProfile(t *testing.T) {
	p := &MockProvider{}
	s := New(p)

	id, err := s.CreateAccount(context.Background(), "ann@example.com", "Secret#123", Profile{DisplayName: "Ann", PhotoURL: "https://img/ann.png"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id.DisplayName != "Ann" || s.Current().PhotoURL != "https://img/ann.png" {
		t.Errorf("Expected profile applied, got %+v", id)
	}
	if !reflect.DeepEqual(p.Calls, []string{"signUp", "update"}) {
		t.Errorf("Unexpected provider calls %v", p.Calls)
	}
}

func TestCreateAccountProfileFailureKeepsAccount(t *testing.T) {
	s := New(&MockProvider{ProfileErr: errors.New("boom")})

	id, err := s.CreateAccount(context.Background(), "ann@example.com", "pw", Profile{DisplayName: "Ann"})
	if err == nil {
		t.Fatal("Expected profile error")
	}
	if id == nil || s.Current() == nil {
		t.Error("Expected the created account to stay signed in")
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	s := New(&MockProvider{})
	if _, err := s.UpdateProfile(context.Background(), Profile{DisplayName: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestProviderCancelled(t *testing.T) {
	s := New(&MockProvider{Err: &AuthError{Kind: ErrProviderCancelled, Code: "popup-closed-by-user"}})
	_, err := s.SignInWithProvider(context.Background(), Google)
	if got := UserMessage(err, FlowSignIn); got != "Google sign-in was canceled" {
		t.Errorf("Expected cancel message, got %q", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := New(&MockProvider{})
	calls := 0
	cancel := s.Subscribe(func(*Identity) { calls++ })
	cancel()
	cancel()
	_, _ = s.SignIn(context.Background(), "a@example.com", "pw")
	if calls != 0 {
		t.Errorf("Expected no notifications after cancel, got %d", calls)
	}
}

func TestUserMessage(t *testing.T) {
	testCases := []struct {
		err      error
		flow     Flow
		expected string
	}{
		{&AuthError{Kind: ErrInvalidEmail}, FlowSignIn, "Invalid email address"},
		{&AuthError{Kind: ErrAccountDisabled}, FlowSignIn, "Account disabled"},
		{&AuthError{Kind: ErrUserNotFound}, FlowSignIn, "No account found with this email"},
		{&AuthError{Kind: ErrInvalidCredential}, FlowSignIn, "Incorrect password"},
		{&AuthError{Kind: ErrUnknown, Code: "x"}, FlowSignIn, "Login failed. Please try again"},
		{errors.New("plain"), FlowSignIn, "Login failed. Please try again"},
		{&AuthError{Kind: ErrEmailInUse}, FlowRegister, "This email is already registered"},
		{&AuthError{Kind: ErrOperationNotAllowed}, FlowRegister, "Registration is currently disabled"},
		{&AuthError{Kind: ErrWeakCredential}, FlowRegister, "Password should be at least 6 characters"},
		{&AuthError{Kind: ErrProviderCancelled}, FlowRegister, "Google sign-up was canceled"},
		{&AuthError{Kind: ErrInvalidCredential}, FlowRegister, "Registration failed. Please try again"},
		{&AuthError{Kind: ErrUserNotFound}, FlowReset, "No account found with this email"},
		{nil, FlowSignIn, ""},
	}

	for _, tc := range testCases {
		if got := UserMessage(tc.err, tc.flow); got != tc.expected {
			t.Errorf("UserMessage(%v, %d) = %q, want %q", tc.err, tc.flow, got, tc.expected)
		}
	}
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("transport")
	err := &AuthError{Kind: ErrEmailInUse, Code: "EMAIL_EXISTS", Err: cause}
	if !errors.Is(err, ErrEmailInUse) || !errors.Is(err, cause) {
		t.Errorf("Expected errors.Is to match kind and cause, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		confirm  string
		expected int
	}{
		{"valid", "Str0ng#Pass", "Str0ng#Pass", 0},
		{"short", "S0#a", "S0#a", 1},
		{"no upper", "str0ng#pass", "str0ng#pass", 1},
		{"no special", "Str0ngPass", "Str0ngPass", 1},
		{"contains email", "Ann#Secret1", "Ann#Secret1", 1},
		{"mismatch", "Str0ng#Pass", "Str0ng#Pas", 1},
		{"empty", "", "", 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidatePassword(tc.password, tc.confirm, "ann@example.com")
			if len(got) != tc.expected {
				t.Errorf("ValidatePassword(%q) = %v, want %d problems", tc.password, got, tc.expected)
			}
		})
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "email": "ann@example.com"})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestIdentityExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		id       *Identity
		expected bool
	}{
		{"nil", nil, true},
		{"opaque token", &Identity{AccessToken: "opaque"}, false},
		{"jwt future", &Identity{AccessToken: signedToken(t, now.Add(time.Hour))}, false},
		{"jwt past", &Identity{AccessToken: signedToken(t, now.Add(-time.Hour))}, true},
		{"explicit expiry wins", &Identity{AccessToken: signedToken(t, now.Add(time.Hour)), ExpiresAt: now.Add(-time.Minute)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.id.Expired(now); got != tc.expected {
				t.Errorf("Expired() = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	p := FilePersister{Path: path}

	if id, err := p.Load(); err != nil || id != nil {
		t.Fatalf("Expected empty load, got %v %v", id, err)
	}

	want := &Identity{UID: "u1", Email: "ann@example.com", AccessToken: "tok"}
	if err := p.Save(want); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	got, err := p.Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := p.Clear(); err != nil {
		t.Errorf("Expected clearing twice to succeed, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	testCases := []struct {
		name     string
		stored   *Identity
		expected bool
	}{
		{"valid", &Identity{Email: "ann@example.com", AccessToken: signedToken(t, now.Add(time.Hour))}, true},
		{"expired", &Identity{Email: "ann@example.com", AccessToken: signedToken(t, now.Add(-time.Hour))}, false},
		{"nothing stored", nil, false},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := FilePersister{Path: filepath.Join(dir, tc.name, "s.json")}
			if tc.stored != nil {
				if err := p.Save(tc.stored); err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			s := New(&MockProvider{}, WithPersister(p), WithClock(func() time.Time { return now }))
			notified := false
			s.Subscribe(func(*Identity) { notified = true })

			id, err := s.Restore(context.Background())
			if err != nil {
				t.Fatalf("case %d: Expected no error, got %v", i, err)
			}
			if (id != nil) != tc.expected {
				t.Errorf("Expected restored=%v, got %+v", tc.expected, id)
			}
			if !notified {
				t.Error("Expected subscribers notified after restore")
			}
		})
	}
}
