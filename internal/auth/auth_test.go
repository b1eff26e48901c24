package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
)

func TestExpiryFor(t *testing.T) {
	tests := []struct {
		name   string
		issued time.Time
		want   time.Time
	}{
		{
			name:   "daytime issue expires next morning",
			issued: time.Date(2025, 6, 1, 10, 0, 0, 0, ist),
			want:   time.Date(2025, 6, 2, 3, 30, 0, 0, ist),
		},
		{
			name:   "pre-cutoff issue expires same morning",
			issued: time.Date(2025, 6, 1, 2, 0, 0, 0, ist),
			want:   time.Date(2025, 6, 1, 3, 30, 0, 0, ist),
		},
		{
			name:   "issue exactly at cutoff rolls to next day",
			issued: time.Date(2025, 6, 1, 3, 30, 0, 0, ist),
			want:   time.Date(2025, 6, 2, 3, 30, 0, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expiryFor(tt.issued); !got.Equal(tt.want) {
				t.Errorf("expiryFor(%v) = %v, want %v", tt.issued, got, tt.want)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, ist)

	if err := SaveSession(dir, NewSession("tok-123", issued)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	s, err := LoadSession(dir, issued.Add(time.Hour))
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if s.AccessToken != "tok-123" {
		t.Errorf("token = %q", s.AccessToken)
	}

	// Past 03:30 the next day the session is rejected.
	if _, err := LoadSession(dir, issued.Add(24*time.Hour)); !apperrors.Is(err, apperrors.ErrSessionExpired) {
		t.Errorf("stale load err = %v, want ErrSessionExpired", err)
	}
}

func TestLoadSessionMissing(t *testing.T) {
	_, err := LoadSession(t.TempDir(), time.Now())
	if !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDeleteSession(t *testing.T) {
	dir := t.TempDir()
	if err := SaveSession(dir, NewSession("tok", time.Now())); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := DeleteSession(dir); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := DeleteSession(dir); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if _, err := LoadSession(dir, time.Now()); !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("err after delete = %v, want ErrNotAuthenticated", err)
	}
}

func TestSessionTokens(t *testing.T) {
	dir := t.TempDir()
	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, ist)
	if err := SaveSession(dir, NewSession("tok-xyz", issued)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	src := SessionTokens{Dir: dir, Now: func() time.Time { return issued.Add(time.Minute) }}
	tok, err := src.AccessToken()
	if err != nil || tok != "tok-xyz" {
		t.Errorf("AccessToken = %q, %v", tok, err)
	}

	src.Now = func() time.Time { return issued.Add(48 * time.Hour) }
	if _, err := src.AccessToken(); !apperrors.Is(err, apperrors.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestAuthorizeURL(t *testing.T) {
	a := New(Config{
		BaseURL:     "https://api-v2.upstox.com",
		ClientID:    "client-1",
		RedirectURI: "http://localhost:8100/callback",
	}, nil, zerolog.Nop())

	u, err := url.Parse(a.AuthorizeURL())
	if err != nil {
		t.Fatalf("parsing authorize URL: %v", err)
	}
	if u.Path != "/login/authorization/dialog" {
		t.Errorf("path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("response_type") != "code" || q.Get("client_id") != "client-1" {
		t.Errorf("query = %v", q)
	}
	if q.Get("redirect_uri") != "http://localhost:8100/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestExchangeToken(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		fmt.Fprint(w, `{"status":"success","access_token":"issued-token"}`)
	}))
	defer srv.Close()

	a := New(Config{
		BaseURL:      srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8100/callback",
	}, srv.Client(), zerolog.Nop())

	tok, err := a.exchangeToken(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchangeToken: %v", err)
	}
	if tok != "issued-token" {
		t.Errorf("token = %q", tok)
	}
	if gotForm.Get("grant_type") != "authorization_code" || gotForm.Get("code") != "auth-code" {
		t.Errorf("form = %v", gotForm)
	}
}

func TestExchangeTokenRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"error","errors":[{"message":"invalid code"}]}`)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, ClientID: "c", ClientSecret: "s"}, srv.Client(), zerolog.Nop())

	_, err := a.exchangeToken(context.Background(), "bad-code")
	if !apperrors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginFullFlow(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code") != "flow-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"error"}`)
			return
		}
		fmt.Fprint(w, `{"status":"success","access_token":"flow-token"}`)
	}))
	defer tokenSrv.Close()

	dir := t.TempDir()
	a := New(Config{
		BaseURL:      tokenSrv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:18743/callback",
		SessionDir:   dir,
	}, tokenSrv.Client(), zerolog.Nop())
	a.timeout = 5 * time.Second
	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, ist)
	a.now = func() time.Time { return issued }

	// Stand in for the user: hit the callback once the dialog "opens".
	a.openBrowser = func(string) error {
		go func() {
			for i := 0; i < 50; i++ {
				resp, err := http.Get("http://127.0.0.1:18743/callback?code=flow-code")
				if err == nil {
					resp.Body.Close()
					return
				}
				time.Sleep(50 * time.Millisecond)
			}
		}()
		return nil
	}

	session, err := a.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.AccessToken != "flow-token" {
		t.Errorf("token = %q", session.AccessToken)
	}
	if !session.ExpiresAt.Equal(time.Date(2025, 6, 2, 3, 30, 0, 0, ist)) {
		t.Errorf("expires at %v", session.ExpiresAt)
	}

	// Login persisted the session for later runs.
	loaded, err := LoadSession(dir, issued.Add(time.Minute))
	if err != nil || loaded.AccessToken != "flow-token" {
		t.Errorf("persisted session = %+v, %v", loaded, err)
	}
}

func TestLoginTimeout(t *testing.T) {
	a := New(Config{
		BaseURL:      "http://127.0.0.1:1",
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:18744/callback",
		SessionDir:   t.TempDir(),
	}, nil, zerolog.Nop())
	a.timeout = 100 * time.Millisecond
	a.openBrowser = func(string) error { return nil }

	_, err := a.Login(context.Background())
	if !apperrors.Is(err, apperrors.ErrAuthTimeout) {
		t.Errorf("err = %v, want ErrAuthTimeout", err)
	}
}

func TestLoginWithoutCredentials(t *testing.T) {
	a := New(Config{}, nil, zerolog.Nop())
	if _, err := a.Login(context.Background()); !apperrors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}
