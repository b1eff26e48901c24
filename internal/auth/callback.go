package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const successPage = `<html><body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h2>Authentication successful</h2>
<p>You can close this window and return to the terminal.</p>
</body></html>`

const failurePage = `<html><body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h2>Authentication failed</h2>
<p>No authorization code received. Please try again.</p>
</body></html>`

// callbackServer listens on the redirect URI for the OAuth callback and
// delivers the first authorization code it receives.
type callbackServer struct {
	addr   string
	path   string
	server *http.Server
	codes  chan string
	once   sync.Once
}

// newCallbackServer derives the listen address and path from the
// configured redirect URI, e.g. http://localhost:8100/callback.
func newCallbackServer(redirectURI string) (*callbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	path := u.Path
	if path == "" {
		path = "/callback"
	}

	return &callbackServer{
		addr:  u.Host,
		path:  path,
		codes: make(chan string, 1),
	}, nil
}

// start binds the listener and begins serving in the background.
func (s *callbackServer) start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if code == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, failurePage)
			return
		}
		fmt.Fprint(w, successPage)
		s.once.Do(func() { s.codes <- code })
	})

	s.server = &http.Server{Handler: mux}
	go s.server.Serve(ln)
	return nil
}

// wait blocks until a code arrives, the timeout passes, or ctx is done.
func (s *callbackServer) wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-s.codes:
		return code, nil
	case <-timer.C:
		return "", errAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *callbackServer) shutdown(ctx context.Context) {
	if s.server != nil {
		s.server.Shutdown(ctx)
	}
}
