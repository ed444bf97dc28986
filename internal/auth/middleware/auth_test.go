package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-iq/internal/db"
	"github.com/mind-engage/mindengage-iq/internal/rbac"
)

func newUsers(t *testing.T) *UserStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_pragma=foreign_keys(1)"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewUserStore(dbh).WithCost(bcrypt.MinCost)
}

func TestJWTRoundTrip(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("u1", "Ann", RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "u1" || c.Name != "Ann" || c.Role != RoleUser {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
	expired, _ := NewAuthService("secret", time.Nanosecond).IssueJWT("u1", "", RoleUser)
	time.Sleep(time.Second + 10*time.Millisecond)
	if _, err := a.Parse(expired); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestParseRejectsNoneAlg(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "u1", Role: RoleAdmin})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewAuthService("secret", time.Hour).Parse(s); err == nil {
		t.Fatal("alg=none token accepted")
	}
}

func TestUserStore(t *testing.T) {
	users := newUsers(t)
	ctx := context.Background()

	u, err := users.Create(ctx, "  Alice ", "password1", "", RoleUser)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Username != "alice" || u.DisplayName != "alice" {
		t.Fatalf("user = %+v", u)
	}
	if _, err := users.Create(ctx, "ALICE", "password2", "", RoleUser); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := users.Create(ctx, "bob", "short", "", RoleUser); !errors.Is(err, ErrWeakInput) {
		t.Fatalf("weak err = %v", err)
	}

	if _, err := users.Authenticate(ctx, "alice", "wrong-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("bad password err = %v", err)
	}
	got, err := users.Authenticate(ctx, "Alice", "password1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("authenticate = %+v %v", got, err)
	}
	if role, _ := users.Role(ctx, u.ID); role != RoleUser {
		t.Fatalf("role = %q", role)
	}
}

func TestRegisterLoginAndProtectedRoute(t *testing.T) {
	users := newUsers(t)
	a := NewAuthService("secret", time.Hour)

	mux := http.NewServeMux()
	mux.Handle("/auth/register", RegisterHandler(a, users))
	mux.Handle("/auth/login", LoginHandler(a, users))
	mux.Handle("/me", JWTMiddleware(a)(AttachRoleFromDB(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFromContext(r.Context()) + "|" + DisplayNameFromContext(r.Context()) + "|" + rbac.RoleFromContext(r.Context())))
	}))))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/auth/register", "application/json",
		strings.NewReader(`{"username":"carol","password":"password1","display_name":"Carol"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register = %d", resp.StatusCode)
	}
	resp, _ = http.Post(srv.URL+"/auth/register", "application/json",
		strings.NewReader(`{"username":"carol","password":"password1"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register = %d", resp.StatusCode)
	}

	resp, _ = http.Post(srv.URL+"/auth/login", "application/json", strings.NewReader(`{"username":"carol","password":"nope-nope"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", resp.StatusCode)
	}
	resp, _ = http.Post(srv.URL+"/auth/login", "application/json", strings.NewReader(`{"username":"carol","password":"password1"}`))
	var tok tokenResponse
	_ = json.NewDecoder(resp.Body).Decode(&tok)
	resp.Body.Close()
	if tok.AccessToken == "" || tok.DisplayName != "Carol" {
		t.Fatalf("token response = %+v", tok)
	}

	req, _ := http.NewRequest("GET", srv.URL+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if want := tok.UserID + "|Carol|user"; string(body) != want {
		t.Fatalf("context = %q, want %q", body, want)
	}

	// a validly signed token for a user that does not exist
	ghost, _ := a.IssueJWT("ghost", "", RoleAdmin)
	req.Header.Set("Authorization", "Bearer "+ghost)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user = %d", resp.StatusCode)
	}

	req.Header.Del("Authorization")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token = %d", resp.StatusCode)
	}
}

func TestConcurrentRegistrationsOneWins(t *testing.T) {
	users := newUsers(t)
	const n = 6
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := users.Create(context.Background(), "erin", "password1", "", RoleUser)
			errs <- err
		}()
	}
	created := 0
	for i := 0; i < n; i++ {
		switch err := <-errs; {
		case err == nil:
			created++
		case !errors.Is(err, ErrUserExists):
			t.Fatalf("losing registration err = %v, want ErrUserExists", err)
		}
	}
	if created != 1 {
		t.Fatalf("created %d users, want 1", created)
	}
}

func TestAttachRoleStoreFailureIs500(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "closed.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	users := NewUserStore(dbh)
	dbh.Close()

	h := AttachRoleFromDB(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached despite failed role lookup")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSubject(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
