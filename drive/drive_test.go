package drive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/embelhq/embel/dbopen"
	"github.com/embelhq/embel/export"
	"github.com/embelhq/embel/notes"
)

// fakeProvider simulates the storage provider: a token endpoint and an
// upload endpoint whose accepted bearer token can be rotated mid-test.
type fakeProvider struct {
	mu          sync.Mutex
	validToken  string
	tokenGrants int
	uploads     []string // remote paths of successful uploads
	uploadAuths []string // bearer tokens seen on upload attempts
}

func newFakeProvider(t *testing.T) (*fakeProvider, *httptest.Server) {
	t.Helper()
	p := &fakeProvider{validToken: "access-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.tokenGrants++
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"`+p.validToken+`","token_type":"bearer","refresh_token":"refresh-1","expires_in":3600}`)
	})
	mux.HandleFunc("/content/files/upload", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		p.uploadAuths = append(p.uploadAuths, bearer)
		if bearer != p.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var arg struct {
			Path string `json:"path"`
		}
		if raw := r.Header.Get("X-Upload-Arg"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &arg)
		}
		p.uploads = append(p.uploads, arg.Path)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return p, srv
}

func newDriveRig(t *testing.T, providerURL string) (*Service, *notes.Service, *notes.Note) {
	t.Helper()
	db := dbopen.OpenMemory(t,
		dbopen.WithSchema(notes.Schema),
		dbopen.WithSchema(Schema),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := notes.NewService(db, nil, logger)

	ctx := context.Background()
	n, err := svc.CreateFromText(ctx, "u1", "notes text", notes.Settings{AddHeaders: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkProcessing(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.CompleteProcessing(ctx, n.ID, n.Text, "# Done\n\ncontent"); err != nil {
		t.Fatal(err)
	}

	gen := export.NewGenerator(svc, nil, nil, t.TempDir(), logger)
	ds := NewService(db, Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/cb",
		AuthURL:      providerURL + "/oauth/authorize",
		TokenURL:     providerURL + "/oauth/token",
		ContentURL:   providerURL + "/content",
		Folder:       "embel",
	}, gen, logger)
	return ds, svc, n
}

func seedToken(t *testing.T, ds *Service, userID, access string) {
	t.Helper()
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := ds.tokens.save(context.Background(), userID, "user@example.com", tok); err != nil {
		t.Fatal(err)
	}
}

func TestStatusReflectsConnection(t *testing.T) {
	_, srv := newFakeProvider(t)
	ds, _, _ := newDriveRig(t, srv.URL)
	ctx := context.Background()

	st, err := ds.Status(ctx, "u1")
	if err != nil || st.Connected {
		t.Fatalf("fresh user status = %+v, %v", st, err)
	}

	seedToken(t, ds, "u1", "access-1")
	st, err = ds.Status(ctx, "u1")
	if err != nil || !st.Connected || st.Account != "user@example.com" {
		t.Errorf("connected status = %+v, %v", st, err)
	}

	if err := ds.Disconnect(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	st, _ = ds.Status(ctx, "u1")
	if st.Connected {
		t.Error("still connected after disconnect")
	}
}

func TestUploadGeneratesArtifactAutomatically(t *testing.T) {
	// WHAT: Uploading a format that was never exported renders the
	// artifact first, then pushes it.
	p, srv := newFakeProvider(t)
	ds, svc, n := newDriveRig(t, srv.URL)
	ctx := context.Background()
	seedToken(t, ds, "u1", "access-1")

	remotePath, err := ds.Upload(ctx, "u1", n.ID, notes.FormatTXT)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if remotePath != "/embel/"+n.ID+".txt" {
		t.Errorf("remote path = %q", remotePath)
	}
	if len(p.uploads) != 1 {
		t.Fatalf("uploads = %v", p.uploads)
	}
	// the artifact now exists locally too
	if loc, _ := svc.ArtifactLocation(ctx, "u1", n.ID, notes.FormatTXT); loc == "" {
		t.Error("artifact not recorded after upload-triggered generation")
	}
}

func TestUploadRetriesOnceAfterTokenRefresh(t *testing.T) {
	// WHAT: A 401 from the provider triggers one token refresh and one
	// retry; a second 401 fails the upload.
	// WHY: Expired access tokens are routine and invisible to the user;
	// anything beyond one retry means the credential is actually dead.
	p, srv := newFakeProvider(t)
	ds, _, n := newDriveRig(t, srv.URL)
	ctx := context.Background()

	// stored access token is stale; provider now wants access-2
	seedToken(t, ds, "u1", "stale-access")
	p.mu.Lock()
	p.validToken = "access-2"
	p.mu.Unlock()

	_, err := ds.Upload(ctx, "u1", n.ID, notes.FormatTXT)
	if err != nil {
		t.Fatalf("Upload after refresh: %v", err)
	}
	// first attempt with the stale token, second with the refreshed one
	if len(p.uploadAuths) != 2 || p.uploadAuths[0] != "stale-access" || p.uploadAuths[1] != "access-2" {
		t.Errorf("upload auth sequence = %v", p.uploadAuths)
	}
	if p.tokenGrants != 1 {
		t.Errorf("token grants = %d, want exactly 1 refresh", p.tokenGrants)
	}
}

func TestUploadWithoutConnection(t *testing.T) {
	_, srv := newFakeProvider(t)
	ds, _, n := newDriveRig(t, srv.URL)

	_, err := ds.Upload(context.Background(), "u1", n.ID, notes.FormatTXT)
	if err != ErrNotConnected {
		t.Errorf("Upload without token = %v, want ErrNotConnected", err)
	}
}

func TestAuthURLStateIsSingleUse(t *testing.T) {
	_, srv := newFakeProvider(t)
	ds, _, _ := newDriveRig(t, srv.URL)

	authURL, err := ds.AuthURL("u1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("auth URL carries no state")
	}

	// consuming the state twice must fail the second time
	_ = ds.HandleCallback(context.Background(), state, "code-1")
	if err := ds.HandleCallback(context.Background(), state, "code-1"); err == nil {
		t.Error("state token accepted twice")
	}
}
