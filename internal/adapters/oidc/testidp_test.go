package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "backoffice"
	testSecret   = "s3cret"
)

// testIdP is an httptest identity provider: discovery, JWKS, token and userinfo endpoints.
type testIdP struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	keys        map[string]*rsa.PrivateKey
	activeKID   string
	jwksHits    int
	endSession  string
	tokenStatus int
	tokenBody   map[string]any
	tokenDelay  time.Duration
	userInfo    map[string]any
	lastCode    string
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	idp := &testIdP{t: t, keys: map[string]*rsa.PrivateKey{}, tokenStatus: http.StatusOK}
	idp.rotateKey("k1")

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", idp.discovery)
	mux.HandleFunc("/jwks", idp.jwks)
	mux.HandleFunc("/token", idp.token)
	mux.HandleFunc("/userinfo", idp.userinfo)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (i *testIdP) issuer() string { return i.server.URL }

// configure mutates the provider's canned responses under its lock.
func (i *testIdP) configure(fn func(*testIdP)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn(i)
}

func (i *testIdP) receivedCode() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastCode
}

func (i *testIdP) jwksRequests() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.jwksHits
}

func (i *testIdP) rotateKey(kid string) *rsa.PrivateKey {
	i.t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(i.t, err)
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[kid] = key
	i.activeKID = kid
	return key
}

func (i *testIdP) discovery(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	endSession := i.endSession
	i.mu.Unlock()
	doc := map[string]any{
		"issuer":                 i.issuer(),
		"authorization_endpoint": i.issuer() + "/authorize",
		"token_endpoint":         i.issuer() + "/token",
		"userinfo_endpoint":      i.issuer() + "/userinfo",
		"jwks_uri":               i.issuer() + "/jwks",
	}
	if endSession != "" {
		doc["end_session_endpoint"] = endSession
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (i *testIdP) jwks(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.jwksHits++
	set := jose.JSONWebKeySet{}
	for kid, key := range i.keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{Key: &key.PublicKey, KeyID: kid, Algorithm: string(jose.RS256), Use: "sig"})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (i *testIdP) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	i.mu.Lock()
	i.lastCode = r.PostForm.Get("code")
	status, body, delay := i.tokenStatus, i.tokenBody, i.tokenDelay
	i.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (i *testIdP) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	i.mu.Lock()
	claims := i.userInfo
	i.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(claims)
}

// sign returns a compact RS256 JWS of claims under the active key.
func (i *testIdP) sign(claims map[string]any) string {
	i.mu.Lock()
	kid := i.activeKID
	key := i.keys[kid]
	i.mu.Unlock()
	return signWith(i.t, key, kid, claims)
}

func signWith(t *testing.T, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: kid}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	obj, err := signer.Sign(payload)
	require.NoError(t, err)
	raw, err := obj.CompactSerialize()
	require.NoError(t, err)
	return raw
}

// standardClaims is a valid claim set for issuer at now.
func standardClaims(issuer string, now time.Time) map[string]any {
	return map[string]any{
		"iss":   issuer,
		"sub":   "user-123",
		"aud":   testClientID,
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
		"email": "dana@harborline.example",
		"name":  "Dana Reyes",
		"app_access": map[string]any{
			"role":         "Office",
			"permissions":  []string{"shipments:read", "shipments:export"},
			"organization": "",
		},
	}
}
