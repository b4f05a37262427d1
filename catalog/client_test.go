package catalog_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/internal/utils"
	"github.com/jrsteele09/go-catalog-link/oauth1"
	"github.com/stretchr/testify/require"
)

const testUsername = "crate digger"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Agent  string
	Body   string
}

type provider struct {
	t        *testing.T
	mux      *http.ServeMux
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{t: t, mux: http.NewServeMux()}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.requests = append(p.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Agent:  r.Header.Get("User-Agent"),
			Body:   string(body),
		})
		p.mu.Unlock()
		p.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *provider) handle(pattern string, status int, body string) {
	p.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (p *provider) recorded() []recordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedRequest(nil), p.requests...)
}

func (p *provider) client(t *testing.T, auth catalog.Authorizer, options ...catalog.Option) *catalog.Client {
	t.Helper()
	c, err := catalog.New(catalog.Config{BaseURL: p.server.URL, UserAgent: "catalog-test/1.0"}, auth, options...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := catalog.New(catalog.Config{}, catalog.TokenAuthorizer{})
	require.Error(t, err)

	_, err = catalog.New(catalog.Config{BaseURL: "https://api.example.com"}, nil)
	require.Error(t, err)
}

func TestWant(t *testing.T) {
	p := newProvider(t)
	p.handle("GET /users/{user}/wants/100", http.StatusOK, `{"id":100,"rating":4,"notes":"mint only"}`)
	p.handle("GET /users/{user}/wants/200", http.StatusNotFound, `{"message":"Release not in wantlist."}`)
	p.handle("GET /users/{user}/wants/300", http.StatusInternalServerError, `{"message":"boom"}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "app-token"})
	ctx := context.Background()

	want, ok, err := c.Want(ctx, testUsername, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, catalog.Want{ItemID: 100, Rating: 4, Notes: "mint only"}, want)

	_, ok, err = c.Want(ctx, testUsername, 200)
	require.NoError(t, err, "404 is a negative result, not an error")
	require.False(t, ok)

	_, _, err = c.Want(ctx, testUsername, 300)
	var upstream *catalog.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusInternalServerError, upstream.Status)
	require.Equal(t, "boom", upstream.Message)

	reqs := p.recorded()
	require.Equal(t, "/users/crate digger/wants/100", reqs[0].Path)
	require.Equal(t, "Discogs token=app-token", reqs[0].Auth)
	require.Equal(t, "catalog-test/1.0", reqs[0].Agent)
}

func TestAddWant(t *testing.T) {
	p := newProvider(t)
	p.handle("PUT /users/{user}/wants/100", http.StatusCreated, `{"id":100}`)
	p.handle("PUT /users/{user}/wants/101", http.StatusConflict, `{"message":"already in wantlist"}`)
	p.handle("PUT /users/{user}/wants/102", http.StatusUnauthorized, `{"message":"You must authenticate"}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"})
	ctx := context.Background()

	require.NoError(t, c.AddWant(ctx, testUsername, 100, catalog.WantOptions{Notes: utils.Ptr("try"), Rating: 3}))
	require.NoError(t, c.AddWant(ctx, testUsername, 101, catalog.WantOptions{}), "409 counts as success")

	err := c.AddWant(ctx, testUsername, 102, catalog.WantOptions{})
	require.True(t, catalog.IsUnauthorized(err))

	reqs := p.recorded()
	require.Equal(t, "notes=try&rating=3", reqs[0].Query)
	require.Empty(t, reqs[1].Query)
}

func TestRemoveWant(t *testing.T) {
	p := newProvider(t)
	p.handle("DELETE /users/{user}/wants/100", http.StatusNoContent, ``)
	p.handle("DELETE /users/{user}/wants/200", http.StatusNotFound, `{"message":"not found"}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"})

	require.NoError(t, c.RemoveWant(context.Background(), testUsername, 100))
	require.NoError(t, c.RemoveWant(context.Background(), testUsername, 200))
}

func TestInstances(t *testing.T) {
	p := newProvider(t)
	p.handle("GET /users/{user}/collection/releases/100", http.StatusOK,
		`{"pagination":{"items":2},"releases":[{"id":100,"instance_id":11,"folder_id":1,"rating":0},{"id":100,"instance_id":12,"folder_id":7,"rating":5}]}`)
	p.handle("GET /users/{user}/collection/releases/200", http.StatusNotFound, `{"message":"not found"}`)
	p.handle("GET /users/{user}/collection/releases/300", http.StatusOK, `{"releases":[]}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"})
	ctx := context.Background()

	instances, err := c.Instances(ctx, testUsername, 100)
	require.NoError(t, err)
	require.Equal(t, []catalog.Instance{
		{InstanceID: 11, FolderID: 1, ItemID: 100},
		{InstanceID: 12, FolderID: 7, ItemID: 100, Rating: 5},
	}, instances)

	instances, err = c.Instances(ctx, testUsername, 200)
	require.NoError(t, err)
	require.Empty(t, instances)

	instances, err = c.Instances(ctx, testUsername, 300)
	require.NoError(t, err)
	require.Empty(t, instances)
}

func TestAddToFolderAndRemoveInstance(t *testing.T) {
	p := newProvider(t)
	p.handle("POST /users/{user}/collection/folders/1/releases/100", http.StatusCreated, `{"instance_id":42,"resource_url":"x"}`)
	p.handle("POST /users/{user}/collection/folders/1/releases/101", http.StatusConflict, `{"message":"exists"}`)
	p.handle("DELETE /users/{user}/collection/folders/1/releases/100/instances/42", http.StatusNoContent, ``)
	p.handle("DELETE /users/{user}/collection/folders/1/releases/100/instances/43", http.StatusNotFound, ``)
	p.handle("DELETE /users/{user}/collection/folders/1/releases/100/instances/44", http.StatusForbidden, `{"message":"nope"}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"})
	ctx := context.Background()

	instance, err := c.AddToFolder(ctx, testUsername, 1, 100)
	require.NoError(t, err)
	require.Equal(t, catalog.Instance{InstanceID: 42, FolderID: 1, ItemID: 100}, instance)

	instance, err = c.AddToFolder(ctx, testUsername, 1, 101)
	require.NoError(t, err)
	require.Zero(t, instance.InstanceID)

	require.NoError(t, c.RemoveInstance(ctx, testUsername, 1, 100, 42))
	require.NoError(t, c.RemoveInstance(ctx, testUsername, 1, 100, 43))
	err = c.RemoveInstance(ctx, testUsername, 1, 100, 44)
	var upstream *catalog.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusForbidden, upstream.Status)
}

func TestRating(t *testing.T) {
	p := newProvider(t)
	p.handle("GET /releases/100/rating/{user}", http.StatusOK, `{"username":"crate digger","release_id":100,"rating":4}`)
	p.handle("GET /releases/101/rating/{user}", http.StatusOK, `{"rating":0}`)
	p.handle("PUT /releases/100/rating/{user}", http.StatusCreated, `{"rating":5}`)
	p.handle("DELETE /releases/100/rating/{user}", http.StatusNoContent, ``)
	p.handle("DELETE /releases/101/rating/{user}", http.StatusNotFound, `{"message":"no rating"}`)
	p.handle("DELETE /releases/102/rating/{user}", http.StatusTooManyRequests, `{"message":"slow down"}`)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"})
	ctx := context.Background()

	rating, ok, err := c.Rating(ctx, testUsername, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, rating)

	_, ok, err = c.Rating(ctx, testUsername, 101)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetRating(ctx, testUsername, 100, 5))
	require.Error(t, c.SetRating(ctx, testUsername, 100, 6))
	require.Error(t, c.SetRating(ctx, testUsername, 100, 0))

	require.NoError(t, c.DeleteRating(ctx, testUsername, 100))
	require.NoError(t, c.DeleteRating(ctx, testUsername, 101), "deleting a missing rating succeeds")
	require.True(t, catalog.IsRateLimited(c.DeleteRating(ctx, testUsername, 102)))

	var body map[string]int
	for _, r := range p.recorded() {
		if r.Method == http.MethodPut {
			require.NoError(t, json.Unmarshal([]byte(r.Body), &body))
		}
	}
	require.Equal(t, map[string]int{"rating": 5}, body)
}

func TestIdentity_OAuthSigned(t *testing.T) {
	p := newProvider(t)
	p.handle("GET /oauth/identity", http.StatusOK, `{"id":7,"username":"crate digger","resource_url":"u","consumer_name":"app"}`)

	signer, err := oauth1.NewSigner("consumer-key", "consumer-secret")
	require.NoError(t, err)
	c := p.client(t, catalog.OAuthAuthorizer{Signer: signer, Token: "user-token", TokenSecret: "user-secret"})

	identity, err := c.Identity(context.Background())
	require.NoError(t, err)
	require.Equal(t, "crate digger", identity.Username)
	require.Equal(t, int64(7), identity.ID)

	auth := p.recorded()[0].Auth
	require.True(t, strings.HasPrefix(auth, "OAuth "))
	require.Contains(t, auth, `oauth_consumer_key="consumer-key"`)
	require.Contains(t, auth, `oauth_token="user-token"`)
	require.Contains(t, auth, `oauth_signature=`)
}

func TestTimeoutIsUpstreamError(t *testing.T) {
	p := newProvider(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	p.mux.HandleFunc("GET /users/{user}/wants/1", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	c := p.client(t, catalog.TokenAuthorizer{Token: "t"}, catalog.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, _, err := c.Want(context.Background(), testUsername, 1)
	var upstream *catalog.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.True(t, upstream.Timeout)
	require.Zero(t, upstream.Status)
}

func TestLimiterHonoursContext(t *testing.T) {
	p := newProvider(t)
	p.handle("GET /users/{user}/wants/1", http.StatusOK, `{"id":1}`)

	limiter := catalog.NewLimiter(1)
	c := p.client(t, catalog.TokenAuthorizer{Token: "t"}, catalog.WithLimiter(limiter))

	// Drain the burst.
	for i := 0; i < 5; i++ {
		_, _, err := c.Want(context.Background(), testUsername, 1)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.Want(ctx, testUsername, 1)
	var upstream *catalog.UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestParseItemID(t *testing.T) {
	id, err := catalog.ParseItemID("249504")
	require.NoError(t, err)
	require.Equal(t, catalog.ItemID(249504), id)
	require.Equal(t, "249504", id.String())

	_, err = catalog.ParseItemID("0")
	require.Error(t, err)
	_, err = catalog.ParseItemID("abc")
	require.Error(t, err)
}
