package server

import (
	"context"
	"testing"
	"time"

	"github.com/phantomop26/TeachForward/config"
	"github.com/phantomop26/TeachForward/src/hub"
	"github.com/phantomop26/TeachForward/src/identity"
	"github.com/phantomop26/TeachForward/src/router"
	"github.com/phantomop26/TeachForward/src/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type nopAppender struct{}

func (nopAppender) Append(_ context.Context, senderID int64, receiverID *int64, content string) (types.MessageRecord, error) {
	return types.MessageRecord{SenderID: senderID, ReceiverID: receiverID, Content: content}, nil
}

func newTestServer() *Server {
	h := hub.New(zerolog.Nop())
	rt := router.New(h, nopAppender{}, zerolog.Nop())
	return New(config.Default(), h, rt, identity.TrustedQuery{}, zerolog.Nop())
}

func doRequest(s *Server, uri string, headers map[string]string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI(uri)
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	s.Handler()(&ctx)
	return &ctx
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer()
	ctx := doRequest(s, "/health", nil)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(ctx.Response.Body()))
}

func TestInfoRoute(t *testing.T) {
	s := newTestServer()
	ctx := doRequest(s, "/ws/info", nil)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, `"users":0`)
	assert.Contains(t, body, `"connections":0`)
}

func TestWSRequiresUpgradeHeader(t *testing.T) {
	s := newTestServer()
	ctx := doRequest(s, "/ws?user_id=1", nil)
	assert.Equal(t, fasthttp.StatusUpgradeRequired, ctx.Response.StatusCode())
}

func TestWSRejectsUnresolvableIdentity(t *testing.T) {
	s := newTestServer()
	ctx := doRequest(s, "/ws", map[string]string{"Upgrade": "websocket"})
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = doRequest(s, "/ws?user_id=alice", map[string]string{"Upgrade": "websocket"})
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestCredentialsFromQueryAndHeader(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/ws?user_id=42&token=abc")
	creds := credentialsFrom(&ctx)
	assert.Equal(t, "42", creds.UserID)
	assert.Equal(t, "abc", creds.Token)

	var ctx2 fasthttp.RequestCtx
	ctx2.Request.SetRequestURI("/ws")
	ctx2.Request.Header.Set("Authorization", "Bearer header-token")
	creds = credentialsFrom(&ctx2)
	assert.Equal(t, "header-token", creds.Token)
}

func TestTokenBinderGatesUpgrade(t *testing.T) {
	h := hub.New(zerolog.Nop())
	rt := router.New(h, nopAppender{}, zerolog.Nop())
	binder := identity.NewTokenBinder("devsecret")
	s := New(config.Default(), h, rt, binder, zerolog.Nop())

	// Claimed user_id alone is not enough in token mode.
	ctx := doRequest(s, "/ws?user_id=42", map[string]string{"Upgrade": "websocket"})
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	tok, err := binder.Issue(42, time.Hour)
	require.NoError(t, err)
	id, err := binder.Bind(identity.Credentials{Token: tok})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
