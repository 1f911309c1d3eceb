// Package server exposes the HTTP surface: health and info routes via Fiber
// and the WebSocket upgrade as a raw fasthttp handler, since Fiber v3 does
// not expose *fasthttp.RequestCtx.
package server

import (
	"context"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/phantomop26/TeachForward/config"
	"github.com/phantomop26/TeachForward/src/hub"
	"github.com/phantomop26/TeachForward/src/identity"
	"github.com/phantomop26/TeachForward/src/router"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Server ties the HTTP surface to the hub and router.
type Server struct {
	cfg      *config.Config
	app      *fiber.App
	hub      *hub.Hub
	router   *router.Router
	binder   identity.Binder
	logger   zerolog.Logger
	upgrader websocket.FastHTTPUpgrader
	srv      *fasthttp.Server
}

// New builds the server. The binder decides which connect requests are
// allowed to claim which user ids.
func New(cfg *config.Config, h *hub.Hub, rt *router.Router, binder identity.Binder, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		app:    fiber.New(),
		hub:    h,
		router: rt,
		binder: binder,
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  cfg.Socket.ReadBufferSize,
			WriteBufferSize: cfg.Socket.WriteBufferSize,
		},
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/ws/info", s.handleInfo)
	return s
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket":   true,
		"endpoint":    "/ws",
		"users":       s.hub.UserCount(),
		"connections": s.hub.ConnCount(),
	})
}

// Handler returns the combined fasthttp handler: the "/ws" path upgrades,
// everything else goes through the Fiber app.
func (s *Server) Handler() fasthttp.RequestHandler {
	fiberHandler := s.app.Handler()
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			s.handleWS(ctx)
			return
		}
		fiberHandler(ctx)
	}
}

// Listen serves on the configured address until Shutdown.
func (s *Server) Listen() error {
	s.srv = &fasthttp.Server{Handler: s.Handler()}
	return s.srv.ListenAndServe(s.cfg.ListenAddr)
}

// Shutdown stops accepting connections and drains the server.
func (s *Server) Shutdown() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

// handleWS resolves identity, upgrades the connection, and runs the
// per-connection router loop until the peer goes away.
func (s *Server) handleWS(ctx *fasthttp.RequestCtx) {
	upgrade := string(ctx.Request.Header.Peek("Upgrade"))
	if !strings.EqualFold(upgrade, "websocket") {
		ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
		return
	}

	userID, err := s.binder.Bind(credentialsFrom(ctx))
	if err != nil {
		s.logger.Warn().Err(err).Msg("connect rejected")
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"unauthorized","message":"identity could not be resolved"}`)
		return
	}

	err = s.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := hub.NewClient(userID, &wsConn{conn}, s.cfg.Socket.SendBuffer)
		go client.WritePump()
		s.router.Serve(context.Background(), client)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
	}
}

// credentialsFrom pulls identity material out of the connect request,
// accepting a bearer token from either the query string or the
// Authorization header.
func credentialsFrom(ctx *fasthttp.RequestCtx) identity.Credentials {
	creds := identity.Credentials{
		UserID: string(ctx.QueryArgs().Peek("user_id")),
		Token:  string(ctx.QueryArgs().Peek("token")),
	}
	if creds.Token == "" {
		authz := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			creds.Token = strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return creds
}

// wsConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadText() (string, error) {
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *wsConn) WriteText(text string) error {
	return w.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (w *wsConn) Close() error { return w.conn.Close() }
