package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/wfunc/drawguess/config"
	"github.com/wfunc/drawguess/game"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/network"
	gamerpc "github.com/wfunc/drawguess/rpc"
	"github.com/wfunc/drawguess/session"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

type GameServer struct {
	cfg            config.ServerConfig
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	game           *game.Game
	dispatcher     *game.Dispatcher
	oracle         game.Oracle
	monitor        *monitor.Monitor
}

func NewGameServer(cfg config.ServerConfig, sessions *session.Manager, g *game.Game, d *game.Dispatcher, oracle game.Oracle, mon *monitor.Monitor) *GameServer {
	return &GameServer{
		cfg:            cfg,
		sessionManager: sessions,
		game:           g,
		dispatcher:     d,
		oracle:         oracle,
		monitor:        mon,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // origins are enforced by the cors middleware
			},
		},
	}
}

// Handler routes the WebSocket endpoints and the HTTP API.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /ws/{clientId}", s.handleWebSocket)
	mux.HandleFunc("GET /api/game/state/{roomId}", s.handleGameState)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("POST /api/game/submit-guess", s.handleSubmitGuess)
	mux.HandleFunc("POST /api/judge", s.handleJudge)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", s.monitor.Handler())

	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
}

// Start runs the HTTP and RPC servers until ctx is cancelled or one of them
// fails.
func (s *GameServer) Start(ctx context.Context) error {
	rpcServer, err := gamerpc.NewServer(s.cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen rpc: %w", err)
	}
	if err := rpcServer.Register(gamerpc.NewRoomService(s.game.Rooms())); err != nil {
		rpcServer.Stop()
		return fmt.Errorf("register rpc service: %w", err)
	}

	httpServer := &http.Server{
		Addr:    s.cfg.HTTPAddress,
		Handler: s.Handler(),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(rpcServer.Start)
	eg.Go(func() error {
		logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		rpcServer.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientId")
	assigned := clientID == ""
	if assigned {
		clientID = uuid.New().String()
	}
	if _, live := s.sessionManager.Get(clientID); live {
		http.Error(w, "client id already connected", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(clientID, wsConn)
	if !s.sessionManager.Register(sess) {
		logger.Log.Warnf("Client %s connected twice, closing the newer connection", clientID)
		wsConn.Close()
		return
	}
	if s.cfg.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.cfg.Heartbeat)
	}
	if assigned {
		data, _ := json.Marshal(game.Connected{Event: network.EventConnected, ClientID: clientID})
		s.sessionManager.Send(clientID, data)
	}

	// Handlers always run to completion, even if the client goes away.
	s.handleConnection(context.WithoutCancel(r.Context()), sess)
}

func (s *GameServer) handleConnection(ctx context.Context, sess *session.Session) {
	logger.Log.Infof("New connection from %s, client ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
	s.monitor.IncOnlinePlayers()

	defer func() {
		logger.Log.Infof("Connection closed from %s, client ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
		s.game.Disconnect(sess.GetID())
		sess.Close()
		s.monitor.DecOnlinePlayers()
	}()

	limiter := s.newLimiter()
	for {
		data, err := sess.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warnf("Read from client %s failed: %v", sess.GetID(), err)
			}
			return
		}

		if !limiter.Allow() {
			logger.Log.Warnf("Rate limit exceeded for client %s, dropping frame", sess.GetID())
			continue
		}
		s.dispatcher.Dispatch(ctx, sess.GetID(), data)
	}
}

func (s *GameServer) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}
