// Package frontend is the out-of-core websocket gateway: it decodes wire
// commands, resolves the submitting user, and pushes core.Message values
// onto the engine's inbound queue. Adapted from the teacher's
// internal/net.Server (raw TCP, length-framed binary) and internal/worker.go
// (a tomb.v2-supervised WorkerPool), upgraded to gorilla/websocket per
// spec's front-end component.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"bastion/internal/core"
)

const (
	taskChanSize    = 100
	defaultNWorkers = 10
	readTimeout     = 30 * time.Second
)

var ErrImproperConversion = errors.New("improper type conversion")

// WorkerFunction is one unit of connection work: read the next frame off
// task, dispatch it, and return. Grounded directly on the teacher's
// WorkerFunction/WorkerPool in internal/worker.go.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool maintains a fixed number of goroutines draining a shared task
// channel, supervised by a tomb.Tomb so a panic or Kill tears every worker
// down together. This is the teacher's WorkerPool with one addition: the
// teacher's internal/net/server.go called a pool.AddTask method that was
// never defined anywhere in the repo (it referenced a nonexistent
// "fenrir/internal/utils" package) — AddTask here is that missing piece,
// wired directly onto the pool's own task channel instead of a phantom one.
type WorkerPool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues one unit of work for the pool's workers to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.work = work
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.worker(t)
		})
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := pool.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker task failed")
			}
		}
	}
}

// session tracks one connected client: its socket and the user it is
// authenticated as. A real deployment would authenticate the upgrade
// request; this gateway trusts a UserId query parameter, matching the
// teacher's own trust-the-client-supplied-username posture in
// internal/net/messages.go's NewOrderMessage.Username.
type session struct {
	conn   *websocket.Conn
	userId core.UserId
	mu     sync.Mutex
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Inbox is the subset of *core.Inbox the frontend depends on: push a
// decoded message onto the engine's inbound queue and block for the
// outcome. Connection-handling goroutines only ever reach the engine
// through this — they never call anything on *core.Engine directly, so
// ProcessMessage keeps exactly one caller no matter how many sessions are
// reading frames concurrently. An interface here, not *core.Inbox itself,
// so tests can swap in a fake without a real engine or journal behind it.
type Inbox interface {
	Submit(msg core.Message) error
}

type Server struct {
	addr  string
	cfg   *core.Config
	inbox Inbox

	pool       WorkerPool
	upgrader   websocket.Upgrader
	httpServer *http.Server

	sessionsLock sync.Mutex
	sessions     map[core.UserId]*session
}

func New(addr string, cfg *core.Config, inbox Inbox) *Server {
	return &Server{
		addr:     addr,
		cfg:      cfg,
		inbox:    inbox,
		pool:     NewWorkerPool(defaultNWorkers),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessions: make(map[core.UserId]*session),
	}
}

// Run serves websocket connections until ctx is canceled. Graceful
// shutdown: tomb.Kill propagates to every worker and the HTTP server is
// closed, matching spec's supervision model (tomb.v2 everywhere the teacher
// uses it).
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.acceptHandler)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	t.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("frontend listening")
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down frontend http server")
	}
	t.Kill(nil)
	return t.Wait()
}

func (s *Server) acceptHandler(w http.ResponseWriter, r *http.Request) {
	userId, err := parseUserId(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &session{conn: conn, userId: userId}
	s.addSession(sess)
	log.Info().Uint32("userId", uint32(userId)).Msg("client connected")

	s.pool.AddTask(sess)
}

// handleConnection reads exactly one frame off the session's socket,
// decodes it, pushes it onto the engine's inbound queue, and requeues the
// same session for its next frame — the teacher's own
// read-one-then-requeue pattern in internal/net/server.go's
// handleConnection/pool.AddTask(conn) loop. Up to defaultNWorkers of these
// run concurrently, but Submit is the only thing any of them ever touches
// on the engine side, so the concurrency stops at the Inbox's channel.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	sess, ok := task.(*session)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	sess.conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, raw, err := sess.conn.ReadMessage()
	if err != nil {
		log.Info().Uint32("userId", uint32(sess.userId)).Err(err).Msg("client disconnected")
		s.removeSession(sess.userId)
		sess.conn.Close()
		return nil
	}

	msg, requestId, err := decodeMessage(sess.userId, raw, s.cfg)
	if requestId == "" {
		requestId = newRequestId()
	}
	if err != nil {
		s.reportError(sess, requestId, err)
		s.pool.AddTask(sess)
		return nil
	}

	if err := s.inbox.Submit(msg); err != nil {
		s.reportError(sess, requestId, err)
	} else {
		s.reportAccepted(sess, requestId)
	}

	s.pool.AddTask(sess)
	return nil
}

func (s *Server) reportError(sess *session, requestId string, err error) {
	if werr := sess.writeJSON(Report{Type: "error", RequestId: requestId, Error: err.Error()}); werr != nil {
		log.Error().Err(werr).Msg("failed to report error to client")
	}
}

func (s *Server) reportAccepted(sess *session, requestId string) {
	if err := sess.writeJSON(Report{Type: "accepted", RequestId: requestId}); err != nil {
		log.Error().Err(err).Msg("failed to report acceptance to client")
	}
}

// ReportTrades pushes an execution report to each side of every settled
// trade that has a live session, silently skipping a party who isn't
// connected. Grounded on the teacher's Server.ReportTrade; meant to be
// registered directly as an Engine.OnTrades hook so it only ever runs after
// apply has already settled the trades.
func (s *Server) ReportTrades(trades []core.Trade) {
	for _, trade := range trades {
		report := TradeReport{
			MarketId: trade.MarketId,
			Price:    trade.Price,
			Size:     trade.Size,
			Side:     trade.Side.String(),
		}

		makerReport := report
		makerReport.OrderId = trade.MakerOrderId
		s.notify(trade.MakerUserId, makerReport)

		takerReport := report
		takerReport.OrderId = trade.TakerOrderId
		s.notify(trade.TakerUserId, takerReport)
	}
}

func (s *Server) notify(userId core.UserId, report TradeReport) {
	s.sessionsLock.Lock()
	sess, ok := s.sessions[userId]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	if err := sess.writeJSON(Report{Type: "execution", Trade: &report}); err != nil {
		log.Error().Err(err).Uint32("userId", uint32(userId)).Msg("failed to report trade to client")
	}
}

func (s *Server) addSession(sess *session) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[sess.userId] = sess
}

func (s *Server) removeSession(userId core.UserId) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, userId)
}

func parseUserId(raw string) (core.UserId, error) {
	var id uint32
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil || raw == "" {
		return 0, fmt.Errorf("missing or invalid user_id query parameter")
	}
	return core.UserId(id), nil
}
