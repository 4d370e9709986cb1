package hub

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spock-server/internal/history"
	"github.com/DoyleJ11/spock-server/internal/lobby"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

// ErrClosed is returned to joins once the hub accepts no more sessions.
var ErrClosed = errors.New("hub is not accepting players")

type HubMsg interface{ isHubMsg() }

// Join seats a connection in the waiting room. The session starts once the
// room holds Players connections.
type Join struct {
	Conn  transport.Conn
	Reply chan JoinAck
}

type JoinAck struct {
	Seat    int // 1-based seat in the next session
	Waiting int // players still missing after this one
	Err     error
}

type ListSessions struct {
	Reply chan []SessionInfo
}

type ShutdownHub struct{}

type leftWaiting struct {
	seat *seat
}

type sessionEnded struct {
	ID     string
	Result lobby.Result
}

func (Join) isHubMsg()         {}
func (ListSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}
func (sessionEnded) isHubMsg() {}
func (leftWaiting) isHubMsg()  {}

type SessionInfo struct {
	ID        string    `json:"id"`
	Players   []string  `json:"players"`
	StartedAt time.Time `json:"started_at"`
}

type Options struct {
	Players int
	// MaxSessions stops accepting players after this many sessions have
	// started. Zero means no limit.
	MaxSessions int
	Logger      *zap.Logger
	Recorder    history.Recorder
	// Lobby is the template for every session; SessionID and Logger are
	// filled in per session.
	Lobby lobby.Options
}

type session struct {
	lobby *lobby.Lobby
	info  SessionInfo
}

type Hub struct {
	inbox    chan HubMsg
	waiting  []*seat
	sessions map[string]*session
	started  int
	closed   bool
	opts     Options
	log      *zap.Logger
	idle     chan struct{}
	idleOnce bool
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Players <= 0 {
		opts.Players = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = history.NewMemory(0)
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session),
		opts:     opts,
		log:      opts.Logger,
		idle:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Idle is closed once the hub has stopped accepting players and every
// session it started has ended.
func (h *Hub) Idle() <-chan struct{} { return h.idle }

func (h *Hub) Recorder() history.Recorder { return h.opts.Recorder }

// JoinConn seats conn and waits for the acknowledgement.
func (h *Hub) JoinConn(ctx context.Context, conn transport.Conn) (JoinAck, error) {
	reply := make(chan JoinAck, 1)
	select {
	case h.inbox <- Join{Conn: conn, Reply: reply}:
	case <-ctx.Done():
		return JoinAck{}, ctx.Err()
	case <-h.ctx.Done():
		return JoinAck{}, ErrClosed
	}
	select {
	case ack := <-reply:
		return ack, ack.Err
	case <-ctx.Done():
		return JoinAck{}, ctx.Err()
	}
}

// Sessions lists the running sessions, oldest first.
func (h *Hub) Sessions(ctx context.Context) ([]SessionInfo, error) {
	reply := make(chan []SessionInfo, 1)
	select {
	case h.inbox <- ListSessions{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeWaiting()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				if h.closed {
					msg.Reply <- JoinAck{Err: ErrClosed}
					break
				}
				st := newSeat(h.ctx, msg.Conn)
				h.waiting = append(h.waiting, st)
				go h.watchSeat(st)
				pos := len(h.waiting)
				msg.Reply <- JoinAck{Seat: pos, Waiting: h.opts.Players - pos}
				h.log.Info("player seated", zap.String("conn", msg.Conn.Label()),
					zap.Int("seat", pos), zap.Int("players", h.opts.Players))
				if pos == h.opts.Players {
					h.startSession()
				}

			case ListSessions:
				out := make([]SessionInfo, 0, len(h.sessions))
				for _, s := range h.sessions {
					out = append(out, s.info)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
				msg.Reply <- out

			case leftWaiting:
				h.evict(msg.seat)

			case sessionEnded:
				delete(h.sessions, msg.ID)
				h.log.Info("session removed", zap.String("session", msg.ID),
					zap.String("reason", string(msg.Result.Reason)), zap.Int("active", len(h.sessions)))
				h.checkIdle()

			case ShutdownHub:
				h.closed = true
				h.closeWaiting()
				for _, s := range h.sessions {
					s.lobby.Send(lobby.Shutdown{})
				}
				h.checkIdle()
			}
		}
	}
}

func (h *Hub) startSession() {
	conns := make([]transport.Conn, len(h.waiting))
	for i, st := range h.waiting {
		conns[i] = st
	}
	h.waiting = nil

	id := uuid.NewString()
	opts := h.opts.Lobby
	opts.SessionID = id
	opts.Logger = h.log

	lb, err := lobby.NewLobby(h.ctx, conns, opts)
	if err != nil {
		h.log.Error("start session", zap.Error(err))
		return
	}
	info := SessionInfo{ID: id, StartedAt: time.Now()}
	for _, c := range conns {
		info.Players = append(info.Players, c.Label())
	}
	h.sessions[id] = &session{lobby: lb, info: info}
	h.started++
	if h.opts.MaxSessions > 0 && h.started >= h.opts.MaxSessions {
		h.closed = true
	}

	go h.watch(lb, info)
}

// watch waits for a session to end, stores its summary and reports back.
func (h *Hub) watch(lb *lobby.Lobby, info SessionInfo) {
	res := lb.Wait()

	summary := history.Summary{
		SessionID: res.SessionID,
		Reason:    string(res.Reason),
		Players:   len(info.Players),
		Rounds:    res.Rounds,
		Scores:    res.Scores,
		StartedAt: info.StartedAt,
		EndedAt:   time.Now(),
	}
	if res.Err != nil {
		summary.Error = res.Err.Error()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 5*time.Second)
	if err := h.opts.Recorder.Record(ctx, summary); err != nil {
		h.log.Warn("history not recorded", zap.String("session", res.SessionID), zap.Error(err))
	}
	cancel()

	select {
	case h.inbox <- sessionEnded{ID: res.SessionID, Result: res}:
	case <-h.ctx.Done():
	}
}

// watchSeat reports a connection that drops. The hub ignores the report once
// the seat has moved into a session.
func (h *Hub) watchSeat(st *seat) {
	select {
	case <-st.Gone():
		select {
		case h.inbox <- leftWaiting{seat: st}:
		case <-h.ctx.Done():
		}
	case <-h.ctx.Done():
	}
}

func (h *Hub) evict(st *seat) {
	for i, w := range h.waiting {
		if w != st {
			continue
		}
		h.waiting = append(h.waiting[:i], h.waiting[i+1:]...)
		_ = st.Close()
		h.log.Info("player left the waiting room", zap.String("conn", st.Label()),
			zap.Int("waiting", len(h.waiting)), zap.Error(st.err))
		return
	}
}

func (h *Hub) closeWaiting() {
	for _, c := range h.waiting {
		_ = c.Close()
	}
	h.waiting = nil
}

func (h *Hub) checkIdle() {
	if h.closed && len(h.sessions) == 0 && !h.idleOnce {
		h.idleOnce = true
		close(h.idle)
	}
}
