package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spock-server/internal/engine"
	"github.com/DoyleJ11/spock-server/internal/protocol"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

var ErrNoParticipants = errors.New("lobby needs at least one participant")
var ErrShutdown = errors.New("lobby shut down")
var ErrRoundTimeout = errors.New("round deadline exceeded")
var ErrSlowParticipant = errors.New("participant outbox full")

// Phase is where the session stands. PhaseResolving only lasts while the
// loop scores a complete round, so a View never reports it.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseResolving  Phase = "resolving"
	PhaseEnded      Phase = "ended"
)

// Reason says why a session ended.
type Reason string

const (
	ReasonQuit       Reason = "quit"
	ReasonDisconnect Reason = "disconnect"
	ReasonTransport  Reason = "transport"
	ReasonTimeout    Reason = "timeout"
)

type Msg interface{ isLobbyMsg() }

// FromParticipant is one raw inbound line from the participant at Index.
type FromParticipant struct {
	Index int
	Line  string
}

func (FromParticipant) isLobbyMsg() {}

// Disconnected reports a failed or closed connection.
type Disconnected struct {
	Index int
	Err   error
}

func (Disconnected) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type roundTimerFired struct{ gen int }

func (roundTimerFired) isLobbyMsg() {}

type View struct {
	SessionID string
	Phase     Phase
	Round     int
	Rounds    int
	Scores    []int
	Choices   []engine.Choice
	Collected int
	Events    []engine.Event
}

// Result is reported once the session has ended and every connection is
// closed. Initiator is the 0-based participant that quit or dropped, or -1.
type Result struct {
	SessionID string
	Reason    Reason
	Initiator int
	Scores    []int
	Rounds    int
	Err       error
}

type Options struct {
	SessionID string
	Logger    *zap.Logger
	// RoundTimeout ends the session when a round stays incomplete this long.
	// Zero waits forever.
	RoundTimeout time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	Welcome      bool
}

const (
	defaultWriteTimeout = 5 * time.Second
	defaultOutboxSize   = 32
	maxEvents           = 32
)

type participant struct {
	index  int
	conn   transport.Conn
	outbox chan string
	open   bool
	err    error // last write error, owned by the writer until it exits
}

// Lobby coordinates one session: it owns the score state and is the only
// goroutine that mutates it. Readers and writers per connection feed and
// drain it through channels.
type Lobby struct {
	id           string
	inbox        chan Msg
	state        *engine.State
	phase        Phase
	rounds       int
	events       []engine.Event
	participants []*participant
	opts         Options
	log          *zap.Logger

	timer    *time.Timer
	timerGen int

	writers  sync.WaitGroup
	stopping chan struct{}
	done     chan struct{}
	result   Result

	ctx    context.Context
	cancel context.CancelFunc
	// readers are not tied to the parent so that a cancelled parent is seen
	// by the loop as a transport failure, not as N disconnects
	readCtx    context.Context
	readCancel context.CancelFunc
}

// NewLobby starts a session over conns, indexed in the given order.
func NewLobby(parent context.Context, conns []transport.Conn, opts Options) (*Lobby, error) {
	if len(conns) == 0 {
		return nil, ErrNoParticipants
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutboxSize
	}

	ctx, cancel := context.WithCancel(parent)
	readCtx, readCancel := context.WithCancel(context.WithoutCancel(parent))
	l := &Lobby{
		id:         opts.SessionID,
		inbox:      make(chan Msg, 64),
		state:      engine.NewState(len(conns)),
		phase:      PhaseCollecting,
		opts:       opts,
		log:        opts.Logger.With(zap.String("session", opts.SessionID)),
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		readCtx:    readCtx,
		readCancel: readCancel,
	}
	for i, c := range conns {
		l.participants = append(l.participants, &participant{
			index:  i,
			conn:   c,
			outbox: make(chan string, opts.OutboxSize),
			open:   true,
		})
	}

	for _, p := range l.participants {
		l.writers.Add(1)
		go l.write(p)
		go l.read(p)
	}
	go l.loop()
	return l, nil
}

func (l *Lobby) ID() string { return l.id }

// Inbox exposes the loop's input so tests and the hub can inject messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Done() <-chan struct{} { return l.done }

// Wait blocks until the session has ended.
func (l *Lobby) Wait() Result {
	<-l.done
	return l.result
}

// Send delivers m unless the session has already ended.
func (l *Lobby) Send(m Msg) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	}
}

// Snapshot returns the current view, or false once the session has ended.
func (l *Lobby) Snapshot(ctx context.Context) (View, bool) {
	select {
	case <-l.done:
		return View{}, false
	default:
	}
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-l.done:
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
}

func (l *Lobby) loop() {
	defer close(l.done)

	l.log.Info("session started", zap.Int("players", len(l.participants)))
	if l.opts.Welcome {
		if slow, ok := l.welcome(); !ok {
			l.finish(ReasonDisconnect, slow, ErrSlowParticipant)
			return
		}
	}
	l.armTimer()

	for {
		select {
		case <-l.ctx.Done():
			l.finish(ReasonTransport, -1, l.ctx.Err())
			return

		case m := <-l.inbox:
			if l.handle(m) {
				return
			}
		}
	}
}

// handle applies one message and reports whether the session ended.
func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case FromParticipant:
		if msg.Index < 0 || msg.Index >= len(l.participants) {
			l.log.Warn("message from unknown participant", zap.Int("index", msg.Index))
			return false
		}
		return l.handleLine(msg.Index, msg.Line)

	case Disconnected:
		if msg.Index < 0 || msg.Index >= len(l.participants) {
			l.log.Warn("disconnect from unknown participant", zap.Int("index", msg.Index))
			return false
		}
		if transport.IsPeerClosed(msg.Err) {
			l.log.Info("player disconnected", zap.Int("player", msg.Index+1))
		} else {
			l.log.Warn("player connection failed", zap.Int("player", msg.Index+1), zap.Error(msg.Err))
		}
		l.finish(ReasonDisconnect, msg.Index, msg.Err)
		return true

	case roundTimerFired:
		if msg.gen != l.timerGen {
			// stale fire from a round that already ended
			return false
		}
		l.log.Warn("round deadline exceeded", zap.Int("round", l.state.Round()),
			zap.Int("collected", l.state.Collected()), zap.Duration("timeout", l.opts.RoundTimeout))
		l.finish(ReasonTimeout, -1, ErrRoundTimeout)
		return true

	case GetState:
		msg.Reply <- l.view()

	case Shutdown:
		l.finish(ReasonTransport, -1, ErrShutdown)
		return true
	}
	return false
}

func (l *Lobby) handleLine(idx int, line string) bool {
	player := zap.Int("player", idx+1)
	msg := protocol.Decode(line)

	switch msg.Kind {
	case protocol.KindQuit:
		l.log.Info("player requested quit", player)
		l.finish(ReasonQuit, idx, nil)
		return true

	case protocol.KindReset:
		l.log.Info("player requested reset", player, zap.Int("discarded", l.state.Collected()))
		l.record(l.state.ResetScores())
		if slow, ok := l.broadcast(protocol.EncodeReset()); !ok {
			l.finish(ReasonDisconnect, slow, ErrSlowParticipant)
			return true
		}
		l.armTimer()

	case protocol.KindMove:
		ev, err := l.state.RecordChoice(idx, msg.Choice)
		if errors.Is(err, engine.ErrDuplicateChoice) {
			l.log.Debug("duplicate move dropped", player, zap.Stringer("choice", msg.Choice))
			return false
		}
		if err != nil {
			l.log.Warn("move rejected", player, zap.Error(err))
			return false
		}
		l.record(ev)
		l.log.Info("move received", player, zap.Stringer("choice", msg.Choice),
			zap.Int("collected", l.state.Collected()))
		if l.state.Complete() {
			return l.resolve()
		}

	default:
		l.log.Warn("unrecognized message ignored", player, zap.String("raw", msg.Raw), zap.Error(msg.Err))
	}
	return false
}

func (l *Lobby) resolve() bool {
	l.phase = PhaseResolving
	out, ev, _ := l.state.Resolve()
	l.record(ev)
	l.rounds++

	if len(out.Winners) == 0 {
		l.log.Info("round tied", zap.Int("round", out.Round))
	} else {
		seats := make([]int, len(out.Winners))
		for i, w := range out.Winners {
			seats[i] = w + 1
		}
		l.log.Info("round resolved", zap.Int("round", out.Round), zap.Ints("winners", seats),
			zap.Ints("scores", out.Scores))
	}

	if slow, ok := l.broadcast(protocol.EncodeResult(out)); !ok {
		l.finish(ReasonDisconnect, slow, ErrSlowParticipant)
		return true
	}
	l.phase = PhaseCollecting
	l.armTimer()
	return false
}

func (l *Lobby) welcome() (int, bool) {
	n := len(l.participants)
	for _, p := range l.participants {
		lines := []string{
			"Welcome to Rock-Paper-Scissors-Lizard-Spock!",
			fmt.Sprintf("You are player %d of %d.", p.index+1, n),
			"Rules: R beats S,L; P beats R,K; S beats P,L; L beats P,K; K beats R,S.",
			"Send MOVE:<R|P|S|L|K> to play, RESET to zero scores, QUIT to end.",
		}
		for _, line := range lines {
			if len(p.outbox) == cap(p.outbox) {
				return p.index, false
			}
			p.outbox <- protocol.EncodeInfo(line)
		}
	}
	return -1, true
}

// broadcast queues msg for every participant. It refuses to send anything if
// some outbox is full and reports that participant instead.
func (l *Lobby) broadcast(msg string) (int, bool) {
	for _, p := range l.participants {
		if len(p.outbox) == cap(p.outbox) {
			return p.index, false
		}
	}
	for _, p := range l.participants {
		p.outbox <- msg
	}
	return -1, true
}

func (l *Lobby) record(ev engine.Event) {
	l.events = append(l.events, ev)
	if len(l.events) > maxEvents {
		l.events = l.events[len(l.events)-maxEvents:]
	}
}

func (l *Lobby) view() View {
	return View{
		SessionID: l.id,
		Phase:     l.phase,
		Round:     l.state.Round(),
		Rounds:    l.rounds,
		Scores:    l.state.Scores(),
		Choices:   l.state.Choices(),
		Collected: l.state.Collected(),
		Events:    append([]engine.Event{}, l.events...),
	}
}

func (l *Lobby) armTimer() {
	if l.opts.RoundTimeout <= 0 {
		return
	}
	l.stopTimer()
	l.timerGen++
	gen := l.timerGen
	l.timer = time.AfterFunc(l.opts.RoundTimeout, func() {
		select {
		case l.inbox <- roundTimerFired{gen: gen}:
		case <-l.stopping:
		}
	})
}

func (l *Lobby) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// finish sends QUIT to every participant still connected, waits for the
// writers to flush and close their connections, and records the result.
func (l *Lobby) finish(reason Reason, initiator int, cause error) {
	l.phase = PhaseEnded
	l.stopTimer()
	close(l.stopping)

	if reason == ReasonDisconnect && initiator >= 0 && !errors.Is(cause, ErrSlowParticipant) {
		l.participants[initiator].open = false
	}

	quit := protocol.EncodeQuit()
	for _, p := range l.participants {
		if p.open {
			p.outbox <- quit
		}
		close(p.outbox)
	}
	l.writers.Wait()
	l.readCancel()
	l.cancel()

	var err error
	if cause != nil && !transport.IsPeerClosed(cause) {
		err = cause
	}
	for _, p := range l.participants {
		if p.err != nil && p.index != initiator {
			err = multierr.Append(err, fmt.Errorf("player %d: %w", p.index+1, p.err))
		}
	}

	l.result = Result{
		SessionID: l.id,
		Reason:    reason,
		Initiator: initiator,
		Scores:    l.state.Scores(),
		Rounds:    l.rounds,
		Err:       err,
	}
	l.log.Info("session ended", zap.String("reason", string(reason)), zap.Int("initiator", initiator),
		zap.Ints("scores", l.result.Scores), zap.Int("rounds", l.rounds), zap.Error(err))
}

func (l *Lobby) read(p *participant) {
	for {
		line, err := p.conn.ReadMessage(l.readCtx)
		if errors.Is(err, transport.ErrLineTooLong) {
			l.log.Warn("oversized message dropped", zap.Int("player", p.index+1), zap.Error(err))
			continue
		}
		var m Msg = FromParticipant{Index: p.index, Line: line}
		if err != nil {
			m = Disconnected{Index: p.index, Err: err}
		}
		select {
		case l.inbox <- m:
		case <-l.stopping:
			return
		}
		if err != nil {
			return
		}
	}
}

func (l *Lobby) write(p *participant) {
	defer l.writers.Done()
	defer p.conn.Close()

	for msg := range p.outbox {
		if p.err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), l.opts.WriteTimeout)
		err := p.conn.WriteMessage(ctx, msg)
		cancel()
		if err != nil {
			p.err = err
			select {
			case l.inbox <- Disconnected{Index: p.index, Err: err}:
			case <-l.stopping:
			}
		}
	}
}
