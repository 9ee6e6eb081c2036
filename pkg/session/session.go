// Package session implements the per-connection FIX state machine:
// Disconnected -> AwaitingLogon -> LoggedIn -> Closing. One Session owns
// one net.Conn and runs on its own goroutine pair (read loop, heartbeat
// timer); it is the only caller that ever decodes a frame from that peer
// or encodes a reply to it.
package session

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/exchangesim/fixexchange/pkg/eventbus"
	"github.com/exchangesim/fixexchange/pkg/fix"
	"github.com/exchangesim/fixexchange/pkg/fixerr"
	"github.com/exchangesim/fixexchange/pkg/logging"
	"github.com/exchangesim/fixexchange/pkg/matchingengine"
	"github.com/exchangesim/fixexchange/pkg/metrics"
	"github.com/exchangesim/fixexchange/pkg/orderbook"
	"github.com/exchangesim/fixexchange/pkg/persistence"
	"github.com/exchangesim/fixexchange/pkg/validator"
)

// State is the session's position in the FIX logon/logout lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateAwaitingLogon
	StateLoggedIn
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateAwaitingLogon:
		return "AwaitingLogon"
	case StateLoggedIn:
		return "LoggedIn"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// Config carries the knobs a Session needs beyond its collaborators.
type Config struct {
	SenderCompID string // this exchange's own CompID, used as the SenderCompID on outbound messages
	// ReadIdleTimeout bounds how long the read loop will block waiting for
	// more bytes before checking the 2x-heartbeat dead-peer condition.
	ReadIdleTimeout time.Duration
	// WriteTimeout bounds a single write to the peer.
	WriteTimeout time.Duration
	// CancelOnDisconnect, if true, cancels the session's own resting
	// orders when the connection is lost. Default OFF per the operator
	// knob this exchange exposes.
	CancelOnDisconnect bool
}

// Session is one accepted connection's worth of FIX state. It is not
// safe for concurrent use from outside its own goroutines; Engine and
// Bus calls it makes are themselves safe for concurrent use.
type Session struct {
	conn   net.Conn
	cfg    Config
	engine *matchingengine.Engine
	bus    *eventbus.Bus
	store  persistence.Port
	logger *logging.Logger

	state State // accessed via atomic load/store

	targetID string // peer's SenderCompID, learned at Logon
	// heartbeatInterval is the peer-declared tag 108 value from Logon.
	heartbeatInterval time.Duration

	outgoingSeq int64 // last MsgSeqNum this session assigned to an outbound message
	incomingSeq int64 // last MsgSeqNum this session accepted

	writeMu      sync.Mutex
	lastSentAt   atomic.Int64 // unix nanos
	lastRecvAt   atomic.Int64 // unix nanos

	// clOrdIDs enforces per-session ClOrdID uniqueness; orderIDs records
	// the order_id the engine assigned each accepted ClOrdID. The session
	// keeps ids only, never an order object; cancels name the order by
	// tag 37 and symbol by tag 55 of the request.
	mu       sync.Mutex
	clOrdIDs map[string]bool
	orderIDs map[string]int64   // clOrdID -> orderID
	symbols  map[int64]string   // orderID -> symbol, for ownership checks on bus events and cancel-on-disconnect

	validator *validator.Validator

	done      chan struct{}
	handlerID int64
}

// New constructs a Session bound to conn. Call Run to drive it; Run
// blocks until the connection closes or the session is canceled.
func New(conn net.Conn, cfg Config, engine *matchingengine.Engine, bus *eventbus.Bus, store persistence.Port, logger *logging.Logger) *Session {
	if cfg.ReadIdleTimeout == 0 {
		cfg.ReadIdleTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	s := &Session{
		conn:     conn,
		cfg:      cfg,
		engine:   engine,
		bus:      bus,
		store:    store,
		logger:   logger,
		state:    StateDisconnected,
		clOrdIDs:  make(map[string]bool),
		orderIDs:  make(map[string]int64),
		symbols:   make(map[int64]string),
		validator: validator.New(),
		done:      make(chan struct{}),
	}
	s.handlerID = bus.OnEvent(s.onBusEvent)
	return s
}

// onBusEvent is this session's synchronous, MUST-deliver subscription to
// the event bus: it watches for fills against orders this session owns
// but did not itself just submit — the counterparty leg of a trade
// another session aggressed into. The aggressor's own report is sent
// inline by handleNewOrderSingle without going through the bus.
func (s *Session) onBusEvent(ev eventbus.Event) {
	if ev.Type != eventbus.TypeExecution {
		return
	}
	exec, ok := ev.Data.(orderbook.Execution)
	if !ok || exec.RestingOrder == nil {
		return
	}
	if !s.owns(exec.RestingOrder.ID) {
		return
	}
	if s.getState() != StateLoggedIn {
		return
	}
	s.sendExecutionReportForOrder(context.Background(), exec.RestingOrder, []orderbook.Execution{exec})
}

func (s *Session) owns(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.symbols[orderID]
	return ok
}

func (s *Session) getState() State  { return State(atomic.LoadInt32((*int32)(&s.state))) }
func (s *Session) setState(st State) { atomic.StoreInt32((*int32)(&s.state), int32(st)) }

// Run drives the session to completion: start of read loop through
// socket close. It never returns an error the caller must act on — every
// failure is either a protocol-level reply to the peer or a session
// teardown, per the error taxonomy's propagation policy.
func (s *Session) Run(ctx context.Context) {
	s.setState(StateAwaitingLogon)
	defer func() {
		s.setState(StateDisconnected)
		s.conn.Close()
		s.bus.OffEvent(s.handlerID)
		close(s.done)
		if s.cfg.CancelOnDisconnect {
			s.cancelAllOwnOrders(ctx)
		}
	}()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()

	frameCh := make(chan []byte, 16)
	readErrCh := make(chan error, 1)
	go s.readLoop(frameCh, readErrCh)

	var heartbeatStarted bool

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErrCh:
			if err != nil && err != io.EOF {
				s.logger.Warn(ctx, "session: read loop terminated")
			}
			return
		case raw := <-frameCh:
			s.lastRecvAt.Store(time.Now().UnixNano())
			msg, decodeErr := fix.Decode(raw)
			if decodeErr != nil {
				s.handleProtocolError(ctx, decodeErr)
				continue
			}
			if s.incomingSeq != 0 && int64(msg.MsgSeqNum) != s.incomingSeq+1 {
				// gap or replay: reported, never resent
				s.sendSessionReject(ctx, msg.MsgSeqNum, "MsgSeqNum gap")
			}
			s.incomingSeq = int64(msg.MsgSeqNum)
			if s.handleMessage(ctx, msg) == StateClosing {
				return
			}
			if !heartbeatStarted && s.getState() == StateLoggedIn {
				heartbeatStarted = true
				go s.heartbeatLoop(heartbeatCtx)
			}
		}
	}
}

// readLoop owns the only read() calls this session makes, carving
// complete frames out of the stream with fix.Split before handing them
// to Run. A splitter error that can never resolve tears the session
// down; a splitter "not enough bytes yet" result just reads more.
func (s *Session) readLoop(out chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadIdleTimeout))
		n, err := s.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frameLen, ok, splitErr := fix.Split(buf)
				if splitErr != nil {
					errCh <- splitErr
					return
				}
				if !ok {
					break
				}
				frame := make([]byte, frameLen)
				copy(frame, buf[:frameLen])
				buf = buf[frameLen:]
				out <- frame
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if s.peerIsDead() {
					errCh <- &fixerr.TransportError{Reason: "heartbeat timeout: peer unresponsive"}
					return
				}
				continue
			}
			errCh <- err
			return
		}
	}
}

func (s *Session) peerIsDead() bool {
	if s.heartbeatInterval == 0 {
		return false
	}
	last := s.lastRecvAt.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) > 2*s.heartbeatInterval
}

// heartbeatLoop emits a Heartbeat whenever nothing has been sent within
// heartbeat_interval, per the session's own write timestamps.
func (s *Session) heartbeatLoop(ctx context.Context) {
	interval := s.heartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			last := s.lastSentAt.Load()
			if last == 0 || time.Since(time.Unix(0, last)) >= interval {
				s.sendHeartbeat(ctx)
			}
		}
	}
}

func (s *Session) handleMessage(ctx context.Context, msg *fix.Message) State {
	switch s.getState() {
	case StateAwaitingLogon:
		if msg.MsgType != fix.MsgTypeLogon {
			s.sendSessionReject(ctx, msg.MsgSeqNum, "first message must be Logon")
			return s.getState()
		}
		return s.handleLogon(ctx, msg)
	case StateLoggedIn:
		return s.handleLoggedIn(ctx, msg)
	default:
		return s.getState()
	}
}

func (s *Session) handleLogon(ctx context.Context, msg *fix.Message) State {
	heartbeat, ok := msg.GetInt(fix.TagHeartBtInt)
	if !ok || heartbeat <= 0 {
		s.sendSessionReject(ctx, msg.MsgSeqNum, "invalid heartbeat interval")
		return s.getState()
	}
	s.targetID = msg.SenderCompID
	s.heartbeatInterval = time.Duration(heartbeat) * time.Second
	s.setState(StateLoggedIn)

	heartbeatStr, _ := msg.Get(fix.TagHeartBtInt)
	ack := s.newMessage(fix.MsgTypeLogon)
	ack.Set(fix.TagHeartBtInt, heartbeatStr)
	s.send(ctx, ack)
	return StateLoggedIn
}

func (s *Session) handleLoggedIn(ctx context.Context, msg *fix.Message) State {
	switch msg.MsgType {
	case fix.MsgTypeHeartbeat:
		// nothing to do: receipt alone satisfies the liveness contract.
	case fix.MsgTypeLogout:
		s.send(ctx, s.newMessage(fix.MsgTypeLogout))
		s.setState(StateClosing)
		return StateClosing
	case fix.MsgTypeNewOrderSingle:
		s.handleNewOrderSingle(ctx, msg)
	case fix.MsgTypeOrderCancelReq:
		s.handleOrderCancelRequest(ctx, msg)
	default:
		s.sendSessionReject(ctx, msg.MsgSeqNum, "unsupported message type for this state")
	}
	return StateLoggedIn
}

func (s *Session) handleNewOrderSingle(ctx context.Context, msg *fix.Message) {
	clOrdID, _ := msg.Get(fix.TagClOrdID)
	symbol, _ := msg.Get(fix.TagSymbol)
	side, _ := msg.Get(fix.TagSide)
	ordType, _ := msg.Get(fix.TagOrdType)
	qtyStr, _ := msg.Get(fix.TagOrderQty)
	priceStr, hasPrice := msg.Get(fix.TagPrice)

	qty, qtyErr := decimal.NewFromString(qtyStr)
	price := decimal.Zero
	if hasPrice {
		var priceErr error
		price, priceErr = decimal.NewFromString(priceStr)
		if priceErr != nil {
			hasPrice = false
		}
	}

	if s.hasSeenClOrdID(clOrdID) {
		s.rejectNewOrder(ctx, clOrdID, symbol, side, &validator.Error{Kind: validator.DuplicateClOrdID})
		return
	}
	if qtyErr != nil {
		qty = decimal.Zero
	}

	req := validator.NewOrderRequest{
		ClOrdID:  clOrdID,
		Symbol:   symbol,
		Side:     side,
		OrdType:  ordType,
		Quantity: qty,
		Price:    price,
		HasPrice: hasPrice,
	}

	order, executions, err := s.engine.Submit(req)
	if err != nil {
		s.rejectNewOrder(ctx, clOrdID, symbol, side, err)
		return
	}

	s.markClOrdIDSeen(clOrdID, order.ID, order.Symbol)
	s.persistOrder(ctx, order)
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeNewOrder, Data: order, Timestamp: order.Timestamp})

	for _, exec := range executions {
		s.persistExecution(ctx, &exec)
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeExecution, Data: exec, Timestamp: exec.Timestamp})
		metrics.ObserveExecution(order.Symbol, exec.LastQty.InexactFloat64())
	}

	s.sendExecutionReportForOrder(ctx, order, executions)
}

func (s *Session) handleOrderCancelRequest(ctx context.Context, msg *fix.Message) {
	clOrdID, _ := msg.Get(fix.TagClOrdID)
	symbol, _ := msg.Get(fix.TagSymbol)
	side, _ := msg.Get(fix.TagSide)
	origOrderIDStr, _ := msg.Get(fix.TagOrderID)

	if err := s.validator.ValidateCancel(validator.CancelRequest{
		ClOrdID: clOrdID,
		Symbol:  symbol,
		Side:    side,
		OrderID: origOrderIDStr,
	}); err != nil {
		s.rejectCancel(ctx, clOrdID, origOrderIDStr, err.Error())
		return
	}

	orderID, parseErr := parseOrderID(origOrderIDStr)
	if parseErr != nil {
		s.rejectCancel(ctx, clOrdID, "", "Order not found")
		return
	}

	order, err := s.engine.Cancel(symbol, orderID)
	if err != nil {
		s.rejectCancel(ctx, clOrdID, origOrderIDStr, "Order not found")
		return
	}

	s.mu.Lock()
	delete(s.symbols, order.ID)
	s.mu.Unlock()

	s.persistOrder(ctx, order)
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeCancelOrder, Data: order, Timestamp: order.Timestamp})
	s.sendExecutionReportForOrder(ctx, order, nil)
}

// rejectNewOrder sends an Execution Report carrying OrdStatus=Rejected for
// err, which is always a *validator.Error. It is wrapped as a
// fixerr.ValidationError for logging only — the wire Text is the
// validator's own plain reason, not the wrapped error's decorated string.
func (s *Session) rejectNewOrder(ctx context.Context, clOrdID, symbol, side string, err error) {
	reason := err.Error()
	verr := &fixerr.ValidationError{Reason: reason}
	s.logger.Warn(ctx, "session: rejecting new order", zap.String("error", verr.Error()))
	metrics.IncOrderRejected(reason)
	report := s.newMessage(fix.MsgTypeExecutionReport)
	report.Set(fix.TagOrderID, "0")
	report.Set(fix.TagExecID, uuid.NewString())
	report.Set(fix.TagExecType, fix.ExecTypeRejected)
	report.Set(fix.TagOrdStatus, fix.OrdStatusRejected)
	report.Set(fix.TagClOrdID, clOrdID)
	report.Set(fix.TagSymbol, symbol)
	report.Set(fix.TagSide, side)
	report.Set(fix.TagLastQty, "0")
	report.Set(fix.TagLastPx, "0")
	report.Set(fix.TagCumQty, "0")
	report.Set(fix.TagAvgPx, "0")
	report.Set(fix.TagText, reason)
	s.send(ctx, report)
}

// rejectCancel sends an Order Cancel Reject carrying reason as tag 58
// Text. reason is also wrapped as a fixerr.StateError for logging: every
// cancel rejection here is either an unknown/terminal order or a
// malformed cancel request, both state-layer concerns rather than
// pre-trade validation ones.
func (s *Session) rejectCancel(ctx context.Context, clOrdID, origOrderID, reason string) {
	serr := &fixerr.StateError{Reason: reason}
	s.logger.Warn(ctx, "session: rejecting cancel", zap.String("error", serr.Error()))

	reject := s.newMessage(fix.MsgTypeOrderCancelReject)
	reject.Set(fix.TagOrderID, origOrderID)
	reject.Set(fix.TagClOrdID, clOrdID)
	reject.Set(fix.TagOrdStatus, fix.OrdStatusRejected)
	reject.Set(fix.TagCxlRejReason, "0")
	reject.Set(fix.TagText, reason)
	s.send(ctx, reject)
}

func (s *Session) sendExecutionReportForOrder(ctx context.Context, order *orderbook.Order, executions []orderbook.Execution) {
	var lastQty, lastPx decimal.Decimal
	execType := fix.ExecTypeNew
	if len(executions) > 0 {
		last := executions[len(executions)-1]
		lastQty = last.LastQty
		lastPx = last.LastPx
		execType = fix.ExecTypePartialFill
		if order.Status == orderbook.StatusFilled {
			execType = fix.ExecTypeFill
		}
	}
	if order.Status == orderbook.StatusCanceled {
		execType = fix.ExecTypeCanceled
	}

	report := s.newMessage(fix.MsgTypeExecutionReport)
	report.Set(fix.TagOrderID, formatOrderID(order.ID))
	report.Set(fix.TagExecID, uuid.NewString())
	report.Set(fix.TagExecType, execType)
	report.Set(fix.TagOrdStatus, string(order.Status))
	report.Set(fix.TagClOrdID, order.ClientOrderID)
	report.Set(fix.TagSymbol, order.Symbol)
	report.Set(fix.TagSide, order.Side)
	report.Set(fix.TagLastQty, lastQty.String())
	report.Set(fix.TagLastPx, lastPx.String())
	report.Set(fix.TagCumQty, order.FilledQty.String())
	report.Set(fix.TagAvgPx, lastPx.String())
	s.send(ctx, report)
}

func (s *Session) sendHeartbeat(ctx context.Context) {
	s.send(ctx, s.newMessage(fix.MsgTypeHeartbeat))
}

func (s *Session) sendSessionReject(ctx context.Context, refSeqNum int, reason string) {
	reject := s.newMessage(fix.MsgTypeSessionReject)
	reject.Set(fix.TagRefSeqNum, strconv.Itoa(refSeqNum))
	reject.Set(fix.TagText, reason)
	s.send(ctx, reject)
}

func (s *Session) handleProtocolError(ctx context.Context, err error) {
	perr := &fixerr.ProtocolError{Reason: err.Error()}
	s.logger.Warn(ctx, "session: protocol error on inbound frame", zap.String("error", perr.Error()))
	s.sendSessionReject(ctx, s.nextPeerSeqGuess(), err.Error())
}

// nextPeerSeqGuess is used only to populate RefSeqNum when the inbound
// message itself could not be decoded far enough to read tag 34.
func (s *Session) nextPeerSeqGuess() int {
	return int(s.incomingSeq) + 1
}

func (s *Session) newMessage(msgType string) *fix.Message {
	seq := atomic.AddInt64(&s.outgoingSeq, 1)
	return fix.NewMessage(msgType, s.cfg.SenderCompID, s.targetID, int(seq), time.Now().UTC())
}

func (s *Session) send(ctx context.Context, msg *fix.Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := s.conn.Write(fix.Encode(msg)); err != nil {
		s.logger.Error(ctx, "session: write failed")
		return
	}
	s.lastSentAt.Store(time.Now().UnixNano())
}

func (s *Session) hasSeenClOrdID(clOrdID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clOrdIDs[clOrdID]
}

func (s *Session) markClOrdIDSeen(clOrdID string, orderID int64, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clOrdIDs[clOrdID] = true
	s.orderIDs[clOrdID] = orderID
	s.symbols[orderID] = symbol
}

func (s *Session) persistOrder(ctx context.Context, order *orderbook.Order) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		perr := &fixerr.PersistenceError{Reason: err.Error()}
		metrics.IncPersistenceError("save_order")
		s.logger.Error(ctx, "session: persist order failed", zap.String("error", perr.Error()))
	}
}

func (s *Session) persistExecution(ctx context.Context, exec *orderbook.Execution) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		perr := &fixerr.PersistenceError{Reason: err.Error()}
		metrics.IncPersistenceError("save_execution")
		s.logger.Error(ctx, "session: persist execution failed", zap.String("error", perr.Error()))
	}
}

// cancelAllOwnOrders implements the cancel-on-disconnect knob: it is OFF
// by default and only runs when cfg.CancelOnDisconnect is set.
func (s *Session) cancelAllOwnOrders(ctx context.Context) {
	s.mu.Lock()
	owned := make(map[int64]string, len(s.symbols))
	for id, sym := range s.symbols {
		owned[id] = sym
	}
	s.mu.Unlock()

	for orderID, symbol := range owned {
		order, err := s.engine.Cancel(symbol, orderID)
		if err != nil {
			continue
		}
		s.persistOrder(ctx, order)
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeCancelOrder, Data: order, Timestamp: time.Now().UnixNano()})
	}
}

func formatOrderID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseOrderID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
