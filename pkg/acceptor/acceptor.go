// Package acceptor owns the exchange's single listening socket: one
// Acceptor accepts TCP connections and hands each one to a freshly
// constructed session.Session, which then owns that connection for its
// lifetime. The Acceptor itself never decodes a frame.
package acceptor

import (
	"context"
	"net"
	"sync"

	"github.com/exchangesim/fixexchange/pkg/eventbus"
	"github.com/exchangesim/fixexchange/pkg/logging"
	"github.com/exchangesim/fixexchange/pkg/matchingengine"
	"github.com/exchangesim/fixexchange/pkg/metrics"
	"github.com/exchangesim/fixexchange/pkg/persistence"
	"github.com/exchangesim/fixexchange/pkg/session"
)

// Acceptor listens on one address and runs one session.Session goroutine
// per accepted connection.
type Acceptor struct {
	listenAddr    string
	sessionConfig session.Config
	engine        *matchingengine.Engine
	bus           *eventbus.Bus
	store         persistence.Port
	logger        *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	active   int
}

func New(listenAddr string, sessionConfig session.Config, engine *matchingengine.Engine, bus *eventbus.Bus, store persistence.Port, logger *logging.Logger) *Acceptor {
	return &Acceptor{
		listenAddr:    listenAddr,
		sessionConfig: sessionConfig,
		engine:        engine,
		bus:           bus,
		store:         store,
		logger:        logger,
	}
}

// Run opens the listening socket and accepts connections until ctx is
// canceled or Close is called. It blocks the caller; run it on its own
// goroutine.
func (a *Acceptor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	a.logger.Info(ctx, "acceptor: listening")

	go func() {
		<-ctx.Done()
		a.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				a.wg.Wait()
				return nil
			default:
				a.logger.Error(ctx, "acceptor: accept failed")
				return err
			}
		}

		a.wg.Add(1)
		a.incActive()
		go func() {
			defer a.wg.Done()
			defer a.decActive()
			sess := session.New(conn, a.sessionConfig, a.engine, a.bus, a.store, a.logger)
			sess.Run(ctx)
		}()
	}
}

// Close stops accepting new connections. Already-accepted sessions keep
// running until their own connection closes or ctx is canceled.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}

func (a *Acceptor) incActive() {
	a.mu.Lock()
	a.active++
	metrics.SetSessionsActive(a.active)
	a.mu.Unlock()
}

func (a *Acceptor) decActive() {
	a.mu.Lock()
	a.active--
	metrics.SetSessionsActive(a.active)
	a.mu.Unlock()
}
