// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remotetest provides a scripted remote.Executor for tests.
//
// Routes are matched by host and command prefix in registration order:
//
//	executor := remotetest.New()
//	executor.Respond("gpu01", "nvidia-smi", reportXML)
//	executor.Fail("gpu02", "nvidia-smi", remote.ErrTimeout)
//
// For tests that need to control timing (blocking a call until the
// test releases it), install a [Func] with [Executor.Handle].
package remotetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Func handles one Execute call.
type Func func(ctx context.Context, host, command string) (string, error)

// Call records one Execute invocation.
type Call struct {
	Host    string
	Command string
	Timeout time.Duration
}

type route struct {
	host    string
	prefix  string
	handler Func
}

// Executor is a concurrency-safe scripted remote.Executor. It enforces
// the executor contract on behalf of handlers: output is discarded
// whenever the handler returns an error.
type Executor struct {
	mu          sync.Mutex
	routes      []route
	calls       []Call
	inFlight    int
	maxInFlight int
}

// New returns an Executor with no routes. Unrouted calls fail.
func New() *Executor {
	return &Executor{}
}

// Respond makes commands on host starting with prefix succeed with output.
func (e *Executor) Respond(host, prefix, output string) {
	e.Handle(host, prefix, func(context.Context, string, string) (string, error) {
		return output, nil
	})
}

// Fail makes commands on host starting with prefix fail with err.
func (e *Executor) Fail(host, prefix string, err error) {
	e.Handle(host, prefix, func(context.Context, string, string) (string, error) {
		return "", err
	})
}

// Handle routes commands on host starting with prefix to handler.
func (e *Executor) Handle(host, prefix string, handler Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routes = append(e.routes, route{host: host, prefix: prefix, handler: handler})
}

// Execute implements remote.Executor.
func (e *Executor) Execute(ctx context.Context, host, command string, timeout time.Duration) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Host: host, Command: command, Timeout: timeout})
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	handler := e.lookup(host, command)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if handler == nil {
		return "", fmt.Errorf("remotetest: no route for %s: %q", host, command)
	}
	output, err := handler(ctx, host, command)
	if err != nil {
		return "", err
	}
	return output, nil
}

// lookup must be called with mu held.
func (e *Executor) lookup(host, command string) Func {
	for _, candidate := range e.routes {
		if candidate.host == host && strings.HasPrefix(command, candidate.prefix) {
			return candidate.handler
		}
	}
	return nil
}

// Calls returns a copy of every recorded call in invocation order.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallsTo returns the recorded calls for one host.
func (e *Executor) CallsTo(host string) []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var matched []Call
	for _, call := range e.calls {
		if call.Host == host {
			matched = append(matched, call)
		}
	}
	return matched
}

// MaxInFlight returns the highest number of concurrent Execute calls
// observed.
func (e *Executor) MaxInFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxInFlight
}
