// debugger_protocol.go - debug TCP wire format
//
// Grounded on original_source/src/debugger/tcp_protocol.rs: a
// non-blocking TCP listener accepting a single client at a time, frames
// are NUL-terminated JSON, and both request and response enums are
// serialised "externally tagged" the way serde's default enum
// representation does — {"Variant": {...fields...}}. Go has no sum
// types, so each side gets a concrete struct per variant plus a tiny
// tag-sniffing parser/marshaller pair.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const debugTCPAddress = "127.0.0.1:57017"
const debuggerPortPrefix = "Debugger-Port:"

// Request variant payloads (inbound, client -> engine).
type StartExecutionRequest struct {
	StopOnEntry bool `json:"stop_on_entry"`
}
type SetBreakpointsRequest struct {
	Locations []Address `json:"locations"`
}
type RemoveBreakpointsRequest struct {
	Locations []Address `json:"locations"`
}
type ContinueRequest struct{}
type StepOneRequest struct{}
type SetRegisterRequest struct {
	Register Register `json:"register"`
	Value    Word     `json:"value"`
}
type TerminateRequest struct{}

// CopyState is additive (see SPEC_FULL.md): copies the most recent
// BreakState snapshot to the system clipboard as JSON, for IDEs that
// want a one-shot "grab current state" affordance.
type CopyStateRequest struct{}

// Request is a parsed inbound frame: exactly one of the typed fields is
// non-nil, matching the tag found in the JSON.
type Request struct {
	StartExecution    *StartExecutionRequest
	SetBreakpoints    *SetBreakpointsRequest
	RemoveBreakpoints *RemoveBreakpointsRequest
	Continue          *ContinueRequest
	StepOne           *StepOneRequest
	SetRegister       *SetRegisterRequest
	Terminate         *TerminateRequest
	CopyState         *CopyStateRequest
}

// ParseRequest decodes one externally-tagged JSON request frame.
func ParseRequest(data []byte) (Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, fmt.Errorf("debugger protocol: %w", err)
	}
	if len(raw) != 1 {
		return Request{}, fmt.Errorf("debugger protocol: expected exactly one tag, got %d", len(raw))
	}

	for tag, payload := range raw {
		var req Request
		switch tag {
		case "StartExecution":
			var v StartExecutionRequest
			if err := json.Unmarshal(payload, &v); err != nil {
				return Request{}, err
			}
			req.StartExecution = &v
		case "SetBreakpoints":
			var v SetBreakpointsRequest
			if err := json.Unmarshal(payload, &v); err != nil {
				return Request{}, err
			}
			req.SetBreakpoints = &v
		case "RemoveBreakpoints":
			var v RemoveBreakpointsRequest
			if err := json.Unmarshal(payload, &v); err != nil {
				return Request{}, err
			}
			req.RemoveBreakpoints = &v
		case "Continue":
			req.Continue = &ContinueRequest{}
		case "StepOne":
			req.StepOne = &StepOneRequest{}
		case "SetRegister":
			var v SetRegisterRequest
			if err := json.Unmarshal(payload, &v); err != nil {
				return Request{}, err
			}
			req.SetRegister = &v
		case "Terminate":
			req.Terminate = &TerminateRequest{}
		case "CopyState":
			req.CopyState = &CopyStateRequest{}
		default:
			return Request{}, fmt.Errorf("debugger protocol: unknown request tag %q", tag)
		}
		return req, nil
	}
	panic("unreachable")
}

// Response variant payloads (outbound, engine -> client).
type HelloResponse struct {
	PID uint32 `json:"pid"`
}
type HitBreakpointResponse struct {
	Location Address `json:"location"`
}
type BreakingResponse struct {
	Location Address `json:"location"`
}
type PausingResponse struct {
	Location Address `json:"location"`
}
type BreakStateResponse struct {
	Registers []Word    `json:"registers"`
	CallStack []Address `json:"call_stack"`
}

// Response is the externally-tagged union of outbound frames: exactly
// one field is non-nil.
type Response struct {
	Hello         *HelloResponse
	HitBreakpoint *HitBreakpointResponse
	Breaking      *BreakingResponse
	Pausing       *PausingResponse
	BreakState    *BreakStateResponse
}

// MarshalJSON wraps whichever variant is set under its tag name, e.g.
// {"HitBreakpoint":{"location":1908712}}.
func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.Hello != nil:
		return json.Marshal(map[string]*HelloResponse{"Hello": r.Hello})
	case r.HitBreakpoint != nil:
		return json.Marshal(map[string]*HitBreakpointResponse{"HitBreakpoint": r.HitBreakpoint})
	case r.Breaking != nil:
		return json.Marshal(map[string]*BreakingResponse{"Breaking": r.Breaking})
	case r.Pausing != nil:
		return json.Marshal(map[string]*PausingResponse{"Pausing": r.Pausing})
	case r.BreakState != nil:
		return json.Marshal(map[string]*BreakStateResponse{"BreakState": r.BreakState})
	default:
		return nil, fmt.Errorf("debugger protocol: empty Response has no variant set")
	}
}

// PollReturn is what one TcpHandler.Poll call discovered.
type PollReturn struct {
	ClientConnected    bool
	ClientDisconnected bool
	Requests           []Request
}

// TcpHandler owns the debug TCP listener and, at most, one connected
// client. All I/O is non-blocking: Poll never waits.
type TcpHandler struct {
	listener net.Listener
	client   net.Conn
	reader   *SegmentedReader
}

// StartTcpHandler binds the debug interface and prints the chosen port
// for IDE discovery, per spec.md §4.11.
func StartTcpHandler() (*TcpHandler, error) {
	listener, err := net.Listen("tcp", debugTCPAddress)
	if err != nil {
		return nil, fmt.Errorf("debugger protocol: cannot open debug TCP interface: %w", err)
	}
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		fmt.Printf("%s%d\n", debuggerPortPrefix, addr.Port)
	}
	return &TcpHandler{listener: listener, reader: NewSegmentedReader()}, nil
}

// Poll accepts a pending connection or reads pending requests from the
// current client, never blocking.
func (h *TcpHandler) Poll() (PollReturn, error) {
	if h.client == nil {
		return h.tcpAccept()
	}

	_ = h.client.SetReadDeadline(time.Now().Add(time.Millisecond))
	segments, err := h.reader.Read(h.client)
	if err == ErrDisconnected {
		h.disconnect()
		return PollReturn{ClientDisconnected: true}, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return PollReturn{}, nil
	}
	if err != nil {
		h.disconnect()
		return PollReturn{}, err
	}

	requests := make([]Request, 0, len(segments))
	for _, s := range segments {
		req, err := ParseRequest(h.reader.Segment(s))
		if err != nil {
			h.disconnect()
			return PollReturn{}, err
		}
		requests = append(requests, req)
	}
	return PollReturn{Requests: requests}, nil
}

// Send serialises message and writes it, NUL-terminated, to the current
// client. A no-op if no client is connected.
func (h *TcpHandler) Send(message Response) error {
	if h.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("debugger protocol: %w", err)
	}
	data = append(data, 0)

	_ = h.client.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := h.client.Write(data); err != nil {
		h.disconnect()
		return fmt.Errorf("debugger protocol: %w", err)
	}
	return nil
}

func (h *TcpHandler) disconnect() {
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
	h.reader.Clear()
}

func (h *TcpHandler) tcpAccept() (PollReturn, error) {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	if d, ok := h.listener.(deadliner); ok {
		_ = d.SetDeadline(time.Now().Add(time.Millisecond))
	}

	conn, err := h.listener.Accept()
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return PollReturn{}, nil
		}
		return PollReturn{}, fmt.Errorf("debugger protocol: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	h.client = conn
	return PollReturn{ClientConnected: true}, nil
}

// Close shuts the listener (and any connected client) down.
func (h *TcpHandler) Close() error {
	if h.client != nil {
		h.client.Close()
	}
	return h.listener.Close()
}

var _ io.Closer = (*TcpHandler)(nil)
