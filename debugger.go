// debugger.go - the debug handle (execution thread side) and worker
// (debugger thread side), and the bounded channels joining them.
//
// Grounded on original_source/src/debugger.rs: two long-lived threads
// communicate exclusively through two bounded channels (handle->worker
// DebugMessage notifications, worker->handle DebugCommand requests).
// Go channels replace crossbeam's bounded/select/try_send; WaitGroup's
// "wait for N clones to drop" becomes a close-to-broadcast channel.

package main

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"golang.design/x/clipboard"
)

const debugChannelBound = 100
const debugTCPPollInterval = 50 * time.Millisecond

// ShouldExecuteInstruction is BeforeInstructionExecution's verdict.
type ShouldExecuteInstruction int

const (
	DebugExecute ShouldExecuteInstruction = iota
	DebugSkip
)

type breakpointHandleState int

const (
	stateWaitingForStart breakpointHandleState = iota
	stateRunning
	stateBreaking
)

// debugMessage is sent handle -> worker.
type debugMessage interface{ isDebugMessage() }

type dmStop struct{}
type dmWaitForStart struct{ done chan struct{} }
type dmHitBreakpoint struct{ location Address }
type dmBreaking struct{ location Address }
type dmPausing struct{ location Address }
type dmBreakState struct {
	registers []Word
	callStack []Address
}

func (dmStop) isDebugMessage()           {}
func (dmWaitForStart) isDebugMessage()   {}
func (dmHitBreakpoint) isDebugMessage()  {}
func (dmBreaking) isDebugMessage()       {}
func (dmPausing) isDebugMessage()        {}
func (dmBreakState) isDebugMessage()     {}

// debugCommand is sent worker -> handle.
type debugCommand interface{ isDebugCommand() }

type dcSetBreakpoints struct{ locations []Address }
type dcRemoveBreakpoints struct{ locations []Address }
type dcContinue struct{}
type dcStepOne struct{}
type dcPause struct{}
type dcSetRegister struct {
	register Register
	value    Word
}
type dcTerminate struct{}

func (dcSetBreakpoints) isDebugCommand()    {}
func (dcRemoveBreakpoints) isDebugCommand() {}
func (dcContinue) isDebugCommand()          {}
func (dcStepOne) isDebugCommand()           {}
func (dcPause) isDebugCommand()             {}
func (dcSetRegister) isDebugCommand()       {}
func (dcTerminate) isDebugCommand()         {}

// DebugHandle lives on the execution thread: it gates instruction
// execution on breakpoints/pause/step commands and reports state back
// to the worker. A dummy handle (see NewDummyDebugHandle) never blocks.
type DebugHandle struct {
	state               breakpointHandleState
	breakpoints         map[Address]struct{}
	sender              chan<- debugMessage
	receiver            <-chan debugCommand
	receiveCache        []debugCommand
	shouldPause         bool
	callStack           []Address
	didExecuteLastCycle bool
}

// StartDebugger spawns the worker goroutine (TCP listener + protocol
// loop) and returns the handle the execution thread drives.
func StartDebugger() *DebugHandle {
	messages := make(chan debugMessage, debugChannelBound)
	commands := make(chan debugCommand, debugChannelBound)

	w := &debuggerWorker{messages: messages, commands: commands}
	go w.run()

	return &DebugHandle{
		state:               stateWaitingForStart,
		breakpoints:         make(map[Address]struct{}),
		sender:              messages,
		receiver:            commands,
		didExecuteLastCycle: true,
	}
}

// NewDummyDebugHandle returns a handle with no worker attached: every
// instruction executes immediately, as if no debugger were connected.
func NewDummyDebugHandle() *DebugHandle {
	return &DebugHandle{state: stateRunning, didExecuteLastCycle: true}
}

// Stop requests the worker goroutine to exit.
func (h *DebugHandle) Stop() {
	h.send(dmStop{})
}

// BeforeInstructionExecution is called once per cycle, before the
// processor fetches/executes the instruction at its current IP. It
// implements the handle side of spec.md §4.11's state machine.
func (h *DebugHandle) BeforeInstructionExecution(p *Processor, mem *Memory) ShouldExecuteInstruction {
	ip := p.InstructionPointer()

	if h.state == stateWaitingForStart {
		h.WaitForStart()
		h.state = stateRunning
		h.receiveCache = nil
	}

	if h.state == stateBreaking {
		if h.didExecuteLastCycle {
			h.sendBreakState(p)
			h.send(dmBreaking{location: ip})
		}
	} else {
		h.startBreakingIfRequested(ip, p)
	}

	result := DebugExecute
	if h.state == stateBreaking {
		result = h.breaking(p)
	}

	if result == DebugExecute {
		h.trackCallStack(mem, ip)
	}

	h.didExecuteLastCycle = result == DebugExecute
	return result
}

// WaitForStart blocks until a StartExecution request arrives (or
// returns immediately for a dummy handle with no worker attached).
func (h *DebugHandle) WaitForStart() {
	if h.sender == nil {
		return
	}
	done := make(chan struct{})
	h.send(dmWaitForStart{done: done})
	<-done
}

func (h *DebugHandle) startBreakingIfRequested(ip Address, p *Processor) {
	if h.state == stateBreaking {
		return
	}

	h.receiveUpdatesNonBlocking()

	_, hitBreakpoint := h.breakpoints[ip]

	var breakMessage debugMessage
	switch {
	case h.shouldPause:
		breakMessage = dmPausing{location: ip}
	case hitBreakpoint:
		breakMessage = dmHitBreakpoint{location: ip}
	}
	h.shouldPause = false

	if breakMessage != nil {
		h.state = stateBreaking
		h.receiveCache = nil
		h.sendBreakState(p)
		h.send(breakMessage)
	}
}

func (h *DebugHandle) breaking(p *Processor) ShouldExecuteInstruction {
	h.receiveUpdatesNonBlocking()

	if len(h.receiveCache) == 0 {
		return DebugSkip
	}

	message := h.receiveCache[0]
	h.receiveCache = h.receiveCache[1:]

	switch m := message.(type) {
	case dcTerminate:
		os.Exit(0)
	case dcStepOne:
		return DebugExecute
	case dcContinue:
		h.state = stateRunning
		return DebugExecute
	case dcSetRegister:
		p.Registers.Set(m.register, m.value)
	default:
		panic("debugger: message should never be cached; it should have been handled immediately")
	}

	return DebugSkip
}

func (h *DebugHandle) sendBreakState(p *Processor) {
	callStack := make([]Address, len(h.callStack))
	copy(callStack, h.callStack)
	registers := make([]Word, len(p.Registers.Contents()))
	copy(registers, p.Registers.Contents())
	h.send(dmBreakState{registers: registers, callStack: callStack})
}

func (h *DebugHandle) send(message debugMessage) {
	if h.sender == nil {
		return
	}
	h.sender <- message
}

func (h *DebugHandle) receiveUpdatesNonBlocking() {
	for {
		if h.receiver == nil {
			return
		}
		select {
		case message := <-h.receiver:
			h.handleMessage(message)
		default:
			return
		}
	}
}

func (h *DebugHandle) handleMessage(message debugCommand) {
	switch m := message.(type) {
	case dcPause:
		h.shouldPause = true
	case dcSetBreakpoints:
		for _, loc := range m.locations {
			h.breakpoints[loc] = struct{}{}
		}
	case dcRemoveBreakpoints:
		for _, loc := range m.locations {
			delete(h.breakpoints, loc)
		}
	default:
		h.receiveCache = append(h.receiveCache, message)
	}
}

func (h *DebugHandle) trackCallStack(mem *Memory, ip Address) {
	decoded, err := mem.ReadOpcode(ip)
	if err != nil {
		return
	}
	switch decoded.Code {
	case OpCallAddress, OpCallRegister, OpCallPointer:
		h.callStack = append(h.callStack, ip)
	case OpReturn:
		if len(h.callStack) > 0 {
			h.callStack = h.callStack[:len(h.callStack)-1]
		}
	}
}

// debuggerWorker owns the TCP listener/client and the bounded channels'
// far ends; it runs entirely on its own goroutine.
type debuggerWorker struct {
	messages <-chan debugMessage
	commands chan<- debugCommand

	started             bool
	startNotifications  []chan struct{}
	lastBreakState      *BreakStateResponse
	clipboardInitOnce   sync.Once
	clipboardInitResult error
}

func (w *debuggerWorker) run() {
	tcp, err := StartTcpHandler()
	if err != nil {
		log.Printf("debugger: %v", err)
		return
	}
	defer tcp.Close()

	ticker := time.NewTicker(debugTCPPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.handlePollTick(tcp) {
				return
			}
		case message := <-w.messages:
			if _, isStop := message.(dmStop); isStop {
				return
			}
			w.handleDebugMessage(message, tcp)
		}
	}
}

// handlePollTick polls the TCP interface once, dispatching whatever it
// finds. Returns true if a Terminate request was received.
func (w *debuggerWorker) handlePollTick(tcp *TcpHandler) bool {
	result, err := tcp.Poll()
	if err != nil {
		log.Printf("debugger: %v", err)
		return false
	}

	if result.ClientConnected {
		w.handleSendResult(tcp.Send(Response{Hello: &HelloResponse{PID: uint32(os.Getpid())}}))
	}

	shouldTerminate := false
	for _, req := range result.Requests {
		if req.Terminate != nil {
			shouldTerminate = true
		}
		w.handleRequest(req, tcp)
	}
	return shouldTerminate
}

func (w *debuggerWorker) handleDebugMessage(message debugMessage, tcp *TcpHandler) {
	switch m := message.(type) {
	case dmWaitForStart:
		if w.started {
			close(m.done)
		} else {
			w.startNotifications = append(w.startNotifications, m.done)
		}
	case dmHitBreakpoint:
		w.handleSendResult(tcp.Send(Response{HitBreakpoint: &HitBreakpointResponse{Location: m.location}}))
	case dmBreaking:
		w.handleSendResult(tcp.Send(Response{Breaking: &BreakingResponse{Location: m.location}}))
	case dmPausing:
		w.handleSendResult(tcp.Send(Response{Pausing: &PausingResponse{Location: m.location}}))
	case dmBreakState:
		snapshot := &BreakStateResponse{Registers: m.registers, CallStack: m.callStack}
		w.lastBreakState = snapshot
		w.handleSendResult(tcp.Send(Response{BreakState: snapshot}))
	}
}

func (w *debuggerWorker) handleSendResult(err error) {
	if err != nil {
		log.Printf("debugger: %v", err)
	}
}

func (w *debuggerWorker) handleRequest(req Request, tcp *TcpHandler) {
	switch {
	case req.StartExecution != nil:
		if req.StartExecution.StopOnEntry {
			w.sendToHandle(dcPause{})
		}
		w.started = true
		for _, done := range w.startNotifications {
			close(done)
		}
		w.startNotifications = nil
	case req.SetBreakpoints != nil:
		w.sendToHandle(dcSetBreakpoints{locations: req.SetBreakpoints.Locations})
	case req.RemoveBreakpoints != nil:
		w.sendToHandle(dcRemoveBreakpoints{locations: req.RemoveBreakpoints.Locations})
	case req.Continue != nil:
		w.sendToHandle(dcContinue{})
	case req.StepOne != nil:
		w.sendToHandle(dcStepOne{})
	case req.SetRegister != nil:
		w.sendToHandle(dcSetRegister{register: req.SetRegister.Register, value: req.SetRegister.Value})
	case req.Terminate != nil:
		w.sendToHandle(dcTerminate{})
	case req.CopyState != nil:
		w.copyStateToClipboard()
	}
}

// sendToHandle mirrors original_source's send_to_breakpoint_handler: a
// non-blocking try-send that silently sheds the message if the handle
// hasn't drained the channel (spec.md §4.11's backpressure rule).
func (w *debuggerWorker) sendToHandle(cmd debugCommand) {
	select {
	case w.commands <- cmd:
	default:
	}
}

// copyStateToClipboard serves the additive CopyState request: the last
// BreakState snapshot sent to the client, re-serialised and pushed to
// the system clipboard. Clipboard access is initialised lazily so a
// headless run (no display server) never pays for it unless a client
// actually asks.
func (w *debuggerWorker) copyStateToClipboard() {
	if w.lastBreakState == nil {
		return
	}
	w.clipboardInitOnce.Do(func() {
		w.clipboardInitResult = clipboard.Init()
	})
	if w.clipboardInitResult != nil {
		log.Printf("debugger: clipboard unavailable: %v", w.clipboardInitResult)
		return
	}

	data, err := json.Marshal(w.lastBreakState)
	if err != nil {
		log.Printf("debugger: %v", err)
		return
	}
	clipboard.Write(clipboard.FmtText, data)
}
