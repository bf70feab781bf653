// Package debugServer exposes a monitor over JSON-RPC 2.0 with VS Code style framing, so editors
// and scripts can drive the same session the console does.
package debugServer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/monitor"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
)

var methods = []string{
	"initialize", "evaluate", "tokenize", "setWatchpoint", "removeWatchpoint", "watchpoints",
	"step", "continue", "registers", "readMemory", "shutdown", "exit",
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

type Server struct {
	monitor     *monitor.Monitor
	connections atomic.Int64
}

func New(m *monitor.Monitor) *Server {
	return &Server{monitor: m}
}

// ServeConn serves one connection. The returned channel is closed when the peer disconnects.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) <-chan struct{} {
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), handler{monitor: s.monitor})
	return conn.DisconnectNotify()
}

// ListenAndServe serves a single client on stdin and stdout.
func (s *Server) ListenAndServe(ctx context.Context) {
	<-s.ServeConn(ctx, stdrwc{})
}

func (s *Server) ListenAndServeTCP(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not bind to address %s: %w", addr, err)
	}
	defer lis.Close()

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	log.Println("RISC-V Monitor debug server: listening for TCP connections on", lis.Addr())

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept incoming connection: %w", err)
		}
		connectionID := s.connections.Add(1)
		log.Printf("RISC-V Monitor debug server: received incoming connection #%d\n", connectionID)
		done := s.ServeConn(ctx, conn)
		go func() {
			<-done
			log.Printf("RISC-V Monitor debug server: connection #%d closed\n", connectionID)
		}()
	}
}

type handler struct {
	monitor *monitor.Monitor
}

func (h handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	util.LogF("RISC-V Monitor debug server: received request: %s", req.Method)
	switch req.Method {
	case "initialize":
		reply(ctx, conn, req, InitializeResult{
			Session:   h.monitor.Session(),
			Registers: emulator.RegisterNames(),
			Methods:   methods,
		})
	case "evaluate":
		h.evaluate(ctx, conn, req)
	case "tokenize":
		h.tokenize(ctx, conn, req)
	case "setWatchpoint":
		h.setWatchpoint(ctx, conn, req)
	case "removeWatchpoint":
		h.removeWatchpoint(ctx, conn, req)
	case "watchpoints":
		reply(ctx, conn, req, h.monitor.Watchpoints())
	case "step":
		params := StepParams{Count: 1}
		if hasParams(req) && !decodeParams(ctx, conn, req, &params) {
			return
		}
		reply(ctx, conn, req, h.monitor.Step(params.Count))
	case "continue":
		reply(ctx, conn, req, h.monitor.Continue())
	case "registers":
		reply(ctx, conn, req, h.monitor.Registers())
	case "readMemory":
		h.readMemory(ctx, conn, req)

	// quitting
	case "shutdown":
		reply(ctx, conn, req, nil)
	case "exit":
		reply(ctx, conn, req, nil)
		conn.Close()
	default:
		replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (h handler) evaluate(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := ExpressionParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}

	value, err := h.monitor.Evaluate("rpc", params.Expression)
	if err != nil {
		replyError(ctx, conn, req, CodeEvaluationFailed, err.Error())
		return
	}
	reply(ctx, conn, req, EvaluateResult{Value: value, Hex: fmt.Sprintf("%#x", value)})
}

func (h handler) tokenize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := ExpressionParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}

	tokens, err := h.monitor.Tokenize(params.Expression)
	if err != nil {
		replyError(ctx, conn, req, CodeEvaluationFailed, err.Error())
		return
	}
	reply(ctx, conn, req, TokenizeResult{Tokens: tokens})
}

func (h handler) setWatchpoint(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := ExpressionParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}

	wp, err := h.monitor.AddWatchpoint("rpc", params.Expression)
	if err != nil {
		replyError(ctx, conn, req, CodeEvaluationFailed, err.Error())
		return
	}
	reply(ctx, conn, req, wp)
}

func (h handler) removeWatchpoint(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := WatchpointParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}

	if err := h.monitor.RemoveWatchpoint(params.ID); err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, err.Error())
		return
	}
	reply(ctx, conn, req, nil)
}

func (h handler) readMemory(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := ReadMemoryParams{Count: 1}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	if params.Count < 0 {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "count must not be negative")
		return
	}

	words, err := h.monitor.ReadMemory(params.Address, params.Count)
	if err != nil {
		replyError(ctx, conn, req, CodeEvaluationFailed, err.Error())
		return
	}
	reply(ctx, conn, req, ReadMemoryResult{Address: params.Address, Words: words})
}

func hasParams(req *jsonrpc2.Request) bool {
	return req.Params != nil && string(*req.Params) != "null"
}

func decodeParams(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, v interface{}) bool {
	if !hasParams(req) {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid parameters")
		return false
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid parameters")
		return false
	}
	return true
}

func reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result interface{}) {
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		util.LogF("RISC-V Monitor debug server: reply to %s failed: %v", req.Method, err)
	}
}

func replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, message string) {
	if req.Notif {
		return
	}
	rpcErr := &jsonrpc2.Error{Code: code, Message: message}
	if err := conn.ReplyWithError(ctx, req.ID, rpcErr); err != nil {
		util.LogF("RISC-V Monitor debug server: error reply to %s failed: %v", req.Method, err)
	}
}
