package debugServer_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/debugServer"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/monitor"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/watchpoint"
)

const base = emulator.DefaultMemoryBase

type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func dial(t *testing.T) (*jsonrpc2.Conn, <-chan struct{}) {
	t.Helper()
	mem := emulator.NewMemoryImage()
	entry := emulator.LoadDefaultImage(mem, base)
	emu := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem, EntryPoint: entry, StackStartAddress: 0x80100000})
	m := monitor.New(emu, monitor.Options{Output: io.Discard})

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := debugServer.New(m).ServeConn(ctx, serverSide)
	client := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), noopHandler{})
	t.Cleanup(func() {
		client.Close()
		cancel()
	})
	return client, done
}

func call(t *testing.T, client *jsonrpc2.Conn, method string, params, result interface{}) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Call(ctx, method, params, result)
}

func rpcCode(t *testing.T, err error) int64 {
	t.Helper()
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected a jsonrpc2 error, got %v", err)
	}
	return rpcErr.Code
}

func TestInitialize(t *testing.T) {
	client, _ := dial(t)

	var res debugServer.InitializeResult
	if err := call(t, client, "initialize", map[string]int{"processId": 1}, &res); err != nil {
		t.Fatal(err)
	}
	if res.Session == "" {
		t.Errorf("expected a session id")
	}
	if len(res.Registers) != 32 || res.Registers[10] != "a0" {
		t.Errorf("unexpected register names %v", res.Registers)
	}
}

func TestEvaluate(t *testing.T) {
	client, _ := dial(t)

	tests := []struct {
		expression string
		value      uint64
		hex        string
	}{
		{"1 + 2 * 3", 7, "0x7"},
		{"$pc", base, "0x80000000"},
		{"0x10 - 1", 15, "0xf"},
		{"-1", ^uint64(0), "0xffffffffffffffff"},
	}

	for _, test := range tests {
		var res debugServer.EvaluateResult
		if err := call(t, client, "evaluate", debugServer.ExpressionParams{Expression: test.expression}, &res); err != nil {
			t.Errorf("evaluate %q: %v", test.expression, err)
			continue
		}
		if res.Value != test.value || res.Hex != test.hex {
			t.Errorf("evaluate %q: got %d %s, want %d %s", test.expression, res.Value, res.Hex, test.value, test.hex)
		}
	}
}

func TestErrors(t *testing.T) {
	client, _ := dial(t)

	err := call(t, client, "evaluate", debugServer.ExpressionParams{Expression: "1 +"}, nil)
	if code := rpcCode(t, err); code != debugServer.CodeEvaluationFailed {
		t.Errorf("expected evaluation failure code, got %d", code)
	}

	err = call(t, client, "evaluate", nil, nil)
	if code := rpcCode(t, err); code != jsonrpc2.CodeInvalidParams {
		t.Errorf("expected invalid params code, got %d", code)
	}

	err = call(t, client, "frobnicate", nil, nil)
	if code := rpcCode(t, err); code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("expected method not found code, got %d", code)
	}

	err = call(t, client, "removeWatchpoint", debugServer.WatchpointParams{ID: 3}, nil)
	if code := rpcCode(t, err); code != jsonrpc2.CodeInvalidParams {
		t.Errorf("expected invalid params code, got %d", code)
	}
}

func TestTokenize(t *testing.T) {
	client, _ := dial(t)

	var res struct {
		Tokens []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"tokens"`
	}
	if err := call(t, client, "tokenize", debugServer.ExpressionParams{Expression: "-$a0"}, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Tokens) != 2 || res.Tokens[0].Type != "neg" || res.Tokens[1].Type != "register" || res.Tokens[1].Text != "$a0" {
		t.Errorf("unexpected tokens %+v", res.Tokens)
	}
}

func TestStepAndContinue(t *testing.T) {
	client, _ := dial(t)

	var step monitor.RunResult
	if err := call(t, client, "step", debugServer.StepParams{Count: 2}, &step); err != nil {
		t.Fatal(err)
	}
	if step.State != "stopped" || step.PC != base+8 {
		t.Errorf("after two steps: got %s at %#x", step.State, step.PC)
	}

	var cont monitor.RunResult
	if err := call(t, client, "continue", nil, &cont); err != nil {
		t.Fatal(err)
	}
	if cont.State != "end" || cont.HaltRet != 0 || cont.PC != base+12 {
		t.Errorf("after continue: got %+v", cont)
	}

	if err := call(t, client, "continue", nil, &cont); err != nil {
		t.Fatal(err)
	}
	if !cont.Ended {
		t.Errorf("expected a finished program to report ended")
	}

	var regs []monitor.Register
	if err := call(t, client, "registers", nil, &regs); err != nil {
		t.Fatal(err)
	}
	if len(regs) != 33 || regs[5].Name != "t0" || regs[5].Value != base {
		t.Errorf("unexpected registers %v", regs)
	}
}

func TestWatchpoints(t *testing.T) {
	client, _ := dial(t)

	var wp watchpoint.Watchpoint
	if err := call(t, client, "setWatchpoint", debugServer.ExpressionParams{Expression: "$t0"}, &wp); err != nil {
		t.Fatal(err)
	}
	if wp.No != 0 || wp.Expression != "$t0" {
		t.Errorf("unexpected watchpoint %+v", wp)
	}

	var res monitor.RunResult
	if err := call(t, client, "continue", nil, &res); err != nil {
		t.Fatal(err)
	}
	if res.State != "stopped" || res.PC != base+4 {
		t.Errorf("expected to stop after auipc, got %s at %#x", res.State, res.PC)
	}

	var list []watchpoint.Watchpoint
	if err := call(t, client, "watchpoints", nil, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Value != base || list[0].Hits != 1 {
		t.Errorf("unexpected watchpoints %+v", list)
	}

	if err := call(t, client, "removeWatchpoint", debugServer.WatchpointParams{ID: 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := call(t, client, "watchpoints", nil, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no watchpoints, got %+v", list)
	}
}

func TestReadMemory(t *testing.T) {
	client, _ := dial(t)

	var res debugServer.ReadMemoryResult
	if err := call(t, client, "readMemory", debugServer.ReadMemoryParams{Address: base, Count: 2}, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Words) != 2 || uint32(res.Words[0]) != 0x00000297 {
		t.Errorf("unexpected words %#x", res.Words)
	}

	err := call(t, client, "readMemory", debugServer.ReadMemoryParams{Address: 0x1000, Count: 1}, nil)
	if code := rpcCode(t, err); code != debugServer.CodeEvaluationFailed {
		t.Errorf("expected evaluation failure code, got %d", code)
	}
}

func TestExit(t *testing.T) {
	client, done := dial(t)

	if err := call(t, client, "exit", nil, nil); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not close the connection")
	}
}
