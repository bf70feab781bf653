package webConsole_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/monitor"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/webConsole"
)

func newServer(t *testing.T) (*httptest.Server, *monitor.Monitor) {
	t.Helper()
	mem := emulator.NewMemoryImage()
	entry := emulator.LoadDefaultImage(mem, emulator.DefaultMemoryBase)
	emu := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem, EntryPoint: entry, StackStartAddress: 0x80100000})
	m := monitor.New(emu, monitor.Options{Output: io.Discard})

	srv := httptest.NewServer(webConsole.New(m, time.Second).Handler())
	t.Cleanup(srv.Close)
	return srv, m
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestPage(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "text/html" || !strings.Contains(string(body), "/ws") {
		t.Errorf("unexpected page %q", resp.Header.Get("Content-Type"))
	}
}

func TestCommand(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	tests := []struct {
		line string
		want string
	}{
		{"p 6 * 7", "42 (0x2a)\n"},
		{"si 2", ""},
		{"c", "HIT GOOD TRAP at pc = 0x000000008000000c\n"},
		{"frob", "Unknown command 'frob'\n"},
	}

	for _, test := range tests {
		if err := conn.WriteJSON(webConsole.Message{Type: "command", Text: test.line}); err != nil {
			t.Fatal(err)
		}
		var res webConsole.ConsoleMessage
		if err := conn.ReadJSON(&res); err != nil {
			t.Fatal(err)
		}
		if res.Type != "console" || res.Text != test.want {
			t.Errorf("%q: got %q, want %q", test.line, res.Text, test.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	if err := conn.WriteJSON(webConsole.Message{Type: "evaluate", Text: "$sp + 8"}); err != nil {
		t.Fatal(err)
	}
	var res webConsole.ResultMessage
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != 0x80100008 {
		t.Errorf("unexpected result %+v", res)
	}

	if err := conn.WriteJSON(webConsole.Message{Type: "evaluate", Text: "4 / 0"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.OK || res.Error == "" {
		t.Errorf("expected a division error, got %+v", res)
	}
}

func TestQuitClosesConnection(t *testing.T) {
	srv, m := newServer(t)
	conn := dial(t, srv)

	if err := conn.WriteJSON(webConsole.Message{Type: "command", Text: "q"}); err != nil {
		t.Fatal(err)
	}
	var res webConsole.ConsoleMessage
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}

	if m.State() == emulator.StateQuit {
		t.Fatal("q over the web console quit the shared machine")
	}

	other := dial(t, srv)
	if err := other.WriteJSON(webConsole.Message{Type: "command", Text: "si"}); err != nil {
		t.Fatal(err)
	}
	if err := other.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.Text != "" {
		t.Errorf("si from another connection printed %q", res.Text)
	}
	if m.State() != emulator.StateStopped {
		t.Errorf("state = %v, expected stopped", m.State())
	}
}
