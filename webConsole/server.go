// Package webConsole serves the monitor console to a browser over a websocket.
package webConsole

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/monitor"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
)

type Server struct {
	monitor      *monitor.Monitor
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

func New(m *monitor.Monitor, writeTimeout time.Duration) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		monitor:      m,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSocket)
	mux.HandleFunc("/", handleGetPage)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Connect to the monitor at http://localhost%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type connection struct {
	id      string
	conn    *websocket.Conn
	wsMutex sync.Mutex
	timeout time.Duration
}

func (c *connection) send(v interface{}) error {
	messageBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, messageBytes)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	c := &connection{id: uuid.NewString(), conn: conn, timeout: s.writeTimeout}
	log.Printf("web console %s connected from %s", c.id, r.RemoteAddr)
	defer log.Printf("web console %s disconnected", c.id)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.LogF("web console %s: read: %v", c.id, err)
			}
			return
		}

		message := Message{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("web console %s: json: %v", c.id, err)
			return
		}

		quit, err := s.handleMessage(c, message)
		if err != nil {
			log.Printf("web console %s: write: %v", c.id, err)
			return
		}
		if quit {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "monitor exited"),
				time.Now().Add(s.writeTimeout))
			return
		}
	}
}

func (s *Server) handleMessage(c *connection, message Message) (bool, error) {
	util.LogF("web console %s: %s %q", c.id, message.Type, message.Text)
	switch message.Type {
	case "command":
		out := &bytes.Buffer{}
		quit := s.monitor.ExecuteTo(out, message.Text)
		return quit, c.send(ConsoleMessage{Type: "console", Text: out.String()})
	case "evaluate":
		value, err := s.monitor.Evaluate("web", message.Text)
		res := ResultMessage{Type: "result", Text: message.Text, Value: value, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		return false, c.send(res)
	default:
		return false, c.send(ConsoleMessage{Type: "console", Text: fmt.Sprintf("Unknown message type: %s\n", message.Type)})
	}
}

func handleGetPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(htmlPage))
}

var htmlPage = `<html>
<head>
	<title>RISC-V Monitor</title>
</head>
<body style="background-color: #1E1E1E;">
	<h1 style="color: white;">RISC-V Monitor</h1>
	<div style="width: 980px; padding: 10px; color: white; font-size: 1.2em; font-family: monospace; background-color: black; height: 400px; overflow-y: auto; white-space: pre-wrap; border: 2px solid white;" id="console"></div>
	<input id="line" style="width: 1000px; margin-top: 10px; font-family: monospace; font-size: 1.2em;" placeholder="(nemu) help"/>

	<script>
		var socket = new WebSocket("ws://" + location.host + "/ws");
		var consoleElement = document.getElementById("console");
		var lineElement = document.getElementById("line");

		function append(text) {
			consoleElement.textContent += text;
			consoleElement.scrollTop = consoleElement.scrollHeight;
		}

		socket.onmessage = function(event) {
			var data = JSON.parse(event.data);
			if (data.type == "console") {
				append(data.text);
			} else if (data.type == "result") {
				append(data.ok ? data.value + "\n" : data.error + "\n");
			}
		};

		socket.onclose = function() {
			append("connection closed\n");
		};

		lineElement.addEventListener("keydown", function(event) {
			if (event.key != "Enter") {
				return;
			}
			append("(nemu) " + lineElement.value + "\n");
			socket.send(JSON.stringify({type: "command", text: lineElement.value}));
			lineElement.value = "";
		});
	</script>
</body>
</html>
`
