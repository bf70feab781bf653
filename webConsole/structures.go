package webConsole

// Message is sent by the page: a console line for "command", an expression for "evaluate".
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ConsoleMessage struct {
	Type string `json:"type"` // always "console"
	Text string `json:"text"`
}

type ResultMessage struct {
	Type  string `json:"type"` // always "result"
	Text  string `json:"text"`
	Value uint64 `json:"value"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
