package util

import (
	"fmt"
	"log"
	"net/http"
	"strings"
)

var LoggingEnabled = false

// LogEndpoint receives trace messages as plain text POSTs. When empty, messages go to the standard logger.
var LogEndpoint = "http://localhost:8006/log"

func LogF(format string, args ...interface{}) {
	if !LoggingEnabled {
		return
	}
	message := fmt.Sprintf(format, args...)
	if LogEndpoint == "" {
		log.Println(message)
		return
	}
	go http.Post(LogEndpoint, "text/plain", strings.NewReader(message))
}
