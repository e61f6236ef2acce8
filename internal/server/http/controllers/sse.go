package controllers

import (
	"encoding/json"
	"net/http"
)

// sseSink writes Server-Sent Events to an HTTP response.
type sseSink struct {
	w http.ResponseWriter
}

func startSSE(w http.ResponseWriter) sseSink {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return sseSink{w: w}
}

// Send writes v as one JSON "data:" event.
func (s sseSink) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	_, err = s.w.Write([]byte("\n\n"))
	return err
}

// Flush pushes buffered events to the client.
func (s sseSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
