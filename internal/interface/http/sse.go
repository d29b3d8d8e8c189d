package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

// templatePayload is the JSON body of a tpl event.
type templatePayload struct {
	Name          string `json:"name"`
	TemplateProps any    `json:"templateProps"`
}

// sseWriter frames outbound events as server-sent events. Text payloads go
// out raw, template payloads as JSON, matching the UI contract.
type sseWriter struct {
	writer  gin.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(c *gin.Context) (*sseWriter, bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil, false
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")
	return &sseWriter{writer: c.Writer, flusher: flusher}, true
}

func (w *sseWriter) writeText(text string) {
	w.writer.Write([]byte("event: text\ndata: "))
	w.writer.Write([]byte(text))
	w.writer.Write([]byte("\n\n"))
	w.flusher.Flush()
}

func (w *sseWriter) writeTemplate(name string, props any) error {
	payload, err := json.Marshal(templatePayload{Name: name, TemplateProps: props})
	if err != nil {
		return err
	}
	w.writer.Write([]byte("event: tpl\ndata: "))
	w.writer.Write(payload)
	w.writer.Write([]byte("\n\n"))
	w.flusher.Flush()
	return nil
}

func (w *sseWriter) writeEvent(event *chat.Event) error {
	if event.Kind == chat.EventTemplate {
		return w.writeTemplate(event.Name, event.Props)
	}
	w.writeText(event.Text)
	return nil
}
