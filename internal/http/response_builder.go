package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events, dispatched by htmx from the HX-Trigger header.
const (
	EventTableRefresh = "table:refresh"
	EventNotification = "show-notification"
)

// Notice is the kind of a toast notification.
type Notice string

const (
	NoticeSuccess Notice = "success"
	NoticeInfo    Notice = "info"
	NoticeWarning Notice = "warning"
	NoticeError   Notice = "error"
)

// duration is how long the page shows a notice, in milliseconds.
func (n Notice) duration() int {
	if n == NoticeWarning || n == NoticeError {
		return 5000
	}
	return 3000
}

// Reply collects an htmx response before it is written: status, HX-Trigger
// events, extra headers and an HTML body.
type Reply struct {
	status  int
	events  map[string]any
	headers http.Header
	body    string
}

func newReply() *Reply {
	return &Reply{status: http.StatusOK, events: map[string]any{}, headers: http.Header{}}
}

// WithStatus sets the status code.
func (r *Reply) WithStatus(code int) *Reply {
	r.status = code
	return r
}

// Trigger queues a client event with its detail.
func (r *Reply) Trigger(event string, detail any) *Reply {
	r.events[event] = detail
	return r
}

// Refresh asks the page to reload the table of view.
func (r *Reply) Refresh(view string) *Reply {
	return r.Trigger(EventTableRefresh, map[string]string{"view": view})
}

// Notify shows a toast. One notice per reply; a later call replaces it.
func (r *Reply) Notify(kind Notice, message string) *Reply {
	return r.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": kind.duration(),
	})
}

// PushURL records u in the browser history.
func (r *Reply) PushURL(u string) *Reply {
	r.headers.Set("HX-Push-Url", u)
	return r
}

// HTML sets an HTML body.
func (r *Reply) HTML(body string) *Reply {
	r.headers.Set("Content-Type", "text/html; charset=utf-8")
	r.body = body
	return r
}

// Write sends the reply. Events that fail to encode are dropped.
func (r *Reply) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range r.headers {
		h[name] = values
	}
	if len(r.events) > 0 {
		if encoded, err := json.Marshal(r.events); err == nil {
			h.Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(r.status)
	if r.body != "" {
		_, _ = w.Write([]byte(r.body))
	}
}

// errorReply is the inline error partial. message is escaped.
func errorReply(status int, message string) *Reply {
	return newReply().
		WithStatus(status).
		HTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// writeError writes the inline error partial.
func writeError(w http.ResponseWriter, status int, message string) {
	errorReply(status, message).Write(w)
}
