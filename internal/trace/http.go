package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware attaches a trace to every request, continuing the caller's
// traceparent or x-trace-id when present, and echoes the trace id.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromHeaders(r.Header)
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func fromHeaders(h http.Header) Context {
	if tc, ok := ParseTraceparent(h.Get(TraceparentHeader)); ok {
		return tc
	}
	if id := h.Get(TraceIDKey); id != "" {
		return Context{TraceID: id, SpanID: newSpanID(), ParentSpanID: h.Get(SpanIDKey)}
	}
	return New()
}

// Inject writes tc into outgoing request headers.
func Inject(h http.Header, tc Context) {
	h.Set(TraceparentHeader, tc.Traceparent())
	h.Set(TraceIDKey, tc.TraceID)
	h.Set(SpanIDKey, tc.SpanID)
}

// ExtractFromJSON reads the optional trace_id of a websocket command.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{TraceID: msg.TraceID, SpanID: newSpanID()}, true
}
