// Package rtdbtest provides an in-memory realtime database speaking the REST and event-stream protocol, for
// tests of code that depends on a remote store.
package rtdbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Server is a fake realtime database. Token, when set, must be passed as the auth query parameter.
type Server struct {
	*httptest.Server
	Token string

	mu     sync.Mutex
	tree   any
	nextID int
	subs   map[int]*subscriber
}

type subscriber struct {
	segs   []string
	events chan string
	done   chan struct{}
}

func NewServer() *Server {
	s := &Server{subs: make(map[int]*subscriber)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Subscribers returns the number of open event streams.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Revoke sends auth_revoked to every open stream.
func (s *Server) Revoke() {
	s.broadcast(func(*subscriber) string {
		return "event: auth_revoked\ndata: credential is no longer valid\n\n"
	})
}

// KeepAlive sends a keep-alive to every open stream.
func (s *Server) KeepAlive() {
	s.broadcast(func(*subscriber) string {
		return "event: keep-alive\ndata: null\n\n"
	})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.URL.Query().Get("auth") != s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Permission denied"})
		return
	}
	if !strings.HasSuffix(r.URL.Path, ".json") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path must end in .json"})
		return
	}
	segs := split(strings.TrimSuffix(r.URL.Path, ".json"))
	silent := r.URL.Query().Get("print") == "silent"

	switch r.Method {
	case http.MethodGet:
		if r.Header.Get("Accept") == "text/event-stream" {
			s.stream(w, r, segs)
			return
		}
		s.mu.Lock()
		value := materialize(get(s.tree, segs))
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, value)

	case http.MethodPut:
		var value any
		if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data; couldn't parse JSON object."})
			return
		}
		s.put(segs, value)
		if silent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, value)

	case http.MethodPatch:
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data; couldn't parse JSON object."})
			return
		}
		s.patch(segs, fields)
		if silent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, fields)

	case http.MethodDelete:
		s.put(segs, nil)
		writeJSON(w, http.StatusOK, nil)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, segs []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	sub := &subscriber{segs: segs, events: make(chan string, 16), done: make(chan struct{})}
	s.mu.Lock()
	initial := event("put", nil, materialize(get(s.tree, segs)))
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()
	defer func() {
		close(sub.done)
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, initial); err != nil {
		return
	}
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub.events:
			if _, err := fmt.Fprint(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if strings.HasPrefix(ev, "event: auth_revoked") {
				return
			}
		}
	}
}

func (s *Server) put(segs []string, value any) {
	s.mu.Lock()
	s.tree = setAt(s.tree, segs, objectify(value))
	s.notifyLocked(segs, func(rel []string) string {
		return event("put", rel, value)
	})
	s.mu.Unlock()
}

func (s *Server) patch(segs []string, fields map[string]any) {
	s.mu.Lock()
	for k, v := range fields {
		s.tree = setAt(s.tree, append(append([]string{}, segs...), split(k)...), objectify(v))
	}
	s.notifyLocked(segs, func(rel []string) string {
		return event("patch", rel, fields)
	})
	s.mu.Unlock()
}

// notifyLocked tells every stream that overlaps segs. Streams at or above the written location get the
// incremental event, streams below it get their full value.
func (s *Server) notifyLocked(segs []string, incremental func(rel []string) string) {
	for _, sub := range s.subs {
		var ev string
		switch {
		case hasPrefix(segs, sub.segs):
			ev = incremental(segs[len(sub.segs):])
		case hasPrefix(sub.segs, segs):
			ev = event("put", nil, materialize(get(s.tree, sub.segs)))
		default:
			continue
		}
		s.send(sub, ev)
	}
}

func (s *Server) broadcast(msg func(*subscriber) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		s.send(sub, msg(sub))
	}
}

func (s *Server) send(sub *subscriber, ev string) {
	select {
	case sub.events <- ev:
	case <-sub.done:
	}
}

func event(name string, rel []string, data any) string {
	raw, _ := json.Marshal(map[string]any{"path": "/" + strings.Join(rel, "/"), "data": data})
	return "event: " + name + "\ndata: " + string(raw) + "\n\n"
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func split(path string) []string {
	segs := make([]string, 0)
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func hasPrefix(segs, prefix []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i := range prefix {
		if segs[i] != prefix[i] {
			return false
		}
	}
	return true
}

func get(tree any, segs []string) any {
	for _, seg := range segs {
		m, ok := tree.(map[string]any)
		if !ok {
			return nil
		}
		tree = m[seg]
	}
	return tree
}

func objectify(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			if c := objectify(v); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make(map[string]any, len(n))
		for i, v := range n {
			if c := objectify(v); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return n
	}
}

func setAt(root any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	m, ok := root.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	if child := setAt(m[segs[0]], segs[1:], value); child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func materialize(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}
	max := -1
	sequential := true
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || strconv.Itoa(i) != k {
			sequential = false
			break
		}
		if i > max {
			max = i
		}
	}
	if sequential && max >= 0 && max < 2*len(m) {
		arr := make([]any, max+1)
		for k, v := range m {
			i, _ := strconv.Atoi(k)
			arr[i] = materialize(v)
		}
		return arr
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = materialize(v)
	}
	return out
}
