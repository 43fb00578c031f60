package persistence

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// RemoteError is a non-2xx answer of the realtime database.
type RemoteError struct {
	Op         string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %q: status %d: %s", e.Op, e.Path, e.StatusCode, e.Body)
}

// RemoteStore talks to a Firebase realtime database over its REST protocol. Subscriptions use the streaming
// (server-sent events) variant of GET.
type RemoteStore struct {
	client  *resty.Client
	stream  *resty.Client
	baseURL string
	token   string
	logger  hclog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ Store = (*RemoteStore)(nil)

func NewRemoteStore(cfg config.RemoteConfig) (*RemoteStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.DatabaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("invalid database url %q", cfg.DatabaseURL)
	}
	client := resty.New().SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	// streams stay open, so they must not inherit the request timeout
	stream := resty.New().SetHeader("Accept", "text/event-stream")
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteStore{
		client:  client,
		stream:  stream,
		baseURL: base,
		token:   cfg.AuthToken,
		logger:  globals.AppLogger.Named("remote"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (s *RemoteStore) Remote() bool {
	return true
}

func (s *RemoteStore) url(segs []string) string {
	escaped := make([]string, len(segs))
	for i, seg := range segs {
		escaped[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(escaped, "/") + ".json"
}

func (s *RemoteStore) request(ctx context.Context, client *resty.Client) *resty.Request {
	r := client.R().SetContext(ctx)
	if s.token != "" {
		r.SetQueryParam("auth", s.token)
	}
	return r
}

func (s *RemoteStore) check(op, path string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("remote %s %q: %w", op, path, err)
	}
	if resp.IsError() {
		return &RemoteError{Op: op, Path: path, StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return nil
}

func (s *RemoteStore) Read(ctx context.Context, path string) (any, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	resp, err := s.request(ctx, s.client).Get(s.url(segs))
	if err := s.check("read", path, resp, err); err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(resp.Body(), &value); err != nil {
		return nil, fmt.Errorf("remote read %q: %w", path, err)
	}
	return value, nil
}

func (s *RemoteStore) Write(ctx context.Context, path string, value any) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	node, err := normalize(value)
	if err != nil {
		return err
	}
	if node == nil {
		return s.Delete(ctx, path)
	}
	body, err := json.Marshal(node)
	if err != nil {
		return err
	}
	resp, err := s.request(ctx, s.client).
		SetQueryParam("print", "silent").
		SetBody(body).
		Put(s.url(segs))
	return s.check("write", path, resp, err)
}

func (s *RemoteStore) Patch(ctx context.Context, path string, fields map[string]any) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	if len(fields) == 0 {
		return nil
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	update := make(map[string]any, len(fields))
	for name, value := range fields {
		rel, err := splitPath(name)
		if err != nil {
			return err
		}
		if len(rel) == 0 {
			return fmt.Errorf("invalid patch field %q", name)
		}
		node, err := normalize(value)
		if err != nil {
			return err
		}
		// a JSON null deletes the child
		update[joinPath(rel)] = node
	}
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	resp, err := s.request(ctx, s.client).
		SetQueryParam("print", "silent").
		SetBody(body).
		Patch(s.url(segs))
	return s.check("patch", path, resp, err)
}

func (s *RemoteStore) Delete(ctx context.Context, path string) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	resp, err := s.request(ctx, s.client).Delete(s.url(segs))
	return s.check("delete", path, resp, err)
}

// Subscribe opens an event stream on path. The stream is not reopened when it breaks.
func (s *RemoteStore) Subscribe(ctx context.Context, path string, fn func(value any)) (Unsubscribe, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	resp, err := s.request(ctx, s.stream).SetDoNotParseResponse(true).Get(s.url(segs))
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("remote subscribe %q: %w", path, err)
	}
	if resp.IsError() {
		body, _ := io.ReadAll(io.LimitReader(resp.RawBody(), 4096))
		_ = resp.RawBody().Close()
		stop()
		cancel()
		return nil, &RemoteError{Op: "subscribe", Path: path, StatusCode: resp.StatusCode(), Body: strings.TrimSpace(string(body))}
	}
	go func() {
		defer stop()
		defer cancel()
		s.consume(ctx, path, resp.RawBody(), fn)
	}()
	return func() {
		stop()
		cancel()
	}, nil
}

type streamEvent struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

// consume reads server-sent events and keeps a private copy of the subtree up to date. After every put or patch
// the full value is handed to fn.
func (s *RemoteStore) consume(ctx context.Context, path string, body io.ReadCloser, fn func(any)) {
	defer body.Close()
	reader := bufio.NewReader(body)
	var tree any
	var event string
	var data strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("event stream ended", "path", path, "error", err)
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if event == "" {
				continue
			}
			var changed, ok bool
			tree, changed, ok = s.apply(path, tree, event, data.String())
			event = ""
			data.Reset()
			if !ok || ctx.Err() != nil {
				return
			}
			if changed {
				fn(materialize(tree))
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

// apply returns the updated tree, whether the event carried data, and false when the stream has to end.
func (s *RemoteStore) apply(path string, tree any, event, data string) (any, bool, bool) {
	switch event {
	case "put", "patch":
	case "keep-alive":
		return tree, false, true
	case "cancel", "auth_revoked":
		s.logger.Error("event stream closed by server", "path", path, "event", event, "data", data)
		return tree, false, false
	default:
		s.logger.Debug("ignoring stream event", "path", path, "event", event)
		return tree, false, true
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		s.logger.Error("could not decode stream event", "path", path, "event", event, "error", err)
		return tree, false, false
	}
	segs, err := splitPath(ev.Path)
	if err != nil {
		s.logger.Error("invalid path in stream event", "path", path, "event_path", ev.Path, "error", err)
		return tree, false, false
	}
	if event == "put" {
		return setAt(tree, segs, objectify(ev.Data)), true, true
	}
	fields, ok := ev.Data.(map[string]any)
	if !ok {
		s.logger.Error("patch event without object data", "path", path)
		return tree, false, false
	}
	for name, value := range fields {
		rel, err := splitPath(name)
		if err != nil {
			continue
		}
		tree = setAt(tree, append(append([]string{}, segs...), rel...), objectify(value))
	}
	return tree, true, true
}

// Close ends all open streams.
func (s *RemoteStore) Close() error {
	s.cancel()
	return nil
}
