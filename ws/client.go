package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/filter"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 1000
)

// Client is a middleman between the websocket connection and the repository subscriptions it holds.
type Client struct {
	repo *repository.Repository

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	// UserId is the authenticated user, empty for guests.
	UserId string

	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
	logger   hclog.Logger

	mu     sync.Mutex
	subs   map[string]persistence.Unsubscribe
	closed bool

	// WaitGroup which keeps track of the running read/write loops.
	sync.WaitGroup
}

func NewClient(repo *repository.Repository, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		repo:     repo,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		UserId:   userID,
		ctx:      ctx,
		cancel:   cancel,
		doneChan: make(chan struct{}),
		logger:   globals.AppLogger.Named("ws"),
		subs:     make(map[string]persistence.Unsubscribe),
	}
}

// DoneChan is closed when the read loop has exited.
func (c *Client) DoneChan() <-chan struct{} {
	return c.doneChan
}

// push queues a message unless the connection is gone.
func (c *Client) push(event string, data interface{}) {
	raw, err := types.NewWireMessage(event, data)
	if err != nil {
		c.logger.Error("could not marshal message", "event", event, "error", err)
		return
	}
	select {
	case c.Send <- raw:
	case <-c.doneChan:
	}
}

func (c *Client) pushError(id string, err error) {
	c.push(types.WireEventError, types.WireError{Id: id, Message: err.Error()})
}

// ReadLoop pumps messages from the websocket connection to the subscription handling.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
		c.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("ws closed unexpected", "error", err)
			}
			return
		}
		message := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			c.pushError("", fmt.Errorf("could not unmarshal ws message: %w", err))
			continue
		}
		data := make(map[string]interface{})
		if len(message.Data) > 0 {
			if err := json.Unmarshal(message.Data, &data); err != nil {
				c.pushError("", fmt.Errorf("could not unmarshal %s data: %w", message.Event, err))
				continue
			}
		}
		switch message.Event {
		case types.WireEventSubscribe:
			req := types.SubscribeRequest{}
			if err := mapstructure.WeakDecode(data, &req); err != nil {
				c.pushError("", fmt.Errorf("could not decode subscribe request: %w", err))
				continue
			}
			if err := c.Subscribe(req); err != nil {
				c.pushError(req.Id, err)
			}

		case types.WireEventUnsubscribe:
			req := types.UnsubscribeRequest{}
			if err := mapstructure.WeakDecode(data, &req); err != nil {
				c.pushError("", fmt.Errorf("could not decode unsubscribe request: %w", err))
				continue
			}
			c.Unsubscribe(req.Id)

		default:
			c.pushError("", fmt.Errorf("unknown event %q", message.Event))
		}
	}
}

// WriteLoop pumps queued messages to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Done()
	}()
	for {
		select {
		case message := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.logger.Debug("could not write to ws connection, exiting write loop", "error", err)
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("could not send ping message, exiting write loop")
				return
			}

		case <-c.doneChan:
			return
		}
	}
}

// Subscribe starts the subscription described by req. A subscription with the same id is replaced.
func (c *Client) Subscribe(req types.SubscribeRequest) error {
	if req.Id == "" {
		return errors.New("subscription id is required")
	}
	if req.UserId == "" {
		req.UserId = c.UserId
	}
	if err := c.authorize(req.UserId); err != nil {
		return err
	}
	f, err := filter.Compile(req.Filter)
	if err != nil {
		return err
	}
	unsubscribe, err := c.start(req, f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		return errors.New("connection closed")
	}
	previous := c.subs[req.Id]
	c.subs[req.Id] = unsubscribe
	c.mu.Unlock()
	if previous != nil {
		previous()
	}
	c.logger.Debug("subscribed", "id", req.Id, "topic", req.Topic)
	return nil
}

// authorize lets an authenticated connection subscribe only to its own user topics unless it belongs to a GM.
// Guest connections are not restricted.
func (c *Client) authorize(userID string) error {
	if c.UserId == "" || userID == "" || userID == c.UserId {
		return nil
	}
	gm, err := c.repo.IsUserGM(c.ctx, c.UserId)
	if err != nil {
		return err
	}
	if !gm {
		return fmt.Errorf("%s cannot subscribe as %s", c.UserId, userID)
	}
	return nil
}

func (c *Client) start(req types.SubscribeRequest, f *filter.Filter) (persistence.Unsubscribe, error) {
	ctx := c.ctx
	settings := c.repo.Settings()
	if f != nil {
		switch req.Topic {
		case types.TopicVisibility, types.TopicSettings, types.TopicUserSettings:
			return nil, fmt.Errorf("topic %s does not take a filter", req.Topic)
		}
	}
	switch req.Topic {
	case types.TopicFeed:
		return c.repo.SubscribeFeed(ctx, listSender[types.Post](c, req, f))
	case types.TopicMessages:
		return c.repo.SubscribeMessages(ctx, req.ChannelId, listSender[types.Message](c, req, f))
	case types.TopicNotifications:
		return c.repo.SubscribeNotifications(ctx, req.UserId, listSender[types.Notification](c, req, f))
	case types.TopicFriendRequests:
		return c.repo.SubscribeFriendRequests(ctx, req.UserId, listSender[types.FriendRequest](c, req, f))
	case types.TopicVisibility:
		return c.repo.SubscribeUserVisibility(ctx, req.UserId, func(v types.Visibility) {
			c.push(req.Topic, types.SubscriptionUpdate{Id: req.Id, Items: v.Resolved()})
		})
	case types.TopicSettings:
		return settings.SubscribeSettings(ctx, valueSender[types.AppSettings](c, req))
	case types.TopicUserSettings:
		return settings.SubscribeUserSettings(ctx, req.UserId, valueSender[types.AppSettings](c, req))
	}
	return nil, fmt.Errorf("unknown topic %q", req.Topic)
}

func listSender[T any](c *Client, req types.SubscribeRequest, f *filter.Filter) func([]T) {
	return func(items []T) {
		c.push(req.Topic, types.SubscriptionUpdate{Id: req.Id, Items: filter.Apply(f, items)})
	}
}

func valueSender[T any](c *Client, req types.SubscribeRequest) func(T) {
	return func(value T) {
		c.push(req.Topic, types.SubscriptionUpdate{Id: req.Id, Items: value})
	}
}

func (c *Client) Unsubscribe(id string) {
	c.mu.Lock()
	unsubscribe, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		unsubscribe()
		c.logger.Debug("unsubscribed", "id", id)
	}
}

// Subscriptions returns the number of active subscriptions.
func (c *Client) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close cancels every subscription. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]persistence.Unsubscribe)
	c.mu.Unlock()
	for _, unsubscribe := range subs {
		unsubscribe()
	}
	c.cancel()
}
