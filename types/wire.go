package types

import "encoding/json"

const (
	WireEventSubscribe   = "subscribe"
	WireEventUnsubscribe = "unsubscribe"
	WireEventError       = "error"
)

// Subscription topics of the websocket endpoint.
const (
	TopicFeed           = "feed"
	TopicMessages       = "messages"
	TopicNotifications  = "notifications"
	TopicFriendRequests = "friend_requests"
	TopicVisibility     = "visibility"
	TopicSettings       = "settings"
	TopicUserSettings   = "user_settings"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SubscribeRequest is the payload of a subscribe message. Id is chosen by the client and echoed in every update.
type SubscribeRequest struct {
	Id        string `json:"id" mapstructure:"id"`
	Topic     string `json:"topic" mapstructure:"topic"`
	UserId    string `json:"user_id" mapstructure:"user_id"`
	ChannelId string `json:"channel_id" mapstructure:"channel_id"`
	Filter    string `json:"filter" mapstructure:"filter"` // expr evaluated per list item
}

type UnsubscribeRequest struct {
	Id string `json:"id" mapstructure:"id"`
}

// SubscriptionUpdate carries the full current value of a subscription.
type SubscriptionUpdate struct {
	Id    string      `json:"id"`
	Items interface{} `json:"items"`
}

type WireError struct {
	Id      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// NewWireMessage wraps data under the given event name.
func NewWireMessage(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: raw})
}
