package ws

import (
	"net/http"

	"github.com/WithoutFrost/Eternal-Paradise-Project/api"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request and serves subscriptions until the connection closes. An id_token and provider
// query parameter authenticate the connection; without them it is a guest connection.
func Handler(repo *repository.Repository, authenticator api.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := ""
		vals := r.URL.Query()
		if idToken := vals.Get("id_token"); idToken != "" && authenticator != nil {
			id, err := authenticator.Authenticate(r.Context(), idToken, vals.Get("provider"))
			if err != nil {
				globals.AppLogger.Info("websocket authentication failed", "error", err)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			userId = id.UserId
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			globals.AppLogger.Error("websocket upgrade error", "error", err)
			return
		}
		// When this frame returns close the Websocket
		defer conn.Close() //nolint

		c := NewClient(repo, conn, userId)
		defer c.Close()
		c.Add(2)
		go c.ReadLoop()
		go c.WriteLoop()
		<-c.DoneChan()
		c.Wait()
		globals.AppLogger.Debug("websocket closed", "user", userId)
	}
}
