package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router returns a router serving every operation below /api.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	s.Register(router.PathPrefix("/api").Subrouter())
	return router
}

func (s *Server) Register(r *mux.Router) {
	r.Use(s.authorize)
	r.HandleFunc("/status", s.handle(s.status)).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handle(s.login)).Methods(http.MethodPost)

	r.HandleFunc("/users", s.handle(s.listUsers)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.handle(s.getUser)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.handle(s.putUser)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", s.handle(s.patchUser)).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}/gm", s.handle(s.getGM)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/gm", s.handle(s.putGM)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/stats", s.handle(s.getStats)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/stats", s.handle(s.patchStats)).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}/licenses", s.handle(s.getLicenses)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/licenses", s.handle(s.generateLicenses)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/license", s.handle(s.getAssignedLicense)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/license", s.handle(s.putLicense)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/visibility", s.handle(s.getVisibility)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/visibility", s.handle(s.putVisibility)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/notifications", s.handle(s.getNotifications)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/notifications", s.handle(s.postNotification)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/notifications/{nid}", s.handle(s.deleteNotification)).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id}/friends", s.handle(s.getFriends)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/friend-requests", s.handle(s.getFriendRequests)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/friend-requests", s.handle(s.postFriendRequest)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/friend-requests/sent", s.handle(s.getSentFriendRequests)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/friend-requests/sent/{rid}", s.handle(s.cancelFriendRequest)).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id}/friend-requests/{rid}/accept", s.handle(s.acceptFriendRequest)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/friend-requests/{rid}/reject", s.handle(s.rejectFriendRequest)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/org", s.handle(s.leaveOrg)).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id}/settings", s.handle(s.getUserSettings)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/settings/effective", s.handle(s.getEffectiveSettings)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/settings/background/{kind}", s.handle(s.putUserBackground)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/settings/background/{kind}", s.handle(s.uploadUserBackground)).Methods(http.MethodPost)

	r.HandleFunc("/npcs", s.handle(s.createNPC)).Methods(http.MethodPost)
	r.HandleFunc("/notifications", s.handle(s.broadcast)).Methods(http.MethodPost)
	r.HandleFunc("/duels", s.handle(s.announceDuel)).Methods(http.MethodPost)

	r.HandleFunc("/channels", s.handle(s.listChannels)).Methods(http.MethodGet)
	r.HandleFunc("/channels", s.handle(s.createChannel)).Methods(http.MethodPost)
	r.HandleFunc("/dms", s.handle(s.ensureDM)).Methods(http.MethodPost)
	r.HandleFunc("/channels/{id}/messages", s.handle(s.getMessages)).Methods(http.MethodGet)
	r.HandleFunc("/channels/{id}/messages", s.handle(s.postMessage)).Methods(http.MethodPost)

	r.HandleFunc("/posts", s.handle(s.listPosts)).Methods(http.MethodGet)
	r.HandleFunc("/posts", s.handle(s.createPost)).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", s.handle(s.getPost)).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", s.handle(s.patchPost)).Methods(http.MethodPatch)
	r.HandleFunc("/posts/{id}", s.handle(s.deletePost)).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id}/likes/{uid}", s.handle(s.likePost)).Methods(http.MethodPut)
	r.HandleFunc("/posts/{id}/likes/{uid}", s.handle(s.unlikePost)).Methods(http.MethodDelete)

	r.HandleFunc("/orgs", s.handle(s.listOrgs)).Methods(http.MethodGet)
	r.HandleFunc("/orgs", s.handle(s.createOrg)).Methods(http.MethodPost)
	r.HandleFunc("/orgs/{id}", s.handle(s.getOrg)).Methods(http.MethodGet)
	r.HandleFunc("/orgs/{id}/members/{uid}", s.handle(s.joinOrg)).Methods(http.MethodPut)

	r.HandleFunc("/settings", s.handle(s.getSettings)).Methods(http.MethodGet)
	r.HandleFunc("/settings/background/{kind}", s.handle(s.putBackground)).Methods(http.MethodPut)
	r.HandleFunc("/settings/background/{kind}", s.handle(s.uploadBackground)).Methods(http.MethodPost)
}
