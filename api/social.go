package api

import (
	"net/http"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

type notificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) getNotifications(r *http.Request) (interface{}, error) {
	ns, err := s.repo.GetNotifications(r.Context(), vars(r, "id"))
	return filtered(r, ns, err)
}

func (s *Server) postNotification(r *http.Request) (interface{}, error) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.SendNotification(r.Context(), vars(r, "id"), req.Title, req.Body)
}

func (s *Server) deleteNotification(r *http.Request) (interface{}, error) {
	return nil, s.repo.DeleteNotification(r.Context(), vars(r, "id"), vars(r, "nid"))
}

// broadcast answers with the notifications that were written even if some recipients failed.
func (s *Server) broadcast(r *http.Request) (interface{}, error) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	sent, err := s.repo.SendGlobalNotification(r.Context(), req.Title, req.Body)
	if err != nil && len(sent) == 0 {
		return nil, err
	}
	return sent, nil
}

type duelRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) announceDuel(r *http.Request) (interface{}, error) {
	var req duelRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return nil, s.repo.AnnounceDuel(r.Context(), req.From, req.To)
}

func (s *Server) getFriends(r *http.Request) (interface{}, error) {
	return s.repo.ListFriends(r.Context(), vars(r, "id"))
}

func (s *Server) getFriendRequests(r *http.Request) (interface{}, error) {
	reqs, err := s.repo.ListFriendRequests(r.Context(), vars(r, "id"))
	return filtered(r, reqs, err)
}

func (s *Server) getSentFriendRequests(r *http.Request) (interface{}, error) {
	reqs, err := s.repo.ListSentFriendRequests(r.Context(), vars(r, "id"))
	return filtered(r, reqs, err)
}

type friendRequestRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *Server) postFriendRequest(r *http.Request) (interface{}, error) {
	var req friendRequestRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.SendFriendRequest(r.Context(), vars(r, "id"), req.To, req.Body)
}

func (s *Server) acceptFriendRequest(r *http.Request) (interface{}, error) {
	return nil, s.repo.AcceptFriendRequest(r.Context(), vars(r, "id"), vars(r, "rid"))
}

func (s *Server) rejectFriendRequest(r *http.Request) (interface{}, error) {
	return nil, s.repo.RejectFriendRequest(r.Context(), vars(r, "id"), vars(r, "rid"))
}

// cancelFriendRequest expects the recipient in the "to" query parameter.
func (s *Server) cancelFriendRequest(r *http.Request) (interface{}, error) {
	return nil, s.repo.CancelFriendRequest(r.Context(), vars(r, "id"), r.URL.Query().Get("to"), vars(r, "rid"))
}

func (s *Server) listChannels(r *http.Request) (interface{}, error) {
	channels, err := s.repo.ListAllChannels(r.Context())
	return filtered(r, channels, err)
}

func (s *Server) createChannel(r *http.Request) (interface{}, error) {
	var channel types.Channel
	if err := decodeBody(r, &channel); err != nil {
		return nil, err
	}
	return s.repo.CreateChannel(r.Context(), channel)
}

type dmRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (s *Server) ensureDM(r *http.Request) (interface{}, error) {
	var req dmRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.EnsureDMChannel(r.Context(), req.A, req.B)
}

func (s *Server) getMessages(r *http.Request) (interface{}, error) {
	messages, err := s.repo.GetMessagesOnce(r.Context(), vars(r, "id"))
	return filtered(r, messages, err)
}

type messageRequest struct {
	AuthorId string `json:"authorId"`
	Body     string `json:"body"`
}

func (s *Server) postMessage(r *http.Request) (interface{}, error) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.SendMessage(r.Context(), vars(r, "id"), req.AuthorId, req.Body)
}

func (s *Server) listPosts(r *http.Request) (interface{}, error) {
	posts, err := s.repo.ListPosts(r.Context())
	return filtered(r, posts, err)
}

type postRequest struct {
	AuthorId string `json:"authorId"`
	Body     string `json:"body"`
}

func (s *Server) createPost(r *http.Request) (interface{}, error) {
	var req postRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.CreatePost(r.Context(), req.AuthorId, req.Body)
}

func (s *Server) getPost(r *http.Request) (interface{}, error) {
	return s.repo.GetPost(r.Context(), vars(r, "id"))
}

func (s *Server) patchPost(r *http.Request) (interface{}, error) {
	var update types.PostUpdate
	if err := decodeBody(r, &update); err != nil {
		return nil, err
	}
	return s.repo.UpdatePost(r.Context(), vars(r, "id"), update)
}

func (s *Server) deletePost(r *http.Request) (interface{}, error) {
	return nil, s.repo.DeletePost(r.Context(), vars(r, "id"))
}

func (s *Server) likePost(r *http.Request) (interface{}, error) {
	return nil, s.repo.LikePost(r.Context(), vars(r, "id"), vars(r, "uid"))
}

func (s *Server) unlikePost(r *http.Request) (interface{}, error) {
	return nil, s.repo.UnlikePost(r.Context(), vars(r, "id"), vars(r, "uid"))
}

func (s *Server) listOrgs(r *http.Request) (interface{}, error) {
	orgs, err := s.repo.ListOrganizations(r.Context())
	return filtered(r, orgs, err)
}

type orgRequest struct {
	Name string `json:"name"`
}

func (s *Server) createOrg(r *http.Request) (interface{}, error) {
	var req orgRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.CreateOrganization(r.Context(), req.Name)
}

func (s *Server) getOrg(r *http.Request) (interface{}, error) {
	return s.repo.GetOrganization(r.Context(), vars(r, "id"))
}

func (s *Server) joinOrg(r *http.Request) (interface{}, error) {
	if err := s.repo.JoinOrganization(r.Context(), vars(r, "uid"), vars(r, "id")); err != nil {
		return nil, err
	}
	return s.repo.GetOrganization(r.Context(), vars(r, "id"))
}
