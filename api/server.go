package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/WithoutFrost/Eternal-Paradise-Project/auth"
	"github.com/WithoutFrost/Eternal-Paradise-Project/filter"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/folkengine/goname"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

const maxUploadSize = 10 << 20

var errBadRequest = errors.New("bad request")

// Authenticator verifies login tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, idToken, provider string) (auth.Identity, error)
}

// Server maps HTTP requests onto repository operations.
type Server struct {
	repo    *repository.Repository
	auth    Authenticator
	newID   func() string
	newName func() string
	logger  hclog.Logger
}

// NewServer returns a server for repo. authenticator may be nil, in which case every login is a guest login.
func NewServer(repo *repository.Repository, authenticator Authenticator) *Server {
	return &Server{
		repo:    repo,
		auth:    authenticator,
		newID:   uuid.NewString,
		newName: func() string { return goname.New(goname.FantasyMap).FirstLast() },
		logger:  globals.AppLogger.Named("api"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidArgument), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnknownProvider), errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handle wraps an operation: a nil result without error is answered with 204.
func (s *Server) handle(fn func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if res == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return nil
}

func vars(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// filtered applies the optional filter query parameter to a list result.
func filtered[T any](r *http.Request, list []T, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return filter.Apply(f, list), nil
}

type statusResponse struct {
	Remote bool `json:"remote"`
}

func (s *Server) status(*http.Request) (interface{}, error) {
	return statusResponse{Remote: s.repo.Remote()}, nil
}

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// authorize verifies a bearer ID token when the request carries one; the provider is named in the
// X-Auth-Provider header. An authenticated user who is not a GM may only use the /users/{id} routes of their own
// id. Requests without a token are served unchecked.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := s.auth.Authenticate(r.Context(), token, r.Header.Get("X-Auth-Provider"))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %s", errUnauthorized, err))
			return
		}
		if target, ok := mux.Vars(r)["id"]; ok && target != id.UserId && isUserRoute(r) {
			gm, err := s.repo.IsUserGM(r.Context(), id.UserId)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if !gm {
				s.writeError(w, r, fmt.Errorf("%w: %s cannot act as %s", errForbidden, id.UserId, target))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isUserRoute(r *http.Request) bool {
	route := mux.CurrentRoute(r)
	if route == nil {
		return false
	}
	tpl, err := route.GetPathTemplate()
	return err == nil && strings.Contains(tpl, "/users/{id}")
}

type loginRequest struct {
	Provider string `json:"provider"`
	IdToken  string `json:"id_token"`
}

type loginResponse struct {
	User  types.User `json:"user"`
	Guest bool       `json:"guest"`
	GM    bool       `json:"gm"`
}

// login verifies the token and returns the matching user, creating it on first login. Requests without a token
// get a guest identity with a generated name, which is not stored.
func (s *Server) login(r *http.Request) (interface{}, error) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.IdToken == "" || s.auth == nil {
		return loginResponse{
			User:  types.User{Id: s.newID(), Name: s.newName() + " (guest)", Role: types.RolePlayer},
			Guest: true,
		}, nil
	}
	id, err := s.auth.Authenticate(r.Context(), req.IdToken, req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errUnauthorized, err)
	}
	ctx := r.Context()
	user, err := s.repo.GetUser(ctx, id.UserId)
	if errors.Is(err, repository.ErrNotFound) {
		user = types.User{Id: id.UserId, Name: id.Name, AvatarUrl: id.Picture, Role: types.RolePlayer}
		if user.Name == "" {
			user.Name = s.newName()
		}
		if err := s.repo.EnsureUser(ctx, user); err != nil {
			return nil, err
		}
		if _, err := s.repo.GetOrCreateStats(ctx, user.Id); err != nil {
			return nil, err
		}
		s.logger.Info("created user on first login", "user", user.Id)
	} else if err != nil {
		return nil, err
	}
	gm, err := s.repo.IsUserGM(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	return loginResponse{User: user, GM: gm}, nil
}
