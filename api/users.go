package api

import (
	"net/http"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

func (s *Server) listUsers(r *http.Request) (interface{}, error) {
	users, err := s.repo.ListUsers(r.Context())
	return filtered(r, users, err)
}

func (s *Server) getUser(r *http.Request) (interface{}, error) {
	return s.repo.GetUser(r.Context(), vars(r, "id"))
}

func (s *Server) putUser(r *http.Request) (interface{}, error) {
	var user types.User
	if err := decodeBody(r, &user); err != nil {
		return nil, err
	}
	user.Id = vars(r, "id")
	if err := s.repo.EnsureUser(r.Context(), user); err != nil {
		return nil, err
	}
	return s.repo.GetUser(r.Context(), user.Id)
}

func (s *Server) patchUser(r *http.Request) (interface{}, error) {
	var update types.UserUpdate
	if err := decodeBody(r, &update); err != nil {
		return nil, err
	}
	return s.repo.UpdateUser(r.Context(), vars(r, "id"), update)
}

type gmFlag struct {
	GM bool `json:"gm"`
}

func (s *Server) getGM(r *http.Request) (interface{}, error) {
	gm, err := s.repo.IsUserGM(r.Context(), vars(r, "id"))
	if err != nil {
		return nil, err
	}
	return gmFlag{GM: gm}, nil
}

func (s *Server) putGM(r *http.Request) (interface{}, error) {
	var flag gmFlag
	if err := decodeBody(r, &flag); err != nil {
		return nil, err
	}
	if err := s.repo.SetUserGM(r.Context(), vars(r, "id"), flag.GM); err != nil {
		return nil, err
	}
	return flag, nil
}

func (s *Server) getStats(r *http.Request) (interface{}, error) {
	return s.repo.GetOrCreateStats(r.Context(), vars(r, "id"))
}

func (s *Server) patchStats(r *http.Request) (interface{}, error) {
	var update types.StatsUpdate
	if err := decodeBody(r, &update); err != nil {
		return nil, err
	}
	return s.repo.UpdateStats(r.Context(), vars(r, "id"), update)
}

func (s *Server) getLicenses(r *http.Request) (interface{}, error) {
	return s.repo.ReadLicenses(r.Context(), vars(r, "id"))
}

func (s *Server) generateLicenses(r *http.Request) (interface{}, error) {
	return s.repo.GenerateLicenses(r.Context(), vars(r, "id"))
}

func (s *Server) getAssignedLicense(r *http.Request) (interface{}, error) {
	return s.repo.GetAssignedLicense(r.Context(), vars(r, "id"))
}

type licenseRequest struct {
	Id string `json:"id"`
}

func (s *Server) putLicense(r *http.Request) (interface{}, error) {
	var req licenseRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := s.repo.SetUserLicense(r.Context(), vars(r, "id"), req.Id); err != nil {
		return nil, err
	}
	return s.repo.GetAssignedLicense(r.Context(), vars(r, "id"))
}

func (s *Server) getVisibility(r *http.Request) (interface{}, error) {
	v, err := s.repo.GetUserVisibility(r.Context(), vars(r, "id"))
	if err != nil {
		return nil, err
	}
	return v.Resolved(), nil
}

func (s *Server) putVisibility(r *http.Request) (interface{}, error) {
	var v types.Visibility
	if err := decodeBody(r, &v); err != nil {
		return nil, err
	}
	if err := s.repo.SetUserVisibility(r.Context(), vars(r, "id"), v); err != nil {
		return nil, err
	}
	return v.Resolved(), nil
}

type npcRequest struct {
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl"`
}

func (s *Server) createNPC(r *http.Request) (interface{}, error) {
	var req npcRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return s.repo.CreateNPC(r.Context(), req.Name, req.AvatarUrl)
}

func (s *Server) leaveOrg(r *http.Request) (interface{}, error) {
	return nil, s.repo.LeaveOrganization(r.Context(), vars(r, "id"))
}
