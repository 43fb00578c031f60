package api

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

type backgroundRequest struct {
	Url string `json:"url"`
}

type backgroundResponse struct {
	Kind types.BackgroundKind `json:"kind"`
	Url  string               `json:"url"`
}

func (s *Server) getSettings(r *http.Request) (interface{}, error) {
	return s.repo.Settings().GetSettings(r.Context())
}

func (s *Server) putBackground(r *http.Request) (interface{}, error) {
	var req backgroundRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	kind := types.BackgroundKind(vars(r, "kind"))
	if err := s.repo.Settings().SetBackgroundURL(r.Context(), kind, req.Url); err != nil {
		return nil, err
	}
	return backgroundResponse{Kind: kind, Url: req.Url}, nil
}

func (s *Server) uploadBackground(r *http.Request) (interface{}, error) {
	kind := types.BackgroundKind(vars(r, "kind"))
	file, header, err := formFile(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	url, err := s.repo.Settings().UploadBackground(r.Context(), kind, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, err
	}
	return backgroundResponse{Kind: kind, Url: url}, nil
}

func (s *Server) getUserSettings(r *http.Request) (interface{}, error) {
	return s.repo.Settings().GetUserSettings(r.Context(), vars(r, "id"))
}

func (s *Server) getEffectiveSettings(r *http.Request) (interface{}, error) {
	return s.repo.Settings().EffectiveSettings(r.Context(), vars(r, "id"))
}

func (s *Server) putUserBackground(r *http.Request) (interface{}, error) {
	var req backgroundRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	kind := types.BackgroundKind(vars(r, "kind"))
	if err := s.repo.Settings().SetUserBackgroundURL(r.Context(), vars(r, "id"), kind, req.Url); err != nil {
		return nil, err
	}
	return backgroundResponse{Kind: kind, Url: req.Url}, nil
}

func (s *Server) uploadUserBackground(r *http.Request) (interface{}, error) {
	kind := types.BackgroundKind(vars(r, "kind"))
	file, header, err := formFile(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	url, err := s.repo.Settings().UploadUserBackground(r.Context(), vars(r, "id"), kind, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, err
	}
	return backgroundResponse{Kind: kind, Url: url}, nil
}

// formFile returns the "file" part of a multipart upload.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", errBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return file, header, nil
}
