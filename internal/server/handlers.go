package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mhpenta/tryon"
)

type imageResponse struct {
	Image string `json:"image"`
}

type wardrobeResponse struct {
	Categories []tryon.Category `json:"categories"`
	Items      tryon.Wardrobe   `json:"items"`
}

type modelImageRequest struct {
	PhotoURL string `json:"photoUrl"`
}

type recommendationRequest struct {
	History []tryon.ChatMessage `json:"history"`
}

type outfitImageRequest struct {
	ModelImage        string `json:"modelImage"`
	OutfitDescription string `json:"outfitDescription"`
}

type createSessionRequest struct {
	ModelImage string `json:"modelImage"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type sessionResponse struct {
	ID         string              `json:"id"`
	ModelImage string              `json:"modelImage"`
	History    []tryon.ChatMessage `json:"history"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWardrobe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wardrobeResponse{
		Categories: tryon.Categories,
		Items:      s.wardrobe,
	})
}

// handleModelImage accepts a multipart upload in field "photo" or a JSON body
// naming a photo URL.
func (s *Server) handleModelImage(w http.ResponseWriter, r *http.Request) {
	photo, err := s.readPhoto(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	image, err := s.stylist.GenerateModelImage(r.Context(), photo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: image})
}

func (s *Server) readPhoto(r *http.Request) (tryon.InputImage, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("photo")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return tryon.InputImage{}, &requestError{status: http.StatusRequestEntityTooLarge, err: err}
			}
			return tryon.InputImage{}, badRequest("missing photo upload: %v", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return tryon.InputImage{}, badRequest("failed to read photo upload: %v", err)
		}
		return tryon.NewInputImage(data, header.Header.Get("Content-Type"), header.Filename), nil
	}

	var req modelImageRequest
	if err := decodeJSON(r, &req); err != nil {
		return tryon.InputImage{}, err
	}
	if strings.TrimSpace(req.PhotoURL) == "" {
		return tryon.InputImage{}, badRequest("photoUrl is required")
	}

	if err := s.checkPhotoURL(req.PhotoURL); err != nil {
		return tryon.InputImage{}, err
	}

	photo, err := tryon.FetchImage(r.Context(), s.cfg.HTTPClient, s.cfg.AssetsDir, req.PhotoURL)
	if err != nil {
		if errors.Is(err, tryon.ErrImageNotFound) || errors.Is(err, tryon.ErrInvalidMIMEType) ||
			errors.Is(err, tryon.ErrEmptyImageData) || errors.Is(err, tryon.ErrImageTooLarge) {
			return tryon.InputImage{}, err
		}
		return tryon.InputImage{}, &requestError{status: http.StatusBadGateway, err: err}
	}
	return photo, nil
}

// checkPhotoURL rejects remote photo URLs whose host is not in PhotoHosts.
// Local asset paths always pass.
func (s *Server) checkPhotoURL(raw string) error {
	if strings.HasPrefix(raw, "/") {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return badRequest("photoUrl must be a local asset path or an http(s) URL")
	}
	host := strings.ToLower(u.Hostname())
	if !slices.Contains(s.photoHosts, host) {
		return badRequest("photo host %q is not allowed", host)
	}
	return nil
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.stylist.GetOutfitRecommendation(r.Context(), s.wardrobe, req.History)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleOutfitImage(w http.ResponseWriter, r *http.Request) {
	var req outfitImageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	image, err := s.stylist.GenerateOutfitImage(r.Context(), req.ModelImage, req.OutfitDescription)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: image})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := tryon.ParseDataURI(req.ModelImage); err != nil {
		s.fail(w, r, err)
		return
	}

	conv := s.stylist.StartConversation(s.wardrobe, req.ModelImage)
	id := s.sessions.Create(conv)
	s.logger.Info("session created", "session_id", id)

	writeJSON(w, http.StatusCreated, sessionView(id, conv))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, err := s.sessions.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(id, conv))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(mux.Vars(r)["id"]) {
		s.fail(w, r, ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conv, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	turn, err := conv.Send(r.Context(), req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleSetSessionModelImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, err := s.sessions.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := tryon.ParseDataURI(req.ModelImage); err != nil {
		s.fail(w, r, err)
		return
	}

	conv.SetModelImage(req.ModelImage)
	writeJSON(w, http.StatusOK, sessionView(id, conv))
}

func sessionView(id string, conv *tryon.Conversation) sessionResponse {
	return sessionResponse{
		ID:         id,
		ModelImage: conv.ModelImage(),
		History:    conv.History(),
	}
}
