package httpapi

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/server/auth"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
)

// maxUploadMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const maxUploadMemory = 32 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	pair, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenView{Key: pair.AccessToken, RefreshKey: pair.RefreshToken})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	acc, err := s.accounts.Register(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "account_id", acc.ID)
	writeJSON(w, http.StatusOK, map[string]string{"registration": "success", "user": acc.Username})
}

func (s *Server) recoverPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.accounts.RecoverPassword(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "email sent"})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), identityFrom(r.Context()), req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success"})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accounts.Verify(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"confirmation": "success", "user": acc.Username})
}

type partnerRequest struct {
	City            string `json:"city"`
	Tel             string `json:"tel"`
	PersonalAddress string `json:"personal_address"`
	Location        string `json:"location"`
	WorkAddress     string `json:"work_address"`
}

func (s *Server) becomePartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	promoted, err := s.accounts.BecomePartner(r.Context(), identityFrom(r.Context()), models.Contact{
		City:            req.City,
		Phone:           req.Tel,
		PersonalAddress: req.PersonalAddress,
		Location:        req.Location,
		WorkAddress:     req.WorkAddress,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !promoted {
		writeJSON(w, http.StatusOK, map[string]string{"response": "data updated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"success": "notification sent"})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	prof, err := s.accounts.Profile(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(prof))
}

// postUser updates the public profile for multipart bodies and changes the
// password for JSON bodies.
func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		s.updateProfile(w, r)
	case "application/json":
		s.changePassword(w, r)
	default:
		s.fail(w, r, fmt.Errorf("%w: unsupported content type %q", common.ErrorValidation, mediaType))
	}
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var picture *media.Upload
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		picture = &media.Upload{Body: file, ContentType: header.Header.Get("Content-Type"), Size: header.Size}
	case !errors.Is(err, http.ErrMissingFile):
		s.fail(w, r, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}

	err = s.accounts.UpdateProfile(r.Context(), identityFrom(r.Context()),
		r.FormValue("fullname"), r.FormValue("bio"), picture)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "data updated"})
}

type passwordChangeRequest struct {
	OldPassword string `json:"old_pass"`
	NewPassword string `json:"new_pass"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	err := s.accounts.ChangePassword(r.Context(), identityFrom(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": "updated"})
}

func (s *Server) deleteNotifications(w http.ResponseWriter, r *http.Request) {
	if _, err := s.accounts.ClearNotifications(r.Context(), identityFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"notifications": "deleted"})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID flexID `json:"notif_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.accounts.MarkNotificationRead(r.Context(), identityFrom(r.Context()), int64(req.ID)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success"})
}

// refresh expects the refresh token where access tokens normally go.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	access, err := s.accounts.Refresh(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenView{Key: access})
}

func (s *Server) authorPublic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	prof, err := s.accounts.AuthorPublic(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicAccountView(prof))
}
