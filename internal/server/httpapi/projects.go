package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/services"
)

const removeMarker = "del"

// parseProjectForm reads the multipart project form. The returned closer
// releases the opened files and must be called once the input is consumed.
func parseProjectForm(r *http.Request) (services.ProjectInput, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return services.ProjectInput{}, func() {}, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	in := services.ProjectInput{
		Title:       r.FormValue("project_title"),
		Type:        r.FormValue("project_type"),
		Video:       r.FormValue("project_video"),
		Description: r.FormValue("project_desc"),
		Allow:       r.FormValue("project_allow") == "true",
		Images:      map[string]media.Upload{},
	}

	var opened []io.Closer
	release := func() {
		for _, c := range opened {
			c.Close()
		}
		r.MultipartForm.RemoveAll()
	}

	for slot, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		if !media.ValidSlot(slot) {
			release()
			return services.ProjectInput{}, func() {}, fmt.Errorf("%w: invalid picture slot %q", common.ErrorValidation, slot)
		}
		h := headers[0]
		f, err := h.Open()
		if err != nil {
			release()
			return services.ProjectInput{}, func() {}, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		opened = append(opened, f)
		in.Images[slot] = media.Upload{Body: f, ContentType: h.Header.Get("Content-Type"), Size: h.Size}
	}

	for key, values := range r.MultipartForm.Value {
		if media.ValidSlot(key) && len(values) > 0 && values[0] == removeMarker {
			in.Remove = append(in.Remove, key)
		}
	}
	slices.Sort(in.Remove)

	return in, release, nil
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	in, release, err := parseProjectForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer release()

	if _, err := s.projects.Create(r.Context(), identityFrom(r.Context()), in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success"})
}

func (s *Server) ownProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.projects.ListOwn(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectViews(ps))
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	in, release, err := parseProjectForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer release()

	id, err := parseID(r.FormValue("project_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if _, err := s.projects.Update(r.Context(), identityFrom(r.Context()), id, in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success"})
}

type projectRef struct {
	ProjectID flexID `json:"project_id"`
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	var req projectRef
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.projects.Delete(r.Context(), identityFrom(r.Context()), int64(req.ProjectID)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"delete": "success"})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.projects.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectViews(ps))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"string"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ps, err := s.projects.Search(r.Context(), req.Term)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectViews(ps))
}

func (s *Server) likeProject(w http.ResponseWriter, r *http.Request) {
	var req projectRef
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.projects.Like(r.Context(), identityFrom(r.Context()), int64(req.ProjectID)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success as logged"})
}

type solicitationRequest struct {
	ProjectIDs []flexID `json:"project_ids"`
	Message    string   `json:"message"`
}

func (s *Server) solicit(w http.ResponseWriter, r *http.Request) {
	var req solicitationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ids := make([]int64, 0, len(req.ProjectIDs))
	for _, id := range req.ProjectIDs {
		ids = append(ids, int64(id))
	}

	if err := s.projects.Solicit(r.Context(), identityFrom(r.Context()), ids, req.Message); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "success"})
}
