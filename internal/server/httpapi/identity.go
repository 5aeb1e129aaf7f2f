package httpapi

import (
	"errors"
	"net/http"

	"github.com/sanguetsu/ikebana/internal/server/identity"
)

const unverifiedEmailMessage = "User email not avaiable or not verified by Google"

func (s *Server) oauthLogin(w http.ResponseWriter, r *http.Request) {
	uri, err := s.identity.Begin(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"request_uri": uri})
}

// oauthCallback answers with 200 and an explanatory body when the provider
// could not vouch for the user's e-mail.
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pair, err := s.identity.Complete(r.Context(), q.Get("code"), q.Get("state"))
	if errors.Is(err, identity.ErrEmailNotVerified) {
		writeJSON(w, http.StatusOK, map[string]string{"response": unverifiedEmailMessage})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenView{Key: pair.AccessToken, RefreshKey: pair.RefreshToken})
}
