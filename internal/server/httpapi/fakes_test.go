package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/services"
)

type fakeAuth map[string]string

func (f fakeAuth) Authenticate(token string) (string, error) {
	if token == "" {
		return "", common.ErrorUnauthorized
	}
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", common.ErrInvalidToken
}

type fakeAccounts struct {
	err error

	lastIdentity string
	lastContact  models.Contact
	lastPicture  *media.Upload
	pictureBody  string
	promoted     bool
	profile      *services.Profile
	oldPass      string
	newPass      string
	notifID      int64
}

func (f *fakeAccounts) Register(ctx context.Context, email, fullName, password string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Account{ID: 1, Username: email, Email: email, FullName: fullName}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (f *fakeAccounts) RecoverPassword(ctx context.Context, email string) error { return f.err }

func (f *fakeAccounts) ResetPassword(ctx context.Context, identity, newPassword string) error {
	f.lastIdentity = identity
	f.newPass = newPassword
	return f.err
}

func (f *fakeAccounts) Verify(ctx context.Context, identity string) (*models.Account, error) {
	f.lastIdentity = identity
	if f.err != nil {
		return nil, f.err
	}
	return &models.Account{Username: identity}, nil
}

func (f *fakeAccounts) BecomePartner(ctx context.Context, identity string, c models.Contact) (bool, error) {
	f.lastIdentity = identity
	f.lastContact = c
	return f.promoted, f.err
}

func (f *fakeAccounts) Profile(ctx context.Context, identity string) (*services.Profile, error) {
	f.lastIdentity = identity
	return f.profile, f.err
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, identity, fullName, bio string, picture *media.Upload) error {
	f.lastIdentity = identity
	f.lastPicture = picture
	if picture != nil {
		b, _ := io.ReadAll(picture.Body)
		f.pictureBody = string(b)
	}
	return f.err
}

func (f *fakeAccounts) ChangePassword(ctx context.Context, identity, oldPassword, newPassword string) error {
	f.oldPass, f.newPass = oldPassword, newPassword
	return f.err
}

func (f *fakeAccounts) ClearNotifications(ctx context.Context, identity string) (int64, error) {
	return 2, f.err
}

func (f *fakeAccounts) MarkNotificationRead(ctx context.Context, identity string, notificationID int64) error {
	f.notifID = notificationID
	return f.err
}

func (f *fakeAccounts) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken != "ref" {
		return "", common.ErrorUnauthorized
	}
	return "new-access", nil
}

func (f *fakeAccounts) AuthorPublic(ctx context.Context, projectID int64) (*services.Profile, error) {
	return f.profile, f.err
}

type fakeProjects struct {
	err error

	lastInput services.ProjectInput
	lastID    int64
	lastIDs   []int64
	lastNote  string
	images    map[string]string
	list      []models.Project
}

func (f *fakeProjects) capture(in services.ProjectInput) {
	f.lastInput = in
	f.images = map[string]string{}
	for slot, u := range in.Images {
		b, _ := io.ReadAll(u.Body)
		f.images[slot] = u.ContentType + ":" + string(b)
	}
}

func (f *fakeProjects) Create(ctx context.Context, identity string, in services.ProjectInput) (*models.Project, error) {
	f.capture(in)
	return &models.Project{ID: 1}, f.err
}

func (f *fakeProjects) ListOwn(ctx context.Context, identity string) ([]models.Project, error) {
	return f.list, f.err
}

func (f *fakeProjects) Update(ctx context.Context, identity string, projectID int64, in services.ProjectInput) (*models.Project, error) {
	f.capture(in)
	f.lastID = projectID
	return &models.Project{ID: projectID}, f.err
}

func (f *fakeProjects) Delete(ctx context.Context, identity string, projectID int64) error {
	f.lastID = projectID
	return f.err
}

func (f *fakeProjects) ListAll(ctx context.Context) ([]models.Project, error) { return f.list, f.err }

func (f *fakeProjects) Search(ctx context.Context, term string) ([]models.Project, error) {
	f.lastNote = term
	return f.list, f.err
}

func (f *fakeProjects) Get(ctx context.Context, projectID int64) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.list[0], nil
}

func (f *fakeProjects) Like(ctx context.Context, identity string, projectID int64) error {
	f.lastID = projectID
	return f.err
}

func (f *fakeProjects) Solicit(ctx context.Context, identity string, projectIDs []int64, note string) error {
	f.lastIDs = projectIDs
	f.lastNote = note
	return f.err
}

type fakeIdentity struct {
	pair *services.TokenPair
	err  error

	code, state string
}

func (f *fakeIdentity) Begin(ctx context.Context) (string, error) {
	return "https://idp.example/auth?state=s1", f.err
}

func (f *fakeIdentity) Complete(ctx context.Context, code, state string) (*services.TokenPair, error) {
	f.code, f.state = code, state
	return f.pair, f.err
}

type harness struct {
	accounts *fakeAccounts
	projects *fakeProjects
	identity *fakeIdentity
	handler  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		accounts: &fakeAccounts{},
		projects: &fakeProjects{},
		identity: &fakeIdentity{},
	}
	srv := NewServer(":0", logging.New(logging.FormatJSON, io.Discard), fakeAuth{"good": "ana@example.com"},
		h.accounts, h.projects, h.identity)
	h.handler = srv.Routes()
	return h
}

func (h *harness) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) doJSON(method, target, token, body string) *httptest.ResponseRecorder {
	return h.do(method, target, token, strings.NewReader(body), "application/json")
}

func sampleProject() models.Project {
	return models.Project{
		ID:        7,
		Name:      "Moribana",
		Type:      "arrangement",
		CreatedOn: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Pictures:  models.KeyedMap{"file1": "https://content.example/p.png"},
		Orders:    3,
		Allow:     true,
		LikedBy:   models.KeyedMap{"2": "bob@example.com"},
		AuthorID:  1,
		Author: models.AuthorSummary{
			Username: "ana@example.com",
			FullName: "Ana",
			City:     "Recife",
			Picture:  "https://users.example/ana.png",
		},
	}
}
