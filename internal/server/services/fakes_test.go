package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/config"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/notify"
	"github.com/sanguetsu/ikebana/internal/server/passhash"
	"github.com/sanguetsu/ikebana/internal/server/repositories/accounts"
	"github.com/sanguetsu/ikebana/internal/server/repositories/notifications"
	"github.com/sanguetsu/ikebana/internal/server/repositories/projects"
	"github.com/sanguetsu/ikebana/internal/server/repositories/refreshtokens"
)

// memStore backs every fake repository. Transactions are only observed
// through sqlmock, so a rollback does not undo writes here.
type memStore struct {
	mu       sync.Mutex
	accounts []*models.Account
	projects []*models.Project
	notes    []*models.Notification
	tokens   map[string]*models.RefreshToken
	nextID   int64

	failNotify bool
}

func newMemStore() *memStore {
	return &memStore{tokens: map[string]*models.RefreshToken{}}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- accounts ---

type fakeAccounts struct{ s *memStore }

func (f fakeAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.accounts {
		if x.Username == a.Username || x.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	if a.Picture == "" {
		a.Picture = models.DefaultAccountPicture
	}
	a.ID = f.s.id()
	a.CreatedOn = time.Now()
	cp := *a
	f.s.accounts = append(f.s.accounts, &cp)
	return a, nil
}

func (f fakeAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.accounts {
		if match(x) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ID == id })
}

func (f fakeAccounts) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.Username == username })
}

func (f fakeAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.Email == email })
}

func (f fakeAccounts) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ExternalID != nil && *a.ExternalID == externalID })
}

func (f fakeAccounts) Update(ctx context.Context, a *models.Account) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, x := range f.s.accounts {
		if x.ID == a.ID {
			cp := *a
			f.s.accounts[i] = &cp
			return nil
		}
	}
	return common.ErrorNotFound
}

// --- projects ---

type fakeProjects struct{ s *memStore }

func cloneProject(p *models.Project) *models.Project {
	cp := *p
	cp.Pictures = models.KeyedMap{}
	for k, v := range p.Pictures {
		cp.Pictures[k] = v
	}
	cp.LikedBy = models.KeyedMap{}
	for k, v := range p.LikedBy {
		cp.LikedBy[k] = v
	}
	return &cp
}

func (f fakeProjects) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.projects {
		if x.Name == p.Name {
			return nil, common.ErrorAlreadyExists
		}
	}
	if p.Type == "" {
		p.Type = models.DefaultProjectType
	}
	p.EnsurePicture()
	p.ID = f.s.id()
	p.CreatedOn = time.Now()
	f.s.projects = append(f.s.projects, cloneProject(p))
	return p, nil
}

func (f fakeProjects) get(id int64) *models.Project {
	for _, x := range f.s.projects {
		if x.ID == id {
			return x
		}
	}
	return nil
}

func (f fakeProjects) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p := f.get(id); p != nil {
		return cloneProject(p), nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeProjects) filter(match func(*models.Project) bool) []models.Project {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.Project{}
	for _, x := range f.s.projects {
		if match(x) {
			out = append(out, *cloneProject(x))
		}
	}
	return out
}

func (f fakeProjects) ListAll(ctx context.Context) ([]models.Project, error) {
	return f.filter(func(*models.Project) bool { return true }), nil
}

func (f fakeProjects) ListByAuthor(ctx context.Context, authorID int64) ([]models.Project, error) {
	return f.filter(func(p *models.Project) bool { return p.AuthorID == authorID }), nil
}

func (f fakeProjects) SearchByName(ctx context.Context, term string) ([]models.Project, error) {
	term = strings.ToLower(term)
	return f.filter(func(p *models.Project) bool { return strings.Contains(strings.ToLower(p.Name), term) }), nil
}

func (f fakeProjects) Update(ctx context.Context, p *models.Project) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, x := range f.s.projects {
		if x.ID == p.ID {
			p.EnsurePicture()
			f.s.projects[i] = cloneProject(p)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f fakeProjects) Delete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, x := range f.s.projects {
		if x.ID == id {
			f.s.projects = slices.Delete(f.s.projects, i, i+1)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f fakeProjects) AddLike(ctx context.Context, id, accountID int64, email string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p := f.get(id)
	if p == nil {
		return common.ErrorNotFound
	}
	p.LikedBy.Put(strconv.FormatInt(accountID, 10), email)
	return nil
}

func (f fakeProjects) IncrementOrders(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p := f.get(id)
	if p == nil {
		return common.ErrorNotFound
	}
	p.Orders++
	return nil
}

func (f fakeProjects) StatsByAuthor(ctx context.Context, authorID int64) (models.AccountStats, error) {
	var st models.AccountStats
	for _, p := range f.filter(func(p *models.Project) bool { return p.AuthorID == authorID }) {
		st.Projects++
		st.TotalOrders += p.Orders
	}
	return st, nil
}

// --- notifications ---

type fakeNotifications struct{ s *memStore }

func (f fakeNotifications) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failNotify {
		return nil, errors.New("db error: boom")
	}
	if n.Sender == "" {
		n.Sender = common.SystemSender
	}
	n.ID = f.s.id()
	n.SentOn = time.Now()
	cp := *n
	f.s.notes = append(f.s.notes, &cp)
	return n, nil
}

func (f fakeNotifications) ListByAccount(ctx context.Context, accountID int64) ([]models.Notification, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.Notification{}
	for i := len(f.s.notes) - 1; i >= 0; i-- {
		if f.s.notes[i].AccountID == accountID {
			out = append(out, *f.s.notes[i])
		}
	}
	return out, nil
}

func (f fakeNotifications) MarkRead(ctx context.Context, id, accountID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, n := range f.s.notes {
		if n.ID == id && n.AccountID == accountID {
			n.IsRead = true
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f fakeNotifications) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	before := len(f.s.notes)
	f.s.notes = slices.DeleteFunc(f.s.notes, func(n *models.Notification) bool { return n.AccountID == accountID })
	return int64(before - len(f.s.notes)), nil
}

func (s *memStore) notesFor(accountID int64) []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notes {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out
}

// --- refresh tokens ---

type fakeRefresh struct{ s *memStore }

func (f fakeRefresh) Create(ctx context.Context, accountID int64, token string, validity time.Duration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tokens[token] = &models.RefreshToken{AccountID: accountID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f fakeRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if t, ok := f.s.tokens[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeRefresh) Delete(ctx context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.tokens, token)
	return nil
}

// --- manager ---

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository { return fakeAccounts{m.s} }

func (m *fakeRepoManager) Projects(db dbx.DBTX) projects.Repository { return fakeProjects{m.s} }

func (m *fakeRepoManager) Notifications(db dbx.DBTX) notifications.Repository {
	return fakeNotifications{m.s}
}

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return fakeRefresh{m.s}
}

// --- mail and media ---

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return nil
}

func (m *fakeMailer) SendConfirmation(ctx context.Context, to, token string) error {
	return m.record("confirm", to, token)
}

func (m *fakeMailer) SendPartnerWelcome(ctx context.Context, to string) error {
	return m.record("partner", to, "")
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.record("reset", to, token)
}

type fakeMedia struct {
	keys []string
	err  error
}

func (m *fakeMedia) StoreAccountPicture(ctx context.Context, accountID int64, u media.Upload) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	ext, err := media.Extension(u.ContentType)
	if err != nil {
		return "", err
	}
	key := "profile_pictures/" + strconv.FormatInt(accountID, 10) + "_profile_pic." + ext
	m.keys = append(m.keys, key)
	return "https://users.example/" + key, nil
}

func (m *fakeMedia) StoreProjectPicture(ctx context.Context, projectID int64, slot string, u media.Upload) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	ext, err := media.Extension(u.ContentType)
	if err != nil {
		return "", err
	}
	key := "projects/" + strconv.FormatInt(projectID, 10) + "_" + slot + "_arrang_pic." + ext
	m.keys = append(m.keys, key)
	return "https://content.example/" + key, nil
}

func pngUpload() media.Upload {
	return media.Upload{Body: strings.NewReader("png"), ContentType: "image/png", Size: 3}
}


// --- fixture ---

type fixture struct {
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *memStore
	rm    *fakeRepoManager
	mail  *fakeMailer
	media *fakeMedia

	tokens   *TokenIssuer
	accounts *AccountService
	projects *ProjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logging.New(logging.FormatJSON, io.Discard)
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}

	f := &fixture{
		db:     db,
		mock:   mock,
		store:  newMemStore(),
		mail:   &fakeMailer{},
		media:  &fakeMedia{},
		tokens: NewTokenIssuer(cfg),
	}
	f.rm = &fakeRepoManager{s: f.store}
	composer := notify.NewComposer(log)
	f.accounts = NewAccountService(db, f.rm, f.tokens, composer, f.media, f.mail, log)
	f.projects = NewProjectService(db, f.rm, composer, f.media, log)
	return f
}

func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// seedAccount stores an account directly, bypassing the service.
func (f *fixture) seedAccount(t *testing.T, email, password string, confirmed, partner bool) *models.Account {
	t.Helper()
	digest, err := passhash.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	acc, err := fakeAccounts{f.store}.Create(context.Background(), &models.Account{
		Username:       email,
		Email:          email,
		FullName:       "Name " + email,
		PasswordDigest: digest,
		Confirmed:      confirmed,
		Partner:        partner,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func (f *fixture) seedProject(t *testing.T, author *models.Account, name string, allow bool) *models.Project {
	t.Helper()
	p, err := fakeProjects{f.store}.Create(context.Background(), &models.Project{
		Name:     name,
		AuthorID: author.ID,
		Allow:    allow,
		LikedBy:  models.KeyedMap{},
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}
