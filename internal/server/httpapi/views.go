package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/services"
)

// flexID accepts an id sent either as a JSON number or as a string.
type flexID int64

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid id %s", common.ErrorValidation, b)
	}
	*id = flexID(n)
	return nil
}

type notificationView struct {
	UserID  int64     `json:"user_id"`
	User    string    `json:"user"`
	ID      int64     `json:"id"`
	SentOn  time.Time `json:"sended_on"`
	Content string    `json:"content"`
	IsRead  bool      `json:"is_read"`
}

// publicAccountView leaves out contact data and notifications. The username
// is the e-mail address, so it is private too.
type publicAccountView struct {
	ID             int64      `json:"id"`
	FullName       string     `json:"fullname"`
	IsPartner      bool       `json:"isPartner"`
	PartnerWhen    *time.Time `json:"partnerWhen"`
	CreatedOn      time.Time  `json:"createdOn"`
	Bio            string     `json:"bio"`
	Picture        string     `json:"picture"`
	City           string     `json:"city"`
	Location       string     `json:"location"`
	ProjectsAmount int        `json:"projects_amount"`
	TotalOrders    int        `json:"total_orders"`
}

type accountView struct {
	publicAccountView
	Username        string             `json:"username"`
	Email           string             `json:"email"`
	Tel             string             `json:"tel"`
	IsConfirmed     bool               `json:"isConfirmed"`
	WorkAddress     string             `json:"work_address"`
	PersonalAddress string             `json:"personal_address"`
	Notifications   []notificationView `json:"notifications"`
	IsOAuth         bool               `json:"is_oauth"`
}

func newPublicAccountView(p *services.Profile) publicAccountView {
	a := p.Account
	return publicAccountView{
		ID:             a.ID,
		FullName:       a.FullName,
		IsPartner:      a.Partner,
		PartnerWhen:    a.PartnerOn,
		CreatedOn:      a.CreatedOn,
		Bio:            a.Bio,
		Picture:        a.Picture,
		City:           a.City,
		Location:       a.Location,
		ProjectsAmount: p.Stats.Projects,
		TotalOrders:    p.Stats.TotalOrders,
	}
}

func newAccountView(p *services.Profile) accountView {
	a := p.Account
	notes := make([]notificationView, 0, len(p.Notifications))
	for _, n := range p.Notifications {
		notes = append(notes, notificationView{
			UserID:  n.AccountID,
			User:    a.Email,
			ID:      n.ID,
			SentOn:  n.SentOn,
			Content: n.Content,
			IsRead:  n.IsRead,
		})
	}
	return accountView{
		publicAccountView: newPublicAccountView(p),
		Username:          a.Username,
		Email:             a.Email,
		Tel:               a.Phone,
		IsConfirmed:       a.Confirmed,
		WorkAddress:       a.WorkAddress,
		PersonalAddress:   a.PersonalAddress,
		Notifications:     notes,
		IsOAuth:           a.IsExternal(),
	}
}

type projectView struct {
	ProjectID     int64           `json:"project_id"`
	Name          string          `json:"name"`
	Orders        int             `json:"orders"`
	Type          string          `json:"type"`
	Author        string          `json:"autor"`
	Likes         int             `json:"likes"`
	Description   string          `json:"description"`
	Pictures      models.KeyedMap `json:"pictures"`
	CreatedOn     time.Time       `json:"created_on"`
	Video         string          `json:"video"`
	AvailableOn   string          `json:"avaiable_on"`
	AuthorPicture string          `json:"autor_pic"`
	AuthorName    string          `json:"autor_fullname"`
	LikedBy       models.KeyedMap `json:"liked_by"`
	Allow         bool            `json:"allow"`
}

func newProjectView(p *models.Project) projectView {
	liked := p.LikedBy
	if liked == nil {
		liked = models.KeyedMap{}
	}
	return projectView{
		ProjectID:     p.ID,
		Name:          p.Name,
		Orders:        p.Orders,
		Type:          p.Type,
		Author:        p.Author.Username,
		Likes:         p.Likes(),
		Description:   p.Description,
		Pictures:      p.Pictures,
		CreatedOn:     p.CreatedOn,
		Video:         p.Video,
		AvailableOn:   p.Author.City,
		AuthorPicture: p.Author.Picture,
		AuthorName:    p.Author.FullName,
		LikedBy:       liked,
		Allow:         p.Allow,
	}
}

func newProjectViews(ps []models.Project) []projectView {
	out := make([]projectView, 0, len(ps))
	for i := range ps {
		out = append(out, newProjectView(&ps[i]))
	}
	return out
}

type tokenView struct {
	Key        string `json:"key"`
	RefreshKey string `json:"refresh_key,omitempty"`
}

var _ json.Unmarshaler = (*flexID)(nil)
