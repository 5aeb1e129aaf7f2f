package models

import "time"

const (
	// DefaultProjectPicture fills the picture set of a project with no images.
	DefaultProjectPicture = "https://ikebana-app-content.s3-sa-east-1.amazonaws.com/static/mainlogo.png"
	// PlaceholderSlot is the slot the placeholder picture is stored under.
	PlaceholderSlot = "file1"
	// DefaultProjectType is used when no type is supplied.
	DefaultProjectType = "arrangement"
)

// Project is a published arrangement.
type Project struct {
	ID          int64
	Name        string
	Type        string
	CreatedOn   time.Time
	Pictures    KeyedMap
	Video       string
	Description string
	Orders      int
	Allow       bool
	LikedBy     KeyedMap
	AuthorID    int64

	// Author is filled by read queries that join the author row.
	Author AuthorSummary
}

// AuthorSummary is the part of the author exposed alongside a project.
type AuthorSummary struct {
	Username string
	FullName string
	City     string
	Picture  string
}

// Likes is the number of distinct accounts that liked the project.
func (p *Project) Likes() int {
	return p.LikedBy.Len()
}

// EnsurePicture inserts the placeholder when the picture set is empty, so a
// persisted project always has at least one picture.
func (p *Project) EnsurePicture() {
	if p.Pictures == nil {
		p.Pictures = KeyedMap{}
	}
	if p.Pictures.Len() == 0 {
		p.Pictures.Put(PlaceholderSlot, DefaultProjectPicture)
	}
}
