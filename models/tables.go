package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"` // never exposed
	IsStaff      bool      `gorm:"default:false;index" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	Posts        []Post    `gorm:"foreignKey:AuthorID" json:"-"`
}

// FullName falls back to the username when no name was given.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

type Post struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID         uint       `gorm:"not null;index" json:"author_id"`
	Author           User       `gorm:"foreignKey:AuthorID" json:"author"`
	Title            string     `gorm:"size:250;not null" json:"title"`
	ShortDescription string     `gorm:"size:250;not null" json:"short_description"`
	FullDescription  string     `gorm:"type:text" json:"full_description"`
	Image            *string    `gorm:"size:400" json:"image,omitempty"`
	CreatedDate      time.Time  `gorm:"autoCreateTime;<-:create" json:"created_date"`
	PublishedDate    *time.Time `gorm:"index" json:"published_date"`
	Posted           bool       `gorm:"default:false;index" json:"posted"`
	Comments         []Comment  `gorm:"foreignKey:PostID" json:"-"`
}

func (p *Post) String() string { return p.Title }

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:250;not null" json:"username"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"-"`
	Moderated bool      `gorm:"default:false;index" json:"moderated"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) String() string { return c.Text }
