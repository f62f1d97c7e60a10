package model

type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	Posts       int    `json:"posts"`
	IsFollowing bool   `json:"isFollowing"`
}

func (p Profile) Author() Author {
	return Author{ID: p.ID, Username: p.Username, FullName: p.FullName, AvatarURL: p.AvatarURL}
}

type FollowResult struct {
	Followers   int  `json:"followers"`
	IsFollowing bool `json:"isFollowing"`
}

type OTPRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type OTPVerify struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code"`
}

type Session struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// UserStatus is the moderation state set from the admin portal.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserBanned    UserStatus = "banned"
)

type AdminUser struct {
	Profile
	Email  string     `json:"email,omitempty"`
	Status UserStatus `json:"status"`
}

type AdminStats struct {
	Users    int     `json:"users"`
	Posts    int     `json:"posts"`
	Events   int     `json:"events"`
	Listings int     `json:"listings"`
	Revenue  float64 `json:"revenue"`
}
