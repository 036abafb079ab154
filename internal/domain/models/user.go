package models

import "time"

type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Patronymic   string
	Email        string
	PasswordHash string
	BirthDate    time.Time
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is what the API returns; no hash, no admin flag.
type PublicUser struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Patronymic string    `json:"patronymic,omitempty"`
	Email      string    `json:"email"`
	BirthDate  string    `json:"birth_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) ToPublic() PublicUser {
	return PublicUser{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Patronymic: u.Patronymic,
		Email:      u.Email,
		BirthDate:  u.BirthDate.Format("2006-01-02"),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (u *User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}
