package models

// Роли пользователей. Администраторы управляют инвентарём,
// но не могут получать и выдавать себе оружие.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User описывает пользователя системы.
type User struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DummyRegisterUser структура для регистрации пользователя.
type DummyRegisterUser struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLoginUser структура для входа пользователя.
type DummyLoginUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
