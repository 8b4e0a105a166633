package model

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Access  string    `json:"access" validate:"required"`
	Refresh string    `json:"refresh"`
	User    LoginUser `json:"user"`
}
