package auth

// login request payload; Identifier is a login name or an email
type LoginRequest struct {
	Identifier string `json:"login" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=6"`
}

// registration request payload
type RegisterRequest struct {
	LoginName string `json:"login_name" validate:"required,min=3,max=50,alphanum"`
	FirstName string `json:"first_name" validate:"required,min=2,max=100"`
	LastName  string `json:"last_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Contact   string `json:"contact,omitempty" validate:"omitempty,max=20"`
}

// represents change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// represents forgot password request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// represents reset password request
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,uuid4"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
