package backend

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginData is the data block of a successful login.
type LoginData struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the body of POST /login. Data is nil when the backend
// omits it.
type LoginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *LoginData `json:"data"`
}

// LinkRequest is the payload for POST /google-auth.
type LinkRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	ProviderID string `json:"providerId"`
}

// LinkResponse is the application identity the backend assigns to an OAuth
// user. The backend answers either flat or wrapped in a data block.
type LinkResponse struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type linkEnvelope struct {
	LinkResponse
	Success *bool         `json:"success"`
	Message string        `json:"message"`
	Data    *LinkResponse `json:"data"`
}

// SignupRequest is the payload for POST /signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// VerifyEmailRequest is the payload for POST /verify-email.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"OTP"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}
