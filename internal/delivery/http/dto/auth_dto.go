package dto

// SignupRequest starts the OTP flow
type SignupRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// VerifyOTPRequest carries the code the user received
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// CompleteRegistrationRequest creates the account
type CompleteRegistrationRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Password  string  `json:"password"`
	APIKey    *string `json:"apiKey"`
	APISecret *string `json:"apiSecret"`
}

// SignInRequest represents the sign-in request payload
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MessageResponse is a bare acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is returned when a session is established
type AuthResponse struct {
	Message string       `json:"message"`
	User    *UserSummary `json:"user"`
}
