package rest

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Author   string `json:"author"`
	Password string `json:"password"`
}

// SignupRequest is the request body for user registration.
type SignupRequest struct {
	Author   string `json:"author"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// AuthResponse is returned by both login and signup.
type AuthResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// SessionResponse describes the identity bound to the ambient credentials.
// An empty Author means the session is not authenticated.
type SessionResponse struct {
	Author string `json:"author,omitempty"`
}

// Upload types

// UploadResponse carries the reference of a stored image.
type UploadResponse struct {
	ImageRef string `json:"imageRef"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
