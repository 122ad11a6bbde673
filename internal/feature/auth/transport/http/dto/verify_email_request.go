package dto

// VerifyEmailReq carries the token taken from the verification link's query string.
type VerifyEmailReq struct {
	Token string `json:"token" binding:"required"`
}
