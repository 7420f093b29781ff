package models

// Login is keyed by the normalized email.
type Login struct {
	ID             string `json:"id" bson:"_id"`
	UID            string `json:"uid" bson:"uid"`
	Email          string `json:"email" bson:"email"`
	PasswordHash   string `json:"-" bson:"passwordHash"`
	FailedAttempts int64  `json:"failedAttempts" bson:"failedAttempts"`
	Blocked        bool   `json:"blocked" bson:"blocked"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}
