package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"MamaCare/authorization"
	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/session"
	"MamaCare/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns credentials and the session lifecycle.
type AuthService struct {
	store  db.Store
	proj   *projector
	issuer *authorization.Issuer
	hub    *session.Hub
	log    *zap.Logger
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return util.InvalidArgument(util.EMAIL_NOT_PROVIDED)
	}
	if len(password) < 8 {
		return util.InvalidArgument(util.PASSWORD_TOO_SHORT)
	}
	return nil
}

/*
* Normalize the email and validate the password
* Hash the password with bcrypt
* Create the login record and the patient profile in one transaction
* A second registration for the same email is a conflict
 */
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		return models.User{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	uid := uuid.NewString()
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		login := db.Document{
			"uid":            uid,
			"email":          email,
			"passwordHash":   string(hash),
			"failedAttempts": int64(0),
			"blocked":        false,
		}
		if err := tx.Create(ctx, util.LoginCollection, email, login); err != nil {
			return err
		}
		return tx.Create(ctx, util.UserCollection, uid, newUserDocument(email, name, role.Patient))
	})
	if errors.Is(err, db.ErrAlreadyExists) {
		return models.User{}, util.Conflict(util.CODE_EMAIL_EXISTS, util.EMAIL_ALREADY_REGISTERED)
	}
	if err != nil {
		s.log.Error("register failed", zap.String("email", email), zap.Error(err))
		return models.User{}, classify(err)
	}

	s.log.Info("user registered", zap.String("userId", uid))
	s.proj.refresh(ctx, uid)
	return s.proj.load(ctx, uid)
}

func newUserDocument(email, name string, r role.Role) db.Document {
	return db.Document{
		"name":               name,
		"email":              email,
		"emailVerified":      false,
		"role":               string(r),
		"currentPatientLoad": int64(0),
		"tokenVersion":       int64(0),
		"permissions":        role.Strings(role.DefaultPermissions(r)),
		"createdAt":          db.ServerTimestamp,
		"updatedAt":          db.ServerTimestamp,
	}
}

/*
* Fetch the login record by email
* A blocked login is refused before the password is checked
* A wrong password counts towards the lockout
* On success reset the counter, make sure a profile exists and issue a token
 */
func (s *AuthService) SignIn(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return models.LoginResponse{}, util.InvalidArgument(util.EMAIL_NOT_PROVIDED)
	}

	doc, err := s.store.Get(ctx, util.LoginCollection, email)
	if errors.Is(err, db.ErrNotFound) {
		return models.LoginResponse{}, util.Unauthenticated(util.INVALID_CREDENTIALS)
	}
	if err != nil {
		return models.LoginResponse{}, classify(err)
	}
	var login models.Login
	if err := db.Decode(doc, &login); err != nil {
		return models.LoginResponse{}, util.Unavailable(err)
	}
	if login.Blocked {
		return models.LoginResponse{}, &util.AppError{Kind: util.KindPermissionDenied, Code: util.CODE_LOGIN_BLOCKED, Message: util.LOGIN_BLOCKED}
	}

	if bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(req.Password)) != nil {
		return models.LoginResponse{}, s.recordFailure(ctx, login)
	}

	if login.FailedAttempts > 0 {
		if err := s.store.Update(ctx, util.LoginCollection, email, db.Mutation{
			Set: map[string]interface{}{"failedAttempts": int64(0)},
		}); err != nil {
			s.log.Warn("could not reset failed attempts", zap.String("userId", login.UID), zap.Error(err))
		}
	}

	user, err := s.ensureUser(ctx, login)
	if err != nil {
		return models.LoginResponse{}, err
	}

	id := IdentityOf(user)
	token, expiresAt, err := s.issuer.GenerateJWT(id)
	if err != nil {
		s.log.Error("token generation failed", zap.String("userId", user.ID), zap.Error(err))
		return models.LoginResponse{}, err
	}
	s.hub.SignIn(id)
	s.log.Info("user signed in", zap.String("userId", user.ID), zap.String("role", string(user.Role)))
	return models.LoginResponse{Token: token, ExpiresAt: expiresAt.Unix(), User: user}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, login models.Login) error {
	attempts := login.FailedAttempts + 1
	set := map[string]interface{}{"failedAttempts": attempts}
	if attempts >= util.MaxLoginAttempts {
		set["blocked"] = true
	}
	if err := s.store.Update(ctx, util.LoginCollection, login.ID, db.Mutation{Set: set}); err != nil {
		s.log.Warn("could not record failed attempt", zap.String("userId", login.UID), zap.Error(err))
	}
	if attempts >= util.MaxLoginAttempts {
		s.log.Warn("login blocked", zap.String("userId", login.UID), zap.Int64("attempts", attempts))
		return &util.AppError{Kind: util.KindPermissionDenied, Code: util.CODE_LOGIN_BLOCKED, Message: util.LOGIN_BLOCKED}
	}
	return util.Unauthenticated(util.INVALID_CREDENTIALS)
}

// ensureUser creates a profile with the unknown role when a login exists
// without one.
func (s *AuthService) ensureUser(ctx context.Context, login models.Login) (models.User, error) {
	user, err := s.proj.load(ctx, login.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return models.User{}, err
	}
	name := strings.SplitN(login.Email, "@", 2)[0]
	err = s.store.Create(ctx, util.UserCollection, login.UID, newUserDocument(login.Email, name, role.Unknown))
	if err != nil && !errors.Is(err, db.ErrAlreadyExists) {
		return models.User{}, classify(err)
	}
	s.log.Info("created missing profile", zap.String("userId", login.UID))
	s.proj.refresh(ctx, login.UID)
	return s.proj.load(ctx, login.UID)
}

// SignOut revokes every token issued to the caller so far by bumping the
// stored token version.
func (s *AuthService) SignOut(ctx context.Context, id authorization.Identity) error {
	err := s.store.Update(ctx, util.UserCollection, id.UID, db.Mutation{
		Inc: map[string]int64{"tokenVersion": 1},
		Set: map[string]interface{}{"updatedAt": db.ServerTimestamp},
	})
	if errors.Is(err, db.ErrNotFound) {
		return util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	if err != nil {
		s.log.Error("sign out failed", zap.String("userId", id.UID), zap.Error(err))
		return classify(err)
	}
	s.proj.refresh(ctx, id.UID)
	s.hub.SignOut(id)
	s.log.Info("user signed out", zap.String("userId", id.UID))
	return nil
}

/*
* A token is revoked when its version differs from the user's stored one
* Sign out and role changes bump the stored version
* A token for a user that no longer exists is revoked
 */
func (s *AuthService) Revoked(ctx context.Context, id authorization.Identity) (bool, error) {
	user, err := s.proj.load(ctx, id.UID)
	if errors.Is(err, util.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return id.TokenVersion != user.TokenVersion, nil
}

// Unblock clears the lockout for an email.
func (s *AuthService) Unblock(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return util.InvalidArgument(util.EMAIL_NOT_PROVIDED)
	}
	err := s.store.Update(ctx, util.LoginCollection, email, db.Mutation{
		Set: map[string]interface{}{"failedAttempts": int64(0), "blocked": false},
	})
	if errors.Is(err, db.ErrNotFound) {
		return util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	return classify(err)
}

func IdentityOf(u models.User) authorization.Identity {
	perms := role.FromStrings(u.Permissions)
	if len(perms) == 0 {
		perms = role.DefaultPermissions(role.Parse(string(u.Role)))
	}
	return authorization.Identity{
		UID:           u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Role:          role.Parse(string(u.Role)),
		Permissions:   perms,
		TokenVersion:  u.TokenVersion,
		IssuedAt:      time.Now().UTC(),
	}
}
