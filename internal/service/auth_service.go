package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"shop-api/internal/auth"
	"shop-api/internal/models"
	"shop-api/internal/store"
	"shop-api/internal/util"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// letters, marks and digits in any script plus @ . + - _
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_.@+-]+$`)

// RegisterInput is the registration form
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AuthService registers users and issues tokens
type AuthService struct {
	store    *store.Store
	tokens   *auth.TokenIssuer
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthService(store *store.Store, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		validate: validator.New(),
		logger:   util.GetLogger(),
	}
}

// Register validates the form, creates the user and returns a fresh token pair
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, auth.TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verr, err := s.validateRegistration(ctx, in)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, auth.TokenPair{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, auth.TokenPair{}, NewValidationError("username", "A user with that username already exists.")
		}
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	util.UsersRegisteredTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, pair, nil
}

func (s *AuthService) validateRegistration(ctx context.Context, in RegisterInput) (*ValidationError, error) {
	verr := &ValidationError{}

	switch {
	case in.Username == "":
		verr.Add("username", msgRequired)
	case len([]rune(in.Username)) > 150:
		verr.Add("username", "Ensure this field has no more than 150 characters.")
	case !usernamePattern.MatchString(in.Username):
		verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		exists, err := s.store.UsernameExists(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			verr.Add("username", "A user with that username already exists.")
		}
	}

	if in.Email == "" {
		verr.Add("email", msgRequired)
	} else if err := s.validate.Var(in.Email, "email"); err != nil {
		verr.Add("email", "Enter a valid email address.")
	}

	if in.Password2 == "" {
		verr.Add("password2", msgRequired)
	}
	if in.Password == "" {
		verr.Add("password", msgRequired)
		return verr, nil
	}
	for _, problem := range auth.ValidatePassword(in.Password, map[string]string{
		"username":   in.Username,
		"email":      in.Email,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
	}) {
		verr.Add("password", problem)
	}
	if in.Password2 != "" && in.Password != in.Password2 {
		verr.Add("password", "Password fields didn't match.")
	}
	return verr, nil
}

// Login checks credentials and returns a fresh token pair
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, auth.TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	if username == "" || password == "" {
		util.AuthFailuresTotal.WithLabelValues("missing_credentials").Inc()
		return nil, auth.TokenPair{}, ErrMissingCredentials
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		util.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
		auth.CheckMissingUser(password)
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		util.AuthFailuresTotal.WithLabelValues("bad_password").Inc()
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	_, span := util.StartSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		return "", NewValidationError("refresh", msgRequired)
	}
	access, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		util.AuthFailuresTotal.WithLabelValues("invalid_refresh").Inc()
		return "", ErrUnauthenticated
	}
	return access, nil
}

// Authenticate resolves a bearer access token into the caller identity
func (s *AuthService) Authenticate(token string) (models.Identity, error) {
	id, err := s.tokens.ParseAccess(token)
	if err != nil {
		util.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
		return models.Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// CurrentUser loads the caller's account
func (s *AuthService) CurrentUser(ctx context.Context, id models.Identity) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}
