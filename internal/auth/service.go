package auth

import (
	"context"

	"go.uber.org/zap"

	"pingguard/internal/api"
	"pingguard/internal/models"
	"pingguard/internal/session"
	"pingguard/pkg/errors"
	"pingguard/pkg/util"
)

// Service handles login, signup and logout against the auth endpoints, and
// owns the session lifecycle: created on successful login, destroyed on
// logout (expiry teardown belongs to the gateway).
type Service struct {
	api     *api.Client
	session *session.Store
	log     *zap.Logger
}

func NewService(client *api.Client, store *session.Store, log *zap.Logger) *Service {
	return &Service{api: client, session: store, log: log}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login validates input, authenticates, and saves the session. Validation
// failures never reach the network.
func (s *Service) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.Validation("username and password are required")
	}

	var resp loginResponse
	err := s.api.Post(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}

	if err := s.session.Save(resp.Token, username); err != nil {
		return errors.Wrap(err, "failed to save session")
	}
	s.log.Info("logged in", zap.String("username", username))
	return nil
}

// SignupInput carries the registration form fields.
type SignupInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Name            string
	Phone           string
}

// Signup validates the whole form client-side before calling the server:
// every field required, matching passwords of at least four characters, and
// a mobile number in 010-XXXX-XXXX form.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	if in.Username == "" || in.Password == "" || in.Name == "" || in.Phone == "" {
		return errors.Validation("all fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return errors.Validation("passwords do not match")
	}
	if len(in.Password) < 4 {
		return errors.Validation("password must be at least 4 characters")
	}
	if !util.ValidMobile(in.Phone) {
		return errors.Validation("phone number must match 010-XXXX-XXXX")
	}

	return s.api.Post(ctx, "/auth/signup", map[string]string{
		"username": in.Username,
		"password": in.Password,
		"name":     in.Name,
		"phone":    in.Phone,
	}, nil)
}

// Logout clears the session.
func (s *Service) Logout() error {
	username := s.session.Username()
	if err := s.session.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	s.log.Info("logged out", zap.String("username", username))
	return nil
}

// CurrentUser fetches the account projection. When the fetch fails for any
// reason other than an expired session, the stored username is returned as a
// display fallback.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.api.Get(ctx, "/users/me", &user); err != nil {
		if errors.KindOf(err) == errors.KindSessionExpired {
			return nil, err
		}
		s.log.Warn("failed to load current user", zap.Error(err))
		return &models.User{Username: s.session.Username(), Name: s.session.Username()}, nil
	}
	return &user, nil
}
