package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/mailer"
	"libraryadmin/internal/otp"
	"libraryadmin/internal/sms"
)

const minPasswordLen = 6

// Service handles admin registration, login and OTP based password reset.
type Service struct {
	repo   Repository
	tokens *Tokens
	otps   otp.Store
	otpTTL time.Duration
	mail   mailer.Sender
	sms    sms.Sender // optional
	log    zerolog.Logger
}

// NewService wires the auth workflows. smsSender may be nil.
func NewService(repo Repository, tokens *Tokens, otps otp.Store, otpTTL time.Duration, mail mailer.Sender, smsSender sms.Sender) *Service {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		otps:   otps,
		otpTTL: otpTTL,
		mail:   mail,
		sms:    smsSender,
		log:    logger.With("auth"),
	}
}

// RegisterInput is the payload of an admin sign-up.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Mobile   string `json:"mobile"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Admin, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" {
		return nil, apperrors.Validation("email, username and password are required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLen)
	}
	if _, err := s.repo.ByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("email already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Admin{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		Mobile:       strings.TrimSpace(in.Mobile),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", a.Username).Msg("admin registered")
	return a, nil
}

// RegistrationOpen reports whether no admin exists yet, so the first account can be created
// without a token.
func (s *Service) RegistrationOpen(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*Admin, TokenPair, error) {
	invalid := apperrors.Unauthorized("invalid username or password")
	a, err := s.repo.ByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, TokenPair{}, invalid
	}
	if err != nil {
		return nil, TokenPair{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, TokenPair{}, invalid
	}
	pair, err := s.tokens.Issue(a.ID, a.Username, RoleAdmin)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return a, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, apperrors.Unauthorized("invalid refresh token")
	}
	return s.tokens.Issue(claims.Subject, claims.Username, claims.Role)
}

// SendOTP stores a fresh code for email and delivers it by email, and by SMS when the
// account has a mobile number.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.Validation("email is required")
	}
	a, err := s.repo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := otp.Generate()
	if err != nil {
		return err
	}
	if err := s.otps.Put(ctx, email, code, s.otpTTL); err != nil {
		return err
	}

	text := fmt.Sprintf("Your OTP is %s. It will expire in %d minutes.", code, int(s.otpTTL.Minutes()))
	err = s.mail.Send(ctx, mailer.Message{
		To:      mail.Address{Name: a.Username, Address: a.Email},
		Subject: "Password Reset OTP",
		Text:    text,
	})
	if err != nil {
		return err
	}
	if s.sms != nil && a.Mobile != "" {
		if err := s.sms.Send(ctx, []string{a.Mobile}, text); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("otp sms delivery failed")
		}
	}
	return nil
}

// ResetPassword consumes the OTP and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" || newPassword == "" {
		return apperrors.Validation("email, otp and new password are required")
	}
	if len(newPassword) < minPasswordLen {
		return apperrors.Validation("password must be at least %d characters", minPasswordLen)
	}
	if err := s.otps.Consume(ctx, email, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, email, string(hash))
}
