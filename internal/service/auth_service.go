package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"agent-chat-go/internal/model"
	"agent-chat-go/internal/repository"
	"agent-chat-go/pkg/log"
	"agent-chat-go/pkg/oauth"
	"agent-chat-go/pkg/token"
)

// IdentityVerifier exchanges an OAuth code for a verified identity.
// It reports false instead of failing; see oauth.Client.Verify.
type IdentityVerifier interface {
	Verify(ctx context.Context, code, state string) (*oauth.Identity, bool)
}

// AuthService 接口定义了登录与凭证校验相关的业务操作。
type AuthService interface {
	// Login verifies the OAuth code, resolves the local user and issues a session token.
	Login(ctx context.Context, code, state string) (string, error)
	// Authenticate resolves a session token to an existing user.
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
	// ResolveOrCreateUser returns the user for identity, creating it on first sight.
	ResolveOrCreateUser(ctx context.Context, identity *oauth.Identity) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *token.Manager
	verifier IdentityVerifier
	inflight singleflight.Group
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, tokens *token.Manager, verifier IdentityVerifier) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		verifier: verifier,
	}
}

func (s *authService) Login(ctx context.Context, code, state string) (string, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return "", validationError("Missing code or state in the request")
	}

	identity, ok := s.verifier.Verify(ctx, code, state)
	if !ok {
		return "", upstreamError(UpstreamOAuth, "Error during authentication", nil)
	}

	user, err := s.ResolveOrCreateUser(ctx, identity)
	if err != nil {
		return "", err
	}

	accessToken, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", internalError("failed to issue token", err)
	}
	log.Infow("user authenticated", "userID", user.ID)
	return accessToken, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	userID, err := s.tokens.Validate(tokenString)
	switch {
	case errors.Is(err, token.ErrMalformedSubject):
		return nil, authenticationError("Invalid user id in token", err)
	case err != nil:
		return nil, authenticationError("Invalid token", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, authenticationError("User not found", err)
	}
	if err != nil {
		return nil, internalError("failed to load user", err)
	}
	return user, nil
}

// ResolveOrCreateUser collapses concurrent calls for one email inside this
// process; across processes the unique email index settles the race.
func (s *authService) ResolveOrCreateUser(ctx context.Context, identity *oauth.Identity) (*model.User, error) {
	if identity == nil || identity.Email == "" {
		return nil, authenticationError("Identity has no email", nil)
	}

	// the shared call must outlive whichever caller started it
	ctx = context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(identity.Email, func() (interface{}, error) {
		existing, err := s.userRepo.FindByEmail(ctx, identity.Email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		created, err := s.userRepo.CreateIfAbsent(ctx, &model.User{
			Email:   identity.Email,
			Name:    identity.Name,
			Picture: identity.Picture,
		})
		if err != nil {
			return nil, err
		}
		log.Infow("user created", "userID", created.ID)
		return created, nil
	})
	if err != nil {
		return nil, internalError("failed to resolve user", err)
	}

	// results are shared between waiters; hand each caller its own copy
	user := *v.(*model.User)
	return &user, nil
}
