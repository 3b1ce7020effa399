package bridge

import (
	"context"

	"github.com/ajanottaja/identity-bridge/internal/logger"
	"go.uber.org/zap"
)

// Service runs the registration and login bridges.
type Service struct {
	accounts AccountClient
}

// NewService creates a Service backed by accounts.
func NewService(accounts AccountClient) *Service {
	return &Service{accounts: accounts}
}

// Register creates the downstream account for a newly registered user. It
// makes one call and never retries; the account id is returned for
// observability only.
func (s *Service) Register(ctx context.Context, event RegistrationEvent) (*Account, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(zap.String("user_id", event.User.UserID.String()))

	acct, err := s.accounts.CreateAccount(ctx, event.User.UserID, event.User.Email)
	if err != nil {
		log.Warn("account sync failed", zap.String("code", Code(err)), zap.Error(err))
		return nil, err
	}

	log.Info("New ajanottaja user created", zap.String("account_id", acct.ID))
	return acct, nil
}

// Login looks up the user's downstream account and sets SubjectClaim on the
// access token and the identity token. On failure no claim is set.
func (s *Service) Login(ctx context.Context, event LoginEvent, tokens TokenAPI) (*Account, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(zap.String("user_id", event.User.UserID.String()))

	acct, err := s.accounts.GetAccount(ctx, event.User.UserID)
	if err != nil {
		log.Warn("account lookup failed", zap.String("code", Code(err)), zap.Error(err))
		return nil, err
	}

	tokens.SetCustomClaim(AccessToken, SubjectClaim, acct.ID)
	tokens.SetCustomClaim(IDToken, SubjectClaim, acct.ID)
	log.Info("account linked to session", zap.String("account_id", acct.ID))
	return acct, nil
}
