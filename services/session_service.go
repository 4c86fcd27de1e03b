package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"messenger/ids"
	"messenger/repositories"
)

const maxSessionAttempts = 3

type ISessionService interface {
	Authorize(token string) (domain.Session, error)
}

type ITokenIssuer interface {
	Issue(sessionID domain.ID) (string, error)
	Verify(token string) (domain.ID, error)
}

type SessionService struct {
	repository repositories.ISessionRepository
	issuer     ITokenIssuer
	ids        ids.IGenerator
	log        *slog.Logger
}

func NewSessionService(repository repositories.ISessionRepository, issuer ITokenIssuer,
	generator ids.IGenerator, log *slog.Logger) *SessionService {
	return &SessionService{repository: repository, issuer: issuer, ids: generator, log: log}
}

// Authorize returns the session owning token, or a brand new session when the
// token is empty, forged, or unknown to this process.
func (s *SessionService) Authorize(token string) (domain.Session, error) {
	if token != "" {
		session, err := s.lookup(token)
		if err == nil {
			return session, nil
		}
		if !stderrors.Is(err, errors.ErrNotFound) && !stderrors.Is(err, errors.ErrInvalidToken) {
			return domain.Session{}, errors.Internal(errors.KindStore, err)
		}
		s.log.Debug("Unknown session token, creating a new session", "error", err)
	}
	return s.create()
}

func (s *SessionService) lookup(token string) (domain.Session, error) {
	if _, err := s.issuer.Verify(token); err != nil {
		return domain.Session{}, err
	}
	return s.repository.GetSessionByToken(token)
}

// create retries on token collision.
func (s *SessionService) create() (domain.Session, error) {
	var err error
	for attempt := 0; attempt < maxSessionAttempts; attempt++ {
		session := domain.Session{ID: s.ids.Next()}
		if session.Token, err = s.issuer.Issue(session.ID); err != nil {
			return domain.Session{}, errors.Internal(errors.KindOther, fmt.Errorf("token issuing failed: %w", err))
		}
		err = s.repository.CreateSession(session)
		if err == nil {
			return session, nil
		}
		if !stderrors.Is(err, errors.ErrDuplicateKey) {
			break
		}
	}
	return domain.Session{}, errors.Internal(errors.KindStore, err)
}
