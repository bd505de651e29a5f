package services

import (
	"context"
	"log/slog"

	"chatd/domain"
	"chatd/moderation"
	"chatd/protocol"
	"chatd/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

type IChatService interface {
	Send(sender, text string) (domain.Message, error)
	Drain(login string) ([]domain.Message, error)
	SearchHistory(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error)
}

// ChatService relays text: a leading "@name " routes a private message,
// everything else fans out to all other registered logins. Outgoing text
// passes the moderation filter before it is stored.
type ChatService struct {
	mailbox   repositories.IMailboxStore
	directory repositories.IUserDirectory
	moderator moderation.Moderator
	log       *slog.Logger
}

func NewChatService(
	mailbox repositories.IMailboxStore,
	directory repositories.IUserDirectory,
	moderator moderation.Moderator,
	log *slog.Logger,
) IChatService {
	return &ChatService{mailbox: mailbox, directory: directory, moderator: moderator, log: log}
}

func (s *ChatService) Send(sender, text string) (domain.Message, error) {
	receiver, body, directed := protocol.SplitDirected(text)
	if !directed {
		body = text
	}

	sanitized, foundWords := s.moderator.Censor(body)
	langCode := whatlanggo.Detect(body).Lang.Iso6391()

	if len(foundWords) > 0 {
		s.log.Warn("Censored outgoing message",
			"sender", sender, "lang", langCode, "words", len(foundWords))
	} else {
		s.log.Debug("Relaying message", "sender", sender, "lang", langCode)
	}

	if directed {
		return s.mailbox.EnqueuePrivate(sender, receiver, sanitized)
	}

	records, err := s.directory.List()
	if err != nil {
		return domain.Message{}, err
	}
	// The sender never appears in their own broadcast's unread set.
	recipients := lo.FilterMap(records, func(r domain.UserRecord, _ int) (string, bool) {
		return r.Login, r.Login != sender
	})
	return s.mailbox.EnqueueBroadcast(sender, sanitized, recipients)
}

func (s *ChatService) Drain(login string) ([]domain.Message, error) {
	return s.mailbox.Drain(login)
}

func (s *ChatService) SearchHistory(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error) {
	return s.mailbox.Search(ctx, query, limit)
}
