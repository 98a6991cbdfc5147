// Package notify delivers outbound notifications through the chat transport.
//
// Delivery failures are logged and dropped, never retried, and never block
// sibling recipients in a fan-out (a dead chat session must not starve the
// live one).
package notify

import (
	"context"

	"golang.org/x/time/rate"

	"catbot/internal/transport"
	"catbot/pkg/logx"
)

// Service wraps a transport.Sender with token-bucket rate limiting.
type Service struct {
	sender  transport.Sender
	limiter *rate.Limiter
	log     logx.Logger
}

// New creates the delivery service. ratePerSec bounds outbound sends;
// values <= 0 default to 3 (well under chat-API limits).
func New(sender transport.Sender, ratePerSec int, log logx.Logger) *Service {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
	}
}

// Send delivers text to one user. Failure is logged and swallowed.
func (s *Service) Send(ctx context.Context, userID int64, text string) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	if err := s.sender.SendMessage(ctx, userID, text); err != nil {
		s.log.Warn("delivery failed", logx.Int64("user", userID), logx.Err(err))
	}
}

// SendPhoto delivers an image with caption to one user.
func (s *Service) SendPhoto(ctx context.Context, userID int64, path, caption string) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	if err := s.sender.SendPhoto(ctx, userID, path, caption); err != nil {
		s.log.Warn("photo delivery failed", logx.Int64("user", userID), logx.Err(err))
	}
}

// Fanout delivers the same text to every recipient, one chat session at a
// time. Each recipient is independent; failures do not stop the loop.
func (s *Service) Fanout(ctx context.Context, userIDs []int64, text string) {
	for _, id := range userIDs {
		s.Send(ctx, id, text)
	}
}
