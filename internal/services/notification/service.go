package notification

import (
	"log"

	"arvo/internal/services/verification"
)

// Service is a minimal notification service implementation. It consumes
// the verification completion stream and notifies the user.
type Service struct{}

// NewService creates a new notification service.
func NewService() *Service { return &Service{} }

// Run drains completion events until the channel is closed. It is started
// as a goroutine from main.
func (s *Service) Run(events <-chan verification.CompletionEvent) {
	for ev := range events {
		s.SendVerificationNotification(ev)
	}
}

// SendVerificationNotification logs a verification completion notification.
func (s *Service) SendVerificationNotification(ev verification.CompletionEvent) {
	log.Printf("Notify user %d: identity verification completed (via %s)", ev.UserID, ev.Source)
}
