package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/eventify/internal/db"
	"gorm.io/gorm"
)

var (
	ErrMessageFieldsMissing = errors.New("name, email and message are required")
	ErrMessageEmailInvalid  = errors.New("message email is invalid")
	ErrMessageNotFound      = errors.New("message not found")
)

// MessageInput is a contact form submission.
type MessageInput struct {
	Name  string
	Email string
	Text  string
}

// MessageService stores contact form messages.
type MessageService struct {
	db   *gorm.DB
	feed *FeedService
	now  func() time.Time
}

// NewMessageService creates a MessageService instance.
func NewMessageService(gdb *gorm.DB, feed *FeedService) *MessageService {
	return &MessageService{db: gdb, feed: feed, now: time.Now}
}

// Submit saves a message with a server-assigned timestamp.
func (s *MessageService) Submit(ctx context.Context, input MessageInput) (*db.Message, error) {
	msg := db.Message{
		Name:  sanitizeText(input.Name),
		Email: strings.TrimSpace(input.Email),
		Text:  sanitizeText(input.Text),
	}
	if msg.Name == "" || msg.Email == "" || msg.Text == "" {
		return nil, ErrMessageFieldsMissing
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return nil, ErrMessageEmailInvalid
	}
	msg.Timestamp = s.now().UTC()

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	s.feed.Changed(ctx, TopicMessages)
	return &msg, nil
}

// List returns messages newest first.
func (s *MessageService) List(ctx context.Context) ([]db.Message, error) {
	messages := []db.Message{}
	if err := s.db.WithContext(ctx).Order("timestamp desc").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// Delete removes a message.
func (s *MessageService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&db.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	s.feed.Changed(ctx, TopicMessages)
	return nil
}
