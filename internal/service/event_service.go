package service

import (
	"context"
	"errors"
	"html/template"
	"time"

	"github.com/eventify/internal/db"
	"gorm.io/gorm"
)

// EventDateLayout is the accepted booking date format.
const EventDateLayout = "2006-01-02"

var (
	ErrEventFieldsMissing = errors.New("title, description, date and location are required")
	ErrEventDateInvalid   = errors.New("event date is invalid")
)

// EventInput holds the booking form.
type EventInput struct {
	Title       string
	Description string
	Date        string
	Location    string
}

// EventView is a booked event with its description rendered to HTML.
type EventView struct {
	db.Event
	DescriptionHTML template.HTML `json:"description_html"`
}

// EventService books and lists events per user.
type EventService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEventService creates an EventService instance.
func NewEventService(gdb *gorm.DB) *EventService {
	return &EventService{db: gdb, now: time.Now}
}

// Book stores an event for userID.
func (s *EventService) Book(ctx context.Context, userID string, input EventInput) (*db.Event, error) {
	event := db.Event{
		UserID:      userID,
		Title:       sanitizeText(input.Title),
		Description: sanitizeText(input.Description),
		Date:        sanitizeText(input.Date),
		Location:    sanitizeText(input.Location),
	}
	if event.Title == "" || event.Description == "" || event.Date == "" || event.Location == "" {
		return nil, ErrEventFieldsMissing
	}
	if _, err := time.Parse(EventDateLayout, event.Date); err != nil {
		return nil, ErrEventDateInvalid
	}
	event.Timestamp = s.now().UTC()

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns the events booked by userID, newest booking first.
func (s *EventService) List(ctx context.Context, userID string) ([]EventView, error) {
	var events []db.Event
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Find(&events).Error; err != nil {
		return nil, err
	}

	views := make([]EventView, 0, len(events))
	for _, event := range events {
		rendered, err := renderMarkdown(event.Description)
		if err != nil {
			return nil, err
		}
		views = append(views, EventView{Event: event, DescriptionHTML: rendered})
	}
	return views, nil
}
