package domain

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Article-specific validation errors
var (
	// ErrArticleSessionIDEmpty is returned when an article has no session.
	ErrArticleSessionIDEmpty = errors.New("article session ID cannot be empty")

	// ErrArticleTitleEmpty is returned when an article has no title.
	ErrArticleTitleEmpty = errors.New("article title cannot be empty")

	// ErrArticleLinkInvalid is returned when an article link is not an absolute http(s) URL.
	ErrArticleLinkInvalid = errors.New("article link must be an absolute http(s) URL")
)

// EducationArticle is caregiver-facing reading material generated for the
// outcome of a screening.
type EducationArticle struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Image       string    `json:"image,omitempty"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEducationArticle creates an article for the given session.
// Returns an error if validation fails.
func NewEducationArticle(
	sessionID uuid.UUID,
	topic, title, description, link, image, model string,
) (*EducationArticle, error) {
	a := &EducationArticle{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Topic:       topic,
		Title:       title,
		Description: description,
		Link:        link,
		Image:       image,
		Model:       model,
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the EducationArticle has valid data.
func (a *EducationArticle) Validate() error {
	if a.ID == uuid.Nil {
		return ErrInvalidID
	}

	if a.SessionID == uuid.Nil {
		return ErrArticleSessionIDEmpty
	}

	if a.Title == "" {
		return ErrArticleTitleEmpty
	}

	u, err := url.Parse(a.Link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrArticleLinkInvalid
	}

	return nil
}
