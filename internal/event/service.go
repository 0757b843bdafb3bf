package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alumni/internal/cloudinary"
	"alumni/internal/membership"
	"alumni/internal/sanitize"
	"alumni/internal/store"
)

// maxImages caps the number of CDN resources listed per folder.
const maxImages = 500

var (
	// ErrNotFound is returned when no event matches an id.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidStatus is returned for a status other than upcoming or completed.
	ErrInvalidStatus = errors.New("status must be upcoming or completed")
	// ErrFolder wraps image CDN failures while creating an event's gallery folder.
	ErrFolder = errors.New("event folder creation failed")
	// ErrImages wraps image CDN failures while listing a folder.
	ErrImages = errors.New("event images unavailable")
)

// Status selects upcoming or completed events.
type Status string

const (
	Upcoming  Status = "upcoming"
	Completed Status = "completed"
)

// Event is an association event.
type Event struct {
	ID          string
	Name        string
	Description string
	Venue       string
	Date        time.Time
	Time        string
	ChiefGuest  *string
}

// Input is the data required to create an event.
type Input struct {
	Name        string
	Description string
	Venue       string
	Date        time.Time
	Time        string
	ChiefGuest  string
}

// Folders is the subset of the image CDN used for event galleries.
type Folders interface {
	CreateFolder(ctx context.Context, path string) error
	ListFolder(ctx context.Context, folder string, max int) ([]cloudinary.Resource, error)
}

// Service manages events and their image folders.
type Service struct {
	db     *sql.DB
	repo   *Repository
	cdn    Folders
	root   string
	clock  membership.Clock
	logger zerolog.Logger
}

// NewService creates an event service. cdn may be nil when no image CDN is configured.
func NewService(db *sql.DB, cdn Folders, root string, clock membership.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		cdn:    cdn,
		root:   root,
		clock:  clock,
		logger: logger.With().Str("component", "event").Logger(),
	}
}

// FolderName returns the CDN folder holding the images of the event called name.
func (s *Service) FolderName(name string) string {
	return s.root + "/Events/" + strings.Join(strings.Fields(name), "-")
}

// GalleryFolder returns the CDN folder of the general gallery.
func (s *Service) GalleryFolder() string {
	return s.root + "/Gallery"
}

// Create stores an event and creates its image folder. The insert is rolled
// back when the folder cannot be created.
func (s *Service) Create(ctx context.Context, in Input) (Event, error) {
	e := Event{
		ID:          uuid.NewString(),
		Name:        sanitize.Text(in.Name),
		Description: sanitize.Text(in.Description),
		Venue:       sanitize.Text(in.Venue),
		Date:        membership.Date(in.Date),
		Time:        strings.ToUpper(sanitize.Text(in.Time)),
		ChiefGuest:  sanitize.OptionalText(in.ChiefGuest),
	}

	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := NewRepository(tx).Create(ctx, e); err != nil {
			return err
		}
		if s.cdn == nil {
			return nil
		}
		if err := s.cdn.CreateFolder(ctx, s.FolderName(e.Name)); err != nil {
			return fmt.Errorf("%w: %v", ErrFolder, err)
		}
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	s.logger.Info().Str("event_id", e.ID).Str("event_date", e.Date.Format(membership.DateLayout)).Msg("event created")
	return e, nil
}

// List returns upcoming (today onwards, soonest first) or completed (most recent first) events.
func (s *Service) List(ctx context.Context, status Status) ([]Event, error) {
	today := s.clock.Today()
	switch status {
	case Upcoming:
		return s.repo.OnOrAfter(ctx, today)
	case Completed:
		return s.repo.Before(ctx, today)
	default:
		return nil, ErrInvalidStatus
	}
}

// CurrentWeek returns events in the seven days starting today.
func (s *Service) CurrentWeek(ctx context.Context) ([]Event, error) {
	today := s.clock.Today()
	return s.repo.Between(ctx, today, today.AddDate(0, 0, 7))
}

// SearchCompleted finds past events whose name contains text.
func (s *Service) SearchCompleted(ctx context.Context, text string) ([]Event, error) {
	return s.repo.SearchBefore(ctx, s.clock.Today(), strings.TrimSpace(text))
}

// Get returns an event together with the images of its folder.
func (s *Service) Get(ctx context.Context, id string) (*Event, []cloudinary.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrNotFound
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	images, err := s.images(ctx, s.FolderName(e.Name))
	if err != nil {
		return nil, nil, err
	}
	return e, images, nil
}

// Gallery returns the general gallery, newest upload first.
func (s *Service) Gallery(ctx context.Context) ([]cloudinary.Resource, error) {
	images, err := s.images(ctx, s.GalleryFolder())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(images, func(a, b cloudinary.Resource) int {
		return uploadTime(b).Compare(uploadTime(a))
	})
	return images, nil
}

// uploadTime parses the CDN's RFC 3339 created_at. Unparseable values sort last.
func uploadTime(r cloudinary.Resource) time.Time {
	t, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Service) images(ctx context.Context, folder string) ([]cloudinary.Resource, error) {
	if s.cdn == nil {
		return []cloudinary.Resource{}, nil
	}
	res, err := s.cdn.ListFolder(ctx, folder, maxImages)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrImages, folder, err)
	}
	return res, nil
}

// IsToday reports whether e happens today.
func (s *Service) IsToday(e Event) bool {
	return membership.Date(e.Date).Equal(s.clock.Today())
}
