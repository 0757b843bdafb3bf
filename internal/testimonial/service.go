package testimonial

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"alumni/internal/errtrack"
	"alumni/internal/notify"
	"alumni/internal/sanitize"
	"alumni/internal/store"
	"alumni/internal/token"
)

// RandomLimit is the number of testimonials shown on the landing page.
const RandomLimit = 6

var (
	// ErrNotFound is returned when a verification link matches no testimonial.
	ErrNotFound = errors.New("testimonial not found")
	// ErrAlreadyApproved is returned when a verification link is redeemed twice.
	ErrAlreadyApproved = errors.New("testimonial already approved")
)

// Testimonial is a message left by an alumnus.
type Testimonial struct {
	ID       int64
	Name     string
	Batch    string
	Message  string
	Approved bool
}

// Initial is the first letter of the author's name, used as an avatar.
func (t Testimonial) Initial() string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(t.Name))
	if r == utf8.RuneError {
		return ""
	}
	return strings.ToUpper(string(r))
}

// Service handles testimonial submission and moderation.
type Service struct {
	repo       *Repository
	notifier   notify.Enqueuer
	moderator  string
	verifyBase string
	logger     zerolog.Logger
}

// NewService creates a testimonial service. Verification links are built as
// {verifyBase}/testimonials/verify/{hash}+{id} and sent to moderator.
func NewService(db store.DBTX, notifier notify.Enqueuer, moderator, verifyBase string, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		repo:       NewRepository(db),
		notifier:   notifier,
		moderator:  moderator,
		verifyBase: strings.TrimRight(verifyBase, "/"),
		logger:     logger.With().Str("component", "testimonial").Logger(),
	}
}

// Submit stores a sanitized testimonial and emails its verification link to the moderator.
func (s *Service) Submit(ctx context.Context, name, batch, message string) (Testimonial, error) {
	t := Testimonial{
		Name:    sanitize.Text(name),
		Batch:   sanitize.Text(batch),
		Message: sanitize.Text(message),
	}
	hash, err := token.Hex(32)
	if err != nil {
		return Testimonial{}, err
	}
	t.ID, err = s.repo.Create(ctx, t, hash)
	if err != nil {
		return Testimonial{}, err
	}

	link := s.verifyBase + "/testimonials/verify/" + VerificationToken(hash, t.ID)
	err = s.notifier.Enqueue(ctx, notify.Email{
		Template: notify.TestimonialVerification,
		To:       s.moderator,
		Vars: map[string]any{
			"author":     t.Name,
			"batch":      t.Batch,
			"message":    t.Message,
			"verify_url": link,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("testimonial_id", t.ID).Msg("enqueue verification email failed")
		errtrack.Capture(ctx, err)
	}
	return t, nil
}

// VerificationToken joins a hash and a testimonial id as "{hash}+{id}".
func VerificationToken(hash string, id int64) string {
	return hash + "+" + strconv.FormatInt(id, 10)
}

// Verify redeems a "{hash}+{id}" token and approves the testimonial once.
func (s *Service) Verify(ctx context.Context, verificationToken string) error {
	hash, rawID, ok := strings.Cut(verificationToken, "+")
	if !ok || hash == "" {
		return ErrNotFound
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return ErrNotFound
	}

	updated, err := s.repo.Approve(ctx, id, hash)
	if err != nil {
		return err
	}
	if updated {
		s.logger.Info().Int64("testimonial_id", id).Msg("testimonial approved")
		return nil
	}

	approved, err := s.repo.Approved(ctx, id, hash)
	if err != nil {
		return err
	}
	if approved {
		return ErrAlreadyApproved
	}
	return ErrNotFound
}

// Random returns up to RandomLimit approved testimonials.
func (s *Service) Random(ctx context.Context) ([]Testimonial, error) {
	return s.repo.Random(ctx, RandomLimit)
}

// All returns every approved testimonial.
func (s *Service) All(ctx context.Context) ([]Testimonial, error) {
	return s.repo.All(ctx)
}
