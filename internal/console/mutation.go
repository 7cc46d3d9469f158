package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/org/rfidconsole/internal/device"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
)

// ErrNotConfirmed is returned by DeleteCard when the user declines.
var ErrNotConfirmed = errors.New("deletion not confirmed")

// CardWriter is the write side of the device registry.
type CardWriter interface {
	CreateCard(ctx context.Context, card models.NewCard) error
	DeleteCard(ctx context.Context, uid string) error
}

// Syncer is what the Gateway refreshes after a successful mutation.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Gateway issues create/delete requests against the registry and refreshes
// the view after each one that succeeds.
type Gateway struct {
	api     CardWriter
	syncer  Syncer
	notify  Notifier
	confirm Confirmer
	form    Form
	log     zerolog.Logger
}

// NewGateway creates a Gateway. form may be nil when there is nothing to
// reset after enrollment.
func NewGateway(api CardWriter, syncer Syncer, notify Notifier, confirm Confirmer, form Form, logger zerolog.Logger) *Gateway {
	return &Gateway{
		api:     api,
		syncer:  syncer,
		notify:  notify,
		confirm: confirm,
		form:    form,
		log:     logger.With().Str("component", "mutation").Logger(),
	}
}

// WithConfirmer returns a copy of g that asks c instead of g's own Confirmer.
func (g *Gateway) WithConfirmer(c Confirmer) *Gateway {
	cp := *g
	cp.confirm = c
	return &cp
}

// CreateCard validates and enrolls card. Validation failures never reach the
// network. On success the enrollment form is reset and one sync follows; on
// failure the form keeps the user's input.
func (g *Gateway) CreateCard(ctx context.Context, card models.NewCard) error {
	card = card.Normalize()
	if err := card.Validate(); err != nil {
		mutationsTotal.WithLabelValues("create", "invalid").Inc()
		g.notify.Notify(LevelWarning, validationMessage(card))
		return err
	}

	if err := g.api.CreateCard(ctx, card); err != nil {
		mutationsTotal.WithLabelValues("create", "failure").Inc()
		g.log.Error().Err(err).Str("uid", card.UID).Msg("create card failed")
		g.notify.Notify(LevelError, failureMessage(err, "Could not add the card"))
		return fmt.Errorf("create card %s: %w", card.UID, err)
	}

	mutationsTotal.WithLabelValues("create", "success").Inc()
	g.log.Info().Str("uid", card.UID).Stringer("level", card.AccessLevel).Msg("card added")
	g.notify.Notify(LevelSuccess, "Card added")
	if g.form != nil {
		g.form.Reset()
	}
	g.refresh(ctx)
	return nil
}

// DeleteCard asks for confirmation and then removes the card. Nothing is
// sent unless the user confirms. The prompt is dismissed before returning
// whatever the outcome.
func (g *Gateway) DeleteCard(ctx context.Context, uid, name string) error {
	defer g.confirm.Dismiss()

	ok, err := g.confirm.Confirm(ctx, "Confirm deletion",
		fmt.Sprintf("Delete card %q (%s)?", name, uid))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConfirmed, err)
	}
	if !ok {
		return ErrNotConfirmed
	}

	if err := g.api.DeleteCard(ctx, uid); err != nil {
		mutationsTotal.WithLabelValues("delete", "failure").Inc()
		g.log.Error().Err(err).Str("uid", uid).Msg("delete card failed")
		g.notify.Notify(LevelError, failureMessage(err, "Could not delete the card"))
		return fmt.Errorf("delete card %s: %w", uid, err)
	}

	mutationsTotal.WithLabelValues("delete", "success").Inc()
	g.log.Info().Str("uid", uid).Msg("card deleted")
	g.notify.Notify(LevelSuccess, "Card deleted")
	g.refresh(ctx)
	return nil
}

// refresh runs the post-mutation sync. Its failure has already been
// reported by the Synchronizer, so the mutation itself still counts as done.
func (g *Gateway) refresh(ctx context.Context) {
	if err := g.syncer.Sync(ctx); err != nil {
		g.log.Warn().Err(err).Msg("refresh after mutation failed")
	}
}

func validationMessage(card models.NewCard) string {
	switch {
	case card.UID == "" || card.Name == "":
		return "Please fill in all fields"
	case len(card.UID) > models.MaxUIDLength:
		return fmt.Sprintf("UID must be at most %d characters", models.MaxUIDLength)
	case len(card.Name) > models.MaxNameLength:
		return fmt.Sprintf("Name must be at most %d characters", models.MaxNameLength)
	default:
		return "Access level must be Basic, Intermediate or Administrator"
	}
}

// failureMessage prefers the device's own message, then distinguishes "no
// answer at all" from other failures.
func failureMessage(err error, fallback string) string {
	if msg := device.Message(err, ""); msg != "" {
		return msg
	}
	var de *device.Error
	if errors.As(err, &de) && de.Status == 0 && errors.Is(err, device.ErrNetwork) {
		return "Connection error"
	}
	return fallback
}
