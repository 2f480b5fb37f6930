package engine

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/store"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// ProvisionRequest creates a contact. Empty fields take the configured defaults.
type ProvisionRequest struct {
	ID           string
	DisplayName  string
	Mode         string
	InitialScore *float64
}

// Provisioned is a newly created contact and its first anchor.
type Provisioned struct {
	Contact store.Contact
	Anchor  warmth.Anchor
}

// Provision creates a contact together with its anchor, so no contact ever
// exists without one.
func (e *Engine) Provision(ctx context.Context, req ProvisionRequest) (Provisioned, error) {
	mode := e.cfg.DefaultMode
	if strings.TrimSpace(req.Mode) != "" {
		m, err := e.parseMode(req.Mode)
		if err != nil {
			return Provisioned{}, err
		}
		mode = m
	}

	score := e.cfg.InitialScore
	if req.InitialScore != nil {
		score = *req.InitialScore
	}
	if math.IsNaN(score) || score < warmth.Floor || score > warmth.MaxScore {
		return Provisioned{}, goerr.Wrap(warmth.ErrInvalidAnchor, "initial score out of range", goerr.V("initial_score", score))
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if len(id) > 64 {
		return Provisioned{}, goerr.Wrap(warmth.ErrInvalidAnchor, "contact id too long", goerr.V("contact_id", id))
	}

	now := e.now()
	p := Provisioned{
		Contact: store.Contact{ID: id, DisplayName: req.DisplayName, CreatedAt: now},
		Anchor:  warmth.NewAnchor(score, mode, now),
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.store.CreateContact(sctx, p.Contact, p.Anchor); err != nil {
		return Provisioned{}, e.storeErr(ctx, "create contact", id, err)
	}

	logging.From(ctx).Info("contact provisioned",
		slog.String("contact_id", id),
		slog.String("mode", string(mode)),
		slog.Float64("score", p.Anchor.Score))
	return p, nil
}

// Delete removes a contact; its anchor and history go with it.
func (e *Engine) Delete(ctx context.Context, contactID string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	ok, err := e.store.DeleteContact(sctx, contactID)
	if err != nil {
		return e.storeErr(ctx, "delete contact", contactID, err)
	}
	if !ok {
		return goerr.Wrap(warmth.ErrContactNotFound, "delete contact", goerr.V("contact_id", contactID))
	}
	logging.From(ctx).Info("contact deleted", slog.String("contact_id", contactID))
	return nil
}

// Listing is a contact with its warmth evaluated at list time.
type Listing struct {
	Contact store.Contact
	Reading Reading
}

// List evaluates every listed contact at now without touching the cache.
func (e *Engine) List(ctx context.Context, limit int) ([]Listing, error) {
	now := e.now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	rows, err := e.store.ListContacts(sctx, limit)
	if err != nil {
		return nil, e.storeErr(ctx, "list contacts", "", err)
	}

	out := make([]Listing, 0, len(rows))
	for _, r := range rows {
		score, err := e.evaluate(ctx, r.ID, r.Anchor, now)
		if err != nil {
			return nil, err
		}
		out = append(out, Listing{
			Contact: r.Contact,
			Reading: Reading{
				ContactID:  r.ID,
				Score:      score,
				Band:       warmth.Classify(score),
				Mode:       r.Anchor.Mode,
				ComputedAt: now,
			},
		})
	}
	return out, nil
}
