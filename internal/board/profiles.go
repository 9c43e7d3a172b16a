package board

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/domain"
	"github.com/spec-kit/notjira/internal/events"
	"github.com/spec-kit/notjira/internal/store"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

// ProfileViewState distinguishes a fetch in flight from a finished one, so
// presentation can show a spinner without confusing it with an empty bio.
type ProfileViewState string

const (
	ProfileLoading ProfileViewState = "loading"
	ProfileLoaded  ProfileViewState = "loaded"
)

// ProfileView is the merged view of a ticket creator: the lightweight
// reference supplies defaults, the stored profile overrides matching fields.
type ProfileView struct {
	State   ProfileViewState
	Ref     domain.UserRef
	Profile domain.Profile
}

// ViewUser fetches the full profile behind a lightweight identity reference.
// The returned channel emits a loading view first, then the final view, and
// closes. A missing profile record or a fetch failure falls back to the
// reference alone.
func (m *Manager) ViewUser(ctx context.Context, ref domain.UserRef) <-chan ProfileView {
	ch := make(chan ProfileView, 2)
	if ref.UID == "" {
		close(ch)
		return ch
	}

	base := domain.Profile{Name: ref.Name, PhotoURL: ref.PhotoURL}
	ch <- ProfileView{State: ProfileLoading, Ref: ref, Profile: base}

	go func() {
		defer close(ch)
		readCtx, cancel := m.opCtx(ctx)
		defer cancel()

		var stored domain.Profile
		err := m.store.Get(readCtx, store.CollectionProfiles, ref.UID, &stored)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("profile fetch failed, falling back to reference",
					zap.String("uid", ref.UID), zap.Error(err))
			}
			ch <- ProfileView{State: ProfileLoaded, Ref: ref, Profile: base}
			return
		}

		merged := base
		if stored.Name != "" {
			merged.Name = stored.Name
		}
		if stored.PhotoURL != "" {
			merged.PhotoURL = stored.PhotoURL
		}
		merged.Bio = stored.Bio
		merged.Company = stored.Company
		ch <- ProfileView{State: ProfileLoaded, Ref: ref, Profile: merged}
	}()

	return ch
}

// UpdateProfile saves the editable profile fields. They are written to the
// user's own record and mirrored to the profiles collection that other users
// read when viewing a ticket's creator.
func (m *Manager) UpdateProfile(ctx context.Context, uid string, profile domain.Profile) error {
	if uid == "" {
		return apperrors.NewUnauthorized("user required")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return apperrors.NewValidationError("name cannot be empty", nil)
	}

	fields := map[string]any{
		"name":     strings.TrimSpace(profile.Name),
		"bio":      profile.Bio,
		"company":  profile.Company,
		"photoURL": profile.PhotoURL,
	}

	writeCtx, cancel := m.opCtx(ctx)
	defer cancel()

	if err := m.store.Merge(writeCtx, store.CollectionUsers, uid, fields); err != nil {
		return apperrors.NewStoreWriteError("profile update", err)
	}
	if err := m.store.Merge(writeCtx, store.CollectionProfiles, uid, fields); err != nil {
		return apperrors.NewStoreWriteError("profile mirror update", err)
	}

	m.publish(ctx, events.Event{
		Type:    events.EventProfileUpdated,
		Actor:   domain.UserRef{UID: uid, Name: profile.Name, PhotoURL: profile.PhotoURL},
		Payload: events.ProfileUpdatedPayload{UID: uid},
	})
	return nil
}

// StatsFor reads the user's counter document. Absent entries report zero for
// every status; a user's stats survive deleting all their tickets.
func (m *Manager) StatsFor(ctx context.Context, uid string) (domain.Stats, error) {
	readCtx, cancel := m.opCtx(ctx)
	defer cancel()

	counters := map[string]int64{}
	if err := m.store.Get(readCtx, store.CollectionStats, uid, &counters); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
	}

	stats := make(domain.Stats, len(domain.Statuses()))
	for _, status := range domain.Statuses() {
		stats[status] = counters[string(status)]
	}
	return stats, nil
}
