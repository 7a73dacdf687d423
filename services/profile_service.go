package services

import (
	"chatrooms/domain"
	"chatrooms/infrastructure/storage"
	"context"
	"log/slog"
)

// PresenceView is the live presence of identities, as computed by the tracker.
type PresenceView interface {
	Presence(identity string) domain.Presence
}

type ProfileService struct {
	log      *slog.Logger
	repo     storage.IProfileRepository
	presence PresenceView
}

func NewProfileService(log *slog.Logger, repo storage.IProfileRepository, presence PresenceView) *ProfileService {
	return &ProfileService{log: log, repo: repo, presence: presence}
}

// Upsert creates or updates the caller's own profile. Presence fields are
// owned by the tracker: a transition flushed before the profile existed is
// recorded now.
func (s *ProfileService) Upsert(cmd domain.UpsertProfileCommand) (domain.Profile, error) {
	if err := validateCommand(cmd); err != nil {
		return domain.Profile{}, err
	}
	username, _, err := domain.NormalizeUsername(cmd.Username)
	if err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.repo.Upsert(domain.Profile{
		ID:        cmd.Identity,
		Username:  username,
		AvatarRef: cmd.AvatarRef,
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if s.presence == nil {
		return profile, nil
	}
	live := s.presence.Presence(profile.ID)
	if live.Online != profile.Online {
		if err = s.repo.SetPresence(context.Background(), live); err != nil {
			s.log.Warn("unable to record presence", "identity", profile.ID, "error", err)
		}
	}
	return withPresence(profile, live), nil
}

// Get returns the stored profile with the live presence of the identity.
func (s *ProfileService) Get(identity string) (domain.Profile, error) {
	profile, err := s.repo.Get(identity)
	if err != nil || s.presence == nil {
		return profile, err
	}
	return withPresence(profile, s.presence.Presence(identity)), nil
}

func withPresence(profile domain.Profile, live domain.Presence) domain.Profile {
	profile.Online = live.Online
	if !live.LastSeen.IsZero() {
		profile.LastSeen = live.LastSeen
	}
	return profile
}
