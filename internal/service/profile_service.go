package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"
	"octofit/tracker/internal/storage"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileInput holds profile fields to write. Nil fields are left unchanged
// on update and take their defaults on create.
type ProfileInput struct {
	Bio          *string
	Avatar       *string
	FitnessLevel *domain.FitnessLevel
}

// ProfileDetails is a profile with its owner and a resolved avatar URL.
type ProfileDetails struct {
	Profile   domain.Profile
	User      *domain.User
	AvatarURL string
}

// AvatarUpload is a presigned upload slot for a new avatar.
type AvatarUpload struct {
	UploadURL string
	ObjectKey string
	ExpiresAt time.Time
}

type ProfileService interface {
	List(ctx context.Context, actor Actor) ([]ProfileDetails, error)
	Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*ProfileDetails, error)
	GetMine(ctx context.Context, actor Actor) (*ProfileDetails, error)
	Create(ctx context.Context, actor Actor, in ProfileInput) (*ProfileDetails, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, in ProfileInput) (*ProfileDetails, error)
	UpdateMine(ctx context.Context, actor Actor, in ProfileInput) (*ProfileDetails, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	RequestAvatarUpload(ctx context.Context, actor Actor, contentType string) (*AvatarUpload, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	files       storage.FileStorage // nil when object storage is not configured
}

// NewProfileService creates a ProfileService. files may be nil.
func NewProfileService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository, files storage.FileStorage) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		files:       files,
	}
}

// List returns every profile for staff and only the caller's otherwise.
func (s *profileService) List(ctx context.Context, actor Actor) ([]ProfileDetails, error) {
	var profiles []domain.Profile
	if actor.IsStaff() {
		all, err := s.profileRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		profiles = all
	} else {
		own, err := s.profileRepo.GetByUserID(ctx, actor.UserID)
		switch {
		case err == nil:
			profiles = []domain.Profile{*own}
		case errors.Is(err, repository.ErrNotFound):
			profiles = []domain.Profile{}
		default:
			return nil, err
		}
	}
	return s.details(ctx, profiles)
}

func (s *profileService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*ProfileDetails, error) {
	profile, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.detailsOne(ctx, *profile)
}

func (s *profileService) GetMine(ctx context.Context, actor Actor) (*ProfileDetails, error) {
	profile, err := s.mine(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.detailsOne(ctx, *profile)
}

// Create makes the caller's profile. A user has at most one.
func (s *profileService) Create(ctx context.Context, actor Actor, in ProfileInput) (*ProfileDetails, error) {
	if err := validateProfileInput(in); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		UserID:       actor.UserID,
		FitnessLevel: domain.FitnessBeginner,
	}
	applyProfileInput(profile, in)

	if _, err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return s.detailsOne(ctx, *profile)
}

func (s *profileService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in ProfileInput) (*ProfileDetails, error) {
	profile, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, profile, in)
}

func (s *profileService) UpdateMine(ctx context.Context, actor Actor, in ProfileInput) (*ProfileDetails, error) {
	profile, err := s.mine(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, profile, in)
}

func (s *profileService) update(ctx context.Context, profile *domain.Profile, in ProfileInput) (*ProfileDetails, error) {
	if err := validateProfileInput(in); err != nil {
		return nil, err
	}
	previousKey := profile.AvatarKey
	applyProfileInput(profile, in)
	if in.Avatar != nil {
		// An explicit avatar URL replaces any uploaded image.
		profile.AvatarKey = ""
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if previousKey != "" && previousKey != profile.AvatarKey {
		s.deleteAvatar(ctx, previousKey)
	}
	return s.detailsOne(ctx, *profile)
}

func (s *profileService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	profile, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.profileRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	if profile.AvatarKey != "" {
		s.deleteAvatar(ctx, profile.AvatarKey)
	}
	return nil
}

// RequestAvatarUpload reserves a new object key on the caller's profile and
// returns a presigned PUT URL for it.
func (s *profileService) RequestAvatarUpload(ctx context.Context, actor Actor, contentType string) (*AvatarUpload, error) {
	if s.files == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := storage.AvatarExtension(contentType)
	if !ok {
		return nil, invalidf("content_type must be one of image/jpeg, image/png, image/webp, image/gif")
	}
	profile, err := s.mine(ctx, actor)
	if err != nil {
		return nil, err
	}

	key := storage.AvatarObjectKey(actor.UserID.Hex(), ext)
	uploadURL, err := s.files.GeneratePresignedUploadURL(ctx, key, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}

	previousKey := profile.AvatarKey
	profile.AvatarKey = key
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	if previousKey != "" {
		s.deleteAvatar(ctx, previousKey)
	}

	return &AvatarUpload{
		UploadURL: uploadURL,
		ObjectKey: key,
		ExpiresAt: time.Now().UTC().Add(storage.DefaultPresignedURLExpiry),
	}, nil
}

// visible loads a profile the actor may see. Other users' profiles are
// reported as missing.
func (s *profileService) visible(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if !actor.canAccess(profile.UserID) {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *profileService) mine(ctx context.Context, actor Actor) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *profileService) deleteAvatar(ctx context.Context, key string) {
	if s.files == nil {
		return
	}
	if err := s.files.DeleteObject(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete replaced avatar")
	}
}

func (s *profileService) details(ctx context.Context, profiles []domain.Profile) ([]ProfileDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	users, err := usersByID(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProfileDetails, 0, len(profiles))
	for _, p := range profiles {
		d := ProfileDetails{Profile: p, AvatarURL: s.avatarURL(ctx, p)}
		if u, ok := users[p.UserID]; ok {
			d.User = &u
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *profileService) detailsOne(ctx context.Context, profile domain.Profile) (*ProfileDetails, error) {
	out, err := s.details(ctx, []domain.Profile{profile})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// avatarURL prefers a presigned link to an uploaded image over the stored URL.
func (s *profileService) avatarURL(ctx context.Context, p domain.Profile) string {
	if p.AvatarKey == "" || s.files == nil {
		return p.Avatar
	}
	signed, err := s.files.GeneratePresignedDownloadURL(ctx, p.AvatarKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return p.Avatar
	}
	return signed
}

func validateProfileInput(in ProfileInput) error {
	if in.FitnessLevel != nil && !in.FitnessLevel.Valid() {
		return invalidf("fitness_level must be one of beginner, intermediate, advanced")
	}
	if in.Avatar != nil && *in.Avatar != "" {
		u, err := url.ParseRequestURI(*in.Avatar)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalidf("avatar must be a valid http(s) URL")
		}
	}
	return nil
}

func applyProfileInput(p *domain.Profile, in ProfileInput) {
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Avatar != nil {
		p.Avatar = *in.Avatar
	}
	if in.FitnessLevel != nil {
		p.FitnessLevel = *in.FitnessLevel
	}
}
