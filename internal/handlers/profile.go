package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"postdesk/internal/media"
	"postdesk/internal/middleware"
	"postdesk/internal/storage"

	"github.com/gofrs/uuid/v5"
)

type ProfileSession interface {
	ProfileID(ctx context.Context) string
	SetProfileID(ctx context.Context, id string)
}

type ProfileStore interface {
	SetAvatar(ctx context.Context, profileID, avatarURL string) (*storage.Profile, error)
	GetProfile(ctx context.Context, profileID string) (*storage.Profile, error)
}

type Uploader interface {
	Upload(ctx context.Context, req media.UploadRequest) media.Outcome
}

// ProfileHandler uploads avatars. Each profile has one avatar object whose
// key is a v5 uuid of the profile id, so a new upload overwrites the old one.
type ProfileHandler struct {
	Avatars   Uploader
	Profiles  ProfileStore
	Sessions  ProfileSession
	Namespace uuid.UUID
	Logger    *slog.Logger
	// UploadTimeout bounds an upload once it left the request, 0 means none.
	UploadTimeout time.Duration
}

type avatarResponse struct {
	Outcome media.Outcome    `json:"outcome"`
	Profile *storage.Profile `json:"profile,omitempty"`
}

func (h *ProfileHandler) avatarKey(profileID string, f media.File) string {
	return uuid.NewV5(h.Namespace, profileID).String() + "." + f.Extension()
}

func (h *ProfileHandler) HandleAvatar() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, err := readFile(r, "file")
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if !file.IsImage() {
			writeError(w, r, h.Logger, fmt.Errorf("%w: %s", errNotImage, file.MediaType()))
			return
		}

		ctx := r.Context()
		profileID := h.Sessions.ProfileID(ctx)
		if profileID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				writeError(w, r, h.Logger, err)
				return
			}
			profileID = id.String()
			h.Sessions.SetProfileID(ctx, profileID)
		}

		uploadCtx, cancel := uploadContext(r, h.UploadTimeout)
		defer cancel()

		out := h.Avatars.Upload(uploadCtx, media.UploadRequest{
			File:   file,
			Target: media.Avatar,
			Key:    h.avatarKey(profileID, file),
		})
		if !out.OK() {
			writeJSON(w, statusFor(out.Err()), avatarResponse{Outcome: out})
			return
		}

		profile, err := h.Profiles.SetAvatar(uploadCtx, profileID, out.URL())
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		middleware.LoggerFrom(ctx, h.Logger).Info("avatar updated", "profile", profileID)
		writeJSON(w, http.StatusOK, avatarResponse{Outcome: out, Profile: profile})
	})
}

func (h *ProfileHandler) HandleProfile() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := h.Sessions.ProfileID(r.Context())
		if profileID == "" {
			writeError(w, r, h.Logger, errNoProfile)
			return
		}

		profile, err := h.Profiles.GetProfile(r.Context(), profileID)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	})
}
