// Package access decides what a customer link exposes.
//
// Decide and Shape are pure: they read nothing but their arguments, so the
// same submission and instant always produce the same view.
package access

import (
	"time"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/models"
)

// Decide maps a lookup result and the current time to an access state.
// A nil submission means the token matched no record.
func Decide(sub *models.Submission, now time.Time) models.AccessState {
	switch {
	case sub == nil:
		return models.AccessNotFound
	case sub.ExpiresAt != nil && now.After(*sub.ExpiresAt):
		return models.AccessExpired
	case !sub.IsPaid:
		return models.AccessUnpaidPreview
	default:
		return models.AccessPaidFull
	}
}

// Shape builds the gated view for sub at instant now.
//
// It returns common.ErrNotFound for a nil submission and a *common.ExpiredError
// for an expired one. In every other state photos are exposed as-is and videos
// are unlocked or locked according to the payment flag.
func Shape(sub *models.Submission, now time.Time) (*models.GatedView, error) {
	state := Decide(sub, now)
	switch state {
	case models.AccessNotFound:
		return nil, common.ErrNotFound
	case models.AccessExpired:
		return nil, &common.ExpiredError{ExpiresAt: *sub.ExpiresAt}
	}

	view := &models.GatedView{
		State:         state,
		SubmissionID:  sub.ID,
		CustomerName:  sub.CustomerName,
		CustomMessage: sub.CustomMessage,
		PaymentLink:   sub.PaymentLink,
		IsPaid:        sub.IsPaid,
		CreatedAt:     sub.CreatedAt,
		Photos:        make([]models.PhotoView, 0, len(sub.Photos)),
		Videos:        make([]models.VideoView, 0, len(sub.Videos)),
	}
	if sub.ExpiresAt != nil {
		t := *sub.ExpiresAt
		view.ExpiresAt = &t
	}

	for _, p := range sub.Photos {
		view.Photos = append(view.Photos, models.PhotoView{
			ID:       p.ID,
			Filename: p.Filename,
			URL:      p.Locator,
			Size:     p.Size,
		})
	}

	for _, v := range sub.Videos {
		view.Videos = append(view.Videos, shapeVideo(v, state))
	}

	return view, nil
}

func shapeVideo(v models.Video, state models.AccessState) models.VideoView {
	out := models.VideoView{
		ID:            v.ID,
		Filename:      v.Filename,
		IsFreePreview: v.IsFreePreview,
		Size:          v.Size,
	}

	if state == models.AccessPaidFull {
		out.URL = stringPtr(v.OriginalLocator)
		return out
	}

	// unpaid: only the watermarked rendition of the free video is playable
	if v.IsFreePreview {
		out.URL = stringPtr(v.WatermarkedLocator)
		return out
	}
	out.IsLocked = true
	out.ThumbnailURL = v.ThumbnailLocator
	return out
}

func stringPtr(s string) *string {
	return &s
}
