package models

import "time"

// Submission represents a customer's media delivery in the database
type Submission struct {
	ID            string     `json:"id" db:"id"`
	Token         string     `json:"token" db:"token"`
	CustomerName  string     `json:"customerName" db:"customer_name"`
	CustomerEmail string     `json:"customerEmail,omitempty" db:"customer_email"`
	IsPaid        bool       `json:"isPaid" db:"is_paid"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	CustomMessage string     `json:"customMessage,omitempty" db:"custom_message"`
	PaymentLink   string     `json:"paymentLink,omitempty" db:"payment_link"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	Photos        []Photo    `json:"photos"`
	Videos        []Video    `json:"videos"`
}

// Photo represents a photo attached to a submission.
// Photos are never access restricted.
type Photo struct {
	ID       string `json:"id" db:"id"`
	Filename string `json:"filename" db:"filename"`
	Locator  string `json:"locator" db:"locator"`
	Size     int64  `json:"size" db:"size"`
}

// Video represents a video attached to a submission
//
// WatermarkedLocator is set only for the free preview video.
// ThumbnailLocator is set only for locked videos and stays empty if extraction failed.
type Video struct {
	ID                 string `json:"id" db:"id"`
	Filename           string `json:"filename" db:"filename"`
	IsFreePreview      bool   `json:"isFreePreview" db:"is_free_preview"`
	WatermarkedLocator string `json:"watermarkedLocator,omitempty" db:"watermarked_locator"`
	OriginalLocator    string `json:"originalLocator" db:"original_locator"`
	ThumbnailLocator   string `json:"thumbnailLocator,omitempty" db:"thumbnail_locator"`
	Size               int64  `json:"size" db:"size"`
}

// FreeVideo returns the free preview video, or nil if the submission has no videos
func (s *Submission) FreeVideo() *Video {
	for i := range s.Videos {
		if s.Videos[i].IsFreePreview {
			return &s.Videos[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the submission
func (s *Submission) Clone() *Submission {
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	c.Photos = append([]Photo(nil), s.Photos...)
	c.Videos = append([]Video(nil), s.Videos...)
	return &c
}

// SubmissionSummary is returned to the uploader after a successful ingestion
type SubmissionSummary struct {
	ID             string     `json:"customerId"`
	Token          string     `json:"token"`
	CustomerName   string     `json:"customerName"`
	CustomerURL    string     `json:"customerUrl"`
	IsPaid         bool       `json:"isPaid"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	PhotoCount     int        `json:"photoCount"`
	VideoCount     int        `json:"videoCount"`
	WatermarkedURL string     `json:"watermarkedUrl,omitempty"`
}
