package models

import "time"

// AccessState is the outcome of evaluating a customer link
type AccessState string

const (
	AccessNotFound      AccessState = "not_found"
	AccessExpired       AccessState = "expired"
	AccessUnpaidPreview AccessState = "unpaid_preview"
	AccessPaidFull      AccessState = "paid_full"
)

// GatedView is the projection of a submission a customer is allowed to see
type GatedView struct {
	State         AccessState `json:"state"`
	SubmissionID  string      `json:"id"`
	CustomerName  string      `json:"customerName"`
	CustomMessage string      `json:"customMessage,omitempty"`
	PaymentLink   string      `json:"paymentLink,omitempty"`
	IsPaid        bool        `json:"isPaid"`
	ExpiresAt     *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	Photos        []PhotoView `json:"photos"`
	Videos        []VideoView `json:"videos"`
}

// PhotoView is a photo as exposed to the customer
type PhotoView struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// VideoView is a video as exposed to the customer.
// URL is nil for locked videos.
type VideoView struct {
	ID            string  `json:"id"`
	Filename      string  `json:"filename"`
	IsFreePreview bool    `json:"isFreePreview"`
	IsLocked      bool    `json:"isLocked"`
	URL           *string `json:"url"`
	ThumbnailURL  string  `json:"thumbnailUrl,omitempty"`
	Size          int64   `json:"size"`
}
