package models

import "time"

// Attachment describes a file stored in object storage for a task. The
// content itself lives under StorageKey in the configured bucket.
type Attachment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	UserID      string    `json:"userId"`
	StorageKey  string    `json:"-"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AttachmentUpload is returned when a client asks to upload a file: it must
// PUT the bytes to URL before it expires.
type AttachmentUpload struct {
	Attachment *Attachment `json:"attachment"`
	URL        string      `json:"uploadUrl"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

// AttachmentDownload pairs an attachment with a temporary download URL.
type AttachmentDownload struct {
	*Attachment
	URL string `json:"downloadUrl"`
}
