package domain

import "time"

// UploadRequest is one file to store.
type UploadRequest struct {
	ID          string
	Filename    string
	ContentType string
	Folder      string
	Data        []byte
}

// UploadResult describes the stored object.
type UploadResult struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
