package wikisdk

import (
	"time"
)

// DocumentInfo describes one document in a space listing.
type DocumentInfo struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsBinary  bool      `json:"isBinary"`
}

// ListDocumentsResponse is the response of the space listing endpoint.
type ListDocumentsResponse struct {
	Documents []*DocumentInfo `json:"documents"`
}

// UpsertDocumentParams are the parameters for creating or updating a text document.
type UpsertDocumentParams struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	SpaceID string `json:"spaceId"`
	Path    string `json:"path"`
}

// UpsertDocumentResponse acknowledges a create-or-update operation.
type UpsertDocumentResponse struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UploadBinaryParams are the parameters for uploading a binary attachment.
type UploadBinaryParams struct {
	Data       []byte
	FileName   string
	SpaceID    string
	FolderPath string
}

// UploadBinaryResponse acknowledges a binary upload.
type UploadBinaryResponse struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}
