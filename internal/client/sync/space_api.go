package sync

import (
	"context"

	"github.com/wikisync/wikisync/internal/wikisdk"
)

// SpaceAPI is the remote collaborator contract the engine consumes. The wiki
// SDK's DocumentsAPI satisfies it; tests substitute a fake.
type SpaceAPI interface {
	ListDocuments(ctx context.Context, spaceID string) ([]*wikisdk.DocumentInfo, error)
	GetDocumentContent(ctx context.Context, remotePath string, spaceID string) ([]byte, error)
	CreateOrUpdateDocument(ctx context.Context, params *wikisdk.UpsertDocumentParams) error
	UploadBinary(ctx context.Context, params *wikisdk.UploadBinaryParams) error
}

var _ SpaceAPI = (*wikisdk.DocumentsAPI)(nil)
