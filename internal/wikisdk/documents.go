package wikisdk

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

const (
	v1SpaceDocuments  = "/api/v1/spaces/{spaceId}/documents"
	v1DocumentContent = "/api/v1/spaces/{spaceId}/documents/content"
	v1DocumentUpsert  = "/api/v1/documents"
	v1AttachmentPut   = "/api/v1/attachments"
)

// DocumentsAPI exposes the document operations of the wiki API.
type DocumentsAPI struct {
	client *req.Client
}

func newDocumentsAPI(client *req.Client) *DocumentsAPI {
	return &DocumentsAPI{
		client: client,
	}
}

// ListDocuments returns the descriptors of all documents in a space.
func (d *DocumentsAPI) ListDocuments(ctx context.Context, spaceID string) ([]*DocumentInfo, error) {
	var listResp ListDocumentsResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("spaceId", spaceID).
		SetSuccessResult(&listResp).
		Get(v1SpaceDocuments)

	if err := handleAPIError(resp, err, "list documents"); err != nil {
		return nil, err
	}

	return listResp.Documents, nil
}

// GetDocumentContent fetches the raw content of a document by its space path.
func (d *DocumentsAPI) GetDocumentContent(ctx context.Context, remotePath string, spaceID string) ([]byte, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("spaceId", spaceID).
		SetQueryParam("path", remotePath).
		Get(v1DocumentContent)

	if err := handleAPIError(resp, err, "get document content"); err != nil {
		return nil, err
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("get document content: read body: %w", err)
	}
	return body, nil
}

// CreateOrUpdateDocument creates a text document at params.Path, or replaces its
// content if it already exists.
func (d *DocumentsAPI) CreateOrUpdateDocument(ctx context.Context, params *UpsertDocumentParams) error {
	var upsertResp UpsertDocumentResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&upsertResp).
		Put(v1DocumentUpsert)

	return handleAPIError(resp, err, "create or update document")
}

// UploadBinary uploads raw bytes as a binary attachment under params.FolderPath.
func (d *DocumentsAPI) UploadBinary(ctx context.Context, params *UploadBinaryParams) error {
	var uploadResp UploadBinaryResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetFileBytes("file", params.FileName, params.Data).
		SetFormData(map[string]string{
			"spaceId":    params.SpaceID,
			"folderPath": params.FolderPath,
		}).
		SetSuccessResult(&uploadResp).
		Put(v1AttachmentPut)

	return handleAPIError(resp, err, "upload binary")
}
