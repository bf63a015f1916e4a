package outbound

import "context"

type UploadMediaRequest struct {
	LocalPath   string
	Key         string
	ContentType string
	Metadata    map[string]string
}

type UploadMediaResponse struct {
	PublicURL string
}

// MediaStorePort is the object storage collaborator. Upload consumes the
// local file: implementations remove it once the bytes are handed over.
type MediaStorePort interface {
	Upload(ctx context.Context, req UploadMediaRequest) (*UploadMediaResponse, error)
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}
