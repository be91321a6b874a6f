package httphandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/validators"
)

type MediaPresignerInterface interface {
	PresignUpload(ctx context.Context, mediaKey, contentType string) (string, error)
}

var _ MediaPresignerInterface = (*aiservices.S3MediaPresigner)(nil)

// MediaHandler hands out presigned upload URLs so requesters can push task
// media (images, audio) straight to the bucket.
type MediaHandler struct {
	Presigner MediaPresignerInterface
}

type uploadURLRequest struct {
	MediaKey    string `json:"mediaKey"`
	ContentType string `json:"contentType"`
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	MediaKey  string `json:"mediaKey"`
}

// GetUploadURL returns a short-lived presigned PUT URL for the given key.
func (h MediaHandler) GetUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody uploadURLRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(reqBody.MediaKey != "", "mediaKey", "mediaKey is required")
	v.Check(!strings.Contains(reqBody.MediaKey, ".."), "mediaKey", "mediaKey cannot contain path traversal")
	v.Check(reqBody.ContentType != "", "contentType", "contentType is required")
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	uploadURL, err := h.Presigner.PresignUpload(ctx, reqBody.MediaKey, reqBody.ContentType)
	if err != nil {
		httperror.InternalError(ctx, "Cannot presign upload URL", err, nil).Render(w)
		return
	}

	httpjson.Render(w, uploadURLResponse{UploadURL: uploadURL, MediaKey: reqBody.MediaKey})
}
