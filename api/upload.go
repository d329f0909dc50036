package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"

	"github.com/ronit111/documind/iox"
	"github.com/ronit111/documind/types"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadDocument calls POST /documents/upload with file as a multipart body.
//
// onProgress, if non-nil, receives the share of the request body sent so far,
// as a whole percentage that only increases. The request carries an exact
// Content-Length, so file.Size must match the bytes Open returns.
func (c *Client) UploadDocument(ctx context.Context, file types.FileRef, onProgress iox.ProgressFunc) (*types.UploadResponse, error) {
	const op = "upload document"

	content, err := openFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", op, file.Name, err)
	}
	defer iox.DiscardClose(content)

	body, contentType, length, err := multipartBody(file, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload",
		iox.NewProgressReader(body, length, onProgress))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer iox.DiscardClose(resp.Body)

	var out types.UploadResponse
	if err := decodeResponse(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func openFile(file types.FileRef) (io.ReadCloser, error) {
	if file.Open != nil {
		return file.Open()
	}
	if file.Path != "" {
		return os.Open(file.Path)
	}
	return nil, errors.New("no content source")
}

// multipartBody frames content as a single-part form and returns the
// body, its content type and its exact length.
func multipartBody(file types.FileRef, content io.Reader) (io.Reader, string, int64, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadField, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", mediaType)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, "", 0, fmt.Errorf("create form part: %w", err)
	}

	// Matches what multipart.Writer.Close emits after a part.
	tail := "\r\n--" + mw.Boundary() + "--\r\n"

	length := int64(head.Len()) + file.Size + int64(len(tail))
	body := io.MultiReader(&head, io.LimitReader(content, file.Size), strings.NewReader(tail))
	return body, mw.FormDataContentType(), length, nil
}
