package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	nethttp "net/http"
)

// JSONBody marshals v for use as Request.Body.
func JSONBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, NewValidationError("cannot encode JSON body: "+err.Error(), "body")
	}
	return b, nil
}

// FormFile is one file part of a multipart form.
type FormFile struct {
	Field    string
	FileName string
	Content  []byte
}

// MultipartForm describes a multipart/form-data body.
type MultipartForm struct {
	Fields map[string]string
	Files  []FormFile
}

// Encode renders the form and returns the body and its Content-Type.
func (f *MultipartForm) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range f.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// PostMultipart encodes form as the request body and performs a POST
func (c *client) PostMultipart(ctx context.Context, req *Request, form *MultipartForm) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	if form == nil {
		return nil, NewValidationError("multipart form cannot be nil", "form")
	}
	body, contentType, err := form.Encode()
	if err != nil {
		return nil, NewValidationError(err.Error(), "form")
	}

	withBody := *req
	withBody.Body = body
	withBody.Headers = make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		if nethttp.CanonicalHeaderKey(k) == headerContentType {
			continue
		}
		withBody.Headers[k] = v
	}
	withBody.Headers[headerContentType] = contentType
	return c.Do(ctx, nethttp.MethodPost, &withBody)
}

// DecodeJSON decodes a successful response body into T. A non-nil err from
// the request is returned unchanged so calls can be chained:
//
//	user, err := DecodeJSON[User](client.Get(ctx, req))
func DecodeJSON[T any](resp *Response, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if resp == nil {
		return out, NewDecodeError(0, fmt.Sprintf("%T", out), errors.New("nil response"))
	}
	if len(resp.Body) == 0 {
		return out, NewDecodeError(resp.StatusCode, fmt.Sprintf("%T", out), errors.New("empty body"))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, NewDecodeError(resp.StatusCode, fmt.Sprintf("%T", out), err)
	}
	return out, nil
}
