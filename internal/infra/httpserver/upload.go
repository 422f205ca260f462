package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
)

const (
	uploadField = "file"

	// room for the multipart envelope and any other small form fields
	multipartOverhead = 1 << 20
)

// readUpload streams the multipart body and keeps the first "file" part in
// memory. Nothing is spooled to disk.
func readUpload(w http.ResponseWriter, req *http.Request, maxBytes int64) (domain.UploadedFile, error) {
	if maxBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, maxBytes+multipartOverhead)
	}

	mr, err := req.MultipartReader()
	if err != nil {
		return domain.UploadedFile{}, domain.BadRequestf("No file part")
	}

	seenPart := false
	for {
		part, err := mr.NextPart()
		if err != nil {
			if err == io.EOF || (!seenPart && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF))) {
				return domain.UploadedFile{}, domain.BadRequestf("No file part")
			}
			return domain.UploadedFile{}, readFailure(err, maxBytes)
		}
		seenPart = true

		if part.FormName() != uploadField || !isFilePart(part) {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			part.Close()
			return domain.UploadedFile{}, domain.BadRequestf("No selected file")
		}

		data, err := readLimited(part, maxBytes)
		part.Close()
		if err != nil {
			return domain.UploadedFile{}, readFailure(err, maxBytes)
		}

		return domain.UploadedFile{
			Filename:  filename,
			MediaType: partMediaType(part),
			Content:   data,
		}, nil
	}
}

// isFilePart reports whether the part carries a filename parameter at all.
// Parts without one are plain form fields.
func isFilePart(part *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func partMediaType(part *multipart.Part) string {
	raw := strings.TrimSpace(part.Header.Get("Content-Type"))
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return mt
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.ErrTooLarge
	}
	return data, nil
}

func readFailure(err error, maxBytes int64) error {
	var tooBig *http.MaxBytesError
	if errors.Is(err, domain.ErrTooLarge) || errors.As(err, &tooBig) {
		return domain.BadRequestf("file exceeds maximum size of %d bytes", maxBytes)
	}
	return domain.Failed(fmt.Errorf("read upload: %w", err))
}
