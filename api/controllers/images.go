package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/api/validators"
	"github.com/angelmondragon/castmenu-backend/internal/media"
	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

const (
	uploadFileField = "file"
	uploadKindField = "kind"
	// multipartOverhead leaves room for boundaries and the small form fields.
	multipartOverhead = 64 << 10
)

type deleteImageRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// AdminImageUpload streams a multipart "file" part into object storage. The
// kind comes from the query string or a "kind" field sent before the file.
func AdminImageUpload(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "image")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		reader, err := r.MultipartReader()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart body required"))
			return
		}

		rawKind := r.URL.Query().Get(uploadKindField)
		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed multipart body"))
				return
			}

			switch part.FormName() {
			case uploadKindField:
				value, err := io.ReadAll(io.LimitReader(part, 64))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed multipart body"))
					return
				}
				rawKind = string(value)
			case uploadFileField:
				kind, err := enums.ParseMediaKind(strings.TrimSpace(rawKind))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind").OnField(uploadKindField))
					return
				}
				result, err := svc.Upload(r.Context(), kind, part)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				responses.WriteSuccessStatus(w, http.StatusCreated, result)
				return
			}
			_ = part.Close()
		}

		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required"))
	}
}

// AdminImageDelete removes an image by its public URL or object key.
func AdminImageDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "image")
			return
		}
		var body deleteImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), strings.TrimSpace(body.URL)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "image deleted")
	}
}
