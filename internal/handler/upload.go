package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/imaging"
)

// readUpload returns the multipart "file" part, capped at imaging.MaxUploadBytes.
func readUpload(c echo.Context) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, apperr.FieldError("file", "画像ファイルを選択してください")
		}
		return "", nil, apperr.Wrap(apperr.KindBadRequest, "アップロードを読み込めませんでした", err)
	}
	if fh.Size > imaging.MaxUploadBytes {
		return "", nil, apperr.FieldError("file", "画像サイズは10MB以下にしてください")
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, imaging.MaxUploadBytes+1))
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	if len(data) > imaging.MaxUploadBytes {
		return "", nil, apperr.FieldError("file", "画像サイズは10MB以下にしてください")
	}
	return fh.Filename, data, nil
}
