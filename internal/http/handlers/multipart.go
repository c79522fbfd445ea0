package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-media-hub/internal/http/response"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// parseMultipart разбирает multipart/form-data. Файлы формы удаляются
// через возвращённую функцию cleanup.
func (h *Handlers) parseMultipart(r *http.Request) (func(), error) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return func() {}, response.BadRequest("Request body too large")
		}

		return func() {}, response.BadRequest("Invalid multipart form")
	}

	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// formAsset открывает файл формы. Отсутствие файла не ошибка: (nil, nil, nil).
// Возвращённый io.Closer нужно закрыть после использования ассета.
func formAsset(r *http.Request, field string) (*storage.Asset, io.Closer, error) {
	const op = "handlers.multipart.formAsset"

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	contentType, err := detectContentType(file, header)
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.Asset{
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
	}, file, nil
}

// ErrContentTypeMismatch - заявленный тип части не совпадает с содержимым.
var ErrContentTypeMismatch = errors.New("declared content type does not match file content")

// detectContentType определяет тип по первым 512 байтам и возвращает файл в начало.
// Заголовок Content-Type части не принимается на веру: если он задан
// и расходится с содержимым, возвращается ErrContentTypeMismatch.
func detectContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sniffed := mediaType(http.DetectContentType(buf[:n]))

	declared := mediaType(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return "", fmt.Errorf("%w: declared %q, detected %q", ErrContentTypeMismatch, declared, sniffed)
	}

	return sniffed, nil
}

// mediaType отбрасывает параметры ("; charset=...").
func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}
