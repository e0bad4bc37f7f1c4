package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/tonimelisma/drive-explorer/internal/drive"
	"github.com/tonimelisma/drive-explorer/internal/session"
)

// connect returns a provider bound to the session's credential, plus a
// context carrying the per-request provider timeout.
func (s *Server) connect(r *http.Request, sess *session.Session) (drive.Provider, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)

	p, err := s.connector.Connect(ctx, sess.Token)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}

	return p, ctx, cancel, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()

	pageSize, err := parsePageSize(q.Get("page_size"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	folderID := q.Get("folder_id")
	if folderID == "" {
		folderID = drive.RootID
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	page, err := p.ListChildren(ctx, folderID, pageSize, q.Get("page_token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(page))
}

// parsePageSize validates the page_size query value. Empty selects the default.
func parsePageSize(raw string) (int, error) {
	if raw == "" {
		return drive.DefaultPageSize, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: page_size must be an integer", drive.ErrValidation)
	}

	if n == 0 {
		return 0, fmt.Errorf("%w: page_size must be between 1 and %d", drive.ErrValidation, drive.MaxPageSize)
	}

	return drive.ValidatePageSize(n)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name, err := drive.ValidateName(r.FormValue("folder_name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	item, err := p.CreateFolder(ctx, r.FormValue("parent_id"), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemJSON(item))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, uploadFormError(err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", slog.String("error", err.Error()))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: file is required", drive.ErrValidation))
		return
	}
	defer file.Close()

	name, err := drive.ValidateName(header.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	item, err := p.UploadContent(ctx, r.FormValue("folder_id"), name, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemJSON(item))
}

// uploadFormError classifies a multipart parse failure.
func uploadFormError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("%w: upload exceeds the %d byte limit", drive.ErrBadRequest, maxBytes.Limit)
	}

	return fmt.Errorf("%w: invalid multipart form: %w", drive.ErrBadRequest, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	if err := p.DeleteItem(ctx, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name, err := drive.ValidateName(r.FormValue("new_name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	item, err := p.RenameItem(ctx, r.PathValue("id"), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemJSON(item))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, ctx, cancel, err := s.connect(r, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	content, err := p.FetchContent(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if content.ExportRequired {
		writeJSON(w, http.StatusAccepted, exportResponse{
			Message:     "Google Workspace documents cannot be downloaded directly; open or export them instead",
			Name:        content.Item.Name,
			FileID:      content.Item.ID,
			WebViewLink: content.Item.WebViewLink,
		})

		return
	}
	defer content.Body.Close()

	h := w.Header()
	h.Set("Content-Type", content.ContentType)
	h.Set("Content-Disposition", contentDisposition(content.Item.Name))

	if content.Item.Size != drive.SizeUnknown {
		h.Set("Content-Length", strconv.FormatInt(content.Item.Size, 10))
	}

	w.WriteHeader(http.StatusOK)

	// Headers are sent; a failure now can only be logged.
	if n, err := io.Copy(w, content.Body); err != nil {
		s.logger.Warn("download interrupted",
			slog.String("file_id", content.Item.ID),
			slog.Int64("bytes", n),
			slog.String("error", err.Error()),
		)
	}
}

// contentDisposition marks the response as a download named name. Names
// that cannot be encoded fall back to a bare attachment.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}

	return "attachment"
}
