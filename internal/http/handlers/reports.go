package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/reports"
)

// UploadReport accepts one medical report as multipart field "file".
func (h *BookingHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		jsonError(w, "report uploads are disabled", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, reports.MaxFileSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	report, err := reports.Accept(r.Context(), h.uploader, sess.Store, sess.ProfileID, reports.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		if isReportValidation(err) {
			h.fail(w, r, err)
			return
		}
		h.logger.Warn("report upload failed", "profile_id", sess.ProfileID, "error", err)
		jsonError(w, backend.Message(err, "Failed to upload report. Please try again."), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func isReportValidation(err error) bool {
	return errors.Is(err, reports.ErrEmptyFile) ||
		errors.Is(err, reports.ErrFileTooLarge) ||
		errors.Is(err, reports.ErrUnsupportedType)
}
