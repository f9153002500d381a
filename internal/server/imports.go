package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/table"
)

const maxUploadBytes = 32 << 20

// upload is a parsed multipart import request.
type upload struct {
	data     []byte
	filename string
	dryRun   bool
}

// readUpload parses the multipart body. ok is false after an error response
// has been written.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Expected a multipart form with a file field.")
		return nil, false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "file is required.")
		return nil, false
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Could not read the uploaded file.")
		return nil, false
	}
	dryRun, err := formBool(r.FormValue("dry_run"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "dry_run must be a boolean.")
		return nil, false
	}

	name := hdr.Filename
	if name == "" {
		name = "upload.csv"
	}
	return &upload{data: data, filename: name, dryRun: dryRun}, true
}

func (s *Server) importResale(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	opts := importer.ResaleOptions{
		OwnerUserID:    r.FormValue("owner_user_id"),
		HROwnerUserID:  r.FormValue("hr_owner_user_id"),
		DefaultCity:    r.FormValue("default_city"),
		DefaultPurpose: r.FormValue("default_purpose"),
		DryRun:         up.dryRun,
		Defaults:       s.cfg.ImportDefaults(),
	}
	report, err := s.track(r.Context(), "resale", up, func(ctx context.Context) (*importer.Report, error) {
		return s.svc.Importer.ImportResale(ctx, up.data, up.filename, opts)
	})
	if err != nil {
		importError(w, r, err)
		return
	}
	writeOK(w, report)
}

func (s *Server) importProjects(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	opts := importer.ProjectOptions{
		DeveloperID: r.FormValue("developer_id"),
		OwnerUserID: r.FormValue("owner_user_id"),
		DryRun:      up.dryRun,
		Defaults:    s.cfg.ImportDefaults(),
	}
	// Argument errors are reported before a run is recorded.
	if opts.DeveloperID == "" {
		importError(w, r, importer.ErrDeveloperRequired)
		return
	}
	if opts.OwnerUserID == "" {
		importError(w, r, importer.ErrOwnerRequired)
		return
	}
	report, err := s.track(r.Context(), "projects", up, func(ctx context.Context) (*importer.Report, error) {
		return s.svc.Importer.ImportProjects(ctx, up.data, up.filename, opts)
	})
	if err != nil {
		importError(w, r, err)
		return
	}
	writeOK(w, report)
}

func (s *Server) track(ctx context.Context, kind string, up *upload, fn func(context.Context) (*importer.Report, error)) (*importer.Report, error) {
	if up.dryRun || s.svc.Runs == nil {
		return fn(ctx)
	}
	return s.svc.Runs.Track(ctx, kind, up.filename, fn)
}

// importError answers a failed import. Missing project arguments are a
// rejected call (200, ok false); unreadable input is a bad request.
func importError(w http.ResponseWriter, r *http.Request, err error) {
	for _, sentinel := range []error{importer.ErrDeveloperRequired, importer.ErrOwnerRequired} {
		if eris.Is(err, sentinel) {
			writeRejected(w, codeInvalidRequest, sentinel.Error())
			return
		}
	}
	if eris.Is(err, table.ErrUnsupportedFileType) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, table.ErrUnsupportedFileType.Error())
		return
	}
	var fe *table.FormatError
	if errors.As(err, &fe) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Could not read "+fe.Filename+".")
		return
	}
	internalError(w, r, err)
}

func (s *Server) sampleTemplate(w http.ResponseWriter, r *http.Request) {
	kind := importer.KindResale
	if r.URL.Query().Get("kind") == importer.KindProject {
		kind = importer.KindProject
	}
	header := importer.TemplateHeaders(kind)

	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	if r.URL.Query().Get("format") == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		w.Header().Set("Content-Disposition", `attachment; filename="`+kind+`-template.xlsx"`)
		err = table.WriteXLSX(&buf, kind, header)
	} else {
		contentType = "text/csv; charset=utf-8"
		err = table.WriteCSV(&buf, header)
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) mapping(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"headers": s.svc.Headers})
}
