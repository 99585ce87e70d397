package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

type documentResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type documentDetailsResponse struct {
	documentResponse
	ContentLength  int    `json:"content_length"`
	State          string `json:"state"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingCount int    `json:"embedding_count"`
}

type fileErrorResponse struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

type uploadResponse struct {
	Documents []documentResponse  `json:"documents"`
	Errors    []fileErrorResponse `json:"errors,omitempty"`
}

type statusResponse struct {
	DocumentID   string    `json:"document_id"`
	State        string    `json:"state"`
	ChunkCount   int       `json:"chunk_count"`
	IndexedCount int       `json:"indexed_count"`
	FailedChunk  int       `json:"failed_chunk"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type queryRequest struct {
	Query string `json:"query"`
	Title string `json:"title,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
	TopN  int    `json:"top_n,omitempty"`
}

type contextResponse struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Position   int     `json:"position"`
	Distance   float64 `json:"distance"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type queryResponse struct {
	Query         string            `json:"query"`
	Title         string            `json:"title"`
	Answer        string            `json:"answer"`
	Contexts      []contextResponse `json:"contexts,omitempty"`
	JudgeFailures int               `json:"judge_failures,omitempty"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		Title:      d.DisplayTitle(),
		FileName:   d.FileName,
		UploadedAt: d.UploadedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	uploads := make([]domain.Upload, 0, len(headers))
	var readErrs []fileErrorResponse
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			readErrs = append(readErrs, fileErrorResponse{FileName: fh.Filename, Error: err.Error()})
			continue
		}
		uploads = append(uploads, domain.Upload{
			FileName: fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Title:    title,
			Data:     data,
		})
	}

	resp := uploadResponse{Documents: []documentResponse{}, Errors: readErrs}
	if len(uploads) > 0 {
		report, err := s.ports.Ingestion.Ingest(r.Context(), uploads)
		if err != nil {
			writeError(w, err)
			return
		}
		for i := range report.Documents {
			resp.Documents = append(resp.Documents, toDocumentResponse(&report.Documents[i]))
		}
		for _, fe := range report.Errors {
			resp.Errors = append(resp.Errors, fileErrorResponse{FileName: fe.FileName, Error: fe.Err.Error()})
		}
	}

	status := http.StatusCreated
	if len(resp.Documents) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ports.Document.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	details, err := s.ports.Document.GetDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentDetailsResponse{
		documentResponse: documentResponse{
			ID:         details.ID,
			Title:      details.Title,
			FileName:   details.FileName,
			UploadedAt: details.UploadedAt,
		},
		ContentLength:  details.ContentLength,
		State:          details.State.String(),
		ChunkCount:     details.ChunkCount,
		EmbeddingCount: details.EmbeddingCount,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ports.Ingestion.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		DocumentID:   st.DocumentID,
		State:        st.State.String(),
		ChunkCount:   st.ChunkCount,
		IndexedCount: st.IndexedCount,
		FailedChunk:  st.FailedChunk,
		Error:        st.Error,
		UpdatedAt:    st.UpdatedAt,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Document.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReingest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ports.Ingestion.Reingest(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "state": domain.IngestionCreated.String()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err))
		return
	}

	answer, err := s.ports.Query.AskWithOptions(r.Context(),
		domain.Query{Text: req.Query, Title: req.Title},
		driving.QueryOptions{TopK: req.TopK, TopN: req.TopN},
	)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := queryResponse{
		Query:         answer.Query,
		Title:         answer.Title,
		Answer:        answer.Answer,
		JudgeFailures: answer.JudgeFailures,
	}
	for _, c := range answer.Contexts {
		resp.Contexts = append(resp.Contexts, contextResponse{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Position:   c.Position,
			Distance:   c.Distance,
			Score:      c.Score,
			Content:    c.Content,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
