package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/chat"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/pipeline"
)

// maxUploadBytes caps bill uploads. Bill photos run a few MB at most.
const maxUploadBytes = 10 << 20

// analyzeRequest is the JSON submission body. The image rides as base64; the
// web client reads the upload into a data URL anyway.
type analyzeRequest struct {
	PropertyID          uuid.UUID `json:"property_id"`
	ImageBase64         string    `json:"image_base64"`
	MimeType            string    `json:"mime_type"`
	FileURL             string    `json:"file_url,omitempty"`
	MonitoredGeneration float64   `json:"monitored_generation_kwh"`
	ExpectedGeneration  float64   `json:"expected_generation_kwh,omitempty"`
	Mode                string    `json:"mode,omitempty"` // quick | full
	ReferenceMonth      int       `json:"reference_month,omitempty"`
	ReferenceYear       int       `json:"reference_year,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, image, err := decodeAnalyzeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := s.pipeline.Run(r.Context(), pipeline.AnalyzeRequest{
		PropertyID:             req.PropertyID,
		Image:                  extract.ImageInput{Bytes: image, MimeType: req.MimeType},
		FileURL:                req.FileURL,
		MonitoredGenerationKwh: req.MonitoredGeneration,
		ExpectedGenerationKwh:  req.ExpectedGeneration,
		Mode:                   pipeline.Mode(req.Mode),
		ReferenceMonth:         req.ReferenceMonth,
		ReferenceYear:          req.ReferenceYear,
	})

	switch result.Outcome {
	case pipeline.OutcomeProcessing:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":     true,
			"status":      string(constants.AnalysisProcessing),
			"analysis_id": result.AnalysisID,
			"poll":        "/api/v1/analyses/" + result.AnalysisID.String(),
		})
	case pipeline.OutcomeFailed:
		s.writeError(w, result.Err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"analysis_id": result.AnalysisID,
			"record":      result.Record,
			"metrics":     result.Metrics,
			"narrative":   result.Narrative,
		})
	}
}

// decodeAnalyzeRequest accepts either a JSON body with a base64 image or a
// multipart form with the file under "bill".
func decodeAnalyzeRequest(r *http.Request) (analyzeRequest, []byte, error) {
	var req analyzeRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, nil, common.InvalidInputError("invalid multipart body")
		}
		file, header, err := r.FormFile("bill")
		if err != nil {
			return req, nil, common.InvalidInputError("multipart field \"bill\" is required")
		}
		defer file.Close()
		image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil || int64(len(image)) > maxUploadBytes {
			return req, nil, common.InvalidInputError("bill file too large")
		}

		req.PropertyID, _ = uuid.Parse(r.FormValue("property_id"))
		// Browsers often send a generic part type; trust the filename then.
		req.MimeType = header.Header.Get("Content-Type")
		if _, ok := constants.AllowedMimeTypes[req.MimeType]; !ok {
			req.MimeType = constants.MimeFromExtension(filepath.Ext(header.Filename))
		}
		req.FileURL = r.FormValue("file_url")
		req.Mode = r.FormValue("mode")
		req.MonitoredGeneration, _ = strconv.ParseFloat(r.FormValue("monitored_generation_kwh"), 64)
		req.ExpectedGeneration, _ = strconv.ParseFloat(r.FormValue("expected_generation_kwh"), 64)
		req.ReferenceMonth, _ = strconv.Atoi(r.FormValue("reference_month"))
		req.ReferenceYear, _ = strconv.Atoi(r.FormValue("reference_year"))
		return req, image, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, nil, common.InvalidInputError("invalid request body")
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return req, nil, common.InvalidInputError("image_base64 is not valid base64")
	}
	if req.MimeType == "" {
		req.MimeType = "image/jpeg"
	}
	return req, image, nil
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	analysis, err := s.analyses.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.analyses.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	list, err := s.analyses.ListByProperty(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": list})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	raw, err := s.export.PropertyAnalysesXLSX(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="analises.xlsx"`)
	_, _ = w.Write(raw)
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// handleChat proxies the model's SSE stream straight through to the client.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.InvalidInputError("invalid request body"))
		return
	}

	stream, err := s.chat.Stream(r.Context(), id, req.Messages)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn("chat stream close error", "error", cerr)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return
		}
		if rerr != nil {
			s.log.Warn("chat stream read error", "error", rerr)
			return
		}
	}
}
