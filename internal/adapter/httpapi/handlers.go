package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/logging"
	"github.com/simaogato/loanscore-backend/internal/usecase/dashboard"
	"github.com/simaogato/loanscore-backend/internal/usecase/history"
	"github.com/simaogato/loanscore-backend/internal/usecase/scoring"
)

const maxBodyBytes = 1 << 20

// BuildInfo describes the running build for the /version endpoint
type BuildInfo struct {
	Version      string
	ModelVersion func() string
}

// Handler serves the HTTP JSON API
type Handler struct {
	ScoringService   *scoring.ScoringService
	HistoryService   *history.HistoryService
	DashboardService *dashboard.DashboardService
	Build            BuildInfo
	Logger           *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(
	scoringService *scoring.ScoringService,
	historyService *history.HistoryService,
	dashboardService *dashboard.DashboardService,
	build BuildInfo,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ScoringService:   scoringService,
		HistoryService:   historyService,
		DashboardService: dashboardService,
		Build:            build,
		Logger:           logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type decisionResponse struct {
	Label               domain.Label `json:"label"`
	Prediction          int          `json:"prediction"`
	ProbabilityOfReject *float64     `json:"probability_of_reject"`
	RiskPct             *float64     `json:"risk_pct"`
	SafePct             *float64     `json:"safe_pct"`
	Confidence          *float64     `json:"confidence"`
	Hints               []string     `json:"hints"`
}

type submitResponse struct {
	decisionResponse
	Persisted bool       `json:"persisted"`
	RecordID  *int64     `json:"record_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type applicationResponse struct {
	Age            float64 `json:"age"`
	Income         float64 `json:"income"`
	LoanAmount     float64 `json:"loan_amount"`
	CreditScore    float64 `json:"credit_score"`
	DTIRatio       float64 `json:"dti_ratio"`
	Education      string  `json:"education"`
	EmploymentType string  `json:"employment_type"`
}

type recordResponse struct {
	ID        int64               `json:"id"`
	Input     applicationResponse `json:"input"`
	Decision  decisionResponse    `json:"decision"`
	CreatedAt time.Time           `json:"created_at"`
}

type historyResponse struct {
	Records []recordResponse `json:"records"`
}

type trendResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type dashboardResponse struct {
	Total    int             `json:"total"`
	Approved int             `json:"approved"`
	Rejected int             `json:"rejected"`
	Trend    []trendResponse `json:"trend"`
}

type optionsResponse struct {
	Education      []domain.Education      `json:"education"`
	EmploymentType []domain.EmploymentType `json:"employment_type"`
}

type versionResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	ModelVersion string `json:"model_version"`
}

// Submit handles POST /api/v1/applications.
// The body is either a JSON object of fields or a form with the same field names.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	raw, err := readFields(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	result, err := h.ScoringService.Submit(r.Context(), raw)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	resp := submitResponse{
		decisionResponse: toDecisionResponse(result.Decision),
		Persisted:        result.Persisted,
	}
	if result.Record != nil {
		resp.RecordID = &result.Record.ID
		resp.CreatedAt = &result.Record.CreatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/v1/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.HistoryService.History(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	resp := historyResponse{Records: make([]recordResponse, 0, len(records))}
	for _, record := range records {
		resp.Records = append(resp.Records, recordResponse{
			ID: record.ID,
			Input: applicationResponse{
				Age:            record.Input.Age,
				Income:         record.Input.Income,
				LoanAmount:     record.Input.LoanAmount,
				CreditScore:    record.Input.CreditScore,
				DTIRatio:       record.Input.DTIRatio,
				Education:      string(record.Input.Education),
				EmploymentType: string(record.Input.EmploymentType),
			},
			Decision:  toDecisionResponse(record.Decision),
			CreatedAt: record.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.DashboardService.Dashboard(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	resp := dashboardResponse{
		Total:    summary.Total,
		Approved: summary.ApprovedCount,
		Rejected: summary.RejectedCount,
		Trend:    make([]trendResponse, 0, len(summary.Trend)),
	}
	for _, bucket := range summary.Trend {
		resp.Trend = append(resp.Trend, trendResponse{Date: bucket.Date, Count: bucket.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteRecord handles DELETE /api/v1/history/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", "id")
		return
	}

	if err := h.HistoryService.DeleteRecord(r.Context(), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.Logger).Info("decision deleted", zap.Int64("record_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Options handles GET /api/v1/options
func (h *Handler) Options(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, optionsResponse{
		Education:      domain.EducationOptions,
		EmploymentType: domain.EmploymentOptions,
	})
}

// Version handles GET /version
func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	resp := versionResponse{Status: "ok", Version: h.Build.Version}
	if h.Build.ModelVersion != nil {
		resp.ModelVersion = h.Build.ModelVersion()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readFields extracts the raw application fields from a JSON or form body
func readFields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, errBadRequest
		}
		raw := make(map[string]string, len(r.PostForm))
		for name := range r.PostForm {
			raw[name] = r.PostForm.Get(name)
		}
		return raw, nil
	}

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, errBadRequest
	}

	raw := make(map[string]string, len(body))
	for name, value := range body {
		switch v := value.(type) {
		case string:
			raw[name] = v
		case json.Number:
			raw[name] = v.String()
		default:
			return nil, &domain.ValidationError{Field: name, Message: fmt.Sprintf("Invalid value for %s", name)}
		}
	}
	return raw, nil
}

var errBadRequest = errors.New("invalid request body")

func toDecisionResponse(decision domain.Decision) decisionResponse {
	hints := decision.Hints
	if hints == nil {
		hints = []string{}
	}
	return decisionResponse{
		Label:               decision.Label,
		Prediction:          decision.Label.Prediction(),
		ProbabilityOfReject: decision.ProbabilityOfReject,
		RiskPct:             decision.RiskPct,
		SafePct:             decision.SafePct,
		Confidence:          decision.Confidence,
		Hints:               hints,
	}
}

// writeFailure maps err to a status code and writes the error body
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model unavailable", "")
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found", "")
	default:
		logging.FromContext(r.Context(), h.Logger).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, errorResponse{Error: message, Field: field})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
