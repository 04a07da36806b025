package grpc

import (
	"context"
	"errors"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/usecase/dashboard"
	"github.com/simaogato/loanscore-backend/internal/usecase/history"
	"github.com/simaogato/loanscore-backend/internal/usecase/scoring"
)

// Server implements the LoanScoringService gRPC server
type Server struct {
	ScoringService   *scoring.ScoringService
	HistoryService   *history.HistoryService
	DashboardService *dashboard.DashboardService
}

// NewServer creates a new gRPC server instance
func NewServer(
	scoringService *scoring.ScoringService,
	historyService *history.HistoryService,
	dashboardService *dashboard.DashboardService,
) *Server {
	return &Server{
		ScoringService:   scoringService,
		HistoryService:   historyService,
		DashboardService: dashboardService,
	}
}

// Submit handles the Submit RPC
func (s *Server) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	// Flatten the request into raw string fields
	raw := make(map[string]string, len(req.GetFields()))
	for name, value := range req.GetFields() {
		switch kind := value.GetKind().(type) {
		case *structpb.Value_StringValue:
			raw[name] = kind.StringValue
		case *structpb.Value_NumberValue:
			raw[name] = strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
		default:
			return nil, mapError(&domain.ValidationError{Field: name, Message: "Invalid value for " + name})
		}
	}

	// Call usecase service
	result, err := s.ScoringService.Submit(ctx, raw)
	if err != nil {
		return nil, mapError(err)
	}

	// Build response
	fields := decisionFields(result.Decision)
	fields["persisted"] = result.Persisted
	if result.Record != nil {
		fields["record_id"] = result.Record.ID
		createdAt, err := formatTimestamp(result.Record.CreatedAt)
		if err != nil {
			return nil, mapError(err)
		}
		fields["created_at"] = createdAt
	}
	return newStruct(fields)
}

// ListHistory handles the ListHistory RPC
func (s *Server) ListHistory(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	records, err := s.HistoryService.History(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(records))
	for _, record := range records {
		item, err := recordFields(record)
		if err != nil {
			return nil, mapError(err)
		}
		items = append(items, item)
	}

	return newStruct(map[string]any{"records": items})
}

// GetDashboard handles the GetDashboard RPC
func (s *Server) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.DashboardService.Dashboard(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	trend := make([]any, 0, len(summary.Trend))
	for _, bucket := range summary.Trend {
		trend = append(trend, map[string]any{
			"date":  bucket.Date,
			"count": bucket.Count,
		})
	}

	return newStruct(map[string]any{
		"total":    summary.Total,
		"approved": summary.ApprovedCount,
		"rejected": summary.RejectedCount,
		"trend":    trend,
	})
}

// DeleteRecord handles the DeleteRecord RPC
func (s *Server) DeleteRecord(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	// Parse record ID
	value, ok := req.GetFields()["id"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	var id int64
	switch kind := value.GetKind().(type) {
	case *structpb.Value_NumberValue:
		id = int64(kind.NumberValue)
		if float64(id) != kind.NumberValue {
			return nil, status.Errorf(codes.InvalidArgument, "invalid id: %v", kind.NumberValue)
		}
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid id: %v", err)
		}
		id = parsed
	default:
		return nil, status.Error(codes.InvalidArgument, "id must be a number")
	}

	if err := s.HistoryService.DeleteRecord(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// decisionFields converts a decision into Struct fields. Percentages are null without a probability.
func decisionFields(decision domain.Decision) map[string]any {
	hints := make([]any, 0, len(decision.Hints))
	for _, hint := range decision.Hints {
		hints = append(hints, hint)
	}

	return map[string]any{
		"label":                 string(decision.Label),
		"prediction":            decision.Label.Prediction(),
		"probability_of_reject": optional(decision.ProbabilityOfReject),
		"risk_pct":              optional(decision.RiskPct),
		"safe_pct":              optional(decision.SafePct),
		"confidence":            optional(decision.Confidence),
		"hints":                 hints,
	}
}

func recordFields(record *domain.HistoryRecord) (map[string]any, error) {
	createdAt, err := formatTimestamp(record.CreatedAt)
	if err != nil {
		return nil, err
	}

	input := make(map[string]any)
	for name, value := range record.Input.Fields() {
		input[name] = value
	}

	return map[string]any{
		"id":         record.ID,
		"input":      input,
		"decision":   decisionFields(record.Decision),
		"created_at": createdAt,
	}, nil
}

// formatTimestamp renders t as an RFC 3339 UTC timestamp within the protobuf Timestamp range
func formatTimestamp(t time.Time) (string, error) {
	ts := timestamppb.New(t)
	if err := ts.CheckValid(); err != nil {
		return "", err
	}
	return ts.AsTime().Format(time.RFC3339Nano), nil
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	// Validation errors carry the offending field as a BadRequest detail
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		st := status.New(codes.InvalidArgument, validationErr.Message)
		detailed, detailErr := st.WithDetails(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: validationErr.Field, Description: validationErr.Message},
			},
		})
		if detailErr != nil {
			return st.Err()
		}
		return detailed.Err()
	}

	switch {
	case errors.Is(err, domain.ErrModelUnavailable):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, domain.ErrRecordNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
