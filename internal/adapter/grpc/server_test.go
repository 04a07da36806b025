package grpc

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/loanscore-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/loanscore-backend/internal/domain"
	"github.com/simaogato/loanscore-backend/internal/usecase/dashboard"
	"github.com/simaogato/loanscore-backend/internal/usecase/history"
	"github.com/simaogato/loanscore-backend/internal/usecase/scoring"
)

const (
	testToken      = "test-token-123"
	testAdminToken = "admin-secret"
)

// fixedClassifier returns the same outcome for every application
type fixedClassifier struct {
	prediction  int
	probability float64
	err         error
}

func (c fixedClassifier) Predict(context.Context, domain.FeatureRecord) (int, error) {
	return c.prediction, c.err
}

func (c fixedClassifier) PredictProbability(context.Context, domain.FeatureRecord) (float64, bool, error) {
	return c.probability, true, c.err
}

func startServer(t *testing.T, classifier scoring.Classifier) *LoanScoringClient {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repo := sqlite.NewHistoryRepository(db)
	logger := zaptest.NewLogger(t)
	srv := NewServer(
		scoring.NewScoringService(classifier, repo, domain.PolicyStandard, scoring.DefaultOptions(), logger),
		history.NewHistoryService(repo),
		dashboard.NewDashboardService(repo),
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(testToken), AdminInterceptor(testAdminToken)),
	)
	RegisterLoanScoringServiceServer(grpcServer, srv)
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewLoanScoringClient(conn)
}

func authed() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", testToken)
}

func scenarioRequest(t *testing.T, overrides map[string]any) *structpb.Struct {
	t.Helper()
	fields := map[string]any{
		"Age":            30,
		"Income":         50000,
		"LoanAmount":     "20000",
		"CreditScore":    600,
		"DTIRatio":       0.5,
		"Education":      "Bachelor's",
		"EmploymentType": "Full-time",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return req
}

func TestServer_SubmitHistoryDashboard(t *testing.T) {
	client := startServer(t, fixedClassifier{prediction: 1, probability: 0.62})
	ctx := authed()

	resp, err := client.Submit(ctx, scenarioRequest(t, nil))
	require.NoError(t, err)

	got := resp.AsMap()
	assert.Equal(t, "REJECTED", got["label"])
	assert.Equal(t, 62.0, got["risk_pct"])
	assert.Equal(t, 38.0, got["safe_pct"])
	assert.Equal(t, 62.0, got["confidence"])
	assert.Equal(t, []any{"Low Credit Score", "High DTI Ratio"}, got["hints"])
	assert.Equal(t, true, got["persisted"])
	recordID := got["record_id"]
	assert.NotNil(t, recordID)
	assert.NotEmpty(t, got["created_at"])

	historyResp, err := client.ListHistory(ctx)
	require.NoError(t, err)
	records := historyResp.AsMap()["records"].([]any)
	require.Len(t, records, 1)
	first := records[0].(map[string]any)
	assert.Equal(t, recordID, first["id"])
	assert.Equal(t, "600", first["input"].(map[string]any)["CreditScore"])
	assert.Equal(t, "REJECTED", first["decision"].(map[string]any)["label"])

	dashboardResp, err := client.GetDashboard(ctx)
	require.NoError(t, err)
	summary := dashboardResp.AsMap()
	assert.Equal(t, 1.0, summary["total"])
	assert.Equal(t, 0.0, summary["approved"])
	assert.Equal(t, 1.0, summary["rejected"])
	assert.Len(t, summary["trend"], 1)
}

func TestServer_SubmitValidationError(t *testing.T) {
	client := startServer(t, fixedClassifier{prediction: 0, probability: 0.1})

	tests := []struct {
		name      string
		overrides map[string]any
		wantField string
	}{
		{"Age zero", map[string]any{"Age": 0}, "Age"},
		{"Age too high", map[string]any{"Age": 101}, "Age"},
		{"DTI too high", map[string]any{"DTIRatio": "2.01"}, "DTIRatio"},
		{"Boolean value", map[string]any{"Income": true}, "Income"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Submit(authed(), scenarioRequest(t, tt.overrides))

			st := status.Convert(err)
			assert.Equal(t, codes.InvalidArgument, st.Code())
			var field string
			for _, detail := range st.Details() {
				if br, ok := detail.(*errdetails.BadRequest); ok {
					field = br.GetFieldViolations()[0].GetField()
				}
			}
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestServer_ModelUnavailable(t *testing.T) {
	client := startServer(t, fixedClassifier{err: fmt.Errorf("%w: artifact missing", domain.ErrModelUnavailable)})

	_, err := client.Submit(authed(), scenarioRequest(t, nil))

	assert.Equal(t, codes.Unavailable, status.Code(err))

	historyResp, err := client.ListHistory(authed())
	require.NoError(t, err)
	assert.Empty(t, historyResp.AsMap()["records"])
}

func TestServer_RequiresToken(t *testing.T) {
	client := startServer(t, fixedClassifier{})

	_, err := client.GetDashboard(context.Background())

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_DeleteRecord(t *testing.T) {
	client := startServer(t, fixedClassifier{prediction: 0, probability: 0.2})
	ctx := authed()

	resp, err := client.Submit(ctx, scenarioRequest(t, nil))
	require.NoError(t, err)
	id := int64(resp.AsMap()["record_id"].(float64))

	err = client.DeleteRecord(ctx, id)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	adminCtx := metadata.AppendToOutgoingContext(ctx, "x-admin-token", testAdminToken)
	require.NoError(t, client.DeleteRecord(adminCtx, id))

	err = client.DeleteRecord(adminCtx, id)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"Validation", &domain.ValidationError{Field: "Age", Message: "Age must be between 1 and 100"}, codes.InvalidArgument},
		{"Model unavailable", fmt.Errorf("failed to classify application: %w", domain.ErrModelUnavailable), codes.Unavailable},
		{"Not found", fmt.Errorf("decision 3: %w", domain.ErrRecordNotFound), codes.NotFound},
		{"Deadline", fmt.Errorf("failed to list history: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"Persistence", &domain.PersistenceError{Op: "list", Err: fmt.Errorf("boom")}, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(mapError(tt.err)))
		})
	}

	assert.NoError(t, mapError(nil))
}
