package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetmaint/core/model"
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
	"github.com/kilianp07/fleetmaint/infra/store"
)

type fakeService struct {
	snaps    map[string]model.Snapshot
	pred     model.Prediction
	err      error
	trainErr error
	upserted []string
	sources  []string
	panicky  bool
}

func newFakeService() *fakeService {
	return &fakeService{
		snaps: map[string]model.Snapshot{
			"1":  {VehicleID: "1", Type: model.VehicleElectric, Manufacturer: "Tesla"},
			"v2": {VehicleID: "v2", Type: "TRUCK", Manufacturer: "Ford"},
		},
		pred: model.Prediction{MaintenanceType: model.MaintenanceRoutine, PredictedDays: 60},
	}
}

func (f *fakeService) Predict(_ context.Context, id string) (model.Prediction, error) {
	if f.panicky {
		panic("boom")
	}
	if f.err != nil {
		return model.Prediction{}, f.err
	}
	if _, ok := f.snaps[id]; !ok {
		return model.Prediction{}, store.ErrNotFound
	}
	return f.pred, nil
}

func (f *fakeService) PredictAll(context.Context) (map[string]model.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]model.Prediction{}
	for id := range f.snaps {
		out[id] = f.pred
	}
	return out, nil
}

func (f *fakeService) Train(context.Context) (int, error) {
	if f.trainErr != nil {
		return 0, f.trainErr
	}
	return len(f.snaps), nil
}

func (f *fakeService) Upsert(_ context.Context, s model.Snapshot, source string) error {
	f.upserted = append(f.upserted, s.VehicleID)
	f.sources = append(f.sources, source)
	return nil
}

func (f *fakeService) Vehicles(_ context.Context, filter store.Filter) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, s := range f.snaps {
		if filter.Match(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

type memAudit struct{ recs []audit.Record }

func (m *memAudit) Append(_ context.Context, r audit.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memAudit) Query(_ context.Context, q audit.Query) ([]audit.Record, error) {
	var res []audit.Record
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memAudit) Close() error { return nil }

func do(t *testing.T, h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rr := do(t, NewServer(newFakeService()), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode(t, rr)["status"])
}

func TestPredict_AcceptsNumericAndStringIDs(t *testing.T) {
	srv := NewServer(newFakeService())
	for _, body := range []string{`{"vehicleId":1}`, `{"vehicleId":"1"}`} {
		rr := do(t, srv, http.MethodPost, "/api/ai/predict/maintenance", body, "")
		require.Equal(t, http.StatusOK, rr.Code, body)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		out := decode(t, rr)
		assert.Equal(t, "1", out["vehicleId"])
		pred := out["prediction"].(map[string]any)
		assert.Equal(t, "Routine Checkup", pred["maintenanceType"])
	}
}

func TestPredict_Errors(t *testing.T) {
	srv := NewServer(newFakeService())

	rr := do(t, srv, http.MethodPost, "/api/ai/predict/maintenance", `{"vehicleId":"nope"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Vehicle not found", decode(t, rr)["error"])

	rr = do(t, srv, http.MethodPost, "/api/ai/predict/maintenance", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/ai/predict/maintenance", `{`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	svc := newFakeService()
	svc.err = errors.New("db down")
	rr = do(t, NewServer(svc), http.MethodPost, "/api/ai/predict/maintenance", `{"vehicleId":"1"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Prediction failed: db down", decode(t, rr)["error"])
}

func TestPredictAll(t *testing.T) {
	rr := do(t, NewServer(newFakeService()), http.MethodGet, "/api/ai/predict/maintenance/all", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.EqualValues(t, 2, out["count"])
	assert.Len(t, out["predictions"], 2)

	svc := newFakeService()
	svc.err = errors.New("timeout")
	rr = do(t, NewServer(svc), http.MethodGet, "/api/ai/predict/maintenance/all", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Batch prediction failed: timeout", decode(t, rr)["error"])
}

func TestTrain_RequiresToken(t *testing.T) {
	srv := NewServer(newFakeService(), WithToken("tok"))

	rr := do(t, srv, http.MethodPost, "/api/ai/train", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/ai/train", "", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, "AI model trained successfully with 2 vehicles", out["message"])
	assert.EqualValues(t, 2, out["vehicleCount"])
}

func TestTrain_Failure(t *testing.T) {
	svc := newFakeService()
	svc.trainErr = context.Canceled
	rr := do(t, NewServer(svc), http.MethodPost, "/api/ai/train", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Model training failed: context canceled", decode(t, rr)["error"])
}

func TestVehicleMaintenance(t *testing.T) {
	srv := NewServer(newFakeService())
	rr := do(t, srv, http.MethodGet, "/api/vehicles/v2/maintenance", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v2", decode(t, rr)["vehicleId"])

	rr = do(t, srv, http.MethodGet, "/api/vehicles/x/maintenance", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVehicles_ListAndUpsert(t *testing.T) {
	svc := newFakeService()
	svc.snaps["v4"] = model.Snapshot{VehicleID: "v4", Type: "VAN", Manufacturer: "Ford"}
	srv := NewServer(svc, WithToken("tok"))

	rr := do(t, srv, http.MethodGet, "/api/vehicles?type=SEDAN", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode(t, rr)["count"])

	rr = do(t, srv, http.MethodGet, "/api/vehicles?type=truck", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	require.EqualValues(t, 1, out["count"])
	assert.Equal(t, "TRUCK", out["vehicles"].([]any)[0].(map[string]any)["type"])

	rr = do(t, srv, http.MethodGet, "/api/vehicles?manufacturer=nobody", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out = decode(t, rr)
	assert.EqualValues(t, 0, out["count"])
	assert.Equal(t, []any{}, out["vehicles"])

	rr = do(t, srv, http.MethodPost, "/api/vehicles", `{"id":"v3","fuelLevel":40}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/vehicles", `{"fuelLevel":40}`, "tok")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/vehicles", `{"id":"v3","fuelLevel":40}`, "tok")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []string{"v3"}, svc.upserted)
	assert.Equal(t, []string{sourceHTTP}, svc.sources)
}

func TestAuditLog(t *testing.T) {
	st := &memAudit{}
	now := time.Now().UTC()
	require.NoError(t, st.Append(context.Background(), audit.NewRecord("v1", 1, model.Prediction{MaintenanceType: model.MaintenanceGeneral, NeedsMaintenance: true}, now)))
	require.NoError(t, st.Append(context.Background(), audit.NewRecord("v2", 0, model.Prediction{MaintenanceType: model.MaintenanceRoutine}, now)))
	srv := NewServer(newFakeService(), WithToken("tok"), WithAuditStore(st))

	rr := do(t, srv, http.MethodGet, "/api/ai/predictions/log", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/ai/predictions/log?needs_maintenance=true", "", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []audit.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "v1", recs[0].VehicleID)

	rr = do(t, srv, http.MethodGet, "/api/ai/predictions/log?vehicle_id=none", "", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/ai/predictions/log?start=yesterday", "", "tok")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuditLog_NotMountedWithoutStore(t *testing.T) {
	rr := do(t, NewServer(newFakeService()), http.MethodGet, "/api/ai/predictions/log", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsHandler(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	rr := do(t, NewServer(newFakeService(), WithMetricsHandler(h)), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "# metrics", rr.Body.String())
}

func TestRecoverMiddleware(t *testing.T) {
	svc := newFakeService()
	svc.panicky = true
	rr := do(t, NewServer(svc), http.MethodGet, "/api/vehicles/1/maintenance", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decode(t, rr)["error"])
}
