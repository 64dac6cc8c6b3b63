package maintenance

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetmaint/core/model"
	coremon "github.com/kilianp07/fleetmaint/core/monitoring"
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
	"github.com/kilianp07/fleetmaint/infra/store"
)

const sourceHTTP = "http"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// vehicleRef accepts a vehicle id sent either as a JSON string or a number.
type vehicleRef string

func (v *vehicleRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = vehicleRef(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = vehicleRef(n.String())
	return nil
}

type predictRequest struct {
	VehicleID vehicleRef `json:"vehicleId"`
}

type predictResponse struct {
	VehicleID  string           `json:"vehicleId"`
	Prediction model.Prediction `json:"prediction"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.VehicleID == "" {
		respondError(w, http.StatusBadRequest, "vehicleId is required")
		return
	}
	id := string(req.VehicleID)
	p, err := s.svc.Predict(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "Vehicle not found")
		return
	}
	if err != nil {
		s.fail(w, "Prediction failed", err, id)
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{VehicleID: id, Prediction: p})
}

func (s *Server) handleVehicleMaintenance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.svc.Predict(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	if err != nil {
		s.fail(w, "Prediction failed", err, id)
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{VehicleID: id, Prediction: p})
}

func (s *Server) handlePredictAll(w http.ResponseWriter, r *http.Request) {
	preds, err := s.svc.PredictAll(r.Context())
	if err != nil {
		s.fail(w, "Batch prediction failed", err, "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": preds,
		"count":       len(preds),
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Train(r.Context())
	if err != nil {
		s.fail(w, "Model training failed", err, "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":      "AI model trained successfully with " + strconv.Itoa(n) + " vehicles",
		"vehicleCount": n,
	})
}

func (s *Server) handleUpsertVehicle(w http.ResponseWriter, r *http.Request) {
	var snap model.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if snap.VehicleID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.svc.Upsert(r.Context(), snap, sourceHTTP); err != nil {
		s.fail(w, "Store failed", err, snap.VehicleID)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		Manufacturer: r.URL.Query().Get("manufacturer"),
		Status:       r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := model.ParseVehicleType(v)
		f.Type = &t
	}
	snaps, err := s.svc.Vehicles(r.Context(), f)
	if err != nil {
		s.fail(w, "List failed", err, "")
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"vehicles": snaps, "count": len(snaps)})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{
		VehicleID:       r.URL.Query().Get("vehicle_id"),
		MaintenanceType: model.MaintenanceType(r.URL.Query().Get("maintenance_type")),
		OnlyNeeded:      r.URL.Query().Get("needs_maintenance") == "true",
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid start")
			return
		}
		q.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid end")
			return
		}
		q.End = t
	}
	records, err := s.audit.Query(r.Context(), q)
	if err != nil {
		s.fail(w, "Audit query failed", err, q.VehicleID)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) fail(w http.ResponseWriter, prefix string, err error, vehicleID string) {
	s.log.Errorf("%s: %v", prefix, err)
	tags := map[string]string{"module": "api"}
	if vehicleID != "" {
		tags["vehicle_id"] = vehicleID
	}
	coremon.CaptureException(err, tags)
	respondError(w, http.StatusInternalServerError, prefix+": "+err.Error())
}
