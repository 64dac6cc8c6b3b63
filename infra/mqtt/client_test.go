package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetmaint/core/model"
	coremon "github.com/kilianp07/fleetmaint/core/monitoring"
	coremqtt "github.com/kilianp07/fleetmaint/core/mqtt"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	return
}

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultTelemetryTopic, c.TelemetryTopic)
	assert.True(t, strings.HasPrefix(c.ClientID, DefaultClientPrefix+"-"))
	assert.NoError(t, c.Validate())

	c.QoS = map[string]byte{"telemetry": 3}
	assert.Error(t, c.Validate())
	assert.Error(t, Config{UseTLS: true}.Validate())
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
}

func TestDecodeTelemetry(t *testing.T) {
	s, err := DecodeTelemetry("fleet/telemetry/v7", []byte(`{"type":"SEDAN","batteryLevel":12}`))
	require.NoError(t, err)
	assert.Equal(t, "v7", s.VehicleID)
	assert.True(t, s.Type.IsElectric())
	assert.Equal(t, 12.0, *s.BatteryLevel)

	s, err = DecodeTelemetry("fleet/telemetry/v7", []byte(`{"id":"v8"}`))
	require.NoError(t, err)
	assert.Equal(t, "v8", s.VehicleID)

	_, err = DecodeTelemetry("fleet/telemetry/", []byte(`{}`))
	assert.ErrorIs(t, err, coremqtt.ErrNoVehicleID)
	_, err = DecodeTelemetry("fleet/telemetry/v1", []byte(`not json`))
	assert.Error(t, err)
}

func TestSubscribeTelemetry_QoSAndDispatch(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"telemetry": 1}})
	require.NoError(t, err)
	assert.Empty(t, mc.subscribed, "no subscription before a handler is registered")

	var got []model.Snapshot
	require.NoError(t, cli.SubscribeTelemetry(func(_ context.Context, s model.Snapshot) error {
		got = append(got, s)
		return nil
	}))
	require.Len(t, mc.subscribed, 1)
	assert.Equal(t, DefaultTelemetryTopic, mc.subscribed[0].topic)
	assert.Equal(t, byte(1), mc.subscribed[0].qos)

	cli.onTelemetry(nil, mockMessage{topic: "fleet/telemetry/v1", p: []byte(`{"fuelLevel":10}`)})
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].VehicleID)

	// reconnect restores the subscription
	mc.opts.OnConnect(mc)
	assert.Len(t, mc.subscribed, 2)
}

type recordMonitor struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) CapturePanic(v any)  { r.CaptureException(fmt.Errorf("panic: %v", v), nil) }
func (r *recordMonitor) Flush(time.Duration) {}

func TestOnTelemetry_FailuresCaptured(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(nil)

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	require.NoError(t, cli.SubscribeTelemetry(func(_ context.Context, s model.Snapshot) error {
		if s.VehicleID == "bad" {
			return errors.New("store down")
		}
		panic("handler bug")
	}))

	cli.onTelemetry(nil, mockMessage{topic: "fleet/telemetry/v1", p: []byte(`{{`)})
	cli.onTelemetry(nil, mockMessage{topic: "fleet/telemetry/bad", p: []byte(`{}`)})
	cli.onTelemetry(nil, mockMessage{topic: "fleet/telemetry/v2", p: []byte(`{}`)})

	require.Len(t, mon.errs, 4)
	assert.Equal(t, "bad", mon.tags[1]["vehicle_id"])
	assert.ErrorContains(t, mon.errs[3], "handler bug")
}

func TestPublishPrediction(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewPahoClient(Config{
		Broker:          "tcp://localhost:1883",
		PredictionTopic: "fleet/predictions/",
		QoS:             map[string]byte{"prediction": 2},
	})
	require.NoError(t, err)

	pred := model.Prediction{MaintenanceType: model.MaintenanceBattery, PredictedDays: 12}
	require.NoError(t, cli.PublishPrediction("v1", pred))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "fleet/predictions/v1", mc.published[0].topic)
	assert.Equal(t, byte(2), mc.published[0].qos)

	var msg PredictionMessage
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &msg))
	assert.Equal(t, "v1", msg.VehicleID)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, model.MaintenanceBattery, msg.Prediction.MaintenanceType)
}

func TestPublishPrediction_NoTopic(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	assert.ErrorIs(t, cli.PublishPrediction("v1", model.Prediction{}), coremqtt.ErrNoPredictionTopic)
}

func TestPublishPrediction_Retry(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	useMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", PredictionTopic: "p", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	require.NoError(t, cli.PublishPrediction("v1", model.Prediction{}))
	assert.Len(t, mc.published, 2)
}

func TestPublishPrediction_ErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	useMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(nil)

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", PredictionTopic: "p", MaxRetries: 2, BackoffMS: 1})
	require.NoError(t, err)
	assert.Error(t, cli.PublishPrediction("veh1", model.Prediction{}))
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "veh1", mon.tags[0]["vehicle_id"])
	assert.Equal(t, "mqtt", mon.tags[0]["module"])
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1})
	require.NoError(t, err)
	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "lwt", mc.opts.WillTopic)
	assert.Equal(t, "bye", string(mc.opts.WillPayload))
	cli.Disconnect()
	assert.Empty(t, mc.published)
}
