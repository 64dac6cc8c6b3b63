package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/fleetmaint/core/model"
	coremon "github.com/kilianp07/fleetmaint/core/monitoring"
	coremqtt "github.com/kilianp07/fleetmaint/core/mqtt"
	"github.com/kilianp07/fleetmaint/infra/logger"
)

// Default topics.
const (
	DefaultTelemetryTopic = "fleet/telemetry/+"
	DefaultClientPrefix   = "fleetmaint"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// TelemetryTopic is the subscription filter; the last topic level is
	// taken as the vehicle id when the payload has none.
	TelemetryTopic string `json:"telemetry_topic"`
	// PredictionTopic is the prefix predictions are published under as
	// <prefix>/<vehicleID>. Empty disables publishing.
	PredictionTopic string          `json:"prediction_topic"`
	RetainPredict   bool            `json:"retain_predictions"`
	UseTLS          bool            `json:"use_tls"`
	ClientCert      string          `json:"client_cert"`
	ClientKey       string          `json:"client_key"`
	CABundle        string          `json:"ca_bundle"`
	AuthMethod      string          `json:"auth_method"`
	QoS             map[string]byte `json:"qos"`
	LWTTopic        string          `json:"lwt_topic"`
	LWTPayload      string          `json:"lwt_payload"`
	LWTQoS          byte            `json:"lwt_qos"`
	LWTRetain       bool            `json:"lwt_retain"`
	MaxRetries      int             `json:"max_retries"`
	BackoffMS       int             `json:"backoff_ms"`
	TLSConfig       *tls.Config     `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults fills the topic and client id.
func (c *Config) SetDefaults() {
	if c.TelemetryTopic == "" {
		c.TelemetryTopic = DefaultTelemetryTopic
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientPrefix + "-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the QoS levels.
func (c Config) Validate() error {
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt qos %s: invalid level %d", k, q)
		}
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("mqtt tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient receives telemetry and publishes predictions using Eclipse Paho.
type PahoClient struct {
	cli             pahoClient
	telemetryTopic  string
	predictionTopic string
	retain          bool
	qos             map[string]byte

	mu         sync.Mutex
	handler    coremqtt.SnapshotHandler
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker. Telemetry subscriptions are
// restored on every reconnect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		telemetryTopic:  cfg.TelemetryTopic,
		predictionTopic: strings.TrimSuffix(cfg.PredictionTopic, "/"),
		retain:          cfg.RetainPredict,
		qos:             cfg.QoS,
		logger:          log,
		maxRetries:      cfg.MaxRetries,
		backoff:         time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.mu.Lock()
		h := pc.handler
		pc.mu.Unlock()
		if h != nil {
			if err := pc.subscribe(c); err != nil {
				log.Errorf("resubscribe error: %v", err)
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// the telemetry handler publishes and waits on its token
	opts.SetOrderMatters(false)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// SubscribeTelemetry registers h and subscribes to the telemetry topic.
func (p *PahoClient) SubscribeTelemetry(h coremqtt.SnapshotHandler) error {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
	return p.subscribe(p.cli)
}

func (p *PahoClient) subscribe(c interface {
	Subscribe(string, byte, paho.MessageHandler) paho.Token
}) error {
	token := c.Subscribe(p.telemetryTopic, p.qosFor("telemetry"), p.onTelemetry)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.telemetryTopic, err)
	}
	p.logger.Infof("subscribed to %s", p.telemetryTopic)
	return nil
}

func (p *PahoClient) onTelemetry(_ paho.Client, msg paho.Message) {
	snap, err := DecodeTelemetry(msg.Topic(), msg.Payload())
	if err != nil {
		p.logger.Warnf("discarding telemetry on %s: %v", msg.Topic(), err)
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": msg.Topic()})
		return
	}
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.handle(ctx, h, snap); err != nil {
		p.logger.Errorf("telemetry handler for %s: %v", snap.VehicleID, err)
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "vehicle_id": snap.VehicleID})
	}
}

func (p *PahoClient) handle(ctx context.Context, h coremqtt.SnapshotHandler, s model.Snapshot) (err error) {
	defer coremon.RecoverError(&err)
	return h(ctx, s)
}

// DecodeTelemetry parses a JSON snapshot. The vehicle id falls back to the
// last topic level.
func DecodeTelemetry(topic string, payload []byte) (model.Snapshot, error) {
	var s model.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if s.VehicleID == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			s.VehicleID = topic[i+1:]
		}
	}
	if s.VehicleID == "" || s.VehicleID == "+" || s.VehicleID == "#" {
		return model.Snapshot{}, coremqtt.ErrNoVehicleID
	}
	return s, nil
}

// PredictionMessage is the payload published for each prediction.
type PredictionMessage struct {
	MessageID  string           `json:"messageId"`
	VehicleID  string           `json:"vehicleId"`
	Prediction model.Prediction `json:"prediction"`
	Timestamp  int64            `json:"timestamp"`
}

// PublishPrediction publishes p to <prediction_topic>/<vehicleID>, retrying
// with exponential backoff.
func (p *PahoClient) PublishPrediction(vehicleID string, pred model.Prediction) error {
	if p.predictionTopic == "" {
		return coremqtt.ErrNoPredictionTopic
	}
	payload, err := json.Marshal(PredictionMessage{
		MessageID:  uuid.NewString(),
		VehicleID:  vehicleID,
		Prediction: pred,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	topic := p.predictionTopic + "/" + vehicleID
	qos := p.qosFor("prediction")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published prediction to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"vehicle_id": vehicleID, "module": "mqtt"})
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
