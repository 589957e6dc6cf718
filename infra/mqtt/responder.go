package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evrange/core/estimator"
	"github.com/kilianp07/evrange/core/model"
	"github.com/kilianp07/evrange/core/monitoring"
	"github.com/kilianp07/evrange/infra/logger"
)

// requestTimeout bounds the handling of a single request.
const requestTimeout = 5 * time.Second

// Handler computes the estimate for a decoded request.
type Handler func(ctx context.Context, req model.EstimateRequest) (model.Estimate, error)

// Response is published on the vehicle's response topic. Exactly one of
// Estimate and Error is set.
type Response struct {
	RequestID string          `json:"request_id,omitempty"`
	VehicleID string          `json:"vehicle_id"`
	Estimate  *model.Estimate `json:"estimate,omitempty"`
	Error     string          `json:"error,omitempty"`
	Field     string          `json:"field,omitempty"`
}

// Responder answers estimate requests received over MQTT.
type Responder struct {
	cli     pahoClient
	cfg     Config
	handler Handler
	logger  logger.Logger

	// mu serialises publishes so retries of one response are not interleaved.
	mu      sync.Mutex
	backoff time.Duration
}

// NewResponder connects to the broker and subscribes to the request topic.
// The subscription is renewed on every reconnect.
func NewResponder(cfg Config, h Handler) (*Responder, error) {
	if h == nil {
		return nil, errors.New("mqtt responder: nil handler")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_responder")
	r := &Responder{
		cfg:     cfg,
		handler: h,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.RequestTopic, cfg.qos("request"), r.onRequest); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
			monitoring.CaptureException(token.Error(), map[string]string{"module": "mqtt", "topic": cfg.RequestTopic})
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
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	r.cli = c
	return r, nil
}

func (r *Responder) onRequest(_ paho.Client, msg paho.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("panic handling %s: %v", msg.Topic(), rec)
			monitoring.Recover(rec)
		}
	}()
	vehicleID, ok := VehicleIDFromTopic(r.cfg.RequestTopic, msg.Topic())
	if !ok {
		r.logger.Warnf("ignoring message on unexpected topic %s", msg.Topic())
		return
	}
	resp := r.handle(vehicleID, msg.Payload())
	if err := r.respond(resp); err != nil {
		r.logger.Errorf("response for %s not delivered: %v", vehicleID, err)
	}
}

// handle decodes and answers one request payload.
func (r *Responder) handle(vehicleID string, payload []byte) Response {
	var req model.EstimateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		r.logger.Warnf("invalid request from %s: %v", vehicleID, err)
		return Response{VehicleID: vehicleID, Error: fmt.Sprintf("malformed request: %v", err)}
	}
	req.VehicleID = vehicleID
	req.Source = model.SourceMQTT
	resp := Response{RequestID: req.RequestID, VehicleID: vehicleID}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	est, err := r.handler(ctx, req)
	if err != nil {
		resp.Error = err.Error()
		var verr *estimator.ValidationError
		if errors.As(err, &verr) {
			resp.Field = verr.Field
		}
		return resp
	}
	resp.Estimate = &est
	return resp
}

// respond publishes resp with exponential backoff between attempts.
func (r *Responder) respond(resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf(r.cfg.ResponseTopic, resp.VehicleID)
	qos := r.cfg.qos("response")

	r.mu.Lock()
	defer r.mu.Unlock()
	var publishErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		token := r.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			r.logger.Debugf("sent response to %s", topic)
			return nil
		}
		r.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < r.cfg.MaxRetries {
			time.Sleep(r.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "vehicle_id": resp.VehicleID})
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (r *Responder) Disconnect() {
	if r.cli != nil && r.cli.IsConnected() {
		r.cli.Disconnect(250)
	}
}
