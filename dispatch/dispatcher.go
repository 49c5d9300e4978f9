package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusAcked   Status = "ack"
	StatusNak     Status = "nak"
	StatusTimeout Status = "timeout"
)

// Outcome is the result of one published request.
type Outcome struct {
	Request
	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

type response struct {
	TransId string `json:"transId"`
	Status  string `json:"status"`
	Message string `json:"msg"`
}

type pendingRequest struct {
	sentAt time.Time
	doneCh chan response
}

// publisher is the part of the paho client used for sending.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

type Options struct {
	Host        string
	Port        int16
	Username    string
	Password    string
	TopicPrefix string
	Device      string
	AckTimeout  time.Duration
}

// Dispatcher publishes masks over MQTT and waits for the device to answer.
type Dispatcher struct {
	client      mqtt.Client
	pub         publisher
	logger      *slog.Logger
	opts        Options
	pending     map[string]pendingRequest
	pendingMu   sync.Mutex
	stopPurgeCh chan struct{}
	// OnLateResponse receives answers that arrive after the request timed out.
	OnLateResponse func(transId, status string)
}

func New(opts Options) *Dispatcher {
	logger := slog.Default().With("module", "dispatch")
	bridgeLogs(slog.Default().With("module", "mqtt"))

	d := &Dispatcher{
		logger:  logger,
		opts:    opts,
		pending: make(map[string]pendingRequest),
	}

	mo := mqtt.NewClientOptions()
	mo.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Host, opts.Port))
	mo.SetClientID("rceprices-" + opts.Device)
	mo.SetUsername(opts.Username)
	mo.SetPassword(opts.Password)
	mo.SetAutoReconnect(true)
	mo.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
		token := client.Subscribe(d.responseTopic(), 1, func(_ mqtt.Client, msg mqtt.Message) {
			d.handleResponse(msg.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			logger.Error("subscribing to mask responses failed", slog.Any("error", token.Error()))
		}
	}
	mo.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	d.client = mqtt.NewClient(mo)
	d.pub = d.client
	return d
}

func (d *Dispatcher) Connect() error {
	d.logger.Debug("connecting MQTT client")
	if token := d.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	d.startPurgeRoutine()
	return nil
}

func (d *Dispatcher) Disconnect() {
	d.logger.Info("disconnecting MQTT client")
	if d.stopPurgeCh != nil {
		close(d.stopPurgeCh)
		d.stopPurgeCh = nil
	}
	if d.client != nil && d.client.IsConnected() {
		d.client.Unsubscribe(d.responseTopic()).WaitTimeout(time.Second)
		d.client.Disconnect(250)
	}
}

func (d *Dispatcher) Topic(kind Kind) string {
	return fmt.Sprintf("%s/%s/mask/%s", d.opts.TopicPrefix, d.opts.Device, kind)
}

func (d *Dispatcher) responseTopic() string {
	return fmt.Sprintf("%s/%s/mask/response", d.opts.TopicPrefix, d.opts.Device)
}

// PublishAll sends every request concurrently and waits for all answers.
// Outcomes keep the order of requests.
func (d *Dispatcher) PublishAll(ctx context.Context, requests []Request) ([]Outcome, error) {
	outcomes := make([]Outcome, len(requests))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			o, err := d.Publish(ctx, req)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Publish sends one request and waits for its ack, a nak or the ack timeout.
// A missing answer is not an error, the outcome status says so.
func (d *Dispatcher) Publish(ctx context.Context, req Request) (Outcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding %s mask request: %w", req.Kind, err)
	}

	p := pendingRequest{sentAt: time.Now(), doneCh: make(chan response, 1)}
	d.pendingMu.Lock()
	d.pending[req.TransId] = p
	d.pendingMu.Unlock()
	defer d.forget(req.TransId)

	token := d.pub.Publish(d.Topic(req.Kind), 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return Outcome{}, fmt.Errorf("timeout when publishing %s mask", req.Kind)
	}
	if token.Error() != nil {
		return Outcome{}, fmt.Errorf("publishing %s mask: %w", req.Kind, token.Error())
	}
	d.logger.Info("mask published", slog.String("kind", string(req.Kind)), slog.String("transId", req.TransId), slog.String("registers", req.Registers.String()))

	out := Outcome{Request: req, SentAt: p.sentAt}
	timeout := d.opts.AckTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case resp := <-p.doneCh:
		out.Status = StatusAcked
		if !strings.EqualFold(resp.Status, string(StatusAcked)) {
			out.Status = StatusNak
		}
		out.Message = resp.Message
	case <-time.After(timeout):
		d.logger.Warn("mask request timed out", slog.String("transId", req.TransId))
		out.Status = StatusTimeout
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	return out, nil
}

func (d *Dispatcher) handleResponse(payload []byte) {
	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		d.logger.Error("error when reading mask response", slog.Any("error", err))
		return
	}

	d.pendingMu.Lock()
	p, exists := d.pending[resp.TransId]
	d.pendingMu.Unlock()

	if !exists {
		d.logger.Warn("received response for unknown transaction", slog.String("transId", resp.TransId))
		if d.OnLateResponse != nil && resp.TransId != "" {
			status := StatusAcked
			if !strings.EqualFold(resp.Status, string(StatusAcked)) {
				status = StatusNak
			}
			d.OnLateResponse(resp.TransId, string(status))
		}
		return
	}
	d.logger.Debug("received mask response", slog.String("transId", resp.TransId), slog.Duration("duration", time.Since(p.sentAt)))
	select {
	case p.doneCh <- resp:
	default:
	}
}

func (d *Dispatcher) forget(transId string) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	delete(d.pending, transId)
}

// purgeStale drops requests nobody waits for anymore.
func (d *Dispatcher) purgeStale(maxAge time.Duration) int {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	n := 0
	for transId, p := range d.pending {
		if age := time.Since(p.sentAt); age > maxAge {
			d.logger.Debug("purging previous request", slog.String("transId", transId), slog.Duration("age", age))
			delete(d.pending, transId)
			n++
		}
	}
	return n
}

func (d *Dispatcher) startPurgeRoutine() {
	d.stopPurgeCh = make(chan struct{})
	stop := d.stopPurgeCh

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.purgeStale(2 * max(d.opts.AckTimeout, 30*time.Second))
			case <-stop:
				d.logger.Debug("stopping purge routine")
				return
			}
		}
	}()
}
