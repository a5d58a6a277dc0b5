package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "RiskPulse/pkg/logger"
)

// MessageHandler consumes the payloads of one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ErrPermanent marks handler errors that retrying cannot fix, such as
// malformed payloads. Wrap it to skip the remaining attempts.
var ErrPermanent = errors.New("permanent failure")

// Consumer fans messages from one reader per topic out to a worker pool.
// Messages of one partition are handled one at a time and offsets are
// committed explicitly. A message that still fails after RetryMax retries goes
// to the DLQ and its offset is committed.
type Consumer struct {
	cfg      ConsumerConfig
	log      *applogger.Logger
	hook     ConsumerHook
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer

	queue    chan *message
	quit     chan struct{}
	stopOnce sync.Once
	fetchers sync.WaitGroup
	workers  sync.WaitGroup

	partMu sync.Mutex
	parts  map[partitionKey]*sync.Mutex
}

type message struct {
	topic string
	data  []byte
	km    kafka.Message
}

type partitionKey struct {
	topic     string
	partition int
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:    "riskpulse",
		Workers:    1,
		BufferSize: 10,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   10e3,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	l := cfg.Logger
	if l == nil {
		l = applogger.Nop()
	}
	initConsumerMetricsOnce()

	c := &Consumer{
		cfg:      cfg,
		log:      l.With(applogger.String("component", "kafka_consumer")),
		hook:     NoopHook{},
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		queue:    make(chan *message, cfg.BufferSize),
		quit:     make(chan struct{}),
		parts:    make(map[partitionKey]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// WithConsumerHook installs lifecycle hooks. Call before Start.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler binds a handler to its topic. Call before Start; a second
// handler for the same topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	if _, dup := c.handlers[topic]; dup {
		c.log.Warn("duplicate handler ignored", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = h
}

func (c *Consumer) Topics() []string {
	topics := make([]string, 0, len(c.handlers))
	for t := range c.handlers {
		topics = append(topics, t)
	}
	return topics
}

// Start opens the readers and launches the workers. It does not block.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			GroupID:     c.cfg.GroupID,
			Topic:       topic,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: kafka.FirstOffset,
		})
	}

	c.workers.Add(c.cfg.Workers)
	for i := 0; i < c.cfg.Workers; i++ {
		go c.work()
	}
	c.fetchers.Add(len(c.readers))
	for topic, r := range c.readers {
		go c.fetch(topic, r)
	}

	c.log.Info("consumer started",
		applogger.String("group_id", c.cfg.GroupID),
		applogger.Strings("topics", c.Topics()),
		applogger.Int("workers", c.cfg.Workers),
	)
	return nil
}

// Stop halts fetching, lets the workers drain the queue and closes the
// readers. It returns ctx's error if draining does not finish in time.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.quit)
		if err = wait(ctx, &c.fetchers); err == nil {
			close(c.queue)
			err = wait(ctx, &c.workers)
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close reader", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close dlq writer", applogger.Error(cerr))
			}
		}
		if err != nil {
			err = fmt.Errorf("stop consumer: %w", err)
			return
		}
		c.log.Info("consumer stopped")
	})
	return err
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) fetch(topic string, r *kafka.Reader) {
	defer c.fetchers.Done()
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		km, err := r.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.log.Error("fetch message", applogger.String("topic", topic), applogger.Error(err))
			}
			continue
		}

		select {
		case c.queue <- &message{topic: topic, data: km.Value, km: km}:
			consumerMetrics.depth.WithLabelValues(topic).Set(float64(len(c.queue)))
		case <-c.quit:
			return
		}
	}
}

func (c *Consumer) work() {
	defer c.workers.Done()
	for msg := range c.queue {
		if h, ok := c.handlers[msg.topic]; ok {
			c.process(h, msg)
		}
	}
}

func (c *Consumer) process(h MessageHandler, msg *message) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic in message handler",
				applogger.String("topic", msg.topic),
				applogger.Any("panic", r),
			)
		}
	}()

	mu := c.partition(msg.topic, msg.km.Partition)
	mu.Lock()
	defer mu.Unlock()

	attempts, err := c.handle(h, msg)
	result := "ok"
	if err != nil {
		result = "failed"
		c.hook.OnError(context.Background(), msg.topic, msg.km, msg.data, err)
		c.log.Error("message dropped",
			applogger.String("topic", msg.topic),
			applogger.Int("partition", msg.km.Partition),
			applogger.Int64("offset", msg.km.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		if c.deadLetter(msg, err) {
			result = "dlq"
		}
	}

	// a failed message without a DLQ is left uncommitted and redelivered after a rebalance
	if err == nil || c.dlq != nil {
		c.commit(msg)
	}
	consumerMetrics.handled.WithLabelValues(msg.topic, result).Inc()
	consumerMetrics.latency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

// handle runs the handler until it succeeds, fails permanently or exhausts
// RetryMax retries.
func (c *Consumer) handle(h MessageHandler, msg *message) (attempts int, err error) {
	for attempts = 1; ; attempts++ {
		ctx, km, data, herr := c.hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.data)
		if herr != nil {
			return attempts, herr
		}
		err = h.Handle(ctx, data)
		c.hook.AfterHandle(ctx, msg.topic, km, data, err)
		if err == nil || errors.Is(err, ErrPermanent) || attempts > c.cfg.RetryMax {
			return attempts, err
		}
		c.hook.OnError(ctx, msg.topic, km, data, err)

		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.quit:
			return attempts, err
		}
	}
}

func (c *Consumer) deadLetter(msg *message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.km.Key,
		Value: msg.data,
		Headers: append(msg.km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(msg.topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
	if err != nil {
		c.log.Error("write dlq", applogger.String("dlq_topic", c.cfg.DLQTopic), applogger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(msg *message) {
	r := c.readers[msg.topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("commit offset",
		applogger.String("topic", msg.topic),
		applogger.Int64("offset", msg.km.Offset),
		applogger.Error(err),
	)
}

func (c *Consumer) partition(topic string, p int) *sync.Mutex {
	c.partMu.Lock()
	defer c.partMu.Unlock()
	k := partitionKey{topic: topic, partition: p}
	mu, ok := c.parts[k]
	if !ok {
		mu = &sync.Mutex{}
		c.parts[k] = mu
	}
	return mu
}

// backoffWithJitter doubles min per attempt, caps it at max and subtracts up
// to half of it at random.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	d := max
	if attempt < 32 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	return d - time.Duration(rand.Int63n(int64(d)/2+1))
}

type consumerCollectors struct {
	depth   *prometheus.GaugeVec
	handled *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	consumerMetrics    *consumerCollectors
	consumerOnce       sync.Once
	consumerRegisterer prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetConsumerMetricsRegisterer redirects consumer metrics, mainly for tests.
// It must run before the first NewConsumer.
func SetConsumerMetricsRegisterer(reg prometheus.Registerer) { consumerRegisterer = reg }

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		f := promauto.With(consumerRegisterer)
		consumerMetrics = &consumerCollectors{
			depth: f.NewGaugeVec(prometheus.GaugeOpts{
				Name: "riskpulse_kafka_consumer_queue_depth",
				Help: "Messages waiting for a worker",
			}, []string{"topic"}),
			handled: f.NewCounterVec(prometheus.CounterOpts{
				Name: "riskpulse_kafka_consumer_messages_total",
				Help: "Consumed messages by outcome",
			}, []string{"topic", "result"}),
			latency: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "riskpulse_kafka_consumer_handle_seconds",
				Help:    "Handling time per message including retries",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
		}
	})
}
