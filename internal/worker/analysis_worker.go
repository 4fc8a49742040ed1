package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"semantic-plagiarism/internal/app"
	"semantic-plagiarism/internal/report"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in app.AnalyzeInput) (*report.Response, error)
}

// Replier publishes the answer to a request message.
type Replier interface {
	Reply(ctx context.Context, replyTo, correlationID string, body []byte, status int) error
}

// AnalysisWorker consumes analyze-text requests from a queue and publishes the
// report, or {"detail": ...} with an error status, to each message's ReplyTo.
type AnalysisWorker struct {
	conn      *amqp.Connection
	analyzer  Analyzer
	replier   Replier
	queueName string
	prefetch  int
	timeout   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalysisWorker(conn *amqp.Connection, analyzer Analyzer, replier Replier, queueName string, prefetch int, timeout time.Duration) *AnalysisWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AnalysisWorker{
		conn:      conn,
		analyzer:  analyzer,
		replier:   replier,
		queueName: queueName,
		prefetch:  prefetch,
		timeout:   timeout,
	}
}

func (w *AnalysisWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	var consumers sync.WaitGroup
	for i := 0; i < w.prefetch; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					w.process(workerCtx, d)
				}
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		consumers.Wait()
		_ = ch.Close()
	}()

	log.Printf("WORKER: consuming %s with %d consumers", w.queueName, w.prefetch)
	return nil
}

func (w *AnalysisWorker) process(ctx context.Context, d amqp.Delivery) {
	requestID := d.CorrelationId
	if requestID == "" {
		requestID = uuid.NewString()
	}

	payload, status := w.handle(ctx, d.Body, requestID)
	if ctx.Err() != nil {
		// shutting down: hand the request back to the broker unanswered
		log.Printf("WORKER: request %s interrupted, requeued", requestID)
		_ = d.Nack(false, true)
		return
	}
	if d.ReplyTo == "" {
		log.Printf("WORKER: request %s has no reply queue, status %d dropped", requestID, status)
		_ = d.Ack(false)
		return
	}
	if err := w.replier.Reply(ctx, d.ReplyTo, d.CorrelationId, payload, status); err != nil {
		log.Printf("WORKER: reply for request %s failed: %v", requestID, err)
		_ = d.Nack(false, ctx.Err() != nil)
		return
	}
	_ = d.Ack(false)
}

// handle decodes and analyses one request body, returning the reply body and status.
func (w *AnalysisWorker) handle(ctx context.Context, body []byte, requestID string) ([]byte, int) {
	var req app.TextRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Printf("WORKER: decode request %s failed: %v", requestID, err)
		return detail("invalid request payload"), http.StatusBadRequest
	}
	in, err := req.Input(requestID)
	if err != nil {
		return detail(err.Error()), app.ErrorStatus(err)
	}

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	resp, err := w.analyzer.Analyze(runCtx, in)
	if err != nil {
		log.Printf("WORKER: analysis %s failed: %v", requestID, err)
		return detail(err.Error()), app.ErrorStatus(err)
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return detail("encode report failed"), http.StatusInternalServerError
	}
	return payload, http.StatusOK
}

func detail(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"detail": msg})
	return b
}

func (w *AnalysisWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
