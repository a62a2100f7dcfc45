package amqp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"collegesave/internal/core"
)

// Handler computes the reply for a decoded request.
type Handler func(ctx context.Context, req *ProjectionRequest) *ProjectionReply

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// RequestProjection publishes a request and waits for the worker's reply on a
// temporary exclusive queue.
func (c *Client) RequestProjection(ctx context.Context, in core.Input, includeSeries bool) (*ProjectionReply, error) {
	body, err := NewProjectionRequest(in, includeSeries).ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// A dedicated channel scopes the reply queue; closing it cancels the
	// consumer and the server deletes the queue.
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open reply channel: %w", err)
	}
	defer ch.Close()

	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}
	replies, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	correlationID := newCorrelationID()
	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       replyQueue.Name,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}

	slog.DebugContext(ctx, "Published projection request",
		"correlation_id", correlationID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, errors.New("reply channel closed")
			}
			if d.CorrelationId != correlationID {
				continue
			}
			reply, err := ProjectionReplyFromJSON(d.Body)
			if err != nil {
				return nil, fmt.Errorf("decode reply: %w", err)
			}
			return reply, nil
		}
	}
}

// ConsumeProjectionRequests serves requests until ctx is cancelled, running at
// most concurrency handlers at once.
func (c *Client) ConsumeProjectionRequests(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if err := c.channel.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming projection requests", "queue", c.queueName, "concurrency", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for {
		select {
		case <-gctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", gctx.Err())
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				_ = g.Wait()
				return fmt.Errorf("message channel closed")
			}
			g.Go(func() error {
				c.serve(gctx, delivery, handler)
				return nil
			})
		}
	}
}

func (c *Client) serve(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	body, ok := Process(ctx, delivery.Body, handler)
	if !ok {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "correlation_id", delivery.CorrelationId)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}

	if delivery.ReplyTo == "" {
		slog.WarnContext(ctx, "Projection request without reply queue, dropping result",
			"correlation_id", delivery.CorrelationId)
		delivery.Ack(false)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := c.channel.PublishWithContext(
		pubCtx,
		"",               // default exchange routes by queue name
		delivery.ReplyTo, // routing key
		false,
		false,
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: delivery.CorrelationId,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish reply",
			"error", err,
			"correlation_id", delivery.CorrelationId)
		delivery.Nack(false, true) // reject and requeue
		return
	}

	delivery.Ack(false)
	slog.DebugContext(ctx, "Replied to projection request", "correlation_id", delivery.CorrelationId)
}

// Process decodes a request body, runs the handler and encodes the reply.
// It returns false when the body is not a valid request.
func Process(ctx context.Context, body []byte, handler Handler) ([]byte, bool) {
	req, err := ProjectionRequestFromJSON(body)
	if err != nil {
		return nil, false
	}
	reply := handler(ctx, req)
	if reply == nil {
		return nil, false
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now()
	}
	out, err := reply.ToJSON()
	if err != nil {
		return nil, false
	}
	return out, true
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func newCorrelationID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("corr_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
