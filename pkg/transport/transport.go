// Package transport owns the connection to the collaboration server: address
// resolution, negotiation, reconnect-with-backoff, and the framed read/write
// loop described in spec §4.5.
//
// The spec models this as a single re-entrant advance_state state machine
// driven by a cooperative event loop. Go does not have that scheduler, so
// the same single-writer invariant is realized here as one goroutine that
// owns every mutable field; everything else talks to it over channels. That
// keeps the property the spec cares about — no two pieces of code ever touch
// connection state concurrently — without pretending Go is cooperatively
// scheduled.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiv248/editagent/internal/protocol"
	"github.com/shiv248/editagent/pkg/logger"
)

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 15000 * time.Millisecond
)

// ConnectCB fires once per successful negotiation, on the Transport's own
// goroutine. It must not block.
type ConnectCB func(authorID int, seqno int, text string)

// MsgCB fires for every framed in-session message, on the Transport's own
// goroutine. It must not block.
type MsgCB func(protocol.ServerMsg)

// Transport manages one logical connection to the server, reconnecting
// with backoff on failure and replaying unacknowledged submissions.
type Transport struct {
	network, address string
	displayName      string
	connectCB        ConnectCB
	msgCB            MsgCB

	submitCh chan protocol.Submission
	ackCh    chan int
	closeCh  chan struct{}
	doneCh   chan struct{}
}

// NewTransport resolves addrSpec and builds a Transport that has not yet
// started connecting. Call Run to start it.
func NewTransport(addrSpec, displayName string, connectCB ConnectCB, msgCB MsgCB) (*Transport, error) {
	network, address, err := ParseAddr(addrSpec)
	if err != nil {
		return nil, err
	}
	return &Transport{
		network:     network,
		address:     address,
		displayName: displayName,
		connectCB:   connectCB,
		msgCB:       msgCB,
		submitCh:    make(chan protocol.Submission, 64),
		ackCh:       make(chan int, 64),
		closeCh:     make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Submit enqueues a submission for delivery. It never blocks on the
// network; the Transport's own goroutine drains the queue as the
// connection allows.
func (t *Transport) Submit(sub protocol.Submission) {
	select {
	case t.submitCh <- sub:
	case <-t.doneCh:
	}
}

// Acknowledge tells the Transport that everything up to and including seq
// has been accepted by the server, so it can be dropped from the write
// queue and never resent after a reconnect.
func (t *Transport) Acknowledge(seq int) {
	select {
	case t.ackCh <- seq:
	case <-t.doneCh:
	}
}

// Close stops the Transport and releases its connection.
func (t *Transport) Close() {
	select {
	case <-t.closeCh:
	default:
		close(t.closeCh)
	}
	<-t.doneCh
}

// Run drives the Transport until ctx is cancelled or Close is called. It
// owns all connection state and is the only goroutine that ever touches it.
func (t *Transport) Run(ctx context.Context) {
	defer close(t.doneCh)

	var writeQ []protocol.Submission
	nextWrite := 0
	var secret []byte
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closeCh:
			return
		default:
		}

		attemptID := uuid.NewString()
		conn, err := t.dial(ctx)
		if err != nil {
			logger.Error("transport[%s]: connect failed: %v, backing off %s", attemptID, err, backoff)
			if !t.sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff
		logger.Info("transport[%s]: connected", attemptID)

		nextWrite = 0
		resetWriteQ := t.runConnection(ctx, conn, &secret, writeQ, &nextWrite)
		conn.Close()
		if resetWriteQ != nil {
			writeQ = resetWriteQ
		}

		select {
		case <-ctx.Done():
			return
		case <-t.closeCh:
			return
		default:
			logger.Info("transport[%s]: reconnecting...", attemptID)
		}
	}
}

func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{}
	return d.DialContext(ctx, t.network, t.address)
}

func (t *Transport) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-t.closeCh:
		return false
	}
}

// runConnection negotiates and drives one connection's lifetime, returning
// the (possibly grown) write queue for the caller to carry into the next
// reconnect attempt.
func (t *Transport) runConnection(ctx context.Context, conn net.Conn, secret *[]byte, writeQ []protocol.Submission, nextWrite *int) []protocol.Submission {
	reader := bufio.NewReader(conn)

	var negotiateLine string
	if *secret == nil {
		negotiateLine = protocol.NegotiateNew(t.displayName)
	} else {
		negotiateLine = protocol.NegotiateReconnect(*secret)
	}
	if _, err := conn.Write([]byte(negotiateLine)); err != nil {
		logger.Error("transport: negotiation write failed: %v", err)
		return writeQ
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		logger.Error("transport: negotiation read failed: %v", err)
		return writeQ
	}
	resp, err := protocol.ParseNegotiationResponse(strings.TrimRight(line, "\n"))
	if err != nil {
		logger.Error("transport: negotiation parse failed: %v", err)
		return writeQ
	}
	*secret = resp.Secret
	t.connectCB(resp.AuthorID, resp.Seqno, resp.Text)

	linesCh := make(chan string)
	readErrCh := make(chan error, 1)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if l != "" {
				linesCh <- strings.TrimRight(l, "\n")
			}
			if err != nil {
				readErrCh <- err
				return
			}
		}
	}()

	for *nextWrite < len(writeQ) {
		if err := t.writeSubmission(conn, writeQ[*nextWrite]); err != nil {
			logger.Error("transport: write failed: %v", err)
			return writeQ
		}
		*nextWrite++
	}

	for {
		select {
		case <-ctx.Done():
			return writeQ
		case <-t.closeCh:
			return writeQ
		case sub := <-t.submitCh:
			writeQ = append(writeQ, sub)
			if err := t.writeSubmission(conn, sub); err != nil {
				logger.Error("transport: write failed: %v", err)
				return writeQ
			}
			*nextWrite++
		case line := <-linesCh:
			msg, err := protocol.ParseServerMessage(line)
			if err != nil {
				logger.Error("transport: parse failure, fatal for this line: %v", err)
				continue
			}
			t.msgCB(msg)
		case seq := <-t.ackCh:
			for len(writeQ) > 0 && writeQ[0].Seq <= seq {
				writeQ = writeQ[1:]
				if *nextWrite > 0 {
					*nextWrite--
				}
			}
		case err := <-readErrCh:
			logger.Error("transport: read failed: %v", err)
			return writeQ
		}
	}
}

func (t *Transport) writeSubmission(conn net.Conn, sub protocol.Submission) error {
	line, err := protocol.EncodeSubmission(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	_, err = conn.Write([]byte(line))
	return err
}
