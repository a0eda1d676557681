package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/handlers"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// Subject suffixes under the configured prefix, e.g. chat.message.
const (
	SubjectStart   = "start"
	SubjectMessage = "message"
	SubjectHistory = "history"
	SubjectClear   = "clear"
)

type NATSOptions struct {
	URL            string
	Name           string
	SubjectPrefix  string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// NATSTransport answers chat requests over NATS request/reply. Every reply
// is a models.Envelope.
type NATSTransport struct {
	conn *nats.Conn
	subs []*nats.Subscription
	opts NATSOptions
	chat *handlers.ChatHandler
	log  logrus.FieldLogger
}

func NewNATSTransport(opts NATSOptions, chat *handlers.ChatHandler, log logrus.FieldLogger) (*NATSTransport, error) {
	conn, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	t := NewNATSTransportWithConn(conn, opts, chat, log)
	t.log.WithField("url", opts.URL).Info("📡 Connected to NATS server")
	return t, nil
}

func NewNATSTransportWithConn(conn *nats.Conn, opts NATSOptions, chat *handlers.ChatHandler, log logrus.FieldLogger) *NATSTransport {
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "chat"
	}
	return &NATSTransport{
		conn: conn,
		opts: opts,
		chat: chat,
		log:  logging.Component(log, "nats"),
	}
}

// Subject returns the full subject for a suffix.
func (nt *NATSTransport) Subject(suffix string) string {
	return nt.opts.SubjectPrefix + "." + suffix
}

func (nt *NATSTransport) Start() error {
	for _, suffix := range []string{SubjectStart, SubjectMessage, SubjectHistory, SubjectClear} {
		subject := nt.Subject(suffix)
		sub, err := nt.conn.Subscribe(subject, nt.handleRequest)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.log.WithField("subject", subject).Info("Subscribed")
	}
	return nil
}

func (nt *NATSTransport) handleRequest(msg *nats.Msg) {
	ctx := context.Background()
	if nt.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nt.opts.RequestTimeout)
		defer cancel()
	}

	reply := nt.dispatch(ctx, msg.Subject, msg.Data)
	if err := msg.Respond(reply); err != nil {
		nt.log.WithError(err).WithField("subject", msg.Subject).Error("Failed to send response")
	}
}

// dispatch decodes one request by subject and returns the encoded envelope.
func (nt *NATSTransport) dispatch(ctx context.Context, subject string, data []byte) []byte {
	suffix := strings.TrimPrefix(subject, nt.opts.SubjectPrefix+".")

	var (
		result any
		err    error
	)
	switch suffix {
	case SubjectStart:
		var req models.ChatStartRequest
		if err = decodeRequest(data, &req, true); err == nil {
			result, err = nt.chat.StartChat(ctx, &req)
		}
	case SubjectMessage:
		var req models.ChatMessageRequest
		if err = decodeRequest(data, &req, false); err == nil {
			result, err = nt.chat.SendMessage(ctx, &req)
		}
	case SubjectHistory:
		var req models.ChatHistoryRequest
		if err = decodeRequest(data, &req, false); err == nil {
			result, err = nt.chat.History(ctx, &req)
		}
	case SubjectClear:
		var req models.ChatHistoryRequest
		if err = decodeRequest(data, &req, false); err == nil {
			err = nt.chat.ClearSession(ctx, &req)
			result = map[string]string{"session_id": req.SessionID, "status": "cleared"}
		}
	default:
		err = fmt.Errorf("%w: unknown subject %s", handlers.ErrInvalidRequest, subject)
	}

	if err != nil {
		return nt.errorEnvelope(subject, err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nt.errorEnvelope(subject, fmt.Errorf("failed to marshal response: %w", err))
	}
	return mustMarshal(models.Envelope{Status: models.StatusOK, Data: payload})
}

func decodeRequest(data []byte, v any, allowEmpty bool) error {
	if allowEmpty && len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", handlers.ErrInvalidRequest, err)
	}
	return nil
}

func (nt *NATSTransport) errorEnvelope(subject string, err error) []byte {
	_, code := statusFor(err)
	message := err.Error()
	if code == models.ErrorInternal {
		nt.log.WithError(err).WithField("subject", subject).Error("Request failed")
		message = "failed to process request"
	}
	return mustMarshal(models.Envelope{
		Status:       models.StatusError,
		ErrorCode:    &code,
		ErrorMessage: &message,
	})
}

func mustMarshal(env models.Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		// Envelope holds only strings and raw JSON produced by json.Marshal.
		panic(err)
	}
	return data
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		_ = sub.Unsubscribe()
	}
	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.log.Info("NATS connection closed")
	}
	return nil
}
