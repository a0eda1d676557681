package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

func decodeEnvelope(t *testing.T, data []byte) models.Envelope {
	t.Helper()
	var env models.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestNATSDispatch(t *testing.T) {
	chat, _ := newChat(t)
	nt := NewNATSTransportWithConn(nil, NATSOptions{}, chat, logging.Discard())
	ctx := context.Background()

	assert.Equal(t, "chat.message", nt.Subject(SubjectMessage))

	env := decodeEnvelope(t, nt.dispatch(ctx, "chat.start", nil))
	require.Equal(t, models.StatusOK, env.Status)
	var start models.ChatStartResponse
	require.NoError(t, json.Unmarshal(env.Data, &start))
	assert.Equal(t, prompts.WelcomeMessage, start.Message)

	body, _ := json.Marshal(models.ChatMessageRequest{SessionID: start.SessionID, Message: "trà vải"})
	env = decodeEnvelope(t, nt.dispatch(ctx, "chat.message", body))
	require.Equal(t, models.StatusOK, env.Status)
	var msg models.ChatMessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "Dạ, trà vải", msg.Message)

	body, _ = json.Marshal(models.ChatHistoryRequest{SessionID: start.SessionID})
	env = decodeEnvelope(t, nt.dispatch(ctx, "chat.history", body))
	require.Equal(t, models.StatusOK, env.Status)

	env = decodeEnvelope(t, nt.dispatch(ctx, "chat.clear", body))
	require.Equal(t, models.StatusOK, env.Status)

	env = decodeEnvelope(t, nt.dispatch(ctx, "chat.history", body))
	assert.Equal(t, models.StatusError, env.Status)
	require.NotNil(t, env.ErrorCode)
	assert.Equal(t, models.ErrorSessionInvalid, *env.ErrorCode)
}

func TestNATSDispatchErrors(t *testing.T) {
	chat, _ := newChat(t)
	nt := NewNATSTransportWithConn(nil, NATSOptions{SubjectPrefix: "coffee"}, chat, logging.Discard())
	ctx := context.Background()

	env := decodeEnvelope(t, nt.dispatch(ctx, "coffee.message", []byte("{broken")))
	assert.Equal(t, models.StatusError, env.Status)
	assert.Equal(t, models.ErrorInvalidRequest, *env.ErrorCode)

	env = decodeEnvelope(t, nt.dispatch(ctx, "coffee.refund", []byte("{}")))
	assert.Equal(t, models.ErrorInvalidRequest, *env.ErrorCode)
	assert.Contains(t, *env.ErrorMessage, "unknown subject")
}

func TestNATSRequestReply(t *testing.T) {
	ctx := context.Background()

	container, err := startNATS(ctx)
	if err != nil {
		t.Skipf("Docker not available, skipping NATS test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	url := "nats://" + host + ":" + port.Port()

	chat, _ := newChat(t)
	nt, err := NewNATSTransport(NATSOptions{URL: url, Name: "coffee-test", ConnectTimeout: 5 * time.Second}, chat, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, nt.Start())
	t.Cleanup(func() { _ = nt.Close() })

	client, err := nats.Connect(url)
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.Request("chat.start", []byte(`{"customer_id":"C9"}`), 5*time.Second)
	require.NoError(t, err)
	env := decodeEnvelope(t, reply.Data)
	require.Equal(t, models.StatusOK, env.Status)

	var start models.ChatStartResponse
	require.NoError(t, json.Unmarshal(env.Data, &start))
	assert.Equal(t, "C9", start.CustomerID)
}

func startNATS(ctx context.Context) (c testcontainers.Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker not available: %v", r)
		}
	}()
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
}
