package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swuzz123/Coffee-Assistant/internal/config"
	"github.com/Swuzz123/Coffee-Assistant/internal/llm"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

const menuCSV = `title,price,image_url,description,main_category,sub_category
Cà phê sữa đá,29000,https://img.mtcoffee.vn/cpsd.jpg,Cà phê phin với sữa đặc,Coffee,Milk Coffee
Bạc Xỉu,39000,https://img.mtcoffee.vn/bx.jpg,Nhiều sữa ít cà phê,Coffee,Milk Coffee
Tiramisu,35000,https://img.mtcoffee.vn/tira.jpg,Bánh mềm vị cacao,Cake,NaN
`

type orderingModel struct{ calls int }

func (m *orderingModel) Name() string { return "scripted" }

func (m *orderingModel) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.calls++
	last := req.Messages[len(req.Messages)-1]
	if last.Role == models.RoleTool {
		return &llm.Response{Content: "Đã đặt xong: " + last.Content}, nil
	}
	return &llm.Response{ToolCalls: []models.ToolCall{{
		Name:      "place_order",
		Arguments: json.RawMessage(`{"items":[{"item_name":"cà phê sữa đá","quantity":2,"customizations":{"size":"L"}}]}`),
	}}}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "menu.csv")
	require.NoError(t, os.WriteFile(seed, []byte(menuCSV), 0o600))

	return &config.Config{
		DBDriver:           "sqlite",
		DatabaseURL:        filepath.Join(dir, "coffee.db"),
		DBMaxOpenConns:     1,
		DBMaxIdleConns:     1,
		DBConnMaxLifetime:  time.Minute,
		MenuSeedCSV:        seed,
		SizePriceDelta:     10000,
		AgentMaxIterations: 4,
		SessionBackend:     config.SessionBackendMemory,
		SessionTTL:         time.Hour,
		LLMModel:           "scripted",
	}
}

func TestBuildRunsAnOrderTurn(t *testing.T) {
	ctx := context.Background()
	model := &orderingModel{}

	a, err := Build(ctx, testConfig(t), logging.Discard(), model)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	start, err := a.Chat.StartChat(ctx, &models.ChatStartRequest{CustomerID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, prompts.WelcomeMessage, start.Message)
	assert.Zero(t, model.calls)

	resp, err := a.Chat.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: "2 cà phê sữa đá size L"})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "78,000 VND")
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "place_order", resp.ToolCalls[0].Name)

	var order models.Order
	require.NoError(t, a.DB.Preload("Items").First(&order).Error)
	assert.Equal(t, "C1", order.CustomerID)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(78000)))

	health := a.Chat.Health(ctx)
	assert.Equal(t, models.StatusHealthy, health.Status)
	assert.Equal(t, "ok", health.Services["database"])
}

func TestBuildRejectsUnknownSessionBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionBackend = "etcd"

	_, err := Build(context.Background(), cfg, logging.Discard(), &orderingModel{})
	assert.ErrorContains(t, err, `unknown session backend "etcd"`)
}
