package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

type sentMessage struct {
	receiveIDType string
	receiveID     string
	msgType       string
	content       string
}

type mockSender struct {
	sent []sentMessage
	err  error
}

func (m *mockSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{receiveIDType, receiveID, msgType, content})
	return "om_123", nil
}

func testConfig() Config {
	return Config{
		AppID:     "cli_test",
		AppSecret: "secret",
		DepartmentChats: map[string]string{
			"Library":        "oc_library",
			"workshop / lab": "oc_workshop",
		},
		RegistrarChatID: "oc_registrar",
	}
}

func TestNotifier_NotifyDepartment(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, testConfig(), zap.NewNop())

	err := n.NotifyDepartment(context.Background(), entity.DepartmentLibrary, `Request "#A1B2C3" awaits review`)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "chat_id", msg.receiveIDType)
	assert.Equal(t, "oc_library", msg.receiveID)
	assert.Equal(t, "text", msg.msgType)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(msg.content), &body))
	assert.Equal(t, `Request "#A1B2C3" awaits review`, body["text"])
}

func TestNotifier_DepartmentKeysIgnoreCase(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, testConfig(), zap.NewNop())

	require.NoError(t, n.NotifyDepartment(context.Background(), entity.DepartmentWorkshopLab, "hello"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "oc_workshop", sender.sent[0].receiveID)
}

func TestNotifier_SkipsUnconfiguredDepartment(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, testConfig(), zap.NewNop())

	require.NoError(t, n.NotifyDepartment(context.Background(), entity.DepartmentHOD, "hello"))
	assert.Empty(t, sender.sent)
}

func TestNotifier_NotifyRegistrar(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, testConfig(), zap.NewNop())

	require.NoError(t, n.NotifyRegistrar(context.Background(), "done"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "oc_registrar", sender.sent[0].receiveID)

	cfg := testConfig()
	cfg.RegistrarChatID = ""
	quiet := NewNotifier(sender, cfg, zap.NewNop())
	require.NoError(t, quiet.NotifyRegistrar(context.Background(), "done"))
	assert.Len(t, sender.sent, 1)
}

func TestNotifier_SendFailure(t *testing.T) {
	sender := &mockSender{err: errors.New("code=99991663")}
	n := NewNotifier(sender, testConfig(), zap.NewNop())

	err := n.NotifyRegistrar(context.Background(), "done")
	assert.ErrorContains(t, err, "oc_registrar")
	assert.ErrorContains(t, err, "code=99991663")
}

func TestConfig_Enabled(t *testing.T) {
	assert.True(t, testConfig().Enabled())
	assert.False(t, Config{AppID: "cli_test"}.Enabled())
}

func TestNewSDKClient(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = "https://open.larksuite.com"

	c := NewSDKClient(cfg, zap.NewNop())
	require.NotNil(t, c.GetClient())
	assert.Equal(t, "cli_test", c.GetAppID())
}
