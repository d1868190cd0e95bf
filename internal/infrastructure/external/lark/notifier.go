package lark

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

const receiveIDTypeChat = "chat_id"

// Notifier implements port.Notifier by posting text messages to group chats
type Notifier struct {
	sender         MessageSender
	departmentChat map[string]string
	registrarChat  string
	logger         *zap.Logger
}

// NewNotifier creates a notifier that routes messages by department
func NewNotifier(sender MessageSender, cfg Config, logger *zap.Logger) *Notifier {
	chats := make(map[string]string, len(cfg.DepartmentChats))
	for dept, chat := range cfg.DepartmentChats {
		chats[chatKey(dept)] = chat
	}

	return &Notifier{
		sender:         sender,
		departmentChat: chats,
		registrarChat:  cfg.RegistrarChatID,
		logger:         logger,
	}
}

// NotifyDepartment posts message to the department's chat. Departments
// without a chat are skipped.
func (n *Notifier) NotifyDepartment(ctx context.Context, dept entity.Department, message string) error {
	chat, ok := n.departmentChat[chatKey(string(dept))]
	if !ok || chat == "" {
		n.logger.Debug("No chat configured for department", zap.String("department", string(dept)))
		return nil
	}
	return n.send(ctx, chat, message)
}

// NotifyRegistrar posts message to the registrar chat, if configured
func (n *Notifier) NotifyRegistrar(ctx context.Context, message string) error {
	if n.registrarChat == "" {
		n.logger.Debug("No registrar chat configured")
		return nil
	}
	return n.send(ctx, n.registrarChat, message)
}

// chatKey normalizes department names. Viper lowercases map keys.
func chatKey(dept string) string {
	return strings.ToLower(strings.TrimSpace(dept))
}

func (n *Notifier) send(ctx context.Context, chatID, message string) error {
	content, err := textContent(message)
	if err != nil {
		return err
	}

	messageID, err := n.sender.SendMessage(ctx, receiveIDTypeChat, chatID, "text", content)
	if err != nil {
		return fmt.Errorf("send to chat %s: %w", chatID, err)
	}

	n.logger.Info("Notification sent",
		zap.String("chat_id", chatID),
		zap.String("message_id", messageID))
	return nil
}

// LogNotifier writes notifications to the log. It is used when Lark is not
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDepartment(ctx context.Context, dept entity.Department, message string) error {
	n.logger.Info("Department notification", zap.String("department", string(dept)), zap.String("message", message))
	return nil
}

func (n *LogNotifier) NotifyRegistrar(ctx context.Context, message string) error {
	n.logger.Info("Registrar notification", zap.String("message", message))
	return nil
}

var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
	_ MessageSender = (*Messenger)(nil)
)
