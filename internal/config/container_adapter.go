package config

import (
	"github.com/garyjia/nodue-clearance/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	chats := make(map[string]string, len(c.Lark.DepartmentChats))
	for dept, chat := range c.Lark.DepartmentChats {
		chats[dept] = chat
	}

	return &container.Config{
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Workflow: container.WorkflowConfig{
			DecideMaxAttempts: c.Workflow.DecideMaxAttempts,
			HandlerTimeout:    c.Workflow.HandlerTimeout,
		},
		Metrics: container.MetricsConfig{
			Enabled:         c.Metrics.Enabled,
			Path:            c.Metrics.Path,
			RefreshInterval: c.Metrics.RefreshInterval,
		},
		Lark: container.LarkConfig{
			AppID:           c.Lark.AppID,
			AppSecret:       c.Lark.AppSecret,
			BaseURL:         c.Lark.BaseURL,
			DepartmentChats: chats,
			RegistrarChatID: c.Lark.RegistrarChatID,
		},
		Certificate: container.CertificateConfig{
			InstitutionName: c.Certificate.InstitutionName,
		},
	}
}
