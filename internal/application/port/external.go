package port

import (
	"context"
	"time"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// Notifier delivers messages to department and registrar channels
type Notifier interface {
	// NotifyDepartment tells a department that a request awaits its decision
	NotifyDepartment(ctx context.Context, dept entity.Department, message string) error

	// NotifyRegistrar reports a request that reached a terminal status
	NotifyRegistrar(ctx context.Context, message string) error
}

// CertificateRenderer renders the clearance certificate for an approved request
type CertificateRenderer interface {
	Render(req *entity.Request, issuedAt time.Time) ([]byte, error)
	ContentType() string
	FileExtension() string
}
