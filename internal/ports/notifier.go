package ports

import (
	"context"

	"github.com/baofinance/harbor-marks/internal/domain"
)

// Notifier presenta los reportes de cada evaluación al usuario.
type Notifier interface {
	// Notify muestra un reporte por depositante.
	Notify(ctx context.Context, reports []domain.DepositorReport) error
}
