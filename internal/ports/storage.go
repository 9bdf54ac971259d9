package ports

import (
	"context"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
)

// SnapshotStore persiste los snapshots crudos del indexer y el resumen de cada evaluación.
// Nunca se guardan valores proyectados.
type SnapshotStore interface {
	// SaveSnapshots hace upsert de los snapshots cuyo LastUpdated avanzó.
	SaveSnapshots(ctx context.Context, snaps []domain.CampaignSnapshot) error

	// LoadSnapshots devuelve el último snapshot crudo guardado por (mercado, depositante).
	LoadSnapshots(ctx context.Context) ([]domain.CampaignSnapshot, error)

	// SaveCycle persiste el resumen de una evaluación.
	SaveCycle(ctx context.Context, reports []domain.DepositorReport) error

	// ListCycles devuelve los resúmenes evaluados desde since, más recientes primero.
	// depositor vacío devuelve todos.
	ListCycles(ctx context.Context, since time.Time, depositor string) ([]domain.CycleSummary, error)

	// Prune elimina ciclos más antiguos que before. Devuelve las filas borradas.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
