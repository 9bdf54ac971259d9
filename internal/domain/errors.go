package domain

import (
	"errors"
)

// Errores de fuente de datos. Los adapters los envuelven con %w para que
// Classify pueda distinguirlos con errors.Is.
var (
	ErrIndexerUnavailable = errors.New("indexer unavailable")
	ErrRateLimited        = errors.New("indexer rate limited")
	ErrMalformedResponse  = errors.New("malformed indexer response")
	ErrOraclePricing      = errors.New("oracle pricing error: deposit without USD value")
)

// ErrorClass es la categoría de un resultado por mercado.
type ErrorClass int

const (
	ClassOK           ErrorClass = iota
	ClassLoading                 // aún no hay datos: no es un error
	ClassIndexerInfra            // indexer caído o limitado: banner de salud, reintentable
	ClassOther                   // respuesta inválida, error de oráculo, etc.
)

// String devuelve el nombre de la clase.
func (c ErrorClass) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassLoading:
		return "loading"
	case ClassIndexerInfra:
		return "indexer"
	case ClassOther:
		return "other"
	default:
		return "unknown"
	}
}

// MarketResult es el resultado de las lecturas de un mercado en un ciclo.
// Snapshot puede venir junto a Err: es el último snapshot crudo válido.
type MarketResult struct {
	MarketID   string
	MarketName string
	Snapshot   *CampaignSnapshot
	Chain      *ChainState
	Err        error
}

// Classification es la clase de un MarketResult y la causa concreta.
type Classification struct {
	Class  ErrorClass
	Reason error
}

// Classify clasifica el resultado de un mercado.
//
// Los fallos de infraestructura (indexer caído, rate limit) se separan del resto
// para mostrarlos en banners distintos. El error de oráculo se detecta cuando la
// cadena confirma un depósito pero el indexer lo valora en $0.
func Classify(r MarketResult) Classification {
	if r.Err != nil {
		if errors.Is(r.Err, ErrIndexerUnavailable) || errors.Is(r.Err, ErrRateLimited) {
			return Classification{Class: ClassIndexerInfra, Reason: r.Err}
		}
		return Classification{Class: ClassOther, Reason: r.Err}
	}
	if r.Snapshot == nil {
		return Classification{Class: ClassLoading}
	}
	if r.Chain.HasDeposit() && !r.Snapshot.IndexerEnded && r.Snapshot.CurrentDepositUSD.IsZero() {
		return Classification{Class: ClassOther, Reason: ErrOraclePricing}
	}
	return Classification{Class: ClassOK}
}

// Banners son las listas de mercados afectados por cada tipo de error.
type Banners struct {
	IndexerInfra  []string
	Other         []string
	OraclePricing []string // subconjunto de Other
}

// Empty indica si no hay nada que mostrar.
func (b Banners) Empty() bool {
	return len(b.IndexerInfra) == 0 && len(b.Other) == 0
}

// AggregateErrors clasifica todos los resultados y devuelve los nombres de mercado
// afectados, sin duplicados y en el orden de aparición. Un mercado con error
// nunca afecta a los datos de los demás.
func AggregateErrors(results []MarketResult) Banners {
	var b Banners
	seen := map[ErrorClass]map[string]bool{
		ClassIndexerInfra: {},
		ClassOther:        {},
	}
	seenOracle := map[string]bool{}

	for _, r := range results {
		c := Classify(r)
		if c.Class != ClassIndexerInfra && c.Class != ClassOther {
			continue
		}
		name := r.MarketName
		if name == "" {
			name = r.MarketID
		}
		if seen[c.Class][name] {
			continue
		}
		seen[c.Class][name] = true

		if c.Class == ClassIndexerInfra {
			b.IndexerInfra = append(b.IndexerInfra, name)
			continue
		}
		b.Other = append(b.Other, name)
		if errors.Is(c.Reason, ErrOraclePricing) && !seenOracle[name] {
			seenOracle[name] = true
			b.OraclePricing = append(b.OraclePricing, name)
		}
	}
	return b
}
