package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CampaignSummary es el agregado por campaña usado para elegir la campaña activa.
type CampaignSummary struct {
	CampaignID    string
	CampaignLabel string
	TotalMarks    decimal.Decimal
	IsActive      bool // algún mercado de la campaña sigue acumulando
	Markets       int
}

// SummarizeCampaigns agrupa los estados por campaña sumando ProjectedMarksNow.
// Los estados sin ningún dato (DataUnavailable) no aportan información y se ignoran.
// El resultado está ordenado por CampaignID.
func SummarizeCampaigns(states []ReconciledCampaignState) []CampaignSummary {
	byID := make(map[string]*CampaignSummary)
	for _, s := range states {
		if s.DataUnavailable {
			continue
		}
		key := s.GroupKey()
		sum, ok := byID[key]
		if !ok {
			sum = &CampaignSummary{CampaignID: key, CampaignLabel: s.CampaignLabel, TotalMarks: decimal.Zero}
			byID[key] = sum
		}
		sum.TotalMarks = sum.TotalMarks.Add(s.ProjectedMarksNow)
		sum.Markets++
		if !s.Ended {
			sum.IsActive = true
		}
	}

	out := make([]CampaignSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampaignID < out[j].CampaignID })
	return out
}

// SelectActive elige la campaña a mostrar en primer plano.
//
// Prefiere campañas que siguen activas; si no hay ninguna considera todas.
// Dentro del subconjunto gana la de más marks totales; empate → menor CampaignID.
func SelectActive(states []ReconciledCampaignState) (string, bool) {
	summaries := SummarizeCampaigns(states)
	if len(summaries) == 0 {
		return "", false
	}

	candidates := make([]CampaignSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.IsActive {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		candidates = summaries
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		// candidates viene ordenado por ID, así que solo un total mayor desplaza al actual
		if c.TotalMarks.GreaterThan(best.TotalMarks) {
			best = c
		}
	}
	return best.CampaignID, true
}

// FilterByCampaign devuelve solo los estados de la campaña dada.
// Siempre filtrar antes de sumar marks para evitar mezclar campañas.
func FilterByCampaign(states []ReconciledCampaignState, campaignID string) []ReconciledCampaignState {
	out := make([]ReconciledCampaignState, 0, len(states))
	for _, s := range states {
		if s.GroupKey() == campaignID {
			out = append(out, s)
		}
	}
	return out
}

// SumMarks suma ProjectedMarksNow de los estados dados.
func SumMarks(states []ReconciledCampaignState) decimal.Decimal {
	total := decimal.Zero
	for _, s := range states {
		total = total.Add(s.ProjectedMarksNow)
	}
	return total
}

// SumDepositUSD suma DepositUSD de los estados dados.
func SumDepositUSD(states []ReconciledCampaignState) decimal.Decimal {
	total := decimal.Zero
	for _, s := range states {
		total = total.Add(s.DepositUSD)
	}
	return total
}
