package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador que escribe en w (tests).
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime un bloque por depositante en el modo configurado.
func (c *Console) Notify(_ context.Context, reports []domain.DepositorReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(c.out, "no depositors to report")
		return nil
	}
	for _, r := range reports {
		if c.table {
			c.printFull(r)
		} else {
			c.printCompact(r)
		}
		c.printBanners(r.Banners)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.DepositorReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", r.EvaluatedAt.Format("15:04:05"), shortAddress(r.Depositor))

	if !r.HasActiveCampaign {
		sb.WriteString(" | no campaign data")
		if r.Partial {
			sb.WriteString(" (partial)")
		}
		fmt.Fprintln(c.out, sb.String())
		return
	}

	fmt.Fprintf(&sb, " | %s marks:%s dep:$%s %s left | APR %s (tide %s)",
		campaignName(r),
		campaignAmount(r, r.CampaignMarks),
		campaignAmount(r, r.CampaignDepositUSD),
		daysLeft(r),
		r.APR.Combined,
		r.APR.Tide,
	)
	if r.Partial {
		sb.WriteString(" (partial)")
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas de mercados y bonus con el desglose del APR.
func (c *Console) printFull(r domain.DepositorReport) {
	fmt.Fprintf(c.out, "\n[%s] %s | cycle %s\n", r.EvaluatedAt.Format("15:04:05"), r.Depositor, r.CycleID)
	if r.Partial {
		fmt.Fprintln(c.out, "  evaluation cancelled: showing partial results")
	}

	c.printStates(r.States)

	if !r.HasActiveCampaign {
		fmt.Fprintln(c.out, "  no campaign data yet")
		return
	}

	fmt.Fprintf(c.out, "  Campaign: %s | your marks %s of %s | deposit $%s | %s left\n",
		campaignName(r),
		campaignAmount(r, r.CampaignMarks),
		r.TotalCampaignMarks.StringFixed(2),
		campaignAmount(r, r.CampaignDepositUSD),
		daysLeft(r),
	)

	if len(r.Bonuses) > 0 {
		c.printBonuses(r)
	}
	c.printAPR(r.APR)
}

// printStates imprime una fila por mercado reconciliado.
func (c *Console) printStates(states []domain.ReconciledCampaignState) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Campaign", "Status", "Marks", "Deposit", "Marks/day")

	for _, s := range states {
		marks := "n/a"
		if !s.MarksUnavailable {
			marks = s.ProjectedMarksNow.StringFixed(2)
		}
		deposit, perDay := "n/a", "n/a"
		if !s.DataUnavailable && !s.MarksUnavailable {
			deposit = "$" + s.DepositUSD.StringFixed(2)
			perDay = s.MarksPerDay.StringFixed(2)
		}
		campaign := s.CampaignLabel
		if campaign == "" {
			campaign = s.GroupKey()
		}
		table.Append(s.MarketName, campaign, stateStatus(s), marks, deposit, perDay)
	}

	table.Render()
}

// printBonuses imprime el progreso del cupo early y los bonus estimados.
func (c *Console) printBonuses(r domain.DepositorReport) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Cap progress", "Early bonus", "End bonus")

	for _, b := range r.Bonuses {
		name := b.MarketID
		if s, ok := r.StateFor(b.MarketID); ok {
			name = s.MarketName
		}

		progress := fmt.Sprintf("%.1f%% of %s %s",
			b.Threshold.ProgressPercent,
			b.Threshold.ThresholdAmount.String(),
			b.Threshold.ThresholdToken,
		)
		if b.Threshold.ThresholdReached {
			progress = "cap reached"
		}

		early := "-"
		if b.EarlyBonus.Qualifies {
			early = fmt.Sprintf("%s ($%s)", b.EarlyBonus.Marks.StringFixed(0), b.EarlyBonus.EligibleUSD.StringFixed(2))
		}

		end := b.EndBonus.Pending.StringFixed(0) + " est."
		if b.EndBonus.Realized {
			end = "applied"
		}

		table.Append(name, progress, early, end)
	}

	table.Render()
}

// printAPR imprime el APR combinado y su desglose.
func (c *Console) printAPR(res domain.APRResult) {
	if !res.Tide.Determined {
		fmt.Fprintf(c.out, "  APR: %s (%s)\n", res.Combined, res.Reason)
		return
	}
	b := res.Breakdown
	fmt.Fprintf(c.out, "  APR: %s = underlying %.2f%% + tide %s\n", res.Combined, b.UnderlyingPercent, res.Tide)
	fmt.Fprintf(c.out, "  share %.4f%% | allocation %.2f%% (%.0f tokens) | price $%.4f | value $%.2f over %.1fd\n",
		b.UserShare*100,
		b.AllocationPercent*100,
		b.AllocatedTokens,
		b.TokenPrice,
		b.ProjectedTokenValue,
		b.HorizonDays,
	)
}

// printBanners imprime los mercados con error, separando infraestructura del resto.
func (c *Console) printBanners(b domain.Banners) {
	if len(b.IndexerInfra) > 0 {
		fmt.Fprintf(c.out, "  ! indexer unavailable, retrying: %s\n", strings.Join(b.IndexerInfra, ", "))
	}
	if len(b.OraclePricing) > 0 {
		fmt.Fprintf(c.out, "  ! oracle pricing error (deposit valued at $0): %s\n", strings.Join(b.OraclePricing, ", "))
	}
	if other := withoutAll(b.Other, b.OraclePricing); len(other) > 0 {
		fmt.Fprintf(c.out, "  ! data error: %s\n", strings.Join(other, ", "))
	}
}

// --- helpers ---

func stateStatus(s domain.ReconciledCampaignState) string {
	switch {
	case s.DataUnavailable:
		return "loading"
	case s.Ended:
		return "ended"
	case s.IsProcessing:
		return "processing"
	default:
		return "active"
	}
}

// campaignAmount formatea marks o depósito de la campaña; n/a si faltan snapshots.
func campaignAmount(r domain.DepositorReport, v decimal.Decimal) string {
	if r.MarksIncomplete {
		return "n/a"
	}
	return v.StringFixed(2)
}

func daysLeft(r domain.DepositorReport) string {
	if r.HorizonUnknown {
		return "n/a"
	}
	return fmt.Sprintf("%.1fd", r.DaysRemaining)
}

func campaignName(r domain.DepositorReport) string {
	for _, c := range r.Campaigns {
		if c.CampaignID == r.ActiveCampaign && c.CampaignLabel != "" {
			return c.CampaignLabel
		}
	}
	return r.ActiveCampaign
}

// shortAddress abrevia una dirección hex: 0x1234…abcd.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func withoutAll(names, exclude []string) []string {
	if len(exclude) == 0 {
		return names
	}
	skip := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		skip[n] = true
	}
	var out []string
	for _, n := range names {
		if !skip[n] {
			out = append(out, n)
		}
	}
	return out
}
