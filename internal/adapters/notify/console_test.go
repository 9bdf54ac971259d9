package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/baofinance/harbor-marks/internal/adapters/notify"
	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReport() domain.DepositorReport {
	return domain.DepositorReport{
		CycleID:     "cycle-1",
		Depositor:   "0x2222222222222222222222222222222222222222",
		EvaluatedAt: time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC),
		States: []domain.ReconciledCampaignState{
			{
				MarketID:          "m1",
				MarketName:        "haETH",
				CampaignID:        "maiden",
				CampaignLabel:     "Maiden Voyage",
				ProjectedMarksNow: decimal.RequireFromString("600"),
				DepositUSD:        decimal.NewFromInt(50),
				MarksPerDay:       decimal.NewFromInt(500),
			},
			{MarketID: "m2", MarketName: "haBTC", DataUnavailable: true, MarksUnavailable: true},
		},
		Campaigns: []domain.CampaignSummary{
			{CampaignID: "maiden", CampaignLabel: "Maiden Voyage", IsActive: true, Markets: 1},
		},
		ActiveCampaign:     "maiden",
		HasActiveCampaign:  true,
		CampaignMarks:      decimal.NewFromInt(600),
		CampaignDepositUSD: decimal.NewFromInt(50),
		TotalCampaignMarks: decimal.NewFromInt(60_000),
		DaysRemaining:      12.5,
		Bonuses: []domain.MarketBonus{
			{
				MarketID:   "m1",
				Threshold:  domain.FamilyBonusStatus(domain.FamilyWstETHGenesis, decimal.NewFromInt(5)),
				EarlyBonus: domain.EarlyBonus{EligibleUSD: decimal.NewFromInt(50), Marks: decimal.NewFromInt(5000), Qualifies: true},
				EndBonus:   domain.EndBonusEstimate{Pending: decimal.NewFromInt(5000)},
			},
		},
		APR: domain.APRResult{
			Tide:     domain.NewAPR(10),
			Combined: domain.NewAPR(13.5),
			Breakdown: domain.APRBreakdown{
				UnderlyingPercent: 3.5,
				UserShare:         0.01,
				HorizonDays:       12.5,
			},
		},
	}
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), []domain.DepositorReport{makeReport()}))

	out := buf.String()
	assert.Contains(t, out, "[12:30:00]")
	assert.Contains(t, out, "0x2222…2222")
	assert.Contains(t, out, "Maiden Voyage")
	assert.Contains(t, out, "marks:600.00")
	assert.Contains(t, out, "APR 13.50% (tide 10.00%)")
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), []domain.DepositorReport{makeReport()}))

	out := buf.String()
	assert.Contains(t, out, "haETH")
	assert.Contains(t, out, "haBTC")
	assert.Contains(t, out, "loading")
	assert.Contains(t, out, "50.0% of 10 wstETH")
	assert.Contains(t, out, "underlying 3.50%")
	assert.Contains(t, out, "cycle-1")
}

func TestConsole_Notify_UndeterminedAPR(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	r := makeReport()
	r.APR = domain.APRResult{Tide: domain.Undetermined(), Combined: domain.Undetermined(), Reason: "no campaign marks"}
	require.NoError(t, n.Notify(context.Background(), []domain.DepositorReport{r}))

	out := buf.String()
	assert.Contains(t, out, "APR: n/a (no campaign marks)")
	assert.NotContains(t, out, "NaN")
	assert.NotContains(t, out, "Inf")
}

func TestConsole_Notify_Banners(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := makeReport()
	r.Banners = domain.Banners{
		IndexerInfra:  []string{"haBTC"},
		Other:         []string{"haEUR", "haGOLD"},
		OraclePricing: []string{"haGOLD"},
	}
	require.NoError(t, n.Notify(context.Background(), []domain.DepositorReport{r}))

	out := buf.String()
	assert.Contains(t, out, "indexer unavailable, retrying: haBTC")
	assert.Contains(t, out, "oracle pricing error (deposit valued at $0): haGOLD")
	assert.Contains(t, out, "data error: haEUR\n")
}

func TestConsole_Notify_NoCampaign(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := domain.DepositorReport{Depositor: "0xabc", Partial: true}
	require.NoError(t, n.Notify(context.Background(), []domain.DepositorReport{r}))
	assert.Contains(t, buf.String(), "no campaign data (partial)")
}

func TestConsole_Notify_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no depositors to report")
}

func TestConsole_Notify_IncompleteMarksAreNotZero(t *testing.T) {
	r := makeReport()
	r.MarksIncomplete = true
	r.CampaignMarks = decimal.Zero
	r.CampaignDepositUSD = decimal.Zero
	r.APR = domain.APRResult{Tide: domain.Undetermined(), Combined: domain.Undetermined(), Reason: "marks unavailable"}

	var compact bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&compact, false).Notify(context.Background(), []domain.DepositorReport{r}))
	assert.Contains(t, compact.String(), "marks:n/a dep:$n/a")
	assert.NotContains(t, compact.String(), "marks:0.00")

	var full bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&full, true).Notify(context.Background(), []domain.DepositorReport{r}))
	assert.Contains(t, full.String(), "your marks n/a of 60000.00 | deposit $n/a")
}

func TestConsole_Notify_UnknownHorizon(t *testing.T) {
	r := makeReport()
	r.HorizonUnknown = true
	r.DaysRemaining = 0

	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, false).Notify(context.Background(), []domain.DepositorReport{r}))
	assert.Contains(t, buf.String(), "n/a left")
	assert.NotContains(t, buf.String(), "0.0d left")

	buf.Reset()
	require.NoError(t, notify.NewConsoleWriter(&buf, false).Notify(context.Background(), []domain.DepositorReport{makeReport()}))
	assert.Contains(t, buf.String(), "12.5d left")
}
