package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/baofinance/harbor-marks/config"
	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
tracker:
  depositors: ["0xAbCdEf0000000000000000000000000000000001"]
indexer:
  url: "http://indexer.local/graphql"
markets:
  - id: "0x1111111111111111111111111111111111111111"
    name: haETH
    campaign_id: maiden
    family: wsteth-genesis
    genesis_end: "2026-04-01T00:00:00Z"
    underlying_apr: 0.03
  - id: "0x3333333333333333333333333333333333333333"
    family: WBTC-Genesis
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.EvalInterval())
	assert.Equal(t, 30*time.Second, cfg.ChainInterval())
	assert.Equal(t, 60*time.Second, cfg.IndexerInterval())
	assert.Equal(t, 10*time.Second, cfg.IndexerTimeout())
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.Equal(t, float64(domain.DefaultFDV), cfg.Tracker.FDV)
	assert.Equal(t, "harbor-marks.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// Direcciones normalizadas a lowercase
	assert.Equal(t, []string{"0xabcdef0000000000000000000000000000000001"}, cfg.Tracker.Depositors)
}

func TestToMarkets(t *testing.T) {
	cfg, err := config.Parse([]byte(validYAML))
	require.NoError(t, err)

	markets := cfg.ToMarkets()
	require.Len(t, markets, 2)

	assert.Equal(t, "haETH", markets[0].Name)
	assert.Equal(t, "maiden", markets[0].CampaignID)
	assert.Equal(t, domain.FamilyWstETHGenesis.Key, markets[0].Family.Key)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), markets[0].GenesisEnd.UTC())
	assert.True(t, markets[0].GenesisStart.IsZero())
	assert.InDelta(t, 0.03, markets[0].UnderlyingAPR, 1e-12)

	assert.Equal(t, domain.FamilyWBTCGenesis.Key, markets[1].Family.Key)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CHAIN_RPC_URL", "http://rpc.local")
	t.Setenv("INDEXER_URL", "http://other.local/graphql")
	t.Setenv("MARKS_DEPOSITORS", " 0x2222222222222222222222222222222222222222 ,,0x5555555555555555555555555555555555555555")

	cfg, err := config.Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://rpc.local", cfg.Chain.RPCURL)
	assert.Equal(t, "http://other.local/graphql", cfg.Indexer.URL)
	assert.Equal(t, []string{
		"0x2222222222222222222222222222222222222222",
		"0x5555555555555555555555555555555555555555",
	}, cfg.Tracker.Depositors)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no markets", `
tracker: {depositors: ["0x2222222222222222222222222222222222222222"]}
indexer: {url: "http://x"}
`, "no markets"},
		{"unknown family", `
tracker: {depositors: ["0x2222222222222222222222222222222222222222"]}
indexer: {url: "http://x"}
markets: [{id: "0x1", family: "steth-genesis"}]
`, "unknown family"},
		{"missing id", `
tracker: {depositors: ["0x2222222222222222222222222222222222222222"]}
indexer: {url: "http://x"}
markets: [{family: "wsteth-genesis"}]
`, "missing id"},
		{"bad depositor", `
tracker: {depositors: ["alice"]}
indexer: {url: "http://x"}
markets: [{id: "0x1", family: "wsteth-genesis"}]
`, "invalid address"},
		{"bad date", `
tracker: {depositors: ["0x2222222222222222222222222222222222222222"]}
indexer: {url: "http://x"}
markets: [{id: "0x1", family: "wsteth-genesis", genesis_end: "april"}]
`, "genesis_end"},
		{"no indexer", `
tracker: {depositors: ["0x2222222222222222222222222222222222222222"]}
markets: [{id: "0x1", family: "wsteth-genesis"}]
`, "indexer url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := config.Parse([]byte("tracker: [unclosed"))
	assert.ErrorContains(t, err, "parse YAML")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Markets, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
