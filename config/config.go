package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Chain    ChainConfig    `yaml:"chain"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Markets  []MarketConfig `yaml:"markets"`
	Storage  StorageConfig  `yaml:"storage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// TrackerConfig controla el ciclo de evaluación.
type TrackerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	Workers         int      `yaml:"workers"`
	Depositors      []string `yaml:"depositors"`
	FDV             float64  `yaml:"fdv"` // USD
}

// ChainConfig controla las lecturas on-chain.
type ChainConfig struct {
	RPCURL              string `yaml:"rpc_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	Workers             int    `yaml:"workers"`
}

// IndexerConfig controla el cliente GraphQL del indexer.
type IndexerConfig struct {
	URL                 string  `yaml:"url"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	RatePerSec          float64 `yaml:"rate_per_sec"`
	Burst               int     `yaml:"burst"`
	MaxRetries          int     `yaml:"max_retries"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	Workers             int     `yaml:"workers"`
}

// MarketConfig describe un mercado genesis.
type MarketConfig struct {
	ID            string  `yaml:"id"` // dirección del contrato genesis
	Name          string  `yaml:"name"`
	CampaignID    string  `yaml:"campaign_id"`
	CampaignLabel string  `yaml:"campaign_label"`
	Family        string  `yaml:"family"`        // fxsave-genesis | wsteth-genesis | wbtc-genesis
	GenesisStart  string  `yaml:"genesis_start"` // RFC3339, opcional
	GenesisEnd    string  `yaml:"genesis_end"`   // RFC3339, opcional
	UnderlyingAPR float64 `yaml:"underlying_apr"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN            string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	RetentionHours int    `yaml:"retention_hours"`
}

// ScheduleConfig contiene las expresiones cron de mantenimiento.
type ScheduleConfig struct {
	PruneCron string `yaml:"prune_cron"` // con segundos
}

// HTTPConfig controla la API de lectura.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"` // vacío = deshabilitada
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodifica YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// EvalInterval devuelve el intervalo de evaluación.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.Tracker.IntervalSeconds) * time.Second
}

// ChainInterval devuelve el intervalo de lectura on-chain.
func (c *Config) ChainInterval() time.Duration {
	return time.Duration(c.Chain.PollIntervalSeconds) * time.Second
}

// IndexerInterval devuelve el intervalo de lectura del indexer.
func (c *Config) IndexerInterval() time.Duration {
	return time.Duration(c.Indexer.PollIntervalSeconds) * time.Second
}

// IndexerTimeout devuelve el timeout por request del indexer.
func (c *Config) IndexerTimeout() time.Duration {
	return time.Duration(c.Indexer.TimeoutSeconds) * time.Second
}

// Retention devuelve la antigüedad máxima del historial de ciclos.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionHours) * time.Hour
}

// Validate rechaza mercados sin ID o con familia desconocida y exige
// al menos un mercado, un depositante y la URL del indexer.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Markets) == 0 {
		errs = append(errs, errors.New("no markets configured"))
	}
	if c.Indexer.URL == "" {
		errs = append(errs, errors.New("indexer url is required"))
	}
	if len(c.Tracker.Depositors) == 0 {
		errs = append(errs, errors.New("no depositors configured"))
	}
	for _, d := range c.Tracker.Depositors {
		if !common.IsHexAddress(d) {
			errs = append(errs, fmt.Errorf("depositor %q: invalid address", d))
		}
	}

	seen := make(map[string]bool, len(c.Markets))
	for i, m := range c.Markets {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("markets[%d]: missing id", i))
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("markets[%d]: duplicate id %s", i, m.ID))
		}
		seen[m.ID] = true
		if _, ok := domain.LookupFamily(m.Family); !ok {
			errs = append(errs, fmt.Errorf("market %s: unknown family %q", m.ID, m.Family))
		}
		if _, err := parseOptionalTime(m.GenesisStart); err != nil {
			errs = append(errs, fmt.Errorf("market %s: genesis_start: %w", m.ID, err))
		}
		if _, err := parseOptionalTime(m.GenesisEnd); err != nil {
			errs = append(errs, fmt.Errorf("market %s: genesis_end: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ToMarkets convierte la configuración en mercados del dominio.
// Asume que Validate ya pasó.
func (c *Config) ToMarkets() []domain.Market {
	out := make([]domain.Market, 0, len(c.Markets))
	for _, m := range c.Markets {
		family, _ := domain.LookupFamily(m.Family)
		start, _ := parseOptionalTime(m.GenesisStart)
		end, _ := parseOptionalTime(m.GenesisEnd)
		out = append(out, domain.Market{
			ID:            m.ID,
			Name:          m.Name,
			CampaignID:    m.CampaignID,
			CampaignLabel: m.CampaignLabel,
			Family:        family,
			GenesisStart:  start,
			GenesisEnd:    end,
			UnderlyingAPR: m.UnderlyingAPR,
		})
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("INDEXER_URL"); v != "" {
		cfg.Indexer.URL = v
	}
	// Lista separada por comas
	if v := os.Getenv("MARKS_DEPOSITORS"); v != "" {
		cfg.Tracker.Depositors = nil
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Tracker.Depositors = append(cfg.Tracker.Depositors, d)
			}
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Direcciones y IDs de mercado se normalizan a lowercase.
func setDefaults(cfg *Config) {
	if cfg.Tracker.IntervalSeconds <= 0 {
		cfg.Tracker.IntervalSeconds = 15
	}
	if cfg.Tracker.FDV <= 0 {
		cfg.Tracker.FDV = domain.DefaultFDV
	}
	for i, d := range cfg.Tracker.Depositors {
		cfg.Tracker.Depositors[i] = strings.ToLower(strings.TrimSpace(d))
	}
	if cfg.Chain.PollIntervalSeconds <= 0 {
		cfg.Chain.PollIntervalSeconds = 30
	}
	if cfg.Indexer.PollIntervalSeconds <= 0 {
		cfg.Indexer.PollIntervalSeconds = 60
	}
	if cfg.Indexer.TimeoutSeconds <= 0 {
		cfg.Indexer.TimeoutSeconds = 10
	}
	for i := range cfg.Markets {
		cfg.Markets[i].ID = strings.ToLower(strings.TrimSpace(cfg.Markets[i].ID))
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "harbor-marks.db"
	}
	if cfg.Storage.RetentionHours <= 0 {
		cfg.Storage.RetentionHours = 24 * 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
