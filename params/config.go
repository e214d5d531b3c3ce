package params

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Chain holds the Solana-side wiring: where the oracle lives and which
// program the PDAs derive under.
type Chain struct {
	RPCEndpoint   string `yaml:"rpc_endpoint"`
	ProgramID     string `yaml:"program_id"`
	OracleFeed    string `yaml:"oracle_feed"`
	OracleProgram string `yaml:"oracle_program"`
}

// Market holds the AMM parameters applied at initialization.
type Market struct {
	BE6       int64  `yaml:"b_e6"`        // LMSR liquidity, e6
	FeeBps    int64  `yaml:"fee_bps"`     // protocol fee on trades
	FeeDest   string `yaml:"fee_dest"`    // base58 fee/admin authority
	GeWinsYes bool   `yaml:"ge_wins_yes"` // tie rule at settlement: YES wins on an exact match
}

// Node holds runtime knobs.
type Node struct {
	DBPath     string        `yaml:"db_path"`
	APIAddr    string        `yaml:"api_addr"`
	LogFile    string        `yaml:"log_file"`
	Keeper     string        `yaml:"keeper"` // base58 keeper identity for API-submitted orders
	OraclePoll time.Duration `yaml:"oracle_poll"`
}

// Config is the full node configuration.
type Config struct {
	Chain  Chain  `yaml:"chain"`
	Market Market `yaml:"market"`
	Node   Node   `yaml:"node"`
}

// Default returns devnet-ish defaults. The fee destination has no default:
// it is the admin key and must be configured.
func Default() Config {
	return Config{
		Chain: Chain{
			RPCEndpoint: "https://api.devnet.solana.com",
		},
		Market: Market{
			BE6:       1_000_000_000, // b = 1000.0
			FeeBps:    100,           // 1%
			GeWinsYes: true,
		},
		Node: Node{
			DBPath:     "data/flipmarket",
			APIAddr:    ":8080",
			LogFile:    "data/node.log",
			OraclePoll: 5 * time.Second,
		},
	}
}

// Load resolves configuration with priority: ENV > .env file > yaml file >
// defaults. Both file paths are optional.
func Load(envPath, yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return cfg, fmt.Errorf("params: read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("params: parse %s: %w", yamlPath, err)
		}
	}

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // .env in cwd, if any
	}

	if v := os.Getenv("RPC_ENDPOINT"); v != "" {
		cfg.Chain.RPCEndpoint = v
	}
	if v := os.Getenv("PROGRAM_ID"); v != "" {
		cfg.Chain.ProgramID = v
	}
	if v := os.Getenv("ORACLE_FEED"); v != "" {
		cfg.Chain.OracleFeed = v
	}
	if v := os.Getenv("ORACLE_PROGRAM"); v != "" {
		cfg.Chain.OracleProgram = v
	}
	if v := os.Getenv("MARKET_B_E6"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Market.BE6 = n
		}
	}
	if v := os.Getenv("MARKET_FEE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Market.FeeBps = n
		}
	}
	if v := os.Getenv("FEE_DEST"); v != "" {
		cfg.Market.FeeDest = v
	}
	if v := os.Getenv("MARKET_GE_WINS_YES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Market.GeWinsYes = b
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("KEEPER"); v != "" {
		cfg.Node.Keeper = v
	}
	if v := os.Getenv("ORACLE_POLL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Node.OraclePoll = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg, nil
}
