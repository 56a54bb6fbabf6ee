// Package main provides swapd, the swap orchestrator daemon. It wires every
// collaborator from config and constructs the Orchestrator; the HTTP/gRPC
// surface a real deployment would front it with is out of scope, so this
// binary only proves the orchestrator starts up and serves as the anchor
// a transport adapter would import service.Orchestrator from.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/klingon-exchange/klingon-v2/internal/backend"
	"github.com/klingon-exchange/klingon-v2/internal/config"
	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/internal/evmswap"
	"github.com/klingon-exchange/klingon-v2/internal/events"
	"github.com/klingon-exchange/klingon-v2/internal/fee"
	"github.com/klingon-exchange/klingon-v2/internal/lnd"
	"github.com/klingon-exchange/klingon-v2/internal/nodes"
	"github.com/klingon-exchange/klingon-v2/internal/pairs"
	"github.com/klingon-exchange/klingon-v2/internal/rate"
	"github.com/klingon-exchange/klingon-v2/internal/referral"
	"github.com/klingon-exchange/klingon-v2/internal/service"
	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/swapmgr"
	"github.com/klingon-exchange/klingon-v2/internal/timeouts"
	"github.com/klingon-exchange/klingon-v2/internal/wallet"
	"github.com/klingon-exchange/klingon-v2/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

var zeroAddressHex = common.Address{}.Hex()

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.swapd", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		testnet     = flag.Bool("testnet", false, "Run on testnet")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("swapd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}
	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath(effectiveDataDir)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *testnet {
		cfg.Network = currency.Testnet
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log = logging.New(&logging.Config{Level: cfg.LogLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", cfgPath, "network", cfg.Network)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(&storage.Config{DataDir: cfg.DataDir})
	if err != nil {
		log.Fatal("failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DataDir)

	currencies, hdWallets, evmClients, err := buildCurrencies(cfg, store, log)
	if err != nil {
		log.Fatal("failed to build currency collaborators", "error", err)
	}

	manager := swapmgr.NewManager(store, hdWallets, evmClients)
	hub := events.New()

	orchestrator := service.New(service.Config{
		Currencies:          currencies,
		Pairs:               pairs.New(),
		Fees:                fee.New(),
		Rates:               rate.New(cfg.RatesInterval, nil),
		Timeouts:            timeouts.New(),
		Nodes:               nodes.New(),
		Referrals:           referral.New(store),
		Store:               store,
		Manager:             manager,
		Hub:                 hub,
		EVMContracts:        cfg.ResolveEVMContracts(),
		ReverseSwapsEnabled: !cfg.ReverseSwapsDisabled,
		PrepayMinerFee:      cfg.PrepayMinerFee,
	})

	pairConfigs := make([]service.PairConfig, 0, len(cfg.Pairs))
	for _, pc := range cfg.Pairs {
		pairConfigs = append(pairConfigs, service.PairConfig{
			Base:                pc.Base,
			Quote:               pc.Quote,
			Rate:                pc.Rate,
			Limits:              rate.Limits{Minimal: pc.MinAmount, Maximal: pc.MaxAmount},
			PercentageFee:       pc.PercentageFee,
			BaseFee:             pc.BaseFee,
			TimeoutDeltaMinutes: pc.TimeoutDeltaMinutes,
		})
	}
	if err := orchestrator.Init(ctx, pairConfigs); err != nil {
		log.Fatal("failed to initialize orchestrator", "error", err)
	}
	log.Info("orchestrator initialized", "pairs", len(pairConfigs), "currencies", len(currencies))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")
}

// buildCurrencies constructs the currency.Currency registry and the
// collaborator maps swapmgr.Manager needs, from cfg's currency entries.
func buildCurrencies(cfg *config.Config, store *storage.Storage, log *logging.Logger) (map[string]*currency.Currency, map[string]*wallet.HDWallet, map[uint64]*evmswap.Client, error) {
	currencies := make(map[string]*currency.Currency, len(cfg.Currencies))
	hdWallets := make(map[string]*wallet.HDWallet, len(cfg.Currencies))
	accountProviders := make(map[uint64]*backend.EVMAccountProvider)
	evmClients := make(map[uint64]*evmswap.Client)
	contracts := cfg.ResolveEVMContracts()

	for _, cc := range cfg.Currencies {
		cur := &currency.Currency{Symbol: cc.Symbol, Network: cfg.Network}

		if token := currency.GetToken(cc.EVMChainID, cc.Symbol); token != nil {
			params, ok := currency.GetByChainID(cc.EVMChainID, cfg.Network)
			if !ok {
				return nil, nil, nil, wiringErr(cc.Symbol, "no registered chain params for EVM chain id")
			}
			cur.Kind = currency.ERC20
			cur.Params = params
			cur.Token = token
		} else {
			params, ok := currency.Get(cc.Symbol, cfg.Network)
			if !ok {
				return nil, nil, nil, wiringErr(cc.Symbol, "no registered chain params")
			}
			cur.Params = params
			if params.Type == currency.ChainTypeEVM {
				cur.Kind = currency.Ether
			} else {
				cur.Kind = currency.BitcoinLike
			}
		}

		if cc.Chain != nil {
			cur.Chain = backend.New(*cc.Chain, cfg.Network)
			if cur.Kind != currency.BitcoinLike && cc.EVMChainID != 0 {
				url := cc.Chain.MainnetURL
				if cfg.Network == currency.Testnet {
					url = cc.Chain.TestnetURL
				}
				provider, perr := backend.NewEVMAccountProvider(url)
				if perr != nil {
					log.Warn("failed to dial EVM account provider", "symbol", cc.Symbol, "error", perr)
				} else {
					accountProviders[cc.EVMChainID] = provider
				}
				if addr, ok := contracts[cc.EVMChainID]; ok && addr != "" && addr != zeroAddressHex {
					if client, cerr := evmswap.NewClient(url, common.HexToAddress(addr)); cerr != nil {
						log.Warn("failed to bind HTLC contract", "chain_id", cc.EVMChainID, "error", cerr)
					} else {
						evmClients[cc.EVMChainID] = client
					}
				}
			}
		}

		if cc.Lightning != nil {
			cur.Lightning = lnd.New(*cc.Lightning)
		}

		if cc.WalletMnemonic != "" {
			hd, werr := wallet.NewFromMnemonic(cc.WalletMnemonic, cc.WalletPassphrase, cur.Params, cfg.Network)
			if werr != nil {
				log.Warn("failed to construct HD wallet", "symbol", cc.Symbol, "error", werr)
			} else {
				hdWallets[cc.Symbol] = hd
				cur.Wallet = wallet.NewService(cc.Symbol, cur.Kind, cur.Params, hd, store, nil)
			}
		}

		currencies[cc.Symbol] = cur
	}

	for symbol, cur := range currencies {
		if cur.Kind == currency.BitcoinLike || cur.Account != nil {
			continue
		}
		if provider, ok := accountProviders[cur.Params.ChainID]; ok {
			currencies[symbol].Account = provider
		}
	}

	return currencies, hdWallets, evmClients, nil
}

func wiringErr(symbol, reason string) error {
	return &wiringError{symbol: symbol, reason: reason}
}

type wiringError struct {
	symbol string
	reason string
}

func (e *wiringError) Error() string {
	return e.symbol + ": " + e.reason
}
