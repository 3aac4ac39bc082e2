package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/nlu"
	orchestratorx "github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/audit"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Banking-Assistant/agent/llm"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/tool/bank"
	configx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/config"
	qstashx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/qstash"
)

type AppConfig struct {
	ListenAddr        string        `envconfig:"LISTEN_ADDR" default:":3000"`
	CustomerID        string        `envconfig:"CUSTOMER_ID" default:"CUST-001"`
	PolicyPath        string        `envconfig:"POLICY_PATH"`
	ToolTimeout       time.Duration `envconfig:"TOOL_TIMEOUT" default:"10s"`
	SessionIdleTTL    time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
}

func (c AppConfig) Validate() error {
	if c.ToolTimeout <= 0 {
		return errors.New("APP_TOOL_TIMEOUT must be positive")
	}
	if c.SessionIdleTTL <= 0 || c.SweepInterval <= 0 {
		return errors.New("APP_SESSION_IDLE_TTL and APP_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// application holds everything a command needs. close releases the ledger.
type application struct {
	cfg          *AppConfig
	sessions     *statex.Manager
	orchestrator *orchestratorx.Orchestrator
	close        func() error
}

func newApplication(ctx context.Context) (*application, error) {
	appCfg, err := configx.New[AppConfig]("APP")
	if err != nil {
		return nil, err
	}

	models, err := newModels(ctx)
	if err != nil {
		return nil, err
	}

	bankCfg, err := configx.New[bank.Config]("BANK")
	if err != nil {
		return nil, err
	}
	ledger, err := bank.OpenLedger(ctx, *bankCfg)
	if err != nil {
		return nil, fmt.Errorf("open card ledger: %w", err)
	}
	svc := bank.NewService(ledger)

	access, err := policyx.Load(appCfg.PolicyPath)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	sink, err := newAuditSink()
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	sessions := statex.NewManager(statex.WithIdleTTL(appCfg.SessionIdleTTL))
	o, err := orchestratorx.New(sessions, models, svc, access, sink, orchestratorx.Config{
		CustomerID:  appCfg.CustomerID,
		ToolTimeout: appCfg.ToolTimeout,
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	log.Info().
		Str("ledger", bankCfg.Ledger).
		Bool("llm", models != nil).
		Str("policy", appCfg.PolicyPath).
		Msg("assistant ready")

	return &application{
		cfg:          appCfg,
		sessions:     sessions,
		orchestrator: o,
		close:        svc.Close,
	}, nil
}

// newModels returns nil when LLM_PROVIDER=none; turns then use the keyword
// classifier and template replies.
func newModels(ctx context.Context) (contractx.Registry, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	if !llmCfg.Enabled() {
		log.Warn().Msg("llm disabled, using keyword classifier and templates")
		return nil, nil
	}
	return nlu.NewRegistry(ctx, *llmCfg)
}

func newAuditSink() (contractx.AuditSink, error) {
	auditCfg, err := configx.New[audit.Config]("AUDIT")
	if err != nil {
		return nil, err
	}
	if !auditCfg.Enabled {
		return audit.Logger{}, nil
	}

	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	client, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		return nil, fmt.Errorf("create qstash client: %w", err)
	}
	return audit.NewQStash(client, auditCfg.Destination), nil
}
