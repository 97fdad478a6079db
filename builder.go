package vaultgate

import (
	"errors"

	"github.com/nethrall/vaultgate/jwt"
	"github.com/nethrall/vaultgate/password"
	"github.com/nethrall/vaultgate/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountProvider
	documents DocumentStore
	mailer    Mailer
	auditSink AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

func (b *Builder) WithDocumentStore(s DocumentStore) *Builder {
	b.documents = s
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns the
// engine. The document store is optional; sharing operations return
// [ErrEngineNotReady] without one.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	engine := &Engine{
		config:       cfg,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
	}

	engine.accounts = b.accounts
	engine.documents = b.documents
	engine.mailer = b.mailer
	engine.challengeStore = newChallengeStore(b.redis, cfg.Challenge.RedisPrefix)
	engine.challengeLimiter = newChallengeLimiter(b.redis, cfg.Challenge)
	engine.resetGate = newResetGate(b.redis, cfg.Challenge.RedisPrefix)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	if len(cfg.Assertion.Secret) > 0 {
		jm, err := jwt.NewManager(jwt.Config{
			Secret: append([]byte(nil), cfg.Assertion.Secret...),
			TTL:    cfg.Assertion.TTL,
			Issuer: cfg.Assertion.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.assertions = jm
	}

	b.built = true

	return engine, nil
}
