package identity

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/championsworld/identity/otp"
	"github.com/championsworld/identity/password"
	"github.com/championsworld/identity/token"
)

// Builder assembles an Engine from configuration and collaborators. The user,
// role and reset stores, a redis client and a mailer are required; the SMS
// sender, OAuth provider and address store are optional and the flows that
// need them fail cleanly when absent.
type Builder struct {
	cfg       Config
	log       *zap.Logger
	users     UserStore
	roles     RoleStore
	resets    ResetTokenStore
	addresses AddressStore
	redis     redis.UniversalClient
	mailer    Mailer
	sms       SMSSender
	oauth     OAuthProvider
	built     bool
}

func New() *Builder {
	return &Builder{cfg: defaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

func (b *Builder) WithRoleStore(s RoleStore) *Builder {
	b.roles = s
	return b
}

func (b *Builder) WithResetTokenStore(s ResetTokenStore) *Builder {
	b.resets = s
	return b
}

func (b *Builder) WithAddressStore(s AddressStore) *Builder {
	b.addresses = s
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

func (b *Builder) WithOAuthProvider(p OAuthProvider) *Builder {
	b.oauth = p
	return b
}

// Build validates the wiring and constructs the Engine. A Builder is single
// use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.users == nil || b.roles == nil || b.resets == nil {
		return nil, errors.New("user, role and reset stores are required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer is required")
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}

	tokens, err := token.NewManager([]byte(b.cfg.JWT.Secret), b.cfg.JWT.TTL)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.DefaultParams)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		cfg:       b.cfg,
		log:       b.log,
		users:     b.users,
		roles:     b.roles,
		resets:    b.resets,
		addresses: b.addresses,
		tokens:    tokens,
		hasher:    hasher,
		mailer:    b.mailer,
		oauth:     b.oauth,
	}

	otpStore := otp.NewStore(b.redis, b.cfg.Redis.Prefix)
	otpCfg := otp.Config{
		Digits:      b.cfg.OTP.Digits,
		TTL:         b.cfg.OTP.TTL,
		VerifiedTTL: b.cfg.OTP.VerifiedTTL,
	}

	engine.emailOTP = otp.New(otpStore, otp.ChannelEmail, engine.sendOTPMail, otpCfg, b.log)
	engine.phoneOTP = otp.New(otpStore, otp.ChannelPhone, engine.sendOTPSMS(b.sms), otpCfg, b.log)

	return engine, nil
}
