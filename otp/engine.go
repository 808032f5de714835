// Package otp implements the one-time-code challenge machinery used by login
// and registration flows. An Engine instance is bound to a single delivery
// channel (phone or email); the storefront runs one Engine per channel over a
// shared redis-backed Store.
//
// The state model is deliberately small: one active challenge per identifier
// per channel, overwritten on re-send, consumed exactly once on a successful
// verification, and expired lazily by the store. A separate
// registration-verified flag records that an identifier passed an OTP check
// during registration; verification alone never sets it, the orchestrator
// does so explicitly.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/championsworld/identity/internal"
)

// Channel names a delivery transport for one-time codes.
type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
)

// ErrDeliveryFailed reports that the external channel rejected or failed the
// delivery request. The generated code stays stored and verifiable; only the
// hand-off to the provider failed.
var ErrDeliveryFailed = errors.New("otp delivery failed")

// Sender hands a generated code to the external delivery collaborator.
type Sender func(ctx context.Context, identifier, code string) error

// Config bounds challenge lifetime and shape.
type Config struct {
	Digits      int
	TTL         time.Duration
	VerifiedTTL time.Duration
}

// DefaultConfig matches the storefront defaults: 6-digit codes valid for five
// minutes, registration eligibility held for thirty.
var DefaultConfig = Config{
	Digits:      6,
	TTL:         5 * time.Minute,
	VerifiedTTL: 30 * time.Minute,
}

// Engine generates, stores and verifies one-time codes for one channel.
type Engine struct {
	store   *Store
	channel Channel
	send    Sender
	cfg     Config
	log     *zap.Logger
}

func New(store *Store, channel Channel, send Sender, cfg Config, log *zap.Logger) *Engine {
	if cfg.Digits == 0 {
		cfg.Digits = DefaultConfig.Digits
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultConfig.TTL
	}
	if cfg.VerifiedTTL == 0 {
		cfg.VerifiedTTL = DefaultConfig.VerifiedTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, channel: channel, send: send, cfg: cfg, log: log}
}

// Send generates a fresh code, stores it under the identifier (replacing any
// prior challenge) and requests delivery. The code is stored before delivery
// is attempted, so a provider failure leaves a verifiable challenge behind.
func (e *Engine) Send(ctx context.Context, identifier string) error {
	code, err := internal.NewNumericCode(e.cfg.Digits)
	if err != nil {
		return err
	}

	if err := e.store.PutChallenge(ctx, e.channel, identifier, code, e.cfg.TTL); err != nil {
		return err
	}

	if err := e.send(ctx, identifier, code); err != nil {
		e.log.Error("otp delivery failed",
			zap.String("channel", string(e.channel)),
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.log.Info("otp sent",
		zap.String("channel", string(e.channel)),
		zap.String("identifier", identifier),
	)
	return nil
}

// Verify fails closed to false when no live challenge exists, and consumes
// the challenge on a match. A mismatch leaves the challenge intact.
func (e *Engine) Verify(ctx context.Context, identifier, candidate string) (bool, error) {
	ok, err := e.store.ConsumeChallenge(ctx, e.channel, identifier, candidate)
	if err != nil {
		return false, err
	}

	if ok {
		e.log.Info("otp verified",
			zap.String("channel", string(e.channel)),
			zap.String("identifier", identifier),
		)
	} else {
		e.log.Warn("otp verification failed",
			zap.String("channel", string(e.channel)),
			zap.String("identifier", identifier),
		)
	}
	return ok, nil
}

// MarkVerified records registration eligibility for the identifier.
func (e *Engine) MarkVerified(ctx context.Context, identifier string) error {
	return e.store.MarkVerified(ctx, e.channel, identifier, e.cfg.VerifiedTTL)
}

// IsVerified reports whether the identifier currently holds the
// registration-verified flag.
func (e *Engine) IsVerified(ctx context.Context, identifier string) (bool, error) {
	return e.store.IsVerified(ctx, e.channel, identifier)
}

// Clear drops the registration-verified flag.
func (e *Engine) Clear(ctx context.Context, identifier string) error {
	return e.store.ClearVerified(ctx, e.channel, identifier)
}
