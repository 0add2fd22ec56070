package service

import (
	"context"
	"testing"
	"time"

	"github.com/quizverse/quizverse/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "xena", "xena@example.edu")
	_, err := env.auth.Login(ctx, "xena", goodPassword)
	require.NoError(t, err)
	require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))

	hk := NewHousekeepingService(env.store, env.store.Codes(), env.auth.Config, slogx.Discard(), time.Hour)
	hk.Now = env.clock.Now

	require.Zero(t, hk.Cleanup(ctx), "nothing stale yet")

	// Both codes are past their window but inside retention.
	env.clock.Advance(6 * time.Minute)
	require.Zero(t, hk.Cleanup(ctx))

	// forgot (2m + 24h) is purged, verify (5m + 24h) is not.
	env.clock.Advance(DefaultCodeRetention - 3*time.Minute)
	require.EqualValues(t, 1, hk.Cleanup(ctx))

	env.clock.Advance(3 * time.Minute)
	require.EqualValues(t, 1, hk.Cleanup(ctx))

	// The session outlives codes until the refresh window closes.
	env.clock.Advance(7 * 24 * time.Hour)
	require.EqualValues(t, 1, hk.Cleanup(ctx))
}

func TestHousekeepingKeepsExpiredCodesForRetention(t *testing.T) {
	ctx := context.Background()

	t.Run("late otp reports expired after cleanup", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "yara", "yara@example.edu")
		otp := env.lastOTP(t, u.Email)

		hk := NewHousekeepingService(env.store, env.store.Codes(), env.auth.Config, slogx.Discard(), time.Hour)
		hk.Now = env.clock.Now

		env.clock.Advance(DefaultVerifyCodeTTL + time.Minute)
		require.Zero(t, hk.Cleanup(ctx))
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, otp), KindExpired, MsgOTPExpired)
	})

	t.Run("purged once retention passes", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) { c.CodeRetention = time.Hour })
		u := env.register(t, "zack", "zack@example.edu")
		otp := env.lastOTP(t, u.Email)

		hk := NewHousekeepingService(env.store, env.store.Codes(), env.auth.Config, slogx.Discard(), time.Hour)
		hk.Now = env.clock.Now

		env.clock.Advance(DefaultVerifyCodeTTL + time.Hour + time.Second)
		require.EqualValues(t, 1, hk.Cleanup(ctx))
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, otp), KindNotFound, MsgNoOTP)
	})
}

func TestHousekeepingStartStop(t *testing.T) {
	env := newTestEnv(t)
	hk := NewHousekeepingService(env.store, env.store.Codes(), env.auth.Config, slogx.Discard(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hk.Start(ctx)
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
	hk.Stop()
}
