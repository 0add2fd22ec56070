package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/idx"
)

// ConsumeResult is the outcome of presenting a code.
type ConsumeResult int

const (
	ConsumeOK ConsumeResult = iota
	ConsumeNotFound
	ConsumeExpired
	ConsumeWrongType
)

func (r ConsumeResult) String() string {
	switch r {
	case ConsumeOK:
		return "ok"
	case ConsumeNotFound:
		return "not_found"
	case ConsumeExpired:
		return "expired"
	case ConsumeWrongType:
		return "wrong_type"
	default:
		return "unknown"
	}
}

// CodeIssuer mints OTPs and reset form tokens and redeems them exactly once.
// Only fingerprints reach the store.
type CodeIssuer struct {
	Codes store.Codes

	// Digits is the OTP length for verify and forgot codes.
	Digits int

	// InvalidateOnReissue deletes the user's earlier codes of the same kind
	// before a new one is stored.
	InvalidateOnReissue bool

	Now func() time.Time
}

func (i *CodeIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Issue generates and stores a new code, returning the plaintext value.
func (i *CodeIssuer) Issue(ctx context.Context, userID string, kind domain.CodeKind) (string, error) {
	value, err := i.generate(kind)
	if err != nil {
		return "", err
	}

	if i.InvalidateOnReissue {
		if _, err := i.Codes.DeleteCodes(ctx, userID, kind); err != nil {
			return "", fmt.Errorf("invalidate %s codes: %w", kind, err)
		}
	}

	now := i.now()
	code := domain.OneTimeCode{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		Kind:      kind,
		Digest:    cryptox.FingerprintToken(value),
		CreatedAt: now,
	}
	if err := i.Codes.CreateCode(ctx, code); err != nil {
		return "", fmt.Errorf("store %s code: %w", kind, err)
	}
	return value, nil
}

func (i *CodeIssuer) generate(kind domain.CodeKind) (string, error) {
	switch kind {
	case domain.CodeVerify, domain.CodeForgot:
		digits := i.Digits
		if digits <= 0 {
			digits = DefaultCodeDigits
		}
		return cryptox.GenerateNumericCode(digits)
	case domain.CodeReset:
		return cryptox.GenerateToken(cryptox.TokenSizeResetForm)
	default:
		return "", fmt.Errorf("unknown code kind %q", kind)
	}
}

// Consume redeems a presented value. userID scopes the lookup and may be empty
// when the caller is anonymous.
//
// A code of the wrong kind is left in place. Any other match is deleted before
// its age is judged, so an expired code is gone after the first attempt and a
// code can only ever be redeemed by one caller.
func (i *CodeIssuer) Consume(
	ctx context.Context,
	userID, value string,
	kind domain.CodeKind,
	maxAge time.Duration,
) (ConsumeResult, domain.OneTimeCode, error) {
	if value == "" {
		return ConsumeNotFound, domain.OneTimeCode{}, nil
	}

	found, ok, err := i.Codes.FindCode(ctx, userID, cryptox.FingerprintToken(value), kind)
	if err != nil {
		return ConsumeNotFound, domain.OneTimeCode{}, fmt.Errorf("find code: %w", err)
	}
	if !ok {
		return ConsumeNotFound, domain.OneTimeCode{}, nil
	}
	if found.Kind != kind {
		return ConsumeWrongType, found, nil
	}

	taken, ok, err := i.Codes.TakeCode(ctx, found.ID, kind)
	if err != nil {
		return ConsumeNotFound, domain.OneTimeCode{}, fmt.Errorf("take code: %w", err)
	}
	if !ok {
		// Someone else redeemed it between the lookup and the delete.
		return ConsumeNotFound, domain.OneTimeCode{}, nil
	}

	if taken.Age(i.now()) > maxAge {
		return ConsumeExpired, taken, nil
	}
	return ConsumeOK, taken, nil
}
