// Package idgen issues the random codes used as ticket QR identities,
// party/share codes and purchase-invite tokens.
package idgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// Alnum at length 32 gives a search space of 62^32, comfortably past
	// 190 bits; used for QR identities.
	Alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Upper is for short human-facing codes (party codes).
	Upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// URLSafe is for link tokens.
	URLSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	QRHashLength       = 32
	PartyCodeLength    = 6
	ShareLinkLength    = 16
	PurchaseLinkLength = 24

	maxAttempts = 8
)

// ErrGenerationExhausted is returned when a fresh code could not be found
// within the attempt bound. With the entropy budgets above this is
// practically unreachable outside of tests.
var ErrGenerationExhausted = errors.New("idgen: exhausted attempts generating a unique code")

// TakenFunc reports whether a candidate value is already held by an
// existing record. The store's unique index stays the final authority; a
// conflicting insert racing past this check is resolved by one redraw at
// the caller.
type TakenFunc func(ctx context.Context, value string) (bool, error)

// Generate draws random codes from alphabet until taken reports one free.
func Generate(ctx context.Context, taken TakenFunc, length int, alphabet string) (string, error) {
	if length <= 0 || len(alphabet) < 2 {
		return "", fmt.Errorf("idgen: invalid length %d or alphabet size %d", length, len(alphabet))
	}
	for range maxAttempts {
		code, err := Random(length, alphabet)
		if err != nil {
			return "", err
		}
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// Random draws a single code of the given length, uniform over alphabet.
func Random(length int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("idgen: reading randomness: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
