package ledger

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

// Lamports is the ledger's minor unit: 1 SOL = 1e9 lamports.
const LamportsPerSol = 1_000_000_000

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Index = func() [128]int8 {
	var idx [128]int8
	for i := range idx {
		idx[i] = -1
	}
	for i, c := range base58Alphabet {
		idx[c] = int8(i)
	}
	return idx
}()

// ErrInvalidAddress is returned when a string does not decode to a 32-byte
// account address.
var ErrInvalidAddress = errors.New("ledger: invalid address")

// ParseAddress validates that the string is a base58-encoded 32-byte account
// address and returns its canonical form.
func ParseAddress(s string) (string, error) {
	raw, err := decodeBase58(s)
	if err != nil {
		return "", err
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("%w: decoded to %d bytes", ErrInvalidAddress, len(raw))
	}
	return s, nil
}

func decodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidAddress
	}

	n := new(big.Int)
	radix := big.NewInt(58)
	for _, c := range s {
		if c >= 128 || base58Index[c] < 0 {
			return nil, fmt.Errorf("%w: bad character %q", ErrInvalidAddress, c)
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(base58Index[c])))
	}

	raw := n.Bytes()

	// Leading '1' characters encode leading zero bytes.
	for i := 0; i < len(s) && s[i] == '1'; i++ {
		raw = append([]byte{0}, raw...)
	}
	return raw, nil
}

func encodeBase58(raw []byte) string {
	n := new(big.Int).SetBytes(raw)
	radix := big.NewInt(58)
	mod := new(big.Int)

	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, radix, mod)
		out = append([]byte{base58Alphabet[mod.Int64()]}, out...)
	}
	for i := 0; i < len(raw) && raw[i] == 0; i++ {
		out = append([]byte{base58Alphabet[0]}, out...)
	}
	if len(out) == 0 {
		return string(base58Alphabet[0])
	}
	return string(out)
}

// AssociatedTokenAddress derives the token account address for (owner, mint)
// deterministically. The same pair always resolves to the same address.
func AssociatedTokenAddress(owner, mint string) (string, error) {
	ownerRaw, err := decodeBase58(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintRaw, err := decodeBase58(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}

	h := sha256.New()
	h.Write(ownerRaw)
	h.Write([]byte("associated-token"))
	h.Write(mintRaw)
	return encodeBase58(h.Sum(nil)), nil
}
