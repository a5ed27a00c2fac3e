// Package srp implements the client side of SRP-6a (RFC 5054) for this
// protocol's login exchange: the 2048-bit safe prime group 2, SHA-256,
// and the simplified M1 = H(A|B|K) proof this protocol's server side
// expects (spec.md §4.3 "SRP-6a authentication"). No SRP library exists
// anywhere in the retrieval pack, so this is built on crypto/sha256 and
// math/big alone — the one package in this repo with no third-party
// grounding, justified in DESIGN.md.
package srp

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
)

// ErrInvalidPublicEphemeral is returned when the server's B is 0 mod N,
// which would leak the session key to an active attacker.
var ErrInvalidPublicEphemeral = errors.New("srp: server public ephemeral B ≡ 0 (mod N)")

// nHex is RFC 5054 Appendix A's 2048-bit safe prime, group 2.
const nHex = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B855F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773BCA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB694B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

var n *big.Int
var g = big.NewInt(2)
var k *big.Int

func init() {
	n = new(big.Int)
	n.SetString(nHex, 16)
	k = hashNum(padTo(n, n), padTo(g, n))
}

func hashNum(parts ...[]byte) *big.Int {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

func hashBytes(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// padTo left-pads v's big-endian bytes to the byte length of modulus.
func padTo(v, modulus *big.Int) []byte {
	size := (modulus.BitLen() + 7) / 8
	b := v.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

// Client holds one login attempt's ephemeral secret.
type Client struct {
	username string
	password string
	a        *big.Int
	bigA     *big.Int
}

// NewClient starts a login attempt. Per spec.md §4.3, username is the
// ASCII-lowercased player name.
func NewClient(username, password string) (*Client, error) {
	abuf := make([]byte, 64)
	if _, err := rand.Read(abuf); err != nil {
		return nil, err
	}
	a := new(big.Int).SetBytes(abuf)
	bigA := new(big.Int).Exp(g, a, n)

	return &Client{
		username: strings.ToLower(username),
		password: password,
		a:        a,
		bigA:     bigA,
	}, nil
}

// PublicEphemeral returns A = g^a mod N, sent as SrpBytesA.
func (c *Client) PublicEphemeral() []byte {
	return c.bigA.Bytes()
}

// ComputeProof consumes the server's salt and public ephemeral B
// (SrpBytesSB) and returns the client's proof M1 (sent as SrpBytesM)
// alongside the derived session key K, which the caller may discard —
// spec.md's core doesn't need K once the server accepts M1.
func (c *Client) ComputeProof(salt, bigBBytes []byte) (m1, sessionKey []byte, err error) {
	bigB := new(big.Int).SetBytes(bigBBytes)
	if new(big.Int).Mod(bigB, n).Sign() == 0 {
		return nil, nil, ErrInvalidPublicEphemeral
	}

	u := hashNum(padTo(c.bigA, n), padTo(bigB, n))
	if u.Sign() == 0 {
		return nil, nil, errors.New("srp: u ≡ 0 (mod N)")
	}

	innerHash := hashBytes([]byte(c.username + ":" + c.password))
	x := hashNum(salt, innerHash)

	// S = (B - k*g^x)^(a + u*x) mod N
	kgx := new(big.Int).Mul(k, new(big.Int).Exp(g, x, n))
	base := new(big.Int).Sub(bigB, kgx)
	base.Mod(base, n)
	if base.Sign() < 0 {
		base.Add(base, n)
	}
	exp := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	s := new(big.Int).Exp(base, exp, n)

	sessionKey = hashBytes(padTo(s, n))
	m1 = hashBytes(padTo(c.bigA, n), padTo(bigB, n), sessionKey)
	return m1, sessionKey, nil
}
