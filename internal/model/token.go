package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTokenMismatch is returned by amount arithmetic across different tokens.
var ErrTokenMismatch = errors.New("token amounts refer to different tokens")

// Token identifies an ERC20 token on a chain.
type Token struct {
	ChainID  uint64         `json:"chain_id"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
}

// Equals reports whether both tokens share chain id and address.
func (t Token) Equals(other Token) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

// SortsBefore orders tokens by address bytes, the same order used for pair addresses.
func (t Token) SortsBefore(other Token) bool {
	return bytes.Compare(t.Address.Bytes(), other.Address.Bytes()) < 0
}

// SortTokens returns the two tokens in canonical order.
func SortTokens(a, b Token) (Token, Token) {
	if a.SortsBefore(b) {
		return a, b
	}
	return b, a
}

// TokenAmount is a raw quantity of a token in its smallest unit.
type TokenAmount struct {
	Token Token
	Raw   *big.Int
}

// NewTokenAmount copies raw so the amount stays immutable.
func NewTokenAmount(token Token, raw *big.Int) TokenAmount {
	if raw == nil {
		return TokenAmount{Token: token, Raw: new(big.Int)}
	}
	return TokenAmount{Token: token, Raw: new(big.Int).Set(raw)}
}

// ParseTokenAmount parses a base-10 raw quantity.
func ParseTokenAmount(token Token, raw string) (TokenAmount, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return TokenAmount{}, fmt.Errorf("invalid raw amount: %q", raw)
	}
	return TokenAmount{Token: token, Raw: value}, nil
}

func (a TokenAmount) raw() *big.Int {
	if a.Raw == nil {
		return new(big.Int)
	}
	return a.Raw
}

func (a TokenAmount) Add(other TokenAmount) (TokenAmount, error) {
	if !a.Token.Equals(other.Token) {
		return TokenAmount{}, ErrTokenMismatch
	}
	return TokenAmount{Token: a.Token, Raw: new(big.Int).Add(a.raw(), other.raw())}, nil
}

func (a TokenAmount) Sub(other TokenAmount) (TokenAmount, error) {
	if !a.Token.Equals(other.Token) {
		return TokenAmount{}, ErrTokenMismatch
	}
	return TokenAmount{Token: a.Token, Raw: new(big.Int).Sub(a.raw(), other.raw())}, nil
}

// Cmp compares two amounts of the same token.
func (a TokenAmount) Cmp(other TokenAmount) (int, error) {
	if !a.Token.Equals(other.Token) {
		return 0, ErrTokenMismatch
	}
	return a.raw().Cmp(other.raw()), nil
}

func (a TokenAmount) IsZero() bool {
	return a.raw().Sign() == 0
}

func (a TokenAmount) GreaterThanZero() bool {
	return a.raw().Sign() > 0
}

// Rat returns the amount in whole token units.
func (a TokenAmount) Rat() *big.Rat {
	return new(big.Rat).SetFrac(a.raw(), pow10(a.Token.Decimals))
}

// ToExact renders every significant decimal, without trailing zeros.
func (a TokenAmount) ToExact() string {
	text := a.Rat().FloatString(int(a.Token.Decimals))
	if strings.Contains(text, ".") {
		text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	}
	return text
}

// ToFixed renders the amount with the given number of decimal places, rounding half up.
func (a TokenAmount) ToFixed(places int) string {
	return FormatRat(a.Rat(), places)
}

// ToSignificant renders at most digits significant digits, rounding half up.
func (a TokenAmount) ToSignificant(digits int) string {
	return FormatSignificant(a.Rat(), digits)
}

func (a TokenAmount) String() string {
	return a.ToExact()
}

type tokenAmountJSON struct {
	Token Token  `json:"token"`
	Raw   string `json:"raw"`
	Exact string `json:"exact"`
}

func (a TokenAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenAmountJSON{Token: a.Token, Raw: a.raw().String(), Exact: a.ToExact()})
}

func (a *TokenAmount) UnmarshalJSON(data []byte) error {
	var aux tokenAmountJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	parsed, err := ParseTokenAmount(aux.Token, aux.Raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FormatRat rounds half up (away from zero) to places decimals.
func FormatRat(value *big.Rat, places int) string {
	if places < 0 {
		places = 0
	}
	scale := pow10(uint8(places))
	scaled := new(big.Rat).Mul(value, new(big.Rat).SetInt(scale))
	rounded := roundHalfUp(scaled)

	sign := ""
	if rounded.Sign() < 0 {
		sign = "-"
		rounded.Abs(rounded)
	}
	if places == 0 {
		return sign + rounded.String()
	}
	intPart, frac := new(big.Int).QuoRem(rounded, scale, new(big.Int))
	fracText := frac.String()
	fracText = strings.Repeat("0", places-len(fracText)) + fracText
	return sign + intPart.String() + "." + fracText
}

// FormatSignificant keeps digits significant digits and trims trailing zeros.
func FormatSignificant(value *big.Rat, digits int) string {
	if digits <= 0 {
		digits = 1
	}
	if value.Sign() == 0 {
		return "0"
	}

	places := digits - 1 - exponent10(value)
	if places < 0 {
		unit := pow10(uint8(-places))
		scaled := roundHalfUp(new(big.Rat).Quo(value, new(big.Rat).SetInt(unit)))
		return scaled.Mul(scaled, unit).String()
	}

	text := FormatRat(value, places)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	}
	return text
}

// exponent10 returns floor(log10(|value|)) for a non-zero value.
func exponent10(value *big.Rat) int {
	probe := new(big.Rat).Abs(value)
	one := big.NewRat(1, 1)
	ten := big.NewRat(10, 1)
	exp := 0
	for probe.Cmp(ten) >= 0 {
		probe.Quo(probe, ten)
		exp++
	}
	for probe.Cmp(one) < 0 {
		probe.Mul(probe, ten)
		exp--
	}
	return exp
}

func roundHalfUp(value *big.Rat) *big.Int {
	num := new(big.Int).Set(value.Num())
	den := value.Denom()
	neg := num.Sign() < 0
	num.Abs(num)
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Mul(r, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if neg {
		q.Neg(q)
	}
	return q
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
