// Package core provides the ledger operation model shared by the classifier,
// the summarizer and the RPC client.
//
// This file contains parsing for the chain's fixed-point asset strings
// ("1.000 HIVE") and their numeric-asset-identifier JSON form.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAsset = errors.New("invalid asset")

// Asset is a parsed fixed-point amount with its unit.
type Asset struct {
	Amount    decimal.Decimal
	Symbol    string
	Precision int32
}

// naiSymbols maps numeric asset identifiers to their legacy symbols.
var naiSymbols = map[string]string{
	"@@000000021": "HIVE",
	"@@000000013": "HBD",
	"@@000000037": "VESTS",
}

// ParseAsset parses a legacy asset string such as "1.000 HIVE".
//
// The number keeps its exact decimal value and its precision is the count of
// fractional digits, so formatting the result reproduces the input.
//
// Examples:
//
//	ParseAsset("1.000 HIVE")        -> {1, HIVE, 3}
//	ParseAsset("2.500000 VESTS")    -> {2.5, VESTS, 6}
//	ParseAsset("12 HBD")            -> {12, HBD, 0}
//	ParseAsset("abc")               -> ErrInvalidAsset
func ParseAsset(s string) (Asset, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Asset{}, ErrInvalidAsset
	}
	num, sym := fields[0], fields[1]
	for _, r := range sym {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return Asset{}, ErrInvalidAsset
		}
	}
	amount, err := decimal.NewFromString(num)
	if err != nil {
		return Asset{}, ErrInvalidAsset
	}
	var precision int32
	if dot := strings.IndexByte(num, '.'); dot >= 0 {
		precision = int32(len(num) - dot - 1)
	}
	return Asset{Amount: amount, Symbol: sym, Precision: precision}, nil
}

// AssetFromJSON decodes either a legacy asset string or a numeric asset object
// of the form {"amount":"1000","precision":3,"nai":"@@000000021"}.
func AssetFromJSON(raw json.RawMessage) (Asset, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Asset{}, ErrInvalidAsset
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Asset{}, ErrInvalidAsset
		}
		return ParseAsset(s)
	}

	var nai struct {
		Amount    string `json:"amount"`
		Precision int32  `json:"precision"`
		NAI       string `json:"nai"`
	}
	if err := json.Unmarshal(raw, &nai); err != nil {
		return Asset{}, ErrInvalidAsset
	}
	units, err := decimal.NewFromString(nai.Amount)
	if err != nil {
		return Asset{}, ErrInvalidAsset
	}
	sym, ok := naiSymbols[nai.NAI]
	if !ok {
		sym = nai.NAI
	}
	return Asset{Amount: units.Shift(-nai.Precision), Symbol: sym, Precision: nai.Precision}, nil
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool {
	return a.Amount.IsZero()
}

// String formats the asset back into its legacy string form.
func (a Asset) String() string {
	if a.Symbol == "" {
		return a.Amount.StringFixed(a.Precision)
	}
	return a.Amount.StringFixed(a.Precision) + " " + a.Symbol
}

// UnmarshalJSON accepts both encodings handled by AssetFromJSON.
func (a *Asset) UnmarshalJSON(b []byte) error {
	parsed, err := AssetFromJSON(b)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON writes the legacy string form.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}
