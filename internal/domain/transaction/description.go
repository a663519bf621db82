package transaction

import (
	"errors"
	"strings"
)

// Abbr is the leading classification code of a transaction description.
// Statement rendering classifies rows from the description alone, so the
// format "<ABBR> [<extra>] – <reference>" is a stable contract.
type Abbr string

const (
	AbbrInternal      Abbr = "INT"
	AbbrExternal      Abbr = "EXT"
	AbbrP2P           Abbr = "P2P"
	AbbrBill          Abbr = "BILL"
	AbbrMobileDeposit Abbr = "MD"
	AbbrCryptoFund    Abbr = "CRYPTO FUND"
	AbbrBTCBuy        Abbr = "BTC BUY"
	AbbrBTCSell       Abbr = "BTC SELL"
)

// ExtraReversal marks the compensating credit written after a failed transfer leg.
const ExtraReversal = "REVERSAL"

// separator between the classification and the reference, an en dash
const separator = " – "

// longest first so that multi-word codes win over their prefixes
var knownAbbrs = []Abbr{
	AbbrCryptoFund,
	AbbrBTCSell,
	AbbrBTCBuy,
	AbbrBill,
	AbbrInternal,
	AbbrExternal,
	AbbrP2P,
	AbbrMobileDeposit,
}

var ErrMalformedDescription = errors.New("malformed transaction description")

// Descriptor is the parsed form of a description.
type Descriptor struct {
	Abbr      Abbr
	Extra     string
	Reference string
}

// Describe renders a description, e.g. Describe(AbbrInternal, "C/S", "REF123456")
// gives "INT C/S – REF123456".
func Describe(abbr Abbr, extra, reference string) string {
	var b strings.Builder
	b.WriteString(string(abbr))
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteString(separator)
	b.WriteString(reference)
	return b.String()
}

// ParseDescription classifies a description produced by Describe.
func ParseDescription(description string) (Descriptor, error) {
	idx := strings.LastIndex(description, separator)
	if idx <= 0 {
		return Descriptor{}, ErrMalformedDescription
	}
	head := description[:idx]
	reference := strings.TrimSpace(description[idx+len(separator):])
	if reference == "" {
		return Descriptor{}, ErrMalformedDescription
	}

	for _, abbr := range knownAbbrs {
		code := string(abbr)
		if head == code {
			return Descriptor{Abbr: abbr, Reference: reference}, nil
		}
		if strings.HasPrefix(head, code+" ") {
			return Descriptor{
				Abbr:      abbr,
				Extra:     strings.TrimSpace(head[len(code):]),
				Reference: reference,
			}, nil
		}
	}
	return Descriptor{}, ErrMalformedDescription
}
