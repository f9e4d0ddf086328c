package mixin

import (
	"fmt"
	"sort"
	"strings"
)

// Correction is a named fix-up for known inconsistencies in a source API
// description. Corrections are opt-in.
type Correction string

// CorrectionUserAccountOrder moves accountId ahead of id in the signature
// of methods whose name contains "User". URL substitution is unaffected.
const CorrectionUserAccountOrder Correction = "user-account-order"

var knownCorrections = map[Correction]func(name string, c *Classification){
	CorrectionUserAccountOrder: swapUserAccountOrder,
}

// ParseCorrection validates a correction name.
func ParseCorrection(s string) (Correction, error) {
	c := Correction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownCorrections[c]; !ok {
		return "", fmt.Errorf("unknown correction %q (known: %s)", s, strings.Join(KnownCorrections(), ", "))
	}
	return c, nil
}

// KnownCorrections lists the correction names in sorted order.
func KnownCorrections() []string {
	out := make([]string, 0, len(knownCorrections))
	for c := range knownCorrections {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

func applyCorrections(corrections []Correction, name string, c *Classification) {
	for _, corr := range corrections {
		if fn, ok := knownCorrections[corr]; ok {
			fn(name, c)
		}
	}
}

func swapUserAccountOrder(name string, c *Classification) {
	if !strings.Contains(name, "User") {
		return
	}
	id, account := -1, -1
	for i, p := range c.Positional {
		switch p.Source.Identifier() {
		case "id":
			id = i
		case "accountId":
			account = i
		}
	}
	if id < 0 || account < 0 || account < id {
		return
	}
	positional := append([]Param(nil), c.Positional...)
	positional[id], positional[account] = positional[account], positional[id]
	c.Positional = positional
}
