// Package guid implements the format's 128-bit class/manager/plugin
// identifier: a pair of little-endian DWORDs with a strict textual form.
package guid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// GUID is the {d1, d2} pair used to identify classes, managers and plugins.
type GUID struct {
	D1 uint32
	D2 uint32
}

// Nil is the null GUID: both words zero.
var Nil = GUID{}

func New(d1, d2 uint32) GUID { return GUID{D1: d1, D2: d2} }

// IsNil reports whether g is the null GUID.
func (g GUID) IsNil() bool { return g.D1 == 0 && g.D2 == 0 }

// String renders the textual form "{XXXXXXXX-XXXXXXXX}".
func (g GUID) String() string {
	return fmt.Sprintf("{%08X-%08X}", g.D1, g.D2)
}

// Parse is strict about both the braces and the hex field lengths, per the
// format's textual-form contract.
func Parse(s string) (GUID, error) {
	if len(s) != 18 || s[0] != '{' || s[17] != '}' || s[9] != '-' {
		return GUID{}, nmoerr.New(nmoerr.InvalidData, "malformed GUID literal %q", s)
	}
	d1, err := strconv.ParseUint(s[1:9], 16, 32)
	if err != nil {
		return GUID{}, nmoerr.Wrap(nmoerr.InvalidData, err, "parsing GUID high word of %q", s)
	}
	d2, err := strconv.ParseUint(s[10:18], 16, 32)
	if err != nil {
		return GUID{}, nmoerr.Wrap(nmoerr.InvalidData, err, "parsing GUID low word of %q", s)
	}
	return GUID{D1: uint32(d1), D2: uint32(d2)}, nil
}

// MustParse panics on malformed input; reserved for GUID literals baked into
// source (manager/plugin IDs known at compile time).
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// Less gives GUID a total order so it can key sorted containers/tests
// without relying on map iteration order.
func Less(a, b GUID) bool {
	if a.D1 != b.D1 {
		return a.D1 < b.D1
	}
	return a.D2 < b.D2
}

// IsStrictLiteral reports whether s looks like a GUID literal at all
// (non-strict probe used by CLI/debug surfaces before calling Parse).
func IsStrictLiteral(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
