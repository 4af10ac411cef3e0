// Package symbols implements the Symbol Collector (spec §4.3): a tree
// walker that maintains a scope stack of in-progress parent symbols and
// emits a stable SymbolID for every declaration site.
package symbols

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind enumerates the declaration kinds spec.md §3 requires a Symbol to
// carry.
type Kind int

const (
	KindUnknown Kind = iota
	KindClass
	KindStruct
	KindEnum
	KindProtocol
	KindActor
	KindFunction
	KindMethod
	KindProperty
	KindInitializer
	KindDeinitializer
	KindSubscript
	KindTypeAlias
	KindAssociatedType
	KindEnumCase
	KindOperator
	KindPrecedenceGroup
	KindMacro
	KindExtensionMember
	KindFileScope
)

var kindNames = map[Kind]string{
	KindClass:           "class",
	KindStruct:          "struct",
	KindEnum:            "enum",
	KindProtocol:        "protocol",
	KindActor:           "actor",
	KindFunction:        "function",
	KindMethod:          "method",
	KindProperty:        "property",
	KindInitializer:     "initializer",
	KindDeinitializer:   "deinitializer",
	KindSubscript:       "subscript",
	KindTypeAlias:       "type-alias",
	KindAssociatedType:  "associated-type",
	KindEnumCase:        "enum-case",
	KindOperator:        "operator",
	KindPrecedenceGroup: "precedence-group",
	KindMacro:           "macro",
	KindExtensionMember: "extension-member",
	KindFileScope:       "file-scope",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsContainer reports whether a declaration of this kind pushes a new
// scope onto the collector's scope stack (spec §4.3: "container
// declaration (type, extension, function, initializer, subscript,
// accessor)").
func (k Kind) IsContainer() bool {
	switch k {
	case KindClass, KindStruct, KindEnum, KindProtocol, KindActor,
		KindFunction, KindMethod, KindInitializer, KindDeinitializer, KindSubscript,
		KindExtensionMember, KindFileScope:
		return true
	default:
		return false
	}
}

// Accessibility enumerates spec.md §3's accessibility levels, ordered
// from most to least visible so callers can compare with <.
type Accessibility int

const (
	AccessPublic Accessibility = iota
	AccessOpen
	AccessPackage
	AccessInternal
	AccessFilePrivate
	AccessPrivate
)

var accessNames = map[Accessibility]string{
	AccessPublic:      "public",
	AccessOpen:        "open",
	AccessPackage:     "package",
	AccessInternal:    "internal",
	AccessFilePrivate: "fileprivate",
	AccessPrivate:     "private",
}

func (a Accessibility) String() string {
	if s, ok := accessNames[a]; ok {
		return s
	}
	return "internal"
}

// ID is the stable SymbolID of spec.md §3: module + qualified_name + kind
// + location_digest disambiguates overloads while remaining stable across
// unrelated edits elsewhere in the file.
type ID struct {
	Module         string
	QualifiedName  string
	Kind           Kind
	LocationDigest uint64
}

// LocationDigest hashes (file-relative path, byte offset, name) into the
// short digest spec.md §4.3 calls for — deterministic, and invariant
// under edits anywhere other than at this declaration site.
func LocationDigest(relPath string, byteOffset int, name string) uint64 {
	h := xxhash.New()
	h.WriteString(relPath)
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", byteOffset)
	h.Write([]byte{0})
	h.WriteString(name)
	return h.Sum64()
}

// String renders a debugging representation; CompactString is the
// dense form used in external APIs (JSON, fingerprints).
func (id ID) String() string {
	return fmt.Sprintf("%s.%s#%s@%x", id.Module, id.QualifiedName, id.Kind, id.LocationDigest)
}

// CompactString base-63-encodes the digest portion of the ID for compact
// external representation, reusing the character set (A-Za-z0-9_) the
// teacher's compact symbol IDs use.
func (id ID) CompactString() string {
	return fmt.Sprintf("%s.%s.%s", id.Module, id.Kind, encodeBase63(id.LocationDigest))
}

const base63Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

func encodeBase63(v uint64) string {
	if v == 0 {
		return string(base63Alphabet[0])
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = base63Alphabet[v%63]
		v /= 63
	}
	return string(buf[i:])
}

// Equal reports whether two IDs name the same symbol.
func (id ID) Equal(other ID) bool {
	return id.Module == other.Module &&
		id.QualifiedName == other.QualifiedName &&
		id.Kind == other.Kind &&
		id.LocationDigest == other.LocationDigest
}
