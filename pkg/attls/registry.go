package attls

import "fmt"

// Category names an enumeration category.
type Category string

const (
	CategoryStatPolicy   Category = "StatPolicy"
	CategoryStatConn     Category = "StatConn"
	CategorySecurityType Category = "SecurityType"
	CategoryFips140      Category = "Fips140"
	CategoryProtocol     Category = "Protocol"
)

// Coded is an enumeration value with a single-byte wire code.
type Coded interface {
	comparable
	Code() uint8
}

// EnumTable resolves single-byte codes of one category. It is a dense slice
// indexed by code with an absent marker per slot, and is immutable after
// BuildTable.
type EnumTable[T Coded] struct {
	category Category
	values   []T
	present  []bool
}

// BuildTable builds the table for category from its defined values. The table
// is sized to the largest code + 1. Duplicate codes or an empty value set fail
// the build.
func BuildTable[T Coded](category Category, values []T) (*EnumTable[T], error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, category)
	}

	var maxCode uint8
	for _, v := range values {
		maxCode = max(maxCode, v.Code())
	}

	t := &EnumTable[T]{
		category: category,
		values:   make([]T, int(maxCode)+1),
		present:  make([]bool, int(maxCode)+1),
	}
	for _, v := range values {
		code := v.Code()
		if t.present[code] {
			return nil, fmt.Errorf("%w: %s code %d", ErrDuplicateCode, category, code)
		}
		t.values[code] = v
		t.present[code] = true
	}
	return t, nil
}

// Category returns the table's category.
func (t *EnumTable[T]) Category() Category {
	return t.category
}

// MaxCode returns the largest defined code.
func (t *EnumTable[T]) MaxCode() uint8 {
	return uint8(len(t.values) - 1)
}

// Resolve returns the value for code. Gap codes and codes above MaxCode both
// return an *UnknownCodeError naming code.
func (t *EnumTable[T]) Resolve(code uint8) (T, error) {
	if int(code) >= len(t.values) || !t.present[code] {
		var zero T
		return zero, &UnknownCodeError{Category: t.category, Code: code}
	}
	return t.values[code], nil
}

// Registry holds one table per coded attribute category. It is built once by
// NewManager and is safe for concurrent readers.
type Registry struct {
	statPolicy   *EnumTable[StatPolicy]
	statConn     *EnumTable[StatConn]
	securityType *EnumTable[SecurityType]
	fips140      *EnumTable[Fips140]
}

// NewRegistry builds every table. On error no partial registry is returned.
func NewRegistry() (*Registry, error) {
	var r Registry
	var err error
	if r.statPolicy, err = BuildTable(CategoryStatPolicy, StatPolicyValues()); err != nil {
		return nil, err
	}
	if r.statConn, err = BuildTable(CategoryStatConn, StatConnValues()); err != nil {
		return nil, err
	}
	if r.securityType, err = BuildTable(CategorySecurityType, SecurityTypeValues()); err != nil {
		return nil, err
	}
	if r.fips140, err = BuildTable(CategoryFips140, Fips140Values()); err != nil {
		return nil, err
	}
	return &r, nil
}

// StatPolicy resolves a policy status code.
func (r *Registry) StatPolicy(code uint8) (StatPolicy, error) {
	return r.statPolicy.Resolve(code)
}

// StatConn resolves a connection status code.
func (r *Registry) StatConn(code uint8) (StatConn, error) {
	return r.statConn.Resolve(code)
}

// SecurityType resolves a security type code.
func (r *Registry) SecurityType(code uint8) (SecurityType, error) {
	return r.securityType.Resolve(code)
}

// Fips140 resolves a FIPS 140 code.
func (r *Registry) Fips140(code uint8) (Fips140, error) {
	return r.fips140.Resolve(code)
}

// Protocol resolves the (version, mod) byte pair. The code space is sparse,
// so it is matched directly instead of through a dense table.
func (r *Registry) Protocol(version, mod uint8) (Protocol, error) {
	switch {
	case version == 0 && mod == 0:
		return ProtocolNonSecure, nil
	case version == 2 && mod == 0:
		return ProtocolSSLv2, nil
	case version == 3 && mod <= 4:
		return ProtocolSSLv3 + Protocol(mod), nil
	}
	return 0, &UnknownCodeError{Category: CategoryProtocol, Code: version, Mod: mod}
}
