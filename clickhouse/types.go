package clickhouse

import "strings"

// GenericType is the small cross-database type taxonomy exposed to callers.
type GenericType int

const (
	TypeOther GenericType = iota
	TypeNumber
	TypeString
	TypeDateTime
)

func (t GenericType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeDateTime:
		return "datetime"
	default:
		return "others"
	}
}

// MarshalText renders the type the same way String does.
func (t GenericType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TypeMapper classifies ClickHouse native type names and renders generic column types
// back into DDL types. A TypeMapper is immutable after construction.
type TypeMapper struct {
	native map[string]GenericType
	ddl    map[string]string
}

// DefaultTypeMapper returns the mapper used by connections unless one is configured.
func DefaultTypeMapper() *TypeMapper {
	return NewTypeMapper(
		map[string]GenericType{
			"UInt8":       TypeNumber,
			"UInt16":      TypeNumber,
			"UInt32":      TypeNumber,
			"UInt64":      TypeNumber,
			"UInt256":     TypeNumber,
			"Int8":        TypeNumber,
			"Int16":       TypeNumber,
			"Int32":       TypeNumber,
			"Int64":       TypeNumber,
			"Int128":      TypeNumber,
			"Int256":      TypeNumber,
			"Float32":     TypeNumber,
			"Float64":     TypeNumber,
			"Decimal":     TypeNumber,
			"Decimal32":   TypeNumber,
			"Decimal64":   TypeNumber,
			"Decimal128":  TypeNumber,
			"Decimal256":  TypeNumber,
			"String":      TypeString,
			"FixedString": TypeString,
			"Date":        TypeDateTime,
			"DateTime":    TypeDateTime,
			"DateTime64":  TypeDateTime,
		},
		map[string]string{
			"float":    "DOUBLE",
			"integer":  "BIGINT",
			"datetime": "DateTime('UTC')",
		},
	)
}

// NewTypeMapper copies the given tables into a new mapper. ddl keys are matched
// case-insensitively; anything missing from ddl renders as String.
func NewTypeMapper(native map[string]GenericType, ddl map[string]string) *TypeMapper {
	m := &TypeMapper{
		native: make(map[string]GenericType, len(native)),
		ddl:    make(map[string]string, len(ddl)),
	}
	for k, v := range native {
		m.native[k] = v
	}
	for k, v := range ddl {
		m.ddl[strings.ToLower(k)] = v
	}
	return m
}

// Generic classifies a native type name such as "UInt32" or "Nullable(DateTime64(3))".
func (m *TypeMapper) Generic(nativeType string) GenericType {
	name := unwrapNativeType(nativeType)
	if strings.HasPrefix(name, "Date") {
		return TypeDateTime
	}
	if t, ok := m.native[name]; ok {
		return t
	}
	return TypeOther
}

// DDLType returns the native column type used in CREATE TABLE for a generic type name.
func (m *TypeMapper) DDLType(genericType string) string {
	if t, ok := m.ddl[strings.ToLower(genericType)]; ok {
		return t
	}
	return "String"
}

// unwrapNativeType strips Nullable/LowCardinality wrappers and type parameters.
func unwrapNativeType(nativeType string) string {
	name := strings.TrimSpace(nativeType)
	for {
		open := strings.IndexByte(name, '(')
		if open < 0 || !strings.HasSuffix(name, ")") {
			return name
		}
		outer := name[:open]
		if outer != "Nullable" && outer != "LowCardinality" {
			return outer
		}
		name = strings.TrimSpace(name[open+1 : len(name)-1])
	}
}
