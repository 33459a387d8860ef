package clickhouse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericType(t *testing.T) {
	m := DefaultTypeMapper()
	assert.Equal(t, TypeNumber, m.Generic("UInt32"))
	assert.Equal(t, TypeNumber, m.Generic("Int64"))
	assert.Equal(t, TypeNumber, m.Generic("Float64"))
	assert.Equal(t, TypeNumber, m.Generic("Decimal(18, 4)"))
	assert.Equal(t, TypeString, m.Generic("String"))
	assert.Equal(t, TypeString, m.Generic("FixedString(16)"))
	assert.Equal(t, TypeDateTime, m.Generic("Date"))
	assert.Equal(t, TypeDateTime, m.Generic("Date32"))
	assert.Equal(t, TypeDateTime, m.Generic("DateTime('UTC')"))
	assert.Equal(t, TypeDateTime, m.Generic("DateTime64(3)"))
	assert.Equal(t, TypeOther, m.Generic("UUID"))
	assert.Equal(t, TypeOther, m.Generic("Array(String)"))
	assert.Equal(t, TypeOther, m.Generic(""))
}

func TestGenericTypeUnwrapsModifiers(t *testing.T) {
	m := DefaultTypeMapper()
	assert.Equal(t, TypeString, m.Generic("Nullable(String)"))
	assert.Equal(t, TypeString, m.Generic("LowCardinality(String)"))
	assert.Equal(t, TypeString, m.Generic("LowCardinality(Nullable(String))"))
	assert.Equal(t, TypeDateTime, m.Generic("Nullable(DateTime64(3, 'UTC'))"))
	assert.Equal(t, TypeNumber, m.Generic("Nullable(UInt8)"))
}

func TestGenericTypeString(t *testing.T) {
	assert.Equal(t, "number", TypeNumber.String())
	assert.Equal(t, "string", TypeString.String())
	assert.Equal(t, "datetime", TypeDateTime.String())
	assert.Equal(t, "others", TypeOther.String())

	encoded, err := json.Marshal(ColumnDescriptor{Name: "id", NativeType: "UInt64", GenericType: TypeNumber})
	assert.Nil(t, err)
	assert.Equal(t, `{"name":"id","nativeType":"UInt64","type":"number"}`, string(encoded))
}

func TestDDLType(t *testing.T) {
	m := DefaultTypeMapper()
	assert.Equal(t, "DOUBLE", m.DDLType("float"))
	assert.Equal(t, "BIGINT", m.DDLType("integer"))
	assert.Equal(t, "BIGINT", m.DDLType("INTEGER"))
	assert.Equal(t, "DateTime('UTC')", m.DDLType("datetime"))
	assert.Equal(t, "String", m.DDLType("string"))
	assert.Equal(t, "String", m.DDLType("unknown"))
}

func TestCustomTypeMapper(t *testing.T) {
	native := map[string]GenericType{"UUID": TypeString}
	ddl := map[string]string{"Bool": "UInt8"}
	m := NewTypeMapper(native, ddl)
	native["IPv4"] = TypeString

	assert.Equal(t, TypeString, m.Generic("UUID"))
	assert.Equal(t, TypeOther, m.Generic("IPv4"))
	assert.Equal(t, "UInt8", m.DDLType("bool"))
	assert.Equal(t, "String", m.DDLType("integer"))
}
