package clickhouse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	config, err := ParseConnectionString(`{"host":"ch1","port":8124,"database":"analytics","username":"reader","password":"secret"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch1:8124"}, config.HostList)
	assert.Equal(t, "analytics", config.Database)
	assert.Equal(t, "reader", config.Username)
	assert.Equal(t, "secret", config.Password)
	assert.False(t, config.Secure)
}

func TestParseConnectionStringDefaults(t *testing.T) {
	config, err := ParseConnectionString(`{}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:8123"}, config.HostList)
	assert.Equal(t, "", config.Database)

	config, err = ParseConnectionString(`{"host":"::1","port":"9000"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"[::1]:9000"}, config.HostList)
}

func TestParseConnectionStringSecure(t *testing.T) {
	for _, s := range []string{
		`{"protocol":"https"}`,
		`{"secure":true}`,
		`{"secure":"1"}`,
		`{"secure":1}`,
	} {
		config, err := ParseConnectionString(s)
		require.NoError(t, err, s)
		assert.True(t, config.Secure, s)
	}
	for _, s := range []string{
		`{"secure":false}`,
		`{"secure":"false"}`,
		`{"secure":0}`,
		`{"secure":null}`,
	} {
		config, err := ParseConnectionString(s)
		require.NoError(t, err, s)
		assert.False(t, config.Secure, s)
	}
}

func TestParseConnectionStringInvalid(t *testing.T) {
	_, err := ParseConnectionString(`{"host":`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionConfig))
	assert.Contains(t, err.Error(), "wrong format json")

	_, err = ParseConnectionString(`{"port":true}`)
	assert.True(t, errors.Is(err, ErrConnectionConfig))
}

func TestValidateConfig(t *testing.T) {
	assert.Nil(t, (&ClientConfig{}).validate())
	assert.Nil(t, (&ClientConfig{Compression: "ZSTD"}).validate())

	err := (&ClientConfig{Compression: "brotli"}).validate()
	assert.True(t, errors.Is(err, ErrConnectionConfig))

	err = (&ClientConfig{HTTPTimeout: -time.Second}).validate()
	assert.True(t, errors.Is(err, ErrConnectionConfig))
}
