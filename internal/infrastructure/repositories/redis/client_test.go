package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestClientOptions_Defaults(t *testing.T) {
	opts := ClientOptions{Address: "cache:6379", DB: 3, PoolSize: 4, MinIdleConns: 10}.redisOptions()

	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.MinIdleConns, "idle connections never exceed the pool")
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
	assert.Equal(t, 3*time.Second, opts.WriteTimeout)

	opts = ClientOptions{PoolSize: 8, DialTimeout: time.Second, IOTimeout: 250 * time.Millisecond}.redisOptions()
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.WriteTimeout)
}

func TestParseServerVersion(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nredis_mode:standalone\r\n"
	assert.Equal(t, "7.2.4", parseServerVersion(info))
	assert.Equal(t, "unknown", parseServerVersion("# Server\r\n"))
}

func TestConnect_UnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := Connect(context.Background(), ClientOptions{
		Address:     addr,
		PoolSize:    1,
		DialTimeout: 200 * time.Millisecond,
	}, zaptest.NewLogger(t).Sugar())
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
	assert.NoError(t, CloseClient(nil))
}
