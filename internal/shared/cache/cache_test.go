package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	rdb, err := ConnectRedis(addr)
	require.NoError(t, err)
	defer rdb.Close()

	mr.Close()
	_, err = ConnectRedis(addr)
	assert.Error(t, err)
}
