package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omevox/builder"
	"omevox/config"
	"omevox/nbt"
)

func serve(t *testing.T, cfg config.ServerConfig) *websocket.Conn {
	t.Helper()
	logger, _ := test.NewNullLogger()
	b, err := builder.New(config.Default(), logger)
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(b, cfg, logger).Mux())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/convert"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, req map[string]interface{}, data []byte) {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
	if data != nil {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
	}
}

// until reads text frames until one of type typ, returning the frames seen.
func until(t *testing.T, conn *websocket.Conn, typ string) []Message {
	t.Helper()
	var seen []Message
	for {
		kind, b, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, kind)
		var m Message
		require.NoError(t, json.Unmarshal(b, &m))
		seen = append(seen, m)
		if m.Type == typ || m.Type == TypeError {
			return seen
		}
	}
}

func stoneRow(t *testing.T) []byte {
	t.Helper()
	root := nbt.NewCompound().
		Set("Width", nbt.Short(2)).
		Set("Height", nbt.Short(1)).
		Set("Length", nbt.Short(1)).
		Set("Blocks", nbt.ByteArray{1, 1}).
		Set("Data", nbt.ByteArray{0, 0})
	b, err := nbt.EncodeCompressed("Schematic", root)
	require.NoError(t, err)
	return b
}

func TestConvertStreamsProgressThenResult(t *testing.T) {
	conn := serve(t, config.Default().Server)
	send(t, conn, map[string]interface{}{"name": "row.schematic", "output": "commands", "translate": true}, stoneRow(t))

	frames := until(t, conn, TypeResult)
	last := frames[len(frames)-1]
	require.Equal(t, TypeResult, last.Type, last.Message)
	assert.Equal(t, "schematic", last.Input)
	assert.Equal(t, "commands", last.Format)
	assert.Equal(t, 2, last.Blocks)
	require.Greater(t, len(frames), 1)
	assert.Equal(t, TypeProgress, frames[0].Type)
	assert.Equal(t, "detect", frames[0].Stage)

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "fill 0 0 0 1 0 0 minecraft:stone\n", string(data))
	assert.Equal(t, last.Bytes, len(data))
}

func TestConvertErrorFrame(t *testing.T) {
	conn := serve(t, config.Default().Server)
	send(t, conn, map[string]interface{}{"name": "junk.schem"}, []byte{8, 0, 0})

	frames := until(t, conn, TypeError)
	last := frames[len(frames)-1]
	assert.Equal(t, TypeError, last.Type)
	assert.Equal(t, "MalformedTag", last.Kind)
	assert.Equal(t, "ingest", last.Stage)
}

func TestRejectsDirectoriesAndOversizedInput(t *testing.T) {
	conn := serve(t, config.Default().Server)
	send(t, conn, map[string]interface{}{"dir": "/etc"}, nil)
	frames := until(t, conn, TypeError)
	assert.Equal(t, "BadRequest", frames[0].Kind)

	cfg := config.Default().Server
	cfg.MaxUpload = 4
	conn = serve(t, cfg)
	send(t, conn, map[string]interface{}{"name": "big"}, make([]byte, 16))
	frames = until(t, conn, TypeError)
	assert.Equal(t, "BadRequest", frames[0].Kind)
}
