package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TIANLI0/MaskKit/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestWS(t *testing.T, r http.Handler) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(r)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestStreamInvalidJSON(t *testing.T) {
	conn, cleanup := dialTestWS(t, newTestRouter(&stubProposer{}))
	defer cleanup()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var errMsg model.StreamError
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "invalid JSON format", errMsg.Error)
}

func TestStreamMissingImage(t *testing.T) {
	conn, cleanup := dialTestWS(t, newTestRouter(&stubProposer{}))
	defer cleanup()

	require.NoError(t, conn.WriteJSON(map[string]any{"conf": 0.5}))

	var errMsg model.StreamError
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "no image data provided", errMsg.Error)
}

func TestStreamSegmentation(t *testing.T) {
	conn, cleanup := dialTestWS(t, newTestRouter(&stubProposer{}))
	defer cleanup()

	require.NoError(t, conn.WriteJSON(map[string]any{"image": testImageB64(t, 48, 48)}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp model.StreamResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Masks)
}

// 连接在单条消息出错后必须保持可用
func TestStreamConnectionSurvivesError(t *testing.T) {
	conn, cleanup := dialTestWS(t, newTestRouter(&stubProposer{}))
	defer cleanup()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{bad")))
	var errMsg model.StreamError
	require.NoError(t, conn.ReadJSON(&errMsg))

	require.NoError(t, conn.WriteJSON(map[string]any{"image": testImageB64(t, 32, 32)}))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp model.StreamResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Success)
}
