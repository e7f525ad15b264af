package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(url, Options{}, logger)
}

func TestGetPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "positions(where: {owner: $owner})")
		assert.Equal(t, "0xabcdef", req.Variables["owner"])

		w.Write([]byte(`{"data":{"positions":[{
			"id":"0xabcdef",
			"owner":"0xabcdef",
			"currentOSQTHAmount":"-1000000000000000000",
			"currentETHAmount":"0",
			"unrealizedOSQTHUnitCost":"-98000000",
			"unrealizedETHUnitCost":"0",
			"realizedOSQTHUnitCost":"0",
			"realizedETHUnitCost":"0",
			"realizedOSQTHUnitGain":"0",
			"realizedETHUnitGain":"0",
			"realizedOSQTHAmount":"0",
			"realizedETHAmount":"0"
		}]}}`))
	}))
	defer srv.Close()

	pos, err := newTestClient(srv.URL).GetPosition(context.Background(), "0xABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef", pos.Owner)
	assert.Equal(t, "-1000000000000000000", pos.CurrentOSQTHAmount)
	assert.Equal(t, "-98000000", pos.UnrealizedOSQTHUnitCost)
}

func TestGetPositionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"positions":[]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPosition(context.Background(), "0x1")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"indexer behind"},{"message":"bad owner"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPosition(context.Background(), "0x1")
	assert.EqualError(t, err, "subgraph query failed: indexer behind; bad owner")
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPosition(context.Background(), "0x1")
	assert.ErrorContains(t, err, "502")
}

func TestListPositionsPages(t *testing.T) {
	var lastIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		lastID, _ := req.Variables["lastID"].(string)
		lastIDs = append(lastIDs, lastID)

		switch lastID {
		case "":
			w.Write([]byte(`{"data":{"positions":[{"id":"0x1"},{"id":"0x2"}]}}`))
		case "0x2":
			w.Write([]byte(`{"data":{"positions":[{"id":"0x3"}]}}`))
		default:
			t.Errorf("unexpected lastID %q", lastID)
		}
	}))
	defer srv.Close()

	positions, err := newTestClient(srv.URL).ListPositions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	assert.Equal(t, "0x3", positions[2].ID)
	assert.Equal(t, []string{"", "0x2"}, lastIDs)
}
