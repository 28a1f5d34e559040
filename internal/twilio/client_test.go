package twilio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListMedia(t *testing.T) {
	var gotPath, gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		json.NewEncoder(w).Encode(map[string]interface{}{
			"media_list": []map[string]string{
				{"sid": "ME1", "uri": "/2010-04-01/Accounts/AC1/Messages/SM1/Media/ME1.json", "content_type": "image/jpeg"},
				{"sid": "ME2", "uri": "/2010-04-01/Accounts/AC1/Messages/SM1/Media/ME2.json", "content_type": "image/png"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("AC1", "token", srv.URL)
	medias, err := client.ListMedia(context.Background(), "SM1")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages/SM1/Media.json", gotPath)
	assert.Equal(t, "AC1", gotUser)
	assert.Equal(t, "token", gotPass)
	require.Len(t, medias, 2)
	assert.Equal(t, "ME1", medias[0].SID)
	assert.Equal(t, "image/png", medias[1].ContentType)
}

func TestClient_ListMedia_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("AC1", "token", srv.URL)
	_, err := client.ListMedia(context.Background(), "SMmissing")
	assert.Error(t, err)
}

func TestClient_FetchContent(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	client := NewClient("AC1", "token", srv.URL)
	contentType, body, err := client.FetchContent(context.Background(), Media{
		SID: "ME1",
		URI: "/2010-04-01/Accounts/AC1/Messages/SM1/Media/ME1.json",
	})
	require.NoError(t, err)
	defer body.Close()

	// .json suffix stripped to reach the binary content
	assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages/SM1/Media/ME1", gotPath)
	assert.Equal(t, "image/jpeg", contentType)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestClient_FetchContent_DefaultContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte("raw"))
	}))
	defer srv.Close()

	client := NewClient("AC1", "token", srv.URL)
	contentType, body, err := client.FetchContent(context.Background(), Media{SID: "ME1", URI: "/m/ME1.json"})
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, "application/octet-stream", contentType)
}

func TestClient_FetchContent_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("AC1", "token", srv.URL)
	_, body, err := client.FetchContent(context.Background(), Media{SID: "ME1", URI: "/m/ME1.json"})
	assert.Error(t, err)
	assert.Nil(t, body)
}
