package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "elements": [
    {
      "type": "node",
      "id": 1234,
      "lat": 51.178844,
      "lon": -1.826189,
      "tags": {
        "name": "Stonehenge",
        "historic": "archaeological_site",
        "site_type": "megalith",
        "wikidata": "Q39671",
        "wikipedia": "en:Stonehenge",
        "heritage": "1",
        "heritage:operator": "whc",
        "designation": "World Heritage Site"
      }
    },
    {
      "type": "way",
      "id": 5678,
      "center": {"lat": 51.428611, "lon": -1.854167},
      "tags": {
        "name": "Avebury Henge",
        "historic": "archaeological_site",
        "start_date": "-2600"
      }
    },
    {
      "type": "node",
      "id": 9,
      "tags": {"name": "No Coordinates"}
    },
    {
      "type": "node",
      "id": 10,
      "lat": 48.0,
      "lon": 2.0,
      "tags": {"tourism": "information"}
    }
  ]
}`

func TestFetchCandidates_ParsesElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		query := r.PostForm.Get("data")
		assert.Contains(t, query, "[out:json]")
		assert.Contains(t, query, `["historic"="archaeological_site"]`)
		assert.Contains(t, query, "out center tags;")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, WithRateLimit(1000))
	siteList, err := client.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, siteList, 2, "elements without coordinates or name/type must be dropped")

	node := siteList[0]
	assert.Equal(t, "node/1234", node.OSMID)
	assert.Equal(t, "Stonehenge", node.Name)
	assert.InDelta(t, 51.178844, node.Latitude, 1e-9)
	assert.Equal(t, "megalith", node.RawType, "site_type is more specific than historic")
	assert.Equal(t, "Q39671", node.WikidataID)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Stonehenge", node.WikipediaURL)
	assert.Equal(t, "whc", node.HeritageStatus)

	way := siteList[1]
	assert.Equal(t, "way/5678", way.OSMID)
	assert.InDelta(t, 51.428611, way.Latitude, 1e-9, "way coordinates come from the center object")
	assert.InDelta(t, -1.854167, way.Longitude, 1e-9)
	assert.Equal(t, "-2600", way.Inception)
}

func TestRun_EndpointFallback(t *testing.T) {
	var primaryHits, secondaryHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondaryHits.Add(1)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer secondary.Close()

	client := NewClient([]string{primary.URL, secondary.URL}, WithRateLimit(1000))
	siteList, err := client.FetchCandidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, siteList, 2)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), secondaryHits.Load())
}

func TestRun_MalformedBodyAdvancesEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer healthy.Close()

	client := NewClient([]string{broken.URL, healthy.URL}, WithRateLimit(1000))
	siteList, err := client.FetchCandidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, siteList, 2)
}

func TestRun_AllEndpointsExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient([]string{server.URL, server.URL}, WithRateLimit(1000))
	_, err := client.FetchCandidates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all overpass endpoints failed")
}

func TestFetchAround_ScopesQuery(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured = r.PostForm.Get("data")
		_, _ = w.Write([]byte(`{"elements": []}`))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, WithRateLimit(1000))
	_, err := client.FetchAround(context.Background(), 51.5, -1.8, 500)
	require.NoError(t, err)
	assert.Contains(t, captured, "around:500")
}

func TestFetchCountry(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured = r.PostForm.Get("data")
		_, _ = w.Write([]byte(`{"elements": []}`))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, WithRateLimit(1000))
	_, err := client.FetchCountry(context.Background(), "ie")
	require.NoError(t, err)
	assert.Contains(t, captured, `"ISO3166-1"="IE"`)
	assert.Contains(t, captured, "area.country")

	_, err = client.FetchCountry(context.Background(), "irl")
	require.Error(t, err, "only ISO alpha-2 codes are accepted")
}

func TestWikipediaURLFromTag(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en:Stonehenge", "https://en.wikipedia.org/wiki/Stonehenge"},
		{"de:Externsteine Felsen", "https://de.wikipedia.org/wiki/Externsteine_Felsen"},
		{"https://en.wikipedia.org/wiki/Avebury", "https://en.wikipedia.org/wiki/Avebury"},
		{"notitle", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := wikipediaURLFromTag(tt.input); got != tt.expected {
			t.Errorf("wikipediaURLFromTag(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildCountryQuery_Quoting(t *testing.T) {
	query := buildCountryQuery("GB")
	if !strings.Contains(query, `area["ISO3166-1"="GB"][admin_level=2]->.country;`) {
		t.Errorf("unexpected area clause in query:\n%s", query)
	}
}
