package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramavio/paperchat/internal/config"
	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/logging"
)

func resultRow(href string) string {
	return fmt.Sprintf(`<tr class="ep_search_result"><td><a href=%q>View</a></td></tr>`, href)
}

func detailPage(citation, abstract, code string) string {
	return fmt.Sprintf(`<html><head>
		<meta name="eprints.eprintid" content=%q>
	</head><body>
		<p style="margin-bottom: 1em">%s</p>
		<h2>Abstract</h2>
		<p>%s</p>
	</body></html>`, code, citation, abstract)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(config.RepositoryConfig{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxResults: 5,
	}, logging.New(nil, "silent"))
	return c, srv
}

func TestSearchParsesResultRows(t *testing.T) {
	var gotQuery string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprintf(w, `<html><body><table>
			%s
			<tr class="other_row"><td><a href="/ignored">skip</a></td></tr>
			%s
		</table></body></html>`, resultRow("/id/eprint/100"), resultRow("https://example.org/id/eprint/200"))
	}))

	stubs := c.Search(context.Background(), "machine learning")
	require.Len(t, stubs, 2)
	assert.Equal(t, "machine learning", gotQuery)
	// Relative links resolve against the archive base; absolute links pass through.
	assert.Equal(t, srv.URL+"/id/eprint/100", stubs[0].Link)
	assert.Equal(t, "https://example.org/id/eprint/200", stubs[1].Link)
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><table>")
		for i := 0; i < 20; i++ {
			fmt.Fprint(w, resultRow(fmt.Sprintf("/id/eprint/%d", i)))
		}
		fmt.Fprint(w, "</table></body></html>")
	}))

	stubs := c.Search(context.Background(), "anything")
	require.Len(t, stubs, 5)
	for i, s := range stubs {
		assert.Equal(t, fmt.Sprintf("%s/id/eprint/%d", srv.URL, i), s.Link, "order must be preserved")
	}
}

func TestSearchFailuresYieldEmpty(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		assert.Empty(t, c.Search(context.Background(), "x"))
	})

	t.Run("no matching rows", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>No results.</body></html>")
		}))
		assert.Empty(t, c.Search(context.Background(), "x"))
	})

	t.Run("unreachable host", func(t *testing.T) {
		c := New(config.RepositoryConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: 500 * time.Millisecond,
		}, logging.New(nil, "silent"))
		assert.Empty(t, c.Search(context.Background(), "x"))
	})
}

func TestSearchPapersEnrichesResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi/search/archive/simple", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><table>%s%s%s</table></body></html>",
			resultRow("/id/eprint/1"), resultRow("/id/eprint/2"), resultRow("/id/eprint/3"))
	})
	mux.HandleFunc("/id/eprint/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage("Penulis A (2020) Thesis A.", "Abstract A.", "1"))
	})
	mux.HandleFunc("/id/eprint/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound) // this one is skipped, not fatal
	})
	mux.HandleFunc("/id/eprint/3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage("Penulis C (2022) Thesis C.", "Abstract C.", "3"))
	})
	c, _ := newTestClient(t, mux)

	papers := c.SearchPapers(context.Background(), "thesis")
	require.Len(t, papers, 2)
	assert.Equal(t, "Penulis A (2020) Thesis A.", papers[0].Citation)
	assert.Equal(t, "Abstract A.", papers[0].Abstract)
	assert.Equal(t, "1", papers[0].Code)
	assert.Equal(t, "3", papers[1].Code)
}

func TestFetchMetadataFallbacks(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>A page with none of the expected markup.</p></body></html>")
	}))

	papers := c.FetchMetadata(context.Background(), []domain.ResultStub{{Link: srv.URL + "/id/eprint/1"}})
	require.Len(t, papers, 1)
	assert.Equal(t, noCitation, papers[0].Citation)
	assert.Equal(t, noAbstract, papers[0].Abstract)
	assert.Equal(t, noCode, papers[0].Code)
}

func TestExtractMetadata(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta name="DC.identifier" content="https://repo.example/1/BAB-I_IV-atau-V_DAFTAR-PUSTAKA.pdf">
			<meta name="DC.identifier" content="https://repo.example/1/BAB-II_sampai_SEBELUM-BAB-TERAKHIR.pdf">
			<meta name="DC.identifier" content="https://repo.example/1/unrelated.pdf">
		</head><body>
			<h1 class="ep_tm_pagetitle">Sistem Pakar Diagnosa</h1>
			<p style="margin-bottom:1em">Penulis (2021) Sistem Pakar Diagnosa.</p>
			<h2>Abstract</h2>
			<p>Penelitian ini membahas sistem pakar.</p>
		</body></html>`)
	}))

	d := c.ExtractMetadata(context.Background(), "54321")
	require.Empty(t, d.Err)
	assert.Equal(t, "Sistem Pakar Diagnosa", d.Title)
	assert.Equal(t, "Penulis (2021) Sistem Pakar Diagnosa.", d.Citation)
	assert.Equal(t, "Penelitian ini membahas sistem pakar.", d.Abstract)
	assert.Equal(t, "https://repo.example/1/BAB-I_IV-atau-V_DAFTAR-PUSTAKA.pdf", d.PreviewLink)
	assert.Equal(t, "https://repo.example/1/BAB-II_sampai_SEBELUM-BAB-TERAKHIR.pdf", d.FullTextLink)
	assert.Equal(t, "54321", d.Code)
	assert.Equal(t, srv.URL+"/id/eprint/54321", d.URL)
}

func TestExtractMetadataFetchError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	d := c.ExtractMetadata(context.Background(), "99999")
	assert.Equal(t, "99999", d.Code)
	assert.Contains(t, d.Err, "Error fetching paper:")
}
