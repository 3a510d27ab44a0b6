package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperscope/paperscope/pkg/models"
)

// ==== CITATION REGISTRY ====

func TestCitationRegistry_NoDOIIsEmptySuccess(t *testing.T) {
	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: "http://unused.invalid"})

	result, err := client.Discover(context.Background(), models.SourcePaper{ID: "p1", Title: "No Identifier"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Papers)
	assert.Equal(t, "no_doi", result.Metadata["skipped"])
}

func TestCitationRegistry_MapsCitationsAndReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch {
		case r.URL.EscapedPath() == "/works/10.1%2Fsrc/citations":
			w.Write([]byte(`{"works":[{"doi":"10.1/a","title":"Alpha","authors":["A. Lee"],"container_title":"Venue A","year":2024,"cited_by_count":12,"open_access":true,"score":0.8}],"total":1}`))
		case r.URL.EscapedPath() == "/works/10.1%2Fsrc/references":
			w.Write([]byte(`{"works":[{"doi":"10.1/b","title":"Beta","published_date":"2021-03-15","score":0.6},{"title":""}],"total":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: server.URL, APIKey: "test-key"})
	result, err := client.Discover(context.Background(), models.SourcePaper{ID: "p1", DOI: "10.1/src"})
	require.NoError(t, err)
	require.Len(t, result.Papers, 2, "untitled works are dropped")

	alpha := result.Papers[0]
	assert.Equal(t, models.RelCitedBy, alpha.RelationshipType)
	assert.Equal(t, models.SourceCitationRegistry, alpha.DiscoverySource)
	assert.Equal(t, 0.9, alpha.SourceReliability)
	require.NotNil(t, alpha.CitationCount)
	assert.Equal(t, 12, *alpha.CitationCount)

	beta := result.Papers[1]
	assert.Equal(t, models.RelCites, beta.RelationshipType)
	require.NotNil(t, beta.PublicationDate)
	assert.Equal(t, 2021, beta.PublicationDate.Year())
	assert.Nil(t, beta.CitationCount)

	assert.Equal(t, 1, result.Metadata["citations_total"])
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestCitationRegistry_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"works":[],"total":0}`))
	}))
	defer server.Close()

	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: server.URL, MaxRetries: 2})
	result, err := client.Discover(context.Background(), models.SourcePaper{DOI: "10.1/x"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.GreaterOrEqual(t, calls.Load(), int32(3), "first call retried, second endpoint succeeds first try")
}

func TestCitationRegistry_ClientErrorFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: server.URL, MaxRetries: 3})
	_, err := client.Discover(context.Background(), models.SourcePaper{DOI: "10.1/x"})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindProviderUnavailable, Classify(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestCitationRegistry_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"works": [{`))
	}))
	defer server.Close()

	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: server.URL})
	_, err := client.Discover(context.Background(), models.SourcePaper{DOI: "10.1/x"})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindMalformedResponse, Classify(err))
}

func TestCitationRegistry_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewCitationRegistry(CitationRegistryConfig{BaseURL: server.URL})
	_, err := client.Discover(ctx, models.SourcePaper{DOI: "10.1/x"})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindTimeout, Classify(err))
}

// ==== SEMANTIC CORPUS ====

func TestSemanticCorpus_UsesNativeID(t *testing.T) {
	var searched atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/papers/search":
			searched.Store(true)
			w.Write([]byte(`{"matches":[]}`))
		case "/papers/corpus-42/related":
			w.Write([]byte(`{"papers":[{"corpus_id":"corpus-77","title":"Related Work","venue":"NeurIPS","similarity":0.91,"match_dimension":"author","fields_of_study":["Machine Learning"],"is_open_access":true}],"total":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewSemanticCorpus(SemanticCorpusConfig{BaseURL: server.URL})
	result, err := client.Discover(context.Background(), models.SourcePaper{SemanticCorpusID: "corpus-42", Title: "Irrelevant"})
	require.NoError(t, err)
	assert.False(t, searched.Load(), "native ID skips title resolution")
	require.Len(t, result.Papers, 1)

	p := result.Papers[0]
	assert.Equal(t, models.RelAuthorConnection, p.RelationshipType)
	assert.Equal(t, 0.85, p.SourceReliability)
	assert.Equal(t, "corpus-77", p.SourceIDs["semantic_corpus"])
	assert.Equal(t, "Machine Learning", p.Metadata["field"])
	assert.Equal(t, false, result.Metadata["resolved_by_title"])
}

func TestSemanticCorpus_ResolvesByTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/papers/search":
			assert.Equal(t, "Graph Neural Networks", r.URL.Query().Get("query"))
			w.Write([]byte(`{"matches":[{"corpus_id":"corpus-9"}]}`))
		case "/papers/corpus-9/related":
			w.Write([]byte(`{"papers":[{"title":"Found It","similarity":0.7,"match_dimension":"semantic"}],"total":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewSemanticCorpus(SemanticCorpusConfig{BaseURL: server.URL})
	result, err := client.Discover(context.Background(), models.SourcePaper{Title: "Graph Neural Networks"})
	require.NoError(t, err)
	require.Len(t, result.Papers, 1)
	assert.Equal(t, models.RelSemanticSimilarity, result.Papers[0].RelationshipType)
	assert.Equal(t, true, result.Metadata["resolved_by_title"])
}

func TestSemanticCorpus_UnindexedPaperIsEmptySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer server.Close()

	client := NewSemanticCorpus(SemanticCorpusConfig{BaseURL: server.URL})
	result, err := client.Discover(context.Background(), models.SourcePaper{Title: "Obscure Thesis"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Papers)
	assert.Equal(t, "not_in_corpus", result.Metadata["skipped"])
}

// ==== TREND ANALYZER ====

func TestTrendAnalyzer_PostsQueryAndMaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/trends/related", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"papers":[{"doi":"10.1/t1","title":"Hot Topic","venue":"arXiv","open_access":true,"trend_score":0.88,"topic":"transformers","relation":"temporal","publication_date":"2026-05-01"}],"trend_label":"attention-mechanisms","window_days":90}`))
	}))
	defer server.Close()

	client := NewTrendAnalyzer(TrendAnalyzerConfig{BaseURL: server.URL})
	result, err := client.Discover(context.Background(), models.SourcePaper{Title: "Attention Study", Abstract: "We study attention."})
	require.NoError(t, err)
	require.Len(t, result.Papers, 1)

	p := result.Papers[0]
	assert.Equal(t, models.RelTemporalRelationship, p.RelationshipType)
	assert.Equal(t, 0.75, p.SourceReliability)
	assert.Equal(t, "transformers", p.Metadata["field"])
	assert.True(t, p.OpenAccess)
	assert.Equal(t, "attention-mechanisms", result.Metadata["trend_label"])
}

func TestTrendAnalyzer_DefaultRelationIsTopic(t *testing.T) {
	assert.Equal(t, models.RelTopicSimilarity, relationshipForTrend(""))
	assert.Equal(t, models.RelMethodologySimilarity, relationshipForTrend("methodology"))
}

// ==== ERROR CLASSIFICATION ====

func TestClassify(t *testing.T) {
	assert.Equal(t, models.ErrKindTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, models.ErrKindProviderUnavailable, Classify(errors.New("boom")))

	wrapped := malformed(models.SourceTrendAnalyzer, errors.New("bad json"))
	assert.Equal(t, models.ErrKindMalformedResponse, Classify(wrapped))

	var srcErr *SourceError
	require.ErrorAs(t, wrapped, &srcErr)
	assert.Equal(t, models.SourceTrendAnalyzer, srcErr.Source)
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, clampUnit(-0.3))
	assert.Equal(t, 1.0, clampUnit(1.7))
	assert.Equal(t, 0.42, clampUnit(0.42))
}
