package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func markerMiddleware(tag string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Order", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain_AppliesInListedOrder(t *testing.T) {
	chain := New(markerMiddleware("a"), markerMiddleware("b"), markerMiddleware("c"))

	handler := chain.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a", "b", "c"}, rec.Header().Values("X-Order"))
}

func TestChain_Then_AppendsWithoutMutatingOriginal(t *testing.T) {
	base := New(markerMiddleware("a"))
	extended := base.Then(markerMiddleware("b"))

	baseHandler := base.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	extHandler := extended.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	baseRec := httptest.NewRecorder()
	baseHandler.ServeHTTP(baseRec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a"}, baseRec.Header().Values("X-Order"))

	extRec := httptest.NewRecorder()
	extHandler.ServeHTTP(extRec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b"}, extRec.Header().Values("X-Order"))
}
