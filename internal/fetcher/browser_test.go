package fetcher

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newswire/internal/types"
)

func TestDocumentStatus(t *testing.T) {
	tests := []struct {
		status  int
		want    int
		wantErr bool
	}{
		{0, http.StatusOK, false},
		{http.StatusOK, http.StatusOK, false},
		{http.StatusNoContent, http.StatusNoContent, false},
		{http.StatusNotFound, http.StatusNotFound, true},
		{http.StatusInternalServerError, http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		got, err := documentStatus("https://news.test/latest", tt.status)
		assert.Equal(t, tt.want, got)
		if !tt.wantErr {
			assert.NoError(t, err)
			continue
		}
		var fetchErr *types.FetchError
		require.True(t, errors.As(err, &fetchErr), "status %d", tt.status)
		assert.Equal(t, tt.status, fetchErr.StatusCode)
	}
}

func TestBrowserOptions(t *testing.T) {
	bf := &BrowserFetcher{}
	WithScrolls(4, 0)(bf)
	WithMaxPages(2)(bf)
	assert.Equal(t, 4, bf.scrolls)
	assert.Equal(t, 2, bf.maxPages)
}
