package proposal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAdvisor(t *testing.T) {
	tests := []struct {
		name     string
		response string
		status   int
		want     string
		wantErr  bool
	}{
		{name: "accept", response: `{"recommendation": "accept this proposal"}`, status: 200, want: RecommendAccept},
		{name: "counter", response: `I would counter with a higher price`, status: 200, want: RecommendCounter},
		{name: "free_form_reject", response: `the terms are unworkable`, status: 200, want: RecommendReject},
		{name: "server_error", response: `oops`, status: 500, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			advisor := NewHTTPAdvisor(server.URL, time.Second)
			got, err := advisor.Evaluate(context.Background(), &Evaluation{ProposalID: "prop-1"}, nil)
			if tt.wantErr {
				assert.Error(t, err, tt.name)
				return
			}
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, got, tt.name)
		})
	}
}

func TestHTTPAdvisorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	advisor := NewHTTPAdvisor(server.URL, 10*time.Millisecond)
	_, err := advisor.Evaluate(context.Background(), &Evaluation{}, nil)
	assert.Error(t, err)
}
