package congressus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMembersPaginates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v30/members", r.URL.Path)
		assert.Equal(t, "Bearer api-token", r.Header.Get("Authorization"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		body := membersPage{HasNext: page == "1"}
		if page == "1" {
			body.Data = []Member{{ID: 1, FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "1815-12-10"}}
		} else {
			body.Data = []Member{{ID: 2, Username: "grace"}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	client := NewMembersClient(nil, srv.URL+"/v30/", "api-token", srv.Client())
	members, err := client.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, members, 2)
	assert.Equal(t, "Ada Lovelace", members[0].DisplayName())
	assert.Equal(t, "grace", members[1].DisplayName())
}

func TestListMembersErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewMembersClient(nil, srv.URL, "bad", srv.Client())
	_, err := client.ListMembers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMemberBirthday(t *testing.T) {
	b, ok := Member{DateOfBirth: "2001-02-28"}.Birthday()
	require.True(t, ok)
	assert.Equal(t, 2, int(b.Month()))
	assert.Equal(t, 28, b.Day())

	_, ok = Member{DateOfBirth: "2001-02-28T00:00:00"}.Birthday()
	assert.True(t, ok)

	for _, raw := range []string{"", "unknown", "2001-13-01"} {
		_, ok := Member{DateOfBirth: raw}.Birthday()
		assert.False(t, ok, raw)
	}
}
