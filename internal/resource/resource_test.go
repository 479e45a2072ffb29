package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkipList(t *testing.T) {
	skip, err := ParseSkipList("actions, SITES,")
	require.NoError(t, err)
	assert.True(t, skip[Actions])
	assert.True(t, skip[Sites])
	assert.Len(t, skip, 2)

	_, err = ParseSkipList("actions,frobnicators")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicators")

	skip, err = ParseSkipList("")
	require.NoError(t, err)
	assert.Empty(t, skip)
}

func TestParsePageEnvelopes(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		body      string
		wantItems int
		wantToken string
		wantLink  string
	}{
		{
			name:      "actions",
			kind:      Actions,
			body:      `{"actions":[{"task":{"task_id":"a1"}},{"task_id":"a2"}]}`,
			wantItems: 2,
		},
		{
			name:      "issues with token",
			kind:      Issues,
			body:      `{"results":[{"investigation_id":"i1"}],"next_page_token":"tok"}`,
			wantItems: 1,
			wantToken: "tok",
		},
		{
			name:      "inspections feed with next link",
			kind:      Inspections,
			body:      `{"data":[{"id":"x"}],"metadata":{"next_page":"/feed/inspections?page=2"}}`,
			wantItems: 1,
			wantLink:  "/feed/inspections?page=2",
		},
		{
			name:      "credentials",
			kind:      Credentials,
			body:      `{"latest_document_versions":[{"document_id":"d1"}],"next_page_token":""}`,
			wantItems: 1,
		},
		{
			name:      "companies",
			kind:      Companies,
			body:      `{"contractor_company_list":[{"company_id":"c1"}]}`,
			wantItems: 1,
		},
		{
			name:      "sites",
			kind:      Sites,
			body:      `{"folders":[{"folder":{"id":"f1"}}],"next_page_token":"n"}`,
			wantItems: 1,
			wantToken: "n",
		},
		{
			name:      "empty body",
			kind:      Assets,
			body:      `{}`,
			wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage(tt.kind, []byte(tt.body))
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantToken, page.NextToken)
			assert.Equal(t, tt.wantLink, page.NextLink)
		})
	}
}

func TestExtractAction(t *testing.T) {
	tests := []struct {
		raw    string
		wantID string
		wantOK bool
	}{
		{`{"task":{"task_id":"nested"}}`, "nested", true},
		{`{"task_id":"flat"}`, "flat", true},
		{`{"id":"plain"}`, "plain", true},
		{`{"task":{"task_id":"nested"},"task_id":"flat","id":"plain"}`, "nested", true},
		{`{"name":"no identifier"}`, "", false},
	}
	for _, tt := range tests {
		it, ok := Extract(Actions, json.RawMessage(tt.raw))
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		assert.Equal(t, tt.wantID, it.ID, tt.raw)
	}
}

func TestExtractCredential(t *testing.T) {
	full := `{"document_id":"d1","document_type":{"id":"dt1"},"subject_user":{"user_id":"u1"}}`
	it, ok := Extract(Credentials, json.RawMessage(full))
	require.True(t, ok)
	assert.Empty(t, it.Err)
	assert.Equal(t, "d1", it.ID)
	assert.Equal(t, "d1", it.Query.Get("document_id"))
	assert.Equal(t, "dt1", it.Query.Get("document_type_id"))
	assert.Equal(t, "u1", it.Query.Get("user_id"))

	// Missing subject user: a local failure, not a skip — the item must
	// surface in the failed count without a delete call.
	missing := `{"document_id":"d2","document_type_id":"dt2"}`
	it, ok = Extract(Credentials, json.RawMessage(missing))
	require.True(t, ok)
	assert.Contains(t, it.Err, "missing identifiers")
	assert.Nil(t, it.Query)
}

func TestExtractCompany(t *testing.T) {
	it, ok := Extract(Companies, json.RawMessage(`{"company_id":"c1","company_type":{"id":"ct9"}}`))
	require.True(t, ok)
	assert.Equal(t, "c1", it.Query.Get("company_id"))
	assert.Equal(t, "ct9", it.Query.Get("company_type_id"))

	// Type is optional.
	it, ok = Extract(Companies, json.RawMessage(`{"company_id":"c2"}`))
	require.True(t, ok)
	assert.Empty(t, it.Query.Get("company_type_id"))

	// Missing company id: nothing to delete.
	_, ok = Extract(Companies, json.RawMessage(`{"company_type_id":"ct1"}`))
	assert.False(t, ok)
}

func TestExtractFolder(t *testing.T) {
	it, ok := Extract(Sites, json.RawMessage(`{"folder":{"id":"f1"}}`))
	require.True(t, ok)
	assert.Equal(t, "f1", it.ID)

	// Flat shape without the wrapper.
	it, ok = Extract(Sites, json.RawMessage(`{"id":"f2"}`))
	require.True(t, ok)
	assert.Equal(t, "f2", it.ID)

	// Already soft-deleted folders are skipped.
	_, ok = Extract(Sites, json.RawMessage(`{"folder":{"id":"f3","deleted":true}}`))
	assert.False(t, ok)
}

func TestExtractOshaCase(t *testing.T) {
	it, ok := Extract(OshaCases, json.RawMessage(`{"case_id":"osha1"}`))
	require.True(t, ok)
	assert.Equal(t, "osha1", it.ID)

	it, ok = Extract(OshaCases, json.RawMessage(`{"id":"osha2"}`))
	require.True(t, ok)
	assert.Equal(t, "osha2", it.ID)
}

func TestItemKey(t *testing.T) {
	plain := Item{ID: "x"}
	assert.Equal(t, "x", plain.Key())

	a, _ := Extract(Credentials, json.RawMessage(`{"document_id":"d","document_type_id":"t","subject_user_id":"u1"}`))
	b, _ := Extract(Credentials, json.RawMessage(`{"document_id":"d","document_type_id":"t","subject_user_id":"u2"}`))
	assert.NotEqual(t, a.Key(), b.Key(), "same document under different subjects must stay distinct")
}
