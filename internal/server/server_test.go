package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/adminkit/internal/backend"
	"github.com/matthewbaird/adminkit/internal/schema"
	"github.com/matthewbaird/adminkit/internal/store"
)

func newTestServer(t *testing.T) (*Server, *backend.Memory) {
	t.Helper()
	reg := store.NewRegistry(context.Background())
	t.Cleanup(reg.Close)

	mem := backend.NewMemory()
	contract := schema.NewContract("member").
		Text("name", schema.Rules("min=2")).
		Text("email", schema.Optional(), schema.Rules("email")).
		Build()

	srv := New(reg)
	srv.Register("member", Resource{
		Contract: contract,
		List:     mem.List,
		Get:      mem.Get,
		Save:     mem.Save,
		Delete:   mem.Delete,
	})
	return srv, mem
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func seedMembers(t *testing.T, mem *backend.Memory, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := mem.Save(context.Background(), map[string]any{
			"name": fmt.Sprintf("Member %02d", i),
		})
		require.NoError(t, err)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := doJSON(t, srv.Routes(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestResourceNames(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := doJSON(t, srv.Routes(), http.MethodGet, "/v1/resources/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"member"}, body["resources"])
}

func TestSchemaEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec, body := doJSON(t, h, http.MethodGet, "/v1/resources/member/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "member", body["name"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")

	rec, body = doJSON(t, h, http.MethodGet, "/v1/resources/widget/schema", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_RESOURCE", body["code"])
}

func TestListPagination(t *testing.T) {
	srv, mem := newTestServer(t)
	seedMembers(t, mem, 3)

	rec, body := doJSON(t, srv.Routes(), http.MethodGet, "/v1/resources/member/records?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)

	pag, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), pag["page"])
	assert.Equal(t, float64(3), pag["total"])
	assert.Equal(t, false, pag["hasNextPage"])
}

func TestCreateValidationFailure(t *testing.T) {
	srv, mem := newTestServer(t)

	rec, body := doJSON(t, srv.Routes(), http.MethodPost, "/v1/resources/member/records", map[string]any{
		"name":  "x",
		"email": "not-an-email",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")

	res, err := mem.List(context.Background(), store.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, res.Total, "nothing should be persisted on validation failure")
}

func TestCreateThenGet(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec, body := doJSON(t, h, http.MethodPost, "/v1/resources/member/records", map[string]any{
		"name":  "Grace Hopper",
		"email": "grace@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	rec, body = doJSON(t, h, http.MethodGet, "/v1/resources/member/records/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grace Hopper", body["name"])
}

func TestUpdateExistingRecord(t *testing.T) {
	srv, mem := newTestServer(t)
	h := srv.Routes()

	saved, err := mem.Save(context.Background(), map[string]any{"name": "Alan"})
	require.NoError(t, err)
	id := saved["id"].(string)

	rec, body := doJSON(t, h, http.MethodPatch, "/v1/resources/member/records/"+id, map[string]any{
		"name": "Alan Turing",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "Alan Turing", body["name"])

	got, err := mem.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Alan Turing", got["name"])
}

func TestDeleteRecord(t *testing.T) {
	srv, mem := newTestServer(t)
	h := srv.Routes()

	saved, err := mem.Save(context.Background(), map[string]any{"name": "Ada"})
	require.NoError(t, err)
	id := saved["id"].(string)

	rec, _ := doJSON(t, h, http.MethodDelete, "/v1/resources/member/records/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body := doJSON(t, h, http.MethodGet, "/v1/resources/member/records/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestFormEndpointRendersContract(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Routes(), http.MethodGet, "/v1/resources/member/form", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Contains(t, body, "name")
	name := body["name"].(map[string]any)
	assert.Equal(t, "text", name["kind"])
	assert.Equal(t, true, name["required"])
}

func TestActionRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec, body := doJSON(t, h, http.MethodPost, "/v1/resources/member/action", map[string]any{
		"store":   "list",
		"action":  "createOrUpdate",
		"payload": map[string]any{"id": "abc"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "createOrUpdate", body["action"])

	rec, body = doJSON(t, h, http.MethodGet, "/v1/resources/member/action?store=list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "createOrUpdate", body["action"])
	payload := body["payload"].(map[string]any)
	assert.Equal(t, "abc", payload["id"])
}

func TestActionUnknownStoreVariant(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Routes(), http.MethodPost, "/v1/resources/member/action", map[string]any{
		"store":  "detail",
		"action": "delete",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_STORE", body["code"])
}

func TestOverlayDispatch(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	// No action set: nothing to render.
	rec, body := doJSON(t, h, http.MethodGet, "/v1/resources/member/overlay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["overlay"])

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/resources/member/action", map[string]any{
		"store":  "list",
		"action": "createOrUpdate",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/v1/resources/member/overlay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overlay, ok := body["overlay"].(map[string]any)
	require.True(t, ok)
	children := overlay["children"].(map[string]any)
	assert.Contains(t, children, "name")
}

func TestOverlayUnknownStoreKeyRendersDiagnostic(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv.Routes(), http.MethodGet, "/v1/resources/member/overlay?store=detail", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overlay, ok := body["overlay"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, overlay["diagnostic"], "member.detail")
}

func TestListFetchFailureKeepsLastGoodPage(t *testing.T) {
	reg := store.NewRegistry(context.Background())
	t.Cleanup(reg.Close)

	mem := backend.NewMemory()
	fail := false
	srv := New(reg)
	srv.Register("member", Resource{
		Contract: schema.NewContract("member").Text("name").Build(),
		List: func(ctx context.Context, p store.ListParams) (store.ListResult, error) {
			if fail {
				return store.ListResult{}, fmt.Errorf("backend down")
			}
			return mem.List(ctx, p)
		},
		Get:    mem.Get,
		Save:   mem.Save,
		Delete: mem.Delete,
	})
	seedMembers(t, mem, 2)
	h := srv.Routes()

	rec, body := doJSON(t, h, http.MethodGet, "/v1/resources/member/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["items"], 2)

	fail = true
	rec, body = doJSON(t, h, http.MethodGet, "/v1/resources/member/records", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "backend down")
	assert.Len(t, body["items"], 2, "last good page stays visible")
}
