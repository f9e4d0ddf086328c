package goemitter

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swagger2mixin/internal/mixin"
	"github.com/mark3labs/swagger2mixin/internal/spec"
)

var accountMethods = []spec.MethodDescriptor{
	{
		Name:             "GetAccount",
		HttpVerb:         spec.GET,
		URI:              "/accounts/{accountId}",
		Summary:          "Retrieve a single account",
		ResponseTypeName: "AccountModel",
		Params: []spec.ParamDescriptor{
			{Name: "accountId", TypeName: "Int32", Location: spec.LocationUriPath, Required: true},
			{Name: "X-Avalara-Client", TypeName: "String", Location: spec.LocationHeader},
		},
	},
	{
		Name:     "CreateAccount",
		HttpVerb: spec.POST,
		URI:      "/accounts",
		Params: []spec.ParamDescriptor{
			{Name: "model", TypeName: "AccountModel", Location: spec.LocationRequestBody},
		},
	},
	{
		Name:     "ListUsersByAccount",
		HttpVerb: spec.GET,
		URI:      "/accounts/{accountId}/users",
		Params: []spec.ParamDescriptor{
			{Name: "accountId", TypeName: "Int32", Location: spec.LocationUriPath},
			{Name: "$filter", TypeName: "String", Location: spec.LocationQueryString},
		},
	},
}

func TestRenderModule_Compiles(t *testing.T) {
	t.Parallel()
	g := mixin.New(New(WithPackage("avatax"), WithReceiver("*AvaTaxClient")))
	out, err := g.Render(mixin.Module{Name: "client_methods", Title: "AvaTax", ApiVersion: "v2"}, accountMethods)
	require.NoError(t, err)

	src := string(out)
	_, err = parser.ParseFile(token.NewFileSet(), "client_methods.go", out, parser.ParseComments)
	require.NoError(t, err, src)

	assert.Contains(t, src, "// Code generated by swagger2mixin. DO NOT EDIT.")
	assert.Contains(t, src, "package avatax")
	assert.Contains(t, src, `"fmt"`)
	assert.Contains(t, src, `"net/http"`)
	assert.Contains(t, src, `"time"`)
	assert.Contains(t, src, "func (c *AvaTaxClient) GetAccount(accountId int32) (*http.Response, error) {")
	assert.Contains(t, src, "func (c *AvaTaxClient) CreateAccount(model any) (*http.Response, error) {")
	assert.Contains(t, src, "func (c *AvaTaxClient) ListUsersByAccount(accountId int32, include map[string]string) (*http.Response, error) {")
	assert.Contains(t, src, `c.get(fmt.Sprintf("%s/accounts/%v", c.BaseURL, accountId), RequestOptions{`)
	assert.Regexp(t, `c\.post\(c\.BaseURL ?\+ ?"/accounts", RequestOptions\{`, src)
	assert.Contains(t, src, "timeout := 10 * time.Second")
	assert.Contains(t, src, "if c.TimeoutLimit > 0 {")
	assert.NotContains(t, src, "Avalara")
}

func TestRenderModule_OmitsUnusedImports(t *testing.T) {
	t.Parallel()
	g := mixin.New(New())
	out, err := g.Render(mixin.Module{Name: "ping"}, []spec.MethodDescriptor{
		{Name: "Ping", HttpVerb: spec.GET, URI: "/utilities/ping", Summary: "Calls fmt.Sprintf( in prose"},
	})
	require.NoError(t, err)

	src := string(out)
	assert.Contains(t, src, "package client")
	assert.NotContains(t, src, `"fmt"`)
	assert.Contains(t, src, "func (c *Client) Ping() (*http.Response, error) {")
	_, err = parser.ParseFile(token.NewFileSet(), "ping.go", out, 0)
	require.NoError(t, err, src)
}

func TestRenderMethod_DocComment(t *testing.T) {
	t.Parallel()
	out, err := mixin.New(New()).RenderMethod(accountMethods[2])
	require.NoError(t, err)
	assert.Contains(t, out, "// ListUsersByAccount calls GET /accounts/{accountId}/users.\n")
	assert.Contains(t, out, "//   - accountId (int32)\n")
	assert.Contains(t, out, "//   - include (map[string]string): Optional query string parameters\n")
	assert.Contains(t, out, "//       - $filter (string)\n")
}

func TestRenderMethod_SummaryAndReturnType(t *testing.T) {
	t.Parallel()
	g := mixin.New(New())
	out, err := g.RenderMethod(accountMethods[0])
	require.NoError(t, err)
	assert.Contains(t, out, "//\n// Retrieve a single account.\n")
	assert.Contains(t, out, "// The response body holds AccountModel (any).\n")

	out, err = g.RenderMethod(spec.MethodDescriptor{Name: "GetAccountCount", HttpVerb: spec.GET, URI: "/accounts/$count", Summary: "Count accounts!", ResponseTypeName: "Int32"})
	require.NoError(t, err)
	assert.Contains(t, out, "// Count accounts!\n")
	assert.Contains(t, out, "// The response body holds Int32 (int32).\n")

	src, err := g.Render(mixin.Module{Name: "client_methods"}, accountMethods[:1])
	require.NoError(t, err)
	assert.NotContains(t, string(src), "// # ")
	assert.Contains(t, string(src), "// Retrieve a single account.\n")
}

func TestRenderMethod_DefaultTimeout(t *testing.T) {
	t.Parallel()
	out, err := mixin.New(New(), mixin.WithDefaultTimeout(45)).RenderMethod(accountMethods[1])
	require.NoError(t, err)
	assert.Contains(t, out, "45 * time.Second")
}

func TestParamName(t *testing.T) {
	t.Parallel()
	d := New()
	for in, want := range map[string]string{
		"accountId":   "accountId",
		"AccountId":   "accountId",
		"type":        "type_",
		"include":     "include_",
		"c":           "c_",
		"companyCode": "companyCode",
	} {
		assert.Equal(t, want, d.ParamName(in), in)
	}
}

func TestTypeName(t *testing.T) {
	t.Parallel()
	d := New()
	for in, want := range map[string]string{
		"Int32":        "int32",
		"Int64?":       "int64",
		"Decimal":      "float64",
		"Boolean":      "bool",
		"DateTime":     "time.Time",
		"Byte[]":       "[]byte",
		"List<String>": "[]string",
		"AccountModel": "any",
		"":             "",
	} {
		assert.Equal(t, want, d.TypeName(in), in)
	}
}
