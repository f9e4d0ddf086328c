package spec

import (
    "strings"
    "testing"
)

func TestV2Compat_MultipleBodyMerged(t *testing.T) {
    t.Parallel()
    in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /x:
    post:
      parameters:
      - in: body
        name: a
        required: true
        schema: { type: string }
      - in: body
        name: b
        schema: { type: integer }
      responses: { '200': { description: ok } }
`)
    out, changed, err := preprocessV2ForCompatibility(in)
    if err != nil || !changed {
        t.Fatalf("preprocess: changed=%v err=%v", changed, err)
    }
    s := string(out)
    if !strings.Contains(s, "in: body") || !strings.Contains(s, "name: body") {
        t.Fatalf("expected merged single body parameter, got:\n%s", s)
    }
}

func TestV2Compat_BodyAndFormData_ToFormData(t *testing.T) {
    t.Parallel()
    in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /upload:
    post:
      parameters:
      - in: body
        name: desc
        schema: { type: string }
      - in: formData
        name: file
        type: file
        required: true
      responses: { '200': { description: ok } }
`)
    out, changed, err := preprocessV2ForCompatibility(in)
    if err != nil || !changed {
        t.Fatalf("preprocess: changed=%v err=%v", changed, err)
    }
    s := string(out)
    if strings.Contains(s, "\n      - in: body\n") {
        t.Fatalf("expected no body params after conversion to formData, got:\n%s", s)
    }
    if !strings.Contains(s, "multipart/form-data") {
        t.Fatalf("expected consumes multipart/form-data, got:\n%s", s)
    }
}

func TestV2Compat_SingleBodyUntouched(t *testing.T) {
    t.Parallel()
    in := []byte(`swagger: "2.0"
info: { title: t, version: "1.0.0" }
paths:
  /accounts:
    post:
      parameters:
      - in: body
        name: model
        schema: { $ref: '#/definitions/AccountModel' }
      - in: query
        name: $include
        type: string
      responses: { '200': { description: ok } }
`)
    out, changed, err := preprocessV2ForCompatibility(in)
    if err != nil {
        t.Fatalf("preprocess: %v", err)
    }
    if changed || string(out) != string(in) {
        t.Fatalf("expected input to be returned unchanged")
    }
}

func TestV2Compat_MergedBodyKeepsOtherParams(t *testing.T) {
    t.Parallel()
    op := map[string]any{
        "parameters": []any{
            map[string]any{"in": "path", "name": "id", "type": "integer"},
            map[string]any{"in": "body", "name": "a", "type": "string", "required": true},
            map[string]any{"in": "body", "name": "b", "schema": map[string]any{"type": "integer"}},
        },
    }
    if !rewriteV2Operation(op) {
        t.Fatalf("expected rewrite")
    }
    params := op["parameters"].([]any)
    if len(params) != 2 {
        t.Fatalf("expected merged body plus path param, got %d", len(params))
    }
    body := params[0].(map[string]any)
    schema := body["schema"].(map[string]any)
    props := schema["properties"].(map[string]any)
    if _, ok := props["a"]; !ok {
        t.Fatalf("missing property a")
    }
    if req := schema["required"].([]any); len(req) != 1 || req[0] != "a" {
        t.Fatalf("required: got %v", req)
    }
    if params[1].(map[string]any)["name"] != "id" {
        t.Fatalf("path parameter lost")
    }
}
