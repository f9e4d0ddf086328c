package spec

import (
    "strings"

    "gopkg.in/yaml.v3"
)

// preprocessV2ForCompatibility rewrites Swagger 2.0 operations that
// openapi2conv refuses to convert:
//   - several body parameters are merged into one object-typed body whose
//     properties are the original parameters;
//   - body parameters mixed with formData parameters become formData, and
//     the operation consumes multipart/form-data.
//
// On any error the original bytes are returned with modified=false.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
    var doc map[string]any
    if err := yaml.Unmarshal(data, &doc); err != nil {
        return data, false, err
    }
    paths, _ := doc["paths"].(map[string]any)
    modified := false
    for _, pim := range paths {
        item, _ := pim.(map[string]any)
        for verb, opm := range item {
            if _, ok := ParseHttpMethod(verb); !ok {
                continue
            }
            op, _ := opm.(map[string]any)
            if op != nil && rewriteV2Operation(op) {
                modified = true
            }
        }
    }
    if !modified {
        return data, false, nil
    }
    out, err := yaml.Marshal(doc)
    if err != nil {
        return data, false, err
    }
    return out, true, nil
}

// rewriteV2Operation reports whether op was changed.
func rewriteV2Operation(op map[string]any) bool {
    params, _ := op["parameters"].([]any)
    var bodies, others []map[string]any
    hasFormData := false
    for _, p := range params {
        pm, _ := p.(map[string]any)
        if pm == nil {
            continue
        }
        switch strings.ToLower(asString(pm["in"])) {
        case "body":
            bodies = append(bodies, pm)
            continue
        case "formdata":
            hasFormData = true
        }
        others = append(others, pm)
    }

    switch {
    case len(bodies) == 0:
        return false
    case hasFormData:
        rewritten := make([]any, 0, len(params))
        for _, p := range params {
            pm, _ := p.(map[string]any)
            if pm == nil {
                continue
            }
            if strings.EqualFold(asString(pm["in"]), "body") {
                pm = formDataFromBodyParam(pm)
            }
            rewritten = append(rewritten, pm)
        }
        op["parameters"] = rewritten
        consumes, _ := op["consumes"].([]any)
        if !containsString(consumes, "multipart/form-data") {
            op["consumes"] = append(consumes, "multipart/form-data")
        }
        return true
    case len(bodies) > 1:
        op["parameters"] = append([]any{mergeBodyParams(bodies)}, toAnySlice(others)...)
        return true
    }
    return false
}

func mergeBodyParams(bodies []map[string]any) map[string]any {
    props := map[string]any{}
    var required []any
    for _, pm := range bodies {
        name := asString(pm["name"])
        if name == "" {
            name = "field"
        }
        schema := extractSchemaFromParam(pm)
        if schema == nil {
            schema = map[string]any{"type": "string"}
        }
        props[name] = schema
        if rb, _ := pm["required"].(bool); rb {
            required = append(required, name)
        }
    }
    schema := map[string]any{"type": "object", "properties": props}
    if len(required) > 0 {
        schema["required"] = required
    }
    return map[string]any{"in": "body", "name": "body", "schema": schema}
}

func toAnySlice(in []map[string]any) []any {
    out := make([]any, len(in))
    for i, m := range in {
        out[i] = m
    }
    return out
}

func asString(v any) string {
    s, _ := v.(string)
    return s
}

func containsString(list []any, want string) bool {
    for _, v := range list {
        if s, ok := v.(string); ok && s == want {
            return true
        }
    }
    return false
}

// extractSchemaFromParam returns the body schema, or one synthesized from
// the parameter's type, items and format.
func extractSchemaFromParam(pm map[string]any) map[string]any {
    if sch, ok := pm["schema"].(map[string]any); ok {
        return sch
    }
    t := asString(pm["type"])
    if t == "" {
        return nil
    }
    m := map[string]any{"type": t}
    if it, ok := pm["items"].(map[string]any); ok {
        m["items"] = it
    }
    if f := asString(pm["format"]); f != "" {
        m["format"] = f
    }
    return m
}

func formDataFromBodyParam(pm map[string]any) map[string]any {
    name := asString(pm["name"])
    if name == "" {
        name = "field"
    }
    out := map[string]any{"in": "formData", "name": name}
    if desc := asString(pm["description"]); desc != "" {
        out["description"] = desc
    }
    if req, ok := pm["required"].(bool); ok {
        out["required"] = req
    }

    src := pm
    if sch, ok := pm["schema"].(map[string]any); ok {
        src = sch
    }
    typ := asString(src["type"])
    if typ == "" {
        // a referenced object has no formData representation
        typ = "string"
    }
    out["type"] = typ
    if it, ok := src["items"].(map[string]any); ok {
        out["items"] = it
    }
    if f := asString(src["format"]); f != "" {
        out["format"] = f
    }
    return out
}
