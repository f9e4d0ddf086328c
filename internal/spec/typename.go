package spec

import (
    "strings"

    "github.com/getkin/kin-openapi/openapi3"
)

// Semantic type labels produced by ResolveTypeName. Dialects map them to
// their own vocabulary; anything else is treated as a model name.
const (
    TypeInt16      = "Int16"
    TypeInt32      = "Int32"
    TypeInt64      = "Int64"
    TypeByte       = "Byte"
    TypeDecimal    = "Decimal"
    TypeDouble     = "Double"
    TypeBoolean    = "Boolean"
    TypeDateTime   = "DateTime"
    TypeString     = "String"
    TypeBytes      = "Byte[]"
    TypeFileResult = "FileResult"
    TypeDictionary = "Dictionary<string, string>"
)

// ResolveTypeName derives the semantic type label of a schema. Optional
// value types carry a trailing "?". A nil schema means a file download.
func ResolveTypeName(ref *openapi3.SchemaRef, required bool) string {
    if ref == nil {
        return TypeFileResult
    }
    if ref.Ref != "" {
        return modelNameFromRef(ref.Ref)
    }
    s := ref.Value
    if s == nil || s.Type == "file" {
        return TypeFileResult
    }

    var name string
    valueType := true
    format := strings.ToLower(s.Format)
    switch s.Type {
    case "integer":
        switch format {
        case "int64":
            name = TypeInt64
        case "byte":
            name = TypeByte
        case "int16":
            name = TypeInt16
        default:
            name = TypeInt32
        }
    case "number":
        if format == "double" || format == "float" {
            name = TypeDouble
        } else {
            name = TypeDecimal
        }
    case "boolean":
        name = TypeBoolean
    case "string":
        switch format {
        case "date-time":
            name = TypeDateTime
        case "byte":
            name, valueType = TypeBytes, false
        case "binary":
            name, valueType = TypeFileResult, false
        default:
            return TypeString
        }
    case "array":
        return "List<" + strings.TrimSuffix(ResolveTypeName(s.Items, true), "?") + ">"
    case "object", "":
        if len(s.AllOf) == 1 {
            return ResolveTypeName(s.AllOf[0], required)
        }
        return TypeDictionary
    default:
        return TypeDictionary
    }
    if valueType && !required {
        name += "?"
    }
    return name
}

// modelNameFromRef keeps the last segment of a $ref; generic wrappers such
// as FetchResult[AccountModel] are rewritten to FetchResult<AccountModel>.
func modelNameFromRef(ref string) string {
    name := ref
    if i := strings.LastIndex(ref, "/"); i >= 0 {
        name = ref[i+1:]
    }
    if strings.HasPrefix(name, "FetchResult") {
        name = strings.NewReplacer("[", "<", "]", ">").Replace(name)
    }
    return name
}
