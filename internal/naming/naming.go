// Package naming converts resource and field names into GraphQL names.
package naming

import (
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"rest-graphql/internal/restspec"
)

// ToTypeName converts a resource or schema name to a GraphQL type name.
// Example: "photo_albums" -> "PhotoAlbums".
func ToTypeName(name string) string {
	return toPascalCase(name)
}

// ToFieldName converts a descriptor name to a GraphQL field name.
// Example: "created_by" -> "createdBy".
func ToFieldName(name string) string {
	return toCamelCase(name)
}

// QueryFieldName produces the root query field for a resource,
// pluralized in camelCase. Example: "album" -> "albums".
func QueryFieldName(resource restspec.Resource) string {
	return inflection.Plural(ToFieldName(resource.Name))
}

// ElementTypeName produces the GraphQL object name for a resource's
// element type. The declared schema name wins; otherwise the singular
// resource name. Example: resource "albums" -> "Album".
func ElementTypeName(resource restspec.Resource) string {
	if resource.Schema != nil && resource.Schema.Name != "" {
		return ToTypeName(resource.Schema.Name)
	}
	return ToTypeName(inflection.Singular(resource.Name))
}

// ConnectionTypeName produces the deterministic connection type name for
// a resource. Example: resource "foo" version 1 -> "FooV1Connection".
func ConnectionTypeName(resource restspec.Resource) string {
	return ToTypeName(resource.Name) + "V" + strconv.Itoa(resource.Version) + "Connection"
}

func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
