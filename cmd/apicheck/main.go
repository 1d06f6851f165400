// Package main checks the OpenAPI document against the routes the server
// actually registers, and can compare two revisions of the document for
// backward-incompatible changes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"warbler/internal/server"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

// Paths under these prefixes are infrastructure and not part of the documented API.
var undocumentedPrefixes = []string{"/api", "/metrics", "/health"}

type operation struct {
	Responses map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

func main() {
	specPath := flag.String("spec", "docs/swagger.yaml", "OpenAPI document to check against the registered routes")
	basePath := flag.String("base", "", "base OpenAPI swagger.yaml path (compat mode)")
	revisionPath := flag.String("revision", "", "revision OpenAPI swagger.yaml path (compat mode)")
	flag.Parse()

	var issues []string
	if strings.TrimSpace(*basePath) != "" || strings.TrimSpace(*revisionPath) != "" {
		if strings.TrimSpace(*basePath) == "" || strings.TrimSpace(*revisionPath) == "" {
			fmt.Fprintln(os.Stderr, "usage: apicheck -base <path> -revision <path>")
			os.Exit(2)
		}
		baseSpec := mustLoad(*basePath)
		revisionSpec := mustLoad(*revisionPath)
		issues = compare(baseSpec, revisionSpec)
	} else {
		issues = routeDrift(mustLoad(*specPath), server.Routes())
	}

	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "api check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Println("api check passed")
}

func mustLoad(path string) parsedSpec {
	spec, err := loadSpec(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
		os.Exit(1)
	}
	return spec
}

func loadSpec(path string) (parsedSpec, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return parsedSpec{}, err
	}
	return parseSpec(raw)
}

func parseSpec(raw []byte) (parsedSpec, error) {
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}

	pathsRaw, ok := doc["paths"]
	if !ok {
		return parsedSpec{}, errors.New("missing top-level paths field")
	}

	pathsMap, ok := toMap(pathsRaw)
	if !ok {
		return parsedSpec{}, errors.New("paths is not an object")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation)}

	for pathKey, pathEntry := range pathsMap {
		pathOpsRaw, ok := toMap(pathEntry)
		if !ok {
			continue
		}

		ops := make(map[string]operation)
		for methodKey, methodEntry := range pathOpsRaw {
			methodLower := strings.ToLower(strings.TrimSpace(methodKey))
			if _, supported := supportedMethods[methodLower]; !supported {
				continue
			}

			methodMap, ok := toMap(methodEntry)
			if !ok {
				continue
			}

			responseSet := make(map[string]struct{})
			if responsesRaw, exists := methodMap["responses"]; exists {
				if responsesMap, ok := toMap(responsesRaw); ok {
					for code := range responsesMap {
						normalized := strings.ToLower(strings.TrimSpace(code))
						if normalized != "" {
							responseSet[normalized] = struct{}{}
						}
					}
				}
			}

			ops[methodLower] = operation{Responses: responseSet}
		}

		if len(ops) > 0 {
			spec.Paths[pathKey] = ops
		}
	}

	return spec, nil
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// compare lists the changes in revision that would break clients of base.
func compare(base, revision parsedSpec) []string {
	var issues []string

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}

		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}

			for responseCode := range baseOp.Responses {
				if _, ok := revOp.Responses[responseCode]; !ok {
					issues = append(issues, fmt.Sprintf(
						"removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(responseCode),
					))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// normalizePath maps both swagger ("{id}") and fiber (":id") parameter
// syntax onto the fiber form and drops any trailing slash.
func normalizePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segments[i] = ":" + strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
		}
	}
	out := strings.Join(segments, "/")
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

func documented(path string) bool {
	for _, prefix := range undocumentedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return false
		}
	}
	return true
}

// routeDrift reports routes the server serves but the document omits, and
// documented operations the server no longer serves.
func routeDrift(spec parsedSpec, routes []server.Route) []string {
	registered := make(map[string]struct{})
	for _, r := range routes {
		path := normalizePath(r.Path)
		if !documented(path) {
			continue
		}
		registered[strings.ToUpper(r.Method)+" "+path] = struct{}{}
	}

	docs := make(map[string]struct{})
	for path, ops := range spec.Paths {
		for method := range ops {
			docs[strings.ToUpper(method)+" "+normalizePath(path)] = struct{}{}
		}
	}

	var issues []string
	for key := range registered {
		if _, ok := docs[key]; !ok {
			issues = append(issues, "undocumented route: "+key)
		}
	}
	for key := range docs {
		if _, ok := registered[key]; !ok {
			issues = append(issues, "documented but not served: "+key)
		}
	}
	sort.Strings(issues)
	return issues
}
