// Package template renders booking requests from configured templates and
// reads fields back out of JSON responses.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"flashtix/internal/core"
)

// varPattern matches ${var} and ${env:VAR} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Request is a templated booking request. Placeholders are resolved per
// attempt against core.AttemptVariables.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Rendered is a Request with every placeholder resolved.
type Rendered struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Render resolves all placeholders in the request. Errors from every field
// are joined so a broken template reports everything at once.
func (r Request) Render(vars core.Variables) (Rendered, error) {
	var errs []error

	url, err := Substitute(r.URL, vars)
	if err != nil {
		errs = append(errs, fmt.Errorf("url: %w", err))
	}
	body, err := Substitute(r.Body, vars)
	if err != nil {
		errs = append(errs, fmt.Errorf("body: %w", err))
	}
	headers, err := SubstituteMap(r.Headers, vars)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Rendered{}, errors.Join(errs...)
	}
	return Rendered{Method: r.Method, URL: url, Headers: headers, Body: body}, nil
}

// References reports whether any field of the request uses ${name}.
func (r Request) References(name string) bool {
	if containsVar(r.URL, name) || containsVar(r.Body, name) {
		return true
	}
	for _, v := range r.Headers {
		if containsVar(v, name) {
			return true
		}
	}
	return false
}

func containsVar(text, name string) bool {
	for _, p := range Placeholders(text) {
		if p == name {
			return true
		}
	}
	return false
}

// Placeholders lists the placeholder names in text, in order of appearance.
func Placeholders(text string) []string {
	matches := varPattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces ${var} and ${env:VAR} placeholders in text.
// Missing variables are collected and returned joined.
func Substitute(text string, vars core.Variables) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if envName, ok := strings.CutPrefix(name, "env:"); ok {
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		if val, ok := vars.Get(name); ok {
			return fmt.Sprintf("%v", val)
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// SubstituteMap applies Substitute to every value of a header map.
func SubstituteMap(m map[string]string, vars core.Variables) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		substituted, err := Substitute(v, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("header %q: %w", k, err))
			continue
		}
		result[k] = substituted
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}
