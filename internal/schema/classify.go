// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema turns the chaincode's declared API into operation tabs for
// the query and invoke forms.
package schema

import (
	"strings"
)

// Function is one declared contract function.
type Function struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Method is "query" or "invoke" when the schema says so.
	Method string   `json:"method,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Tab groups the functions whose names start with the tab name.
// Selected is 0 when the tab has functions and -1 when it is empty.
type Tab struct {
	Name      string     `json:"name"`
	Functions []Function `json:"functions"`
	Selected  int        `json:"selected"`
}

// Classification is the result of one Classify call. It owns the declared
// function list used by FunctionFor.
type Classification struct {
	Tabs []Tab      `json:"tabs"`
	API  []Function `json:"api"`
}

// Classify groups api under every tab whose name is a case-insensitive prefix
// of the function name, keeping declaration order. Functions matching no tab
// are left out of the tabs but stay in API.
func Classify(api []Function, tabs []string) Classification {
	out := Classification{
		Tabs: make([]Tab, len(tabs)),
		API:  append([]Function(nil), api...),
	}
	for i, name := range tabs {
		out.Tabs[i] = Tab{Name: name, Functions: []Function{}, Selected: -1}
	}
	for _, fn := range api {
		lower := strings.ToLower(fn.Name)
		for i := range out.Tabs {
			if strings.HasPrefix(lower, strings.ToLower(out.Tabs[i].Name)) {
				out.Tabs[i].Functions = append(out.Tabs[i].Functions, fn)
				out.Tabs[i].Selected = 0
			}
		}
	}
	return out
}

// Tab returns the tab with the given name, ignoring case.
func (c Classification) Tab(name string) (Tab, bool) {
	for _, t := range c.Tabs {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Tab{}, false
}

// Lookup returns the declared function named name.
func (c Classification) Lookup(name string) (Function, bool) {
	for _, fn := range c.API {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

// FunctionFor returns the first declared function name contained in s, or ""
// when none is.
func (c Classification) FunctionFor(s string) string {
	for _, fn := range c.API {
		if fn.Name != "" && strings.Contains(s, fn.Name) {
			return fn.Name
		}
	}
	return ""
}

// Empty reports whether no function was declared.
func (c Classification) Empty() bool { return len(c.API) == 0 }
