// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package utils

import "sort"

// GetKeys returns the keys of a string set in lexical order.
func GetKeys(setMap map[string]bool) []string {
	var keys []string
	for key := range setMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetIntKeys returns the keys of an int set in ascending order.
func GetIntKeys(setMap map[int]bool) []int {
	var keys []int
	for key := range setMap {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// UniqueStrings merges the given lists dropping duplicates; the result
// keeps the first-seen order.
func UniqueStrings(lists ...[]string) []string {
	var merged []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, item := range list {
			if !seen[item] {
				seen[item] = true
				merged = append(merged, item)
			}
		}
	}
	return merged
}
