// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseUnitIDs parses a string of unit IDs (e.g. "1,2,5-10") into a slice
// of bytes, in the order given. An empty string is an error.
func ParseUnitIDs(input string) ([]byte, error) {
	var ids []byte
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			// Range
			ranges := strings.Split(part, "-")
			if len(ranges) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, err := parseUnitID(ranges[0])
			if err != nil {
				return nil, fmt.Errorf("invalid start of range: %w", err)
			}
			end, err := parseUnitID(ranges[1])
			if err != nil {
				return nil, fmt.Errorf("invalid end of range: %w", err)
			}
			if start > end {
				return nil, fmt.Errorf("start of range %d is greater than end %d", start, end)
			}
			for i := start; i <= end; i++ {
				ids = append(ids, byte(i))
			}
			continue
		}
		id, err := parseUnitID(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id: %w", err)
		}
		ids = append(ids, byte(id))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no unit ids in %q", input)
	}
	return ids, nil
}

func parseUnitID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if id < 0 || id > 255 {
		return 0, fmt.Errorf("id out of range: %d", id)
	}
	return id, nil
}
